package logs

import (
	"encoding/json"
	"log/slog"
	"strings"
)

// Record is one decoded JSON log line. Fields keeps every attribute,
// including the well-known ones below.
type Record struct {
	Time    string
	Level   string
	Message string
	RunID   string
	Stage   string
	Fields  map[string]any
	Raw     string
}

// ParseRecord decodes one line written by the JSON handler. Lines that are not
// JSON objects report false.
func ParseRecord(line string) (Record, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Record{}, false
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(line), &fields); err != nil {
		return Record{}, false
	}
	return Record{
		Time:    stringField(fields, "ts"),
		Level:   strings.ToLower(stringField(fields, "level")),
		Message: stringField(fields, "msg"),
		RunID:   stringField(fields, "run_id"),
		Stage:   stringField(fields, "stage"),
		Fields:  fields,
		Raw:     line,
	}, true
}

func stringField(fields map[string]any, key string) string {
	if value, ok := fields[key].(string); ok {
		return value
	}
	return ""
}

// Filter selects records. Zero values match everything; RunID matches by
// prefix so the short id shown on the console is enough.
type Filter struct {
	RunID    string
	Stage    string
	MinLevel slog.Level
}

// Matches reports whether rec passes every configured criterion.
func (f Filter) Matches(rec Record) bool {
	if f.RunID != "" && !strings.HasPrefix(rec.RunID, f.RunID) {
		return false
	}
	if f.Stage != "" && !strings.EqualFold(rec.Stage, f.Stage) {
		return false
	}
	return recordLevel(rec.Level) >= f.MinLevel
}

// Apply parses lines and returns the matching records in order.
func (f Filter) Apply(lines []string) []Record {
	var out []Record
	for _, line := range lines {
		rec, ok := ParseRecord(line)
		if !ok || !f.Matches(rec) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func recordLevel(level string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
