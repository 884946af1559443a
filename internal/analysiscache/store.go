package analysiscache

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"stillcut/internal/detect"
	"stillcut/internal/timeline"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped whenever schema.sql changes. Older databases are
// rejected with ErrSchemaMismatch; `stillcut cache clear` recreates them.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was written by another schema version.
var ErrSchemaMismatch = errors.New("analysis cache schema version mismatch")

// Store is the SQLite-backed analysis cache.
type Store struct {
	db   *sql.DB
	path string
}

// Entry is one cached analysis.
type Entry struct {
	Key         string
	Fingerprint Fingerprint
	Events      []detect.Event
	// Keyframes is nil when the keyframe list has not been probed yet.
	Keyframes []timeline.Timestamp
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary is the listing view of an entry without its payload.
type Summary struct {
	Key           string
	Path          string
	SizeBytes     int64
	Filter        string
	EventCount    int
	KeyframeCount int
	HasKeyframes  bool
	UpdatedAt     time.Time
}

// Open creates or connects to the cache database at path.
func Open(ctx context.Context, path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("analysis cache path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure cache directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// A single connection keeps pragmas in effect for every statement.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.ExecContext(ctx, pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (run 'stillcut cache clear' or delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Lookup returns the entry for fp, or nil when nothing is cached.
func (s *Store) Lookup(ctx context.Context, fp Fingerprint) (*Entry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT key, input_path, size_bytes, mod_time, analyzer_filter,
		        events_json, keyframes_json, created_at, updated_at
		   FROM analyses WHERE key = ?`,
		fp.Key(),
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("lookup analysis: %w", err)
	}
	return entry, nil
}

// SaveEvents stores the analyzer events for fp, replacing any previous entry.
// Previously stored keyframes survive.
func (s *Store) SaveEvents(ctx context.Context, fp Fingerprint, events []detect.Event) error {
	payload, err := encodeEvents(events)
	if err != nil {
		return err
	}
	now := formatTime(time.Now())
	_, err = s.exec(ctx,
		`INSERT INTO analyses (
		    key, input_path, size_bytes, mod_time, analyzer_filter,
		    events_json, event_count, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET
		    events_json = excluded.events_json,
		    event_count = excluded.event_count,
		    updated_at = excluded.updated_at`,
		fp.Key(), fp.Path, fp.Size, formatTime(fp.ModTime), fp.Filter,
		payload, len(events), now, now,
	)
	return err
}

// SaveKeyframes attaches a keyframe list to an existing entry. It reports
// false when no entry exists for fp.
func (s *Store) SaveKeyframes(ctx context.Context, fp Fingerprint, keyframes []timeline.Timestamp) (bool, error) {
	payload, err := encodeKeyframes(keyframes)
	if err != nil {
		return false, err
	}
	n, err := s.exec(ctx,
		`UPDATE analyses SET keyframes_json = ?, keyframe_count = ?, updated_at = ? WHERE key = ?`,
		payload, len(keyframes), formatTime(time.Now()), fp.Key(),
	)
	if err != nil {
		return false, fmt.Errorf("save keyframes: %w", err)
	}
	return n > 0, nil
}

// List returns every cached entry, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, input_path, size_bytes, analyzer_filter, event_count,
		        keyframe_count, keyframes_json IS NOT NULL, updated_at
		   FROM analyses ORDER BY updated_at DESC, key`,
	)
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			summary    Summary
			updatedRaw string
		)
		if err := rows.Scan(
			&summary.Key, &summary.Path, &summary.SizeBytes, &summary.Filter,
			&summary.EventCount, &summary.KeyframeCount, &summary.HasKeyframes, &updatedRaw,
		); err != nil {
			return nil, fmt.Errorf("scan analysis: %w", err)
		}
		summary.UpdatedAt = parseTime(updatedRaw)
		out = append(out, summary)
	}
	return out, rows.Err()
}

// Remove deletes the entry for fp.
func (s *Store) Remove(ctx context.Context, fp Fingerprint) (bool, error) {
	n, err := s.exec(ctx, `DELETE FROM analyses WHERE key = ?`, fp.Key())
	if err != nil {
		return false, fmt.Errorf("remove analysis: %w", err)
	}
	return n > 0, nil
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	n, err := s.exec(ctx, `DELETE FROM analyses`)
	if err != nil {
		return 0, fmt.Errorf("clear analyses: %w", err)
	}
	return n, nil
}

// Prune removes entries not updated within maxAge, and entries whose input no
// longer exists or no longer matches its fingerprint.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int, error) {
	summaries, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, summary := range summaries {
		stale := maxAge > 0 && summary.UpdatedAt.Before(cutoff)
		if !stale {
			stale = !inputStillMatches(ctx, s, summary)
		}
		if !stale {
			continue
		}
		if _, err := s.exec(ctx, `DELETE FROM analyses WHERE key = ?`, summary.Key); err != nil {
			return removed, fmt.Errorf("prune analysis: %w", err)
		}
		removed++
	}
	return removed, nil
}

func inputStillMatches(ctx context.Context, s *Store, summary Summary) bool {
	var modRaw string
	if err := s.db.QueryRowContext(ctx, `SELECT mod_time FROM analyses WHERE key = ?`, summary.Key).Scan(&modRaw); err != nil {
		return false
	}
	current, err := NewFingerprint(summary.Path, summary.Filter)
	if err != nil {
		return false
	}
	return current.Size == summary.SizeBytes && current.ModTime.Equal(parseTime(modRaw))
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		entry                  Entry
		modRaw                 string
		eventsRaw              string
		keyframesRaw           sql.NullString
		createdRaw, updatedRaw string
	)
	if err := scanner.Scan(
		&entry.Key,
		&entry.Fingerprint.Path,
		&entry.Fingerprint.Size,
		&modRaw,
		&entry.Fingerprint.Filter,
		&eventsRaw,
		&keyframesRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}
	entry.Fingerprint.ModTime = parseTime(modRaw)
	entry.CreatedAt = parseTime(createdRaw)
	entry.UpdatedAt = parseTime(updatedRaw)

	events, err := decodeEvents(eventsRaw)
	if err != nil {
		return nil, err
	}
	entry.Events = events
	if keyframesRaw.Valid {
		keyframes, err := decodeKeyframes(keyframesRaw.String)
		if err != nil {
			return nil, err
		}
		entry.Keyframes = keyframes
	}
	return &entry, nil
}

// storedEvent keeps only the raw marker; the signal is re-derived on load.
type storedEvent struct {
	Time   string `json:"t"`
	Marker int    `json:"m"`
}

func encodeEvents(events []detect.Event) (string, error) {
	stored := make([]storedEvent, len(events))
	for i, ev := range events {
		stored[i] = storedEvent{Time: ev.Time.String(), Marker: ev.Marker}
	}
	data, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode events: %w", err)
	}
	return string(data), nil
}

func decodeEvents(raw string) ([]detect.Event, error) {
	var stored []storedEvent
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}
	events := make([]detect.Event, len(stored))
	for i, ev := range stored {
		ts, err := timeline.ParseSeconds(ev.Time)
		if err != nil {
			return nil, fmt.Errorf("decode event %d: %w", i, err)
		}
		events[i] = detect.Event{Time: ts, Marker: ev.Marker, Signal: detect.ParseMarker(ev.Marker)}
	}
	return events, nil
}

func encodeKeyframes(keyframes []timeline.Timestamp) (string, error) {
	values := make([]string, len(keyframes))
	for i, kf := range keyframes {
		values[i] = kf.String()
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("encode keyframes: %w", err)
	}
	return string(data), nil
}

func decodeKeyframes(raw string) ([]timeline.Timestamp, error) {
	var values []string
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("decode keyframes: %w", err)
	}
	out := make([]timeline.Timestamp, len(values))
	for i, value := range values {
		ts, err := timeline.ParseSeconds(value)
		if err != nil {
			return nil, fmt.Errorf("decode keyframe %d: %w", i, err)
		}
		out[i] = ts
	}
	return out, nil
}

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(raw string) time.Time {
	t, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return t
}
