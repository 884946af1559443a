package plan

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"stillcut/internal/timeline"
)

// Mode selects how kept intervals are written to the output.
type Mode string

const (
	// ModeCopy stream-copies keyframe-aligned segments and concatenates them.
	ModeCopy Mode = "copy"
	// ModeReencode trims and concatenates through one filter graph.
	ModeReencode Mode = "reencode"
)

// ParseMode validates a mode name from configuration or flags.
func ParseMode(value string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeCopy:
		return ModeCopy, nil
	case ModeReencode:
		return ModeReencode, nil
	default:
		return "", fmt.Errorf("unknown output mode %q (want copy or reencode)", value)
	}
}

// ErrNoIntervals reports an attempt to plan an empty interval list.
var ErrNoIntervals = errors.New("no intervals to plan")

// Encoding carries the codec settings for re-encode mode.
type Encoding struct {
	VideoCodec string
	AudioCodec string
	Preset     string
	CRF        int
	// HasAudio controls whether audio trims are emitted in the filter graph.
	HasAudio bool
}

// Segment is one stream-copied slice of the source.
type Segment struct {
	Index    int
	Interval timeline.Interval
	Path     string
}

// Job is one ffmpeg invocation. Args exclude the binary.
type Job struct {
	Label string
	Args  []string
}

// Plan is the ordered list of ffmpeg invocations that produce Output.
type Plan struct {
	Mode       Mode
	Input      string
	Output     string
	Intervals  []timeline.Interval
	Segments   []Segment
	ConcatList string
	Graph      string
	Jobs       []Job
}

// NewCopy plans a stream-copy cut. Segments and the concat list live in workDir
// and share the input's container extension.
func NewCopy(input, output, workDir string, intervals []timeline.Interval) (*Plan, error) {
	if err := checkIntervals(intervals); err != nil {
		return nil, err
	}
	ext := filepath.Ext(input)
	if ext == "" {
		ext = ".mkv"
	}
	p := &Plan{
		Mode:       ModeCopy,
		Input:      input,
		Output:     output,
		Intervals:  append([]timeline.Interval(nil), intervals...),
		ConcatList: filepath.Join(workDir, "concat.txt"),
	}
	for idx, iv := range intervals {
		seg := Segment{
			Index:    idx,
			Interval: iv,
			Path:     filepath.Join(workDir, fmt.Sprintf("segment-%04d%s", idx+1, ext)),
		}
		p.Segments = append(p.Segments, seg)
		p.Jobs = append(p.Jobs, Job{
			Label: fmt.Sprintf("segment %d/%d", idx+1, len(intervals)),
			Args:  SegmentArgs(input, seg),
		})
	}
	p.Jobs = append(p.Jobs, Job{Label: "concat", Args: ConcatArgs(p.ConcatList, output)})
	return p, nil
}

// NewReencode plans a single-pass filter-graph re-encode.
func NewReencode(input, output string, intervals []timeline.Interval, enc Encoding) (*Plan, error) {
	if err := checkIntervals(intervals); err != nil {
		return nil, err
	}
	graph := FilterGraph(intervals, enc.HasAudio)
	return &Plan{
		Mode:      ModeReencode,
		Input:     input,
		Output:    output,
		Intervals: append([]timeline.Interval(nil), intervals...),
		Graph:     graph,
		Jobs:      []Job{{Label: "reencode", Args: ReencodeArgs(input, output, graph, enc)}},
	}, nil
}

func checkIntervals(intervals []timeline.Interval) error {
	if len(intervals) == 0 {
		return ErrNoIntervals
	}
	return timeline.Validate(intervals)
}

// ConcatListContent renders the concat demuxer list for segments.
func ConcatListContent(segments []Segment) string {
	var b strings.Builder
	for _, seg := range segments {
		fmt.Fprintf(&b, "file '%s'\n", escapeConcatPath(seg.Path))
	}
	return b.String()
}

// WriteConcatList writes the concat list for a copy plan. It is a no-op for
// re-encode plans.
func (p *Plan) WriteConcatList() error {
	if p.Mode != ModeCopy {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(p.ConcatList), 0o755); err != nil {
		return fmt.Errorf("create concat list dir: %w", err)
	}
	if err := os.WriteFile(p.ConcatList, []byte(ConcatListContent(p.Segments)), 0o644); err != nil {
		return fmt.Errorf("write concat list: %w", err)
	}
	return nil
}

// KeptDuration sums the planned intervals, resolving an open tail against total.
func (p *Plan) KeptDuration(total timeline.Timestamp) timeline.Timestamp {
	return timeline.TotalDuration(p.Intervals, total)
}

func escapeConcatPath(path string) string {
	return strings.ReplaceAll(path, "'", `'\''`)
}
