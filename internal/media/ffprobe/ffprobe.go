package ffprobe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"

	"stillcut/internal/keyframes"
	"stillcut/internal/timeline"
)

// Result represents the parsed output from an ffprobe inspection.
type Result struct {
	Streams []Stream `json:"streams"`
	Format  Format   `json:"format"`
	raw     []byte
}

// Stream describes a single stream in the media container.
type Stream struct {
	Index      int    `json:"index"`
	CodecName  string `json:"codec_name"`
	CodecType  string `json:"codec_type"`
	Duration   string `json:"duration"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	FrameRate  string `json:"avg_frame_rate"`
	SampleRate string `json:"sample_rate"`
	Channels   int    `json:"channels"`
}

// Format captures container-level metadata extracted by ffprobe.
type Format struct {
	Filename   string `json:"filename"`
	NBStreams  int    `json:"nb_streams"`
	Duration   string `json:"duration"`
	Size       string `json:"size"`
	BitRate    string `json:"bit_rate"`
	FormatName string `json:"format_name"`
}

// Runner executes ffprobe and returns its stdout.
type Runner interface {
	Output(ctx context.Context, binary string, args []string) ([]byte, error)
}

// Option configures a Prober.
type Option func(*Prober)

// WithRunner injects a custom runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(p *Prober) {
		if r != nil {
			p.run = r
		}
	}
}

// Prober runs ffprobe queries against media files.
type Prober struct {
	binary string
	run    Runner
}

// New constructs a Prober. An empty binary falls back to "ffprobe" on PATH.
func New(binary string, opts ...Option) *Prober {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "ffprobe"
	}
	p := &Prober{binary: binary, run: commandRunner{}}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Inspect executes ffprobe against the provided path and decodes the JSON response.
func Inspect(ctx context.Context, binary string, path string) (Result, error) {
	return New(binary).Inspect(ctx, path)
}

// Inspect decodes container and stream metadata for path.
func (p *Prober) Inspect(ctx context.Context, path string) (Result, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Result{}, errors.New("ffprobe inspect: empty path")
	}
	output, err := p.run.Output(ctx, p.binary, []string{"-v", "error", "-hide_banner", "-show_format", "-show_streams", "-of", "json", "--", path})
	if err != nil {
		return Result{}, fmt.Errorf("ffprobe inspect: %w", err)
	}

	var result Result
	if err := json.Unmarshal(output, &result); err != nil {
		return Result{}, fmt.Errorf("ffprobe parse: %w", err)
	}
	result.raw = append([]byte(nil), output...)
	return result, nil
}

// KeyframeArgs lists the presentation time of every keyframe in the first
// video stream, one per line.
func KeyframeArgs(path string) []string {
	return []string{
		"-v", "error",
		"-select_streams", "v:0",
		"-skip_frame", "nokey",
		"-show_entries", "frame=pts_time",
		"-of", "csv=p=0",
		"--", path,
	}
}

// Keyframes returns the sorted, deduplicated keyframe timestamps for path.
// Sources with an edit list can report times below zero.
func (p *Prober) Keyframes(ctx context.Context, path string) ([]timeline.Timestamp, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("ffprobe keyframes: empty path")
	}
	output, err := p.run.Output(ctx, p.binary, KeyframeArgs(path))
	if err != nil {
		return nil, fmt.Errorf("ffprobe keyframes: %w", err)
	}
	list, err := keyframes.ParseList(bytes.NewReader(output))
	if err != nil {
		return nil, fmt.Errorf("ffprobe keyframes: %w", err)
	}
	return list, nil
}

// RawJSON returns the raw ffprobe JSON payload.
func (r Result) RawJSON() []byte {
	return append([]byte(nil), r.raw...)
}

// VideoStreamCount returns the number of video streams discovered.
func (r Result) VideoStreamCount() int {
	return r.countStreams("video")
}

// AudioStreamCount returns the number of audio streams discovered.
func (r Result) AudioStreamCount() int {
	return r.countStreams("audio")
}

func (r Result) countStreams(kind string) int {
	count := 0
	for _, stream := range r.Streams {
		if strings.EqualFold(stream.CodecType, kind) {
			count++
		}
	}
	return count
}

// Duration returns the container duration as an exact timestamp. The boolean
// is false when ffprobe reported no usable duration.
func (r Result) Duration() (timeline.Timestamp, bool) {
	value := strings.TrimSpace(r.Format.Duration)
	if value == "" || strings.EqualFold(value, "n/a") {
		return timeline.Zero, false
	}
	parsed, err := timeline.ParseSeconds(value)
	if err != nil {
		return timeline.Zero, false
	}
	return parsed, true
}

// SizeBytes returns the reported container size in bytes, or 0 when unavailable.
func (r Result) SizeBytes() int64 {
	size := parseFloat(r.Format.Size)
	if math.IsNaN(size) || size < 0 {
		return 0
	}
	return int64(size)
}

// BitRate returns the container bitrate in bits per second, or 0 when unavailable.
func (r Result) BitRate() int64 {
	rate := parseFloat(r.Format.BitRate)
	if math.IsNaN(rate) || rate < 0 {
		return 0
	}
	return int64(rate)
}

func parseFloat(value string) float64 {
	cleaned := strings.TrimSpace(value)
	if cleaned == "" {
		return 0
	}
	if parsed, err := strconv.ParseFloat(cleaned, 64); err == nil {
		return parsed
	}
	return math.NaN()
}

type commandRunner struct{}

func (commandRunner) Output(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
