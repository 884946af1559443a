package ffmpeg

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	ffmpeggo "github.com/u2takey/ffmpeg-go"
)

// DefaultAnalyzerFilter is the mpdecimate tuning used when configuration
// leaves the analyzer filter empty.
const DefaultAnalyzerFilter = "mpdecimate=hi=64*12:lo=64*5:frac=0.33"

// tailLines is how many trailing output lines are attached to a failure.
const tailLines = 8

// Executor abstracts command execution for testability.
type Executor interface {
	Run(ctx context.Context, binary string, args []string, onLine func(string)) error
}

// Option configures the client.
type Option func(*Client)

// WithExecutor injects a custom executor (primarily for tests).
func WithExecutor(exec Executor) Option {
	return func(c *Client) {
		if exec != nil {
			c.exec = exec
		}
	}
}

// Client wraps ffmpeg CLI interactions.
type Client struct {
	binary         string
	analyzeTimeout time.Duration
	encodeTimeout  time.Duration
	exec           Executor
}

// New constructs an ffmpeg client. Zero timeouts disable the deadline.
func New(binary string, analyzeTimeoutSeconds, encodeTimeoutSeconds int, opts ...Option) (*Client, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("ffmpeg binary required")
	}
	client := &Client{
		binary:         binary,
		analyzeTimeout: time.Duration(analyzeTimeoutSeconds) * time.Second,
		encodeTimeout:  time.Duration(encodeTimeoutSeconds) * time.Second,
		exec:           commandExecutor{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Binary returns the configured ffmpeg executable.
func (c *Client) Binary() string {
	return c.binary
}

// AnalyzeArgs decodes input through filter at debug verbosity and discards the
// frames, so the only output is the filter's per-frame log.
func AnalyzeArgs(input, filter string) []string {
	filter = strings.TrimSpace(filter)
	if filter == "" {
		filter = DefaultAnalyzerFilter
	}
	return ffmpeggo.Input(input).
		Output("-", ffmpeggo.KwArgs{
			"vf": filter,
			"an": "",
			"f":  "null",
		}).
		GlobalArgs("-hide_banner", "-nostdin", "-nostats", "-loglevel", "debug").
		GetArgs()
}

// Analyze runs the frame-similarity analyzer and hands every output line to
// onLine as it arrives.
func (c *Client) Analyze(ctx context.Context, input, filter string, onLine func(string)) error {
	if strings.TrimSpace(input) == "" {
		return errors.New("ffmpeg analyze: empty input path")
	}
	runCtx, cancel := withTimeout(ctx, c.analyzeTimeout)
	defer cancel()

	if err := c.exec.Run(runCtx, c.binary, AnalyzeArgs(input, filter), onLine); err != nil {
		return fmt.Errorf("ffmpeg analyze: %w", timeoutCause(runCtx, err))
	}
	return nil
}

// Exec runs one prepared ffmpeg job. On failure the last few output lines
// are included in the error.
func (c *Client) Exec(ctx context.Context, label string, args []string) error {
	runCtx, cancel := withTimeout(ctx, c.encodeTimeout)
	defer cancel()

	tail := newTailBuffer(tailLines)
	if err := c.exec.Run(runCtx, c.binary, args, tail.add); err != nil {
		err = timeoutCause(runCtx, err)
		if detail := tail.String(); detail != "" {
			return fmt.Errorf("ffmpeg %s: %w: %s", label, err, detail)
		}
		return fmt.Errorf("ffmpeg %s: %w", label, err)
	}
	return nil
}

// CommandLine renders args the way a user would type them, for dry runs.
func (c *Client) CommandLine(args []string) string {
	parts := make([]string, 0, len(args)+1)
	parts = append(parts, shellQuote(c.binary))
	for _, arg := range args {
		parts = append(parts, shellQuote(arg))
	}
	return strings.Join(parts, " ")
}

func withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		return context.WithTimeout(ctx, timeout)
	}
	return context.WithCancel(ctx)
}

func timeoutCause(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", context.DeadlineExceeded, err)
	}
	return err
}

func shellQuote(value string) string {
	if value == "" {
		return "''"
	}
	if !strings.ContainsAny(value, " \t\n'\"\\$`;&|<>()[]*?!#~") {
		return value
	}
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

type tailBuffer struct {
	limit int
	lines []string
}

func newTailBuffer(limit int) *tailBuffer {
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) add(line string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return
	}
	if len(t.lines) == t.limit {
		t.lines = append(t.lines[:0], t.lines[1:]...)
	}
	t.lines = append(t.lines, line)
}

func (t *tailBuffer) String() string {
	return strings.Join(t.lines, " | ")
}
