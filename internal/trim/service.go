package trim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"stillcut/internal/analysiscache"
	"stillcut/internal/config"
	"stillcut/internal/logging"
	"stillcut/internal/media/ffmpeg"
	"stillcut/internal/media/ffprobe"
	"stillcut/internal/timeline"
)

// FFmpeg is the subset of *ffmpeg.Client the pipeline drives.
type FFmpeg interface {
	Analyze(ctx context.Context, input, filter string, onLine func(string)) error
	Exec(ctx context.Context, label string, args []string) error
	CommandLine(args []string) string
}

// Prober is the subset of *ffprobe.Prober the pipeline drives.
type Prober interface {
	Inspect(ctx context.Context, path string) (ffprobe.Result, error)
	Keyframes(ctx context.Context, path string) ([]timeline.Timestamp, error)
}

// Option configures a Service.
type Option func(*Service)

// WithFFmpeg replaces the ffmpeg client built from configuration.
func WithFFmpeg(f FFmpeg) Option {
	return func(s *Service) {
		if f != nil {
			s.ffmpeg = f
		}
	}
}

// WithProber replaces the ffprobe client built from configuration.
func WithProber(p Prober) Option {
	return func(s *Service) {
		if p != nil {
			s.prober = p
		}
	}
}

// WithCache enables the analysis cache. The caller owns the store.
func WithCache(store *analysiscache.Store) Option {
	return func(s *Service) {
		s.cache = store
	}
}

// Service runs detection and cutting for single inputs.
type Service struct {
	cfg    *config.Config
	logger *slog.Logger
	ffmpeg FFmpeg
	prober Prober
	cache  *analysiscache.Store
}

// NewService wires a Service from configuration.
func NewService(cfg *config.Config, logger *slog.Logger, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("trim: config is required")
	}
	s := &Service{
		cfg:    cfg,
		logger: logging.NewComponentLogger(logger, "trim"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.ffmpeg == nil {
		client, err := ffmpeg.New(cfg.FFmpegBinary(), cfg.FFmpeg.AnalyzeTimeout, cfg.FFmpeg.EncodeTimeout)
		if err != nil {
			return nil, fmt.Errorf("trim: %w", err)
		}
		s.ffmpeg = client
	}
	if s.prober == nil {
		s.prober = ffprobe.New(cfg.FFprobeBinary())
	}
	return s, nil
}
