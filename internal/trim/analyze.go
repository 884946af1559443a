package trim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"

	"stillcut/internal/analysiscache"
	"stillcut/internal/detect"
	"stillcut/internal/keyframes"
	"stillcut/internal/logging"
	"stillcut/internal/media/ffmpeg"
	"stillcut/internal/services"
	"stillcut/internal/timeline"
)

// analysis carries per-run state between stages.
type analysis struct {
	req         Request
	inputExists bool
	fingerprint *analysiscache.Fingerprint
	cached      *analysiscache.Entry
	detection   *Detection
}

// Detect analyzes the input and reports its keep intervals without writing
// any output. An input that would be kept whole, or dropped entirely, is
// reported through the returned Detection rather than as an error.
func (s *Service) Detect(ctx context.Context, req Request) (*Detection, error) {
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		return nil, services.Wrap(services.ErrValidation, "detect", "resolve input", "input path is required", nil)
	}
	ctx = services.WithRunID(ctx, uuid.NewString())
	ctx = services.WithInput(ctx, req.Input)

	a, err := s.prepare(req, req.FromLog == "")
	if err != nil {
		return nil, err
	}
	if err := s.analyze(ctx, a); err != nil {
		return nil, err
	}
	if req.Align && len(a.detection.Intervals) > 0 {
		if err := s.align(ctx, a); err != nil {
			return nil, err
		}
	}
	return a.detection, nil
}

// prepare resolves settings and the input fingerprint. When requireInput is
// false a missing input is tolerated (replaying a saved log for a file that
// has since moved).
func (s *Service) prepare(req Request, requireInput bool) (*analysis, error) {
	settings := s.cfg.DetectSettings()
	if req.MinDrop != nil {
		settings.MinDrop = *req.MinDrop
	}
	if req.MinKeep != nil {
		settings.MinKeep = *req.MinKeep
	}
	if !settings.MinDrop.IsPositive() {
		return nil, services.Wrap(services.ErrValidation, "detect", "resolve settings", "min_drop must be positive", nil)
	}
	if settings.MinKeep.IsNegative() {
		return nil, services.Wrap(services.ErrValidation, "detect", "resolve settings", "min_keep must not be negative", nil)
	}
	a := &analysis{
		req: req,
		detection: &Detection{
			Input:    req.Input,
			Settings: settings,
		},
	}

	info, err := os.Stat(req.Input)
	switch {
	case err == nil && info.IsDir():
		return nil, services.Wrap(services.ErrValidation, "detect", "stat input", "input is a directory", nil)
	case err == nil:
		a.inputExists = true
	case errors.Is(err, os.ErrNotExist) && !requireInput:
	case errors.Is(err, os.ErrNotExist):
		return nil, services.Wrap(services.ErrNotFound, "detect", "stat input", req.Input, err)
	default:
		return nil, services.Wrap(services.ErrValidation, "detect", "stat input", req.Input, err)
	}

	if a.inputExists {
		fp, err := analysiscache.NewFingerprint(req.Input, s.analyzerFilter())
		if err != nil {
			return nil, services.Wrap(services.ErrValidation, "detect", "fingerprint input", req.Input, err)
		}
		a.fingerprint = &fp
	}
	return a, nil
}

func (s *Service) analyzerFilter() string {
	if filter := strings.TrimSpace(s.cfg.Detection.AnalyzerFilter); filter != "" {
		return filter
	}
	return ffmpeg.DefaultAnalyzerFilter
}

func (s *Service) cacheUsable(a *analysis) bool {
	return s.cache != nil && !a.req.NoCache && a.fingerprint != nil
}

// analyze runs the probe, analyze and build stages.
func (s *Service) analyze(ctx context.Context, a *analysis) error {
	if a.inputExists {
		if err := s.runStage(ctx, stageProbe, func(ctx context.Context, logger *slog.Logger) error {
			return s.probe(ctx, logger, a)
		}); err != nil {
			return err
		}
	}

	builder := detect.NewBuilder(a.detection.Settings)
	if err := s.runStage(ctx, stageAnalyze, func(ctx context.Context, logger *slog.Logger) error {
		return s.feed(ctx, logger, a, builder)
	}); err != nil {
		return err
	}

	return s.runStage(ctx, stageBuild, func(ctx context.Context, logger *slog.Logger) error {
		det := a.detection
		det.Intervals = builder.Finish()
		det.Stats = builder.Stats()
		logger.Info("keep intervals built",
			logging.Args(
				logging.Int("keep_intervals", len(det.Intervals)),
				logging.Int("cut_runs", det.Stats.CutRuns),
				logging.Int("static_runs", det.Stats.Runs),
				logging.Int("discarded_runs", det.Stats.Discarded),
				logging.Int("short_keeps_filtered", det.Stats.KeepBefore-det.Stats.KeepAfter),
				logging.Seconds("min_drop", det.Settings.MinDrop),
				logging.Seconds("min_keep", det.Settings.MinKeep),
			)...,
		)
		return nil
	})
}

func (s *Service) probe(ctx context.Context, logger *slog.Logger, a *analysis) error {
	result, err := s.prober.Inspect(ctx, a.req.Input)
	if err != nil {
		return externalError(stageProbe, "inspect input", err)
	}
	if result.VideoStreamCount() == 0 {
		return services.Wrap(services.ErrValidation, stageProbe, "inspect input", "input has no video stream", nil)
	}
	det := a.detection
	det.HasAudio = result.AudioStreamCount() > 0
	if duration, ok := result.Duration(); ok {
		det.Duration = duration
	}
	logger.Debug("input probed",
		logging.Clock("source_duration", det.Duration),
		logging.Bool("has_audio", det.HasAudio),
		logging.Int64("size_bytes", result.SizeBytes()),
	)
	return nil
}

// feed streams events into builder from the saved log, the cache, or a live
// analyzer pass, in that order of preference.
func (s *Service) feed(ctx context.Context, logger *slog.Logger, a *analysis, builder *detect.Builder) error {
	det := a.detection
	if a.req.FromLog != "" {
		det.Source = SourceLog
		return s.feedFromLog(logger, a.req.FromLog, builder)
	}

	if s.cacheUsable(a) {
		entry, err := s.cache.Lookup(ctx, *a.fingerprint)
		if err != nil {
			logging.WarnWithContext(logger, "analysis cache lookup failed", "cache_lookup_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "run stillcut cache clear if the database is damaged"),
				logging.String(logging.FieldImpact, "analyzer will run again"),
			)
		} else if entry != nil {
			a.cached = entry
			det.Source = SourceCache
			for _, ev := range entry.Events {
				builder.Feed(ev)
			}
			logger.Info("analysis cache hit",
				logging.Bool("cache_hit", true),
				logging.Int("event_count", len(entry.Events)),
				logging.String("fingerprint", a.fingerprint.Short()),
			)
			return nil
		}
	}

	det.Source = SourceAnalyzer
	filter := s.analyzerFilter()
	var events []detect.Event
	sampler := logging.NewProgressSampler(10)
	total := det.Duration
	logger.Info("running analyzer",
		logging.String("filter", filter),
		logging.Bool("cache_hit", false),
	)
	err := s.ffmpeg.Analyze(ctx, a.req.Input, filter, func(line string) {
		ev, ok := detect.ParseLine(line)
		if !ok {
			return
		}
		builder.Feed(ev)
		events = append(events, ev)
		if !total.IsPositive() {
			return
		}
		percent, _ := ev.Time.Div(total).Mul(timeline.Seconds(100)).Float64()
		if sampler.ShouldLog(percent) {
			logger.Info("analyzer progress", logging.Float64(logging.FieldProgressPercent, percent))
		}
	})
	if err != nil {
		return externalError(stageAnalyze, "run analyzer", err)
	}

	if s.cacheUsable(a) {
		if err := s.cache.SaveEvents(ctx, *a.fingerprint, events); err != nil {
			logging.WarnWithContext(logger, "analysis cache save failed", "cache_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run repeats the analyzer pass"),
			)
		}
	}
	return nil
}

func (s *Service) feedFromLog(logger *slog.Logger, path string, builder *detect.Builder) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return services.Wrap(services.ErrNotFound, stageAnalyze, "open analyzer log", path, err)
		}
		return services.Wrap(services.ErrValidation, stageAnalyze, "open analyzer log", path, err)
	}
	defer f.Close()

	seq, errFn := detect.Events(f)
	count := 0
	for ev := range seq {
		builder.Feed(ev)
		count++
	}
	if err := errFn(); err != nil {
		return services.Wrap(services.ErrValidation, stageAnalyze, "read analyzer log", path, err)
	}
	logger.Info("analyzer log replayed",
		logging.String("log_path", path),
		logging.Int("event_count", count),
	)
	return nil
}

// align snaps the built intervals outward to keyframes.
func (s *Service) align(ctx context.Context, a *analysis) error {
	return s.runStage(ctx, stageAlign, func(ctx context.Context, logger *slog.Logger) error {
		kfs, source, err := s.loadKeyframes(ctx, logger, a)
		if err != nil {
			return err
		}
		det := a.detection
		det.Keyframes = len(kfs)
		det.Aligned = keyframes.Align(det.Intervals, kfs)
		if len(kfs) == 0 {
			logging.WarnWithContext(logger, "no keyframes found; intervals left unaligned", "keyframes_missing",
				logging.String(logging.FieldImpact, "copy-mode cuts may start on non-keyframes"),
			)
		}
		logger.Info("intervals aligned to keyframes",
			logging.Args(append(
				logging.DecisionAttrs("keyframe_alignment", "aligned", source),
				logging.Int("keyframe_count", len(kfs)),
				logging.Int("keep_intervals", len(det.Aligned)),
			)...)...,
		)
		return nil
	})
}

func (s *Service) loadKeyframes(ctx context.Context, logger *slog.Logger, a *analysis) ([]timeline.Timestamp, string, error) {
	if path := a.req.KeyframesFile; path != "" {
		f, err := os.Open(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, "", services.Wrap(services.ErrNotFound, stageAlign, "open keyframe list", path, err)
			}
			return nil, "", services.Wrap(services.ErrValidation, stageAlign, "open keyframe list", path, err)
		}
		defer f.Close()
		kfs, err := keyframes.ParseList(f)
		if err != nil {
			return nil, "", services.Wrap(services.ErrValidation, stageAlign, "parse keyframe list", path, err)
		}
		return clampKeyframes(logger, kfs), "keyframe list", nil
	}

	if a.cached != nil && a.cached.Keyframes != nil {
		return a.cached.Keyframes, "cache", nil
	}
	if !a.inputExists {
		return nil, "", services.Wrap(services.ErrValidation, stageAlign, "load keyframes",
			"input is missing; pass a keyframe list to align", nil)
	}

	kfs, err := s.prober.Keyframes(ctx, a.req.Input)
	if err != nil {
		return nil, "", externalError(stageAlign, "probe keyframes", err)
	}
	kfs = clampKeyframes(logger, kfs)
	if s.cacheUsable(a) {
		if _, err := s.cache.SaveKeyframes(ctx, *a.fingerprint, kfs); err != nil {
			logging.WarnWithContext(logger, "keyframe cache save failed", "cache_save_failed",
				logging.Error(err),
				logging.String(logging.FieldImpact, "next run probes keyframes again"),
			)
		}
	}
	return kfs, "ffprobe", nil
}

// clampKeyframes pins keyframes timed before the stream start to zero.
func clampKeyframes(logger *slog.Logger, kfs []timeline.Timestamp) []timeline.Timestamp {
	kfs, clamped := keyframes.ClampNegative(kfs)
	if clamped > 0 {
		logging.WarnWithContext(logger, "keyframes before stream start clamped to zero", "keyframes_clamped",
			logging.Int("clamped", clamped),
			logging.String(logging.FieldImpact, "the first kept segment starts at 0"),
		)
	}
	return kfs
}

// externalError tags a failed tool invocation, keeping timeouts and
// cancellation distinguishable.
func externalError(stage, operation string, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, context.DeadlineExceeded):
		return services.Wrap(services.ErrTimeout, stage, operation, "", err)
	default:
		return services.Wrap(services.ErrExternalTool, stage, operation, "", err)
	}
}

func describeIntervals(intervals []timeline.Interval) string {
	parts := make([]string, 0, len(intervals))
	for _, iv := range intervals {
		parts = append(parts, iv.String())
	}
	return fmt.Sprintf("[%s]", strings.Join(parts, " "))
}
