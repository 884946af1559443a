package trim

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"stillcut/internal/fileutil"
	"stillcut/internal/logging"
	"stillcut/internal/plan"
	"stillcut/internal/services"
	"stillcut/internal/timeline"
	"stillcut/internal/workdir"
)

// Run removes the near-static spans of req.Input and writes req.Output. A dry
// run stops after planning and returns the ffmpeg command lines instead.
func (s *Service) Run(ctx context.Context, req Request) (*Result, error) {
	req.Input = strings.TrimSpace(req.Input)
	if req.Input == "" {
		return nil, services.Wrap(services.ErrValidation, "trim", "resolve input", "input path is required", nil)
	}
	mode, err := s.resolveMode(req.Mode)
	if err != nil {
		return nil, err
	}
	req.Mode = mode
	req.Overwrite = req.Overwrite || s.cfg.Output.Overwrite
	req.KeepWorkDir = req.KeepWorkDir || s.cfg.Output.KeepWorkDir
	if strings.TrimSpace(req.Output) == "" {
		req.Output = s.cfg.OutputPath(req.Input)
	}
	if err := checkOutput(req); err != nil {
		return nil, err
	}

	a, err := s.prepare(req, true)
	if err != nil {
		return nil, err
	}

	run, err := workdir.Acquire(s.cfg.Paths.WorkDir, a.fingerprint.Short())
	if err != nil {
		if errors.Is(err, workdir.ErrBusy) {
			return nil, services.Wrap(services.ErrTransient, "trim", "lock input", req.Input, err)
		}
		return nil, services.Wrap(services.ErrConfiguration, "trim", "create work directory", s.cfg.Paths.WorkDir, err)
	}
	ctx = services.WithRunID(ctx, run.ID)
	ctx = services.WithInput(ctx, req.Input)
	logger := logging.WithContext(ctx, s.logger)
	defer func() {
		if err := run.Release(req.KeepWorkDir); err != nil {
			logging.WarnWithContext(logger, "work directory cleanup failed", "workdir_cleanup_failed",
				logging.Error(err),
				logging.String("work_dir", run.Dir),
				logging.String(logging.FieldErrorHint, "remove the directory manually or run stillcut check"),
			)
		}
	}()

	logger.Info("trim started",
		logging.String("output", req.Output),
		logging.String("mode", string(req.Mode)),
		logging.String("work_dir", run.Dir),
	)

	if err := s.analyze(ctx, a); err != nil {
		return nil, err
	}
	if err := s.decide(logger, a.detection.Intervals, a.detection.Duration); err != nil {
		return nil, err
	}
	if req.Mode == plan.ModeCopy {
		if err := s.align(ctx, a); err != nil {
			return nil, err
		}
		if err := s.decide(logger, a.detection.Final(), a.detection.Duration); err != nil {
			return nil, err
		}
	}

	result := &Result{
		RunID:     run.ID,
		Output:    req.Output,
		Mode:      req.Mode,
		Detection: a.detection,
		DryRun:    req.DryRun,
	}
	tmpOutput := run.Path("output" + filepath.Ext(req.Output))
	if req.DryRun {
		tmpOutput = req.Output
	}
	if err := s.runStage(ctx, stagePlan, func(ctx context.Context, logger *slog.Logger) error {
		p, err := s.buildPlan(req.Mode, req.Input, tmpOutput, run.Dir, a.detection)
		if err != nil {
			return services.Wrap(services.ErrValidation, stagePlan, "assemble plan", "", err)
		}
		result.Plan = p
		logger.Debug("plan assembled",
			logging.Int("job_count", len(p.Jobs)),
			logging.String("concat_list", p.ConcatList),
			logging.String("filter_graph", p.Graph),
			logging.String("intervals", describeIntervals(p.Intervals)),
		)
		return nil
	}); err != nil {
		return nil, err
	}

	total := a.detection.Total()
	result.Kept = result.Plan.KeptDuration(total)
	result.Removed = total.Sub(result.Kept)
	if result.Removed.IsNegative() {
		result.Removed = timeline.Zero
	}

	if req.DryRun {
		for _, job := range result.Plan.Jobs {
			result.Commands = append(result.Commands, s.ffmpeg.CommandLine(job.Args))
		}
		logger.Info("dry run planned",
			logging.Args(append(
				logging.DecisionAttrs("trim_execution", "skipped", "dry run requested"),
				logging.Int("job_count", len(result.Commands)),
			)...)...,
		)
		return result, nil
	}

	if err := s.runStage(ctx, stageExecute, func(ctx context.Context, logger *slog.Logger) error {
		return s.execute(ctx, logger, result.Plan, req)
	}); err != nil {
		return nil, err
	}

	logger.Info("trim completed",
		logging.String("output", req.Output),
		logging.Int("keep_intervals", len(result.Plan.Intervals)),
		logging.Clock("source_duration", total),
		logging.Clock("kept_duration", result.Kept),
		logging.Clock("removed_duration", result.Removed),
		logging.String("analysis_source", a.detection.Source),
	)
	return result, nil
}

func (s *Service) resolveMode(mode plan.Mode) (plan.Mode, error) {
	if mode == "" {
		mode = plan.Mode(s.cfg.Output.Mode)
	}
	parsed, err := plan.ParseMode(string(mode))
	if err != nil {
		return "", services.Wrap(services.ErrValidation, "trim", "resolve mode", "", err)
	}
	return parsed, nil
}

func checkOutput(req Request) error {
	inAbs, inErr := filepath.Abs(req.Input)
	outAbs, outErr := filepath.Abs(req.Output)
	if inErr == nil && outErr == nil && inAbs == outAbs {
		return services.Wrap(services.ErrValidation, "trim", "check output", "output must differ from input", nil)
	}
	if req.Overwrite || req.DryRun {
		return nil
	}
	if _, err := os.Stat(req.Output); err == nil {
		return services.Wrap(services.ErrValidation, "trim", "check output",
			req.Output+" already exists; pass --overwrite to replace it", nil)
	}
	return nil
}

// decide stops the run when there is nothing to cut or nothing left to keep.
// With a known source duration, intervals that resolve to zero length keep
// nothing either.
func (s *Service) decide(logger *slog.Logger, intervals []timeline.Interval, duration timeline.Timestamp) error {
	switch {
	case len(intervals) == 0,
		duration.IsPositive() && timeline.TotalDuration(intervals, duration).IsZero():
		logger.Info("nothing to keep", logging.Args(
			logging.DecisionAttrs("trim_outcome", "aborted", "every span is near-static")...)...)
		return ErrNothingToKeep
	case WholeInput(intervals):
		logger.Info("nothing to drop", logging.Args(
			logging.DecisionAttrs("trim_outcome", "aborted", "no near-static run reaches min_drop")...)...)
		return ErrNothingToDrop
	}
	return nil
}

func (s *Service) buildPlan(mode plan.Mode, input, output, workDir string, det *Detection) (*plan.Plan, error) {
	intervals := det.Final()
	if mode == plan.ModeCopy {
		return plan.NewCopy(input, output, workDir, intervals)
	}
	return plan.NewReencode(input, output, intervals, plan.Encoding{
		VideoCodec: s.cfg.FFmpeg.VideoCodec,
		AudioCodec: s.cfg.FFmpeg.AudioCodec,
		Preset:     s.cfg.FFmpeg.Preset,
		CRF:        s.cfg.FFmpeg.CRF,
		HasAudio:   det.HasAudio,
	})
}

func (s *Service) execute(ctx context.Context, logger *slog.Logger, p *plan.Plan, req Request) error {
	if err := p.WriteConcatList(); err != nil {
		return services.Wrap(services.ErrConfiguration, stageExecute, "write concat list", "", err)
	}
	for i, job := range p.Jobs {
		if err := ctx.Err(); err != nil {
			return err
		}
		logger.Debug("running ffmpeg job",
			logging.String("job", job.Label),
			logging.String("command", s.ffmpeg.CommandLine(job.Args)),
		)
		if err := s.ffmpeg.Exec(ctx, job.Label, job.Args); err != nil {
			return externalError(stageExecute, job.Label, err)
		}
		if len(p.Jobs) > 1 {
			percent := float64(i+1) / float64(len(p.Jobs)) * 100
			logger.Info("ffmpeg job finished",
				logging.String("job", job.Label),
				logging.Float64(logging.FieldProgressPercent, percent),
			)
		}
	}

	if err := os.MkdirAll(filepath.Dir(req.Output), 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, stageExecute, "create output directory", filepath.Dir(req.Output), err)
	}
	if err := fileutil.MoveFile(p.Output, req.Output, req.Overwrite); err != nil {
		if errors.Is(err, fileutil.ErrExists) {
			return services.Wrap(services.ErrValidation, stageExecute, "move output", req.Output, err)
		}
		return services.Wrap(services.ErrTransient, stageExecute, "move output", req.Output, err)
	}
	return nil
}
