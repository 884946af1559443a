package trim

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"stillcut/internal/logging"
	"stillcut/internal/services"
)

// Pipeline stage names, used as the stage log field.
const (
	stageProbe   = "probe"
	stageAnalyze = "analyze"
	stageBuild   = "build"
	stageAlign   = "align"
	stagePlan    = "plan"
	stageExecute = "execute"
)

// runStage executes fn with a stage-scoped context and logger, timing it and
// logging failures once.
func (s *Service) runStage(ctx context.Context, name string, fn func(context.Context, *slog.Logger) error) error {
	stageCtx := services.WithStage(ctx, name)
	logger := logging.WithContext(stageCtx, s.logger)
	logger.Debug("stage started", logging.String(logging.FieldEventType, "stage_start"))

	start := time.Now()
	err := fn(stageCtx, logger)
	elapsed := time.Since(start)
	switch {
	case err == nil:
		logger.Debug("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", elapsed),
		)
	case errors.Is(err, ErrNothingToDrop), errors.Is(err, ErrNothingToKeep), errors.Is(err, context.Canceled):
	default:
		logging.ErrorWithContext(logger, "stage failed", "stage_failure",
			logging.Error(err),
			logging.Duration("stage_duration", elapsed),
		)
	}
	return err
}
