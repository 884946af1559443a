package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"stillcut/internal/analysiscache"
	"stillcut/internal/config"
	"stillcut/internal/logging"
	"stillcut/internal/notifications"
	"stillcut/internal/services"
	"stillcut/internal/trim"
	"stillcut/internal/workdir"
)

// staleRunAge is how old an abandoned run directory must be before a new run
// removes it.
const staleRunAge = 24 * time.Hour

type commandContext struct {
	configFlag    *string
	logLevelFlag  *string
	logFormatFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag, logFormatFlag *string) *commandContext {
	return &commandContext{
		configFlag:    configFlag,
		logLevelFlag:  logLevelFlag,
		logFormatFlag: logFormatFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		cfg, path, _, err := config.Load(flagValue(c.configFlag))
		if err != nil {
			c.configErr = fmt.Errorf("%w: %w", services.ErrConfiguration, err)
			return
		}
		if level := flagValue(c.logLevelFlag); level != "" {
			cfg.Logging.Level = level
		}
		if format := flagValue(c.logFormatFlag); format != "" {
			cfg.Logging.Format = format
		}
		if err := cfg.Validate(); err != nil {
			c.configErr = fmt.Errorf("%w: %w", services.ErrValidation, err)
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = fmt.Errorf("%w: %w", services.ErrConfiguration, err)
			return
		}
		c.config = cfg
		c.configPath = path
	})
	return c.config, c.configErr
}

// ensureLogger builds the process logger and prunes expired log files.
func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		logger, err := logging.NewFromConfig(cfg)
		if err != nil {
			c.loggerErr = fmt.Errorf("%w: init logger: %w", services.ErrConfiguration, err)
			return
		}
		now := time.Now()
		logging.PruneLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, now, logging.LogFilePath(cfg.Paths.LogDir, now))
		c.logger = logger
	})
	return c.logger, c.loggerErr
}

// openCache opens the analysis cache when enabled. A cache that cannot be
// opened is reported and skipped; the returned closer is always safe to call.
func (c *commandContext) openCache(ctx context.Context, logger *slog.Logger, disabled bool) (*analysiscache.Store, func()) {
	cfg, err := c.ensureConfig()
	if err != nil || disabled || !cfg.Cache.Enabled {
		return nil, func() {}
	}
	store, err := analysiscache.Open(ctx, cfg.Paths.CachePath)
	if err != nil {
		logging.WarnWithContext(logger, "analysis cache unavailable", "cache_open_failed",
			logging.Error(err),
			logging.String("cache_path", cfg.Paths.CachePath),
			logging.String(logging.FieldErrorHint, "run stillcut cache clear or remove the database file"),
			logging.String(logging.FieldImpact, "analysis runs without caching"),
		)
		return nil, func() {}
	}
	return store, func() { store.Close() }
}

// withService runs fn with a trim service wired from configuration.
func (c *commandContext) withService(cmd *cobra.Command, noCache bool, fn func(*trim.Service) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	store, closeStore := c.openCache(ctx, logger, noCache)
	defer closeStore()

	workdir.CleanStale(ctx, cfg.Paths.WorkDir, staleRunAge, logger)

	opts := []trim.Option{}
	if store != nil {
		opts = append(opts, trim.WithCache(store))
	}
	svc, err := trim.NewService(cfg, logger, opts...)
	if err != nil {
		return fmt.Errorf("%w: %w", services.ErrConfiguration, err)
	}
	return fn(svc)
}

// notify publishes event to the configured ntfy topic. Delivery failures are
// logged and never change the command's outcome.
func (c *commandContext) notify(ctx context.Context, event notifications.Event, payload notifications.Payload) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return
	}
	if err := notifications.NewService(cfg).Publish(context.WithoutCancel(ctx), event, payload); err != nil {
		logging.WarnWithContext(logger, "notification failed", "notification_failed",
			logging.Error(err),
			logging.String("event", string(event)),
			logging.String(logging.FieldImpact, "run outcome was not announced"),
		)
	}
}

func flagValue(flag *string) string {
	if flag == nil {
		return ""
	}
	return strings.TrimSpace(*flag)
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
