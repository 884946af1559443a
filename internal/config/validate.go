package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"stillcut/internal/plan"
	"stillcut/internal/timeline"
)

// Validate ensures the configuration is usable. It also caches the parsed
// detection thresholds returned by DetectSettings.
func (c *Config) Validate() error {
	if err := c.validateDetection(); err != nil {
		return err
	}
	if err := c.validateFFmpeg(); err != nil {
		return err
	}
	if err := c.validateOutput(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateDetection() error {
	minDrop, err := timeline.ParseSeconds(c.Detection.MinDrop)
	if err != nil {
		return fmt.Errorf("detection.min_drop must be a non-negative number of seconds: %w", err)
	}
	if minDrop.IsZero() {
		return errors.New("detection.min_drop must be greater than zero")
	}
	minKeep, err := timeline.ParseSeconds(c.Detection.MinKeep)
	if err != nil {
		return fmt.Errorf("detection.min_keep must be a non-negative number of seconds: %w", err)
	}
	if strings.TrimSpace(c.Detection.AnalyzerFilter) == "" {
		return errors.New("detection.analyzer_filter must be set")
	}
	c.Detection.minDrop = minDrop
	c.Detection.minKeep = minKeep
	return nil
}

func (c *Config) validateFFmpeg() error {
	if err := ensureNonNegativeMap(map[string]int{
		"ffmpeg.analyze_timeout": c.FFmpeg.AnalyzeTimeout,
		"ffmpeg.encode_timeout":  c.FFmpeg.EncodeTimeout,
		"ffmpeg.crf":             c.FFmpeg.CRF,
	}); err != nil {
		return err
	}
	if c.FFmpeg.CRF > 63 {
		return errors.New("ffmpeg.crf must be between 0 and 63")
	}
	return nil
}

func (c *Config) validateOutput() error {
	mode, err := plan.ParseMode(c.Output.Mode)
	if err != nil {
		return fmt.Errorf("output.mode: %w", err)
	}
	if mode == plan.ModeReencode && strings.TrimSpace(c.FFmpeg.VideoCodec) == "" {
		return errors.New("ffmpeg.video_codec must be set when output.mode is reencode")
	}
	if c.Output.Suffix == "" {
		return errors.New("output.suffix must be set so the output never replaces the input")
	}
	if strings.ContainsAny(c.Output.Suffix, `/\`) {
		return errors.New("output.suffix must not contain path separators")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		return errors.New("paths.work_dir must be set")
	}
	if c.Cache.Enabled && strings.TrimSpace(c.Paths.CachePath) == "" {
		return errors.New("paths.cache_path must be set when cache.enabled is true")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic == "" {
		return nil
	}
	parsed, err := url.Parse(topic)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be one of auto, console, json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
}

func ensureNonNegativeMap(values map[string]int) error {
	for key, value := range values {
		if value < 0 {
			return fmt.Errorf("%s must be >= 0", key)
		}
	}
	return nil
}
