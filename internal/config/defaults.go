package config

import (
	"path/filepath"

	"stillcut/internal/media/ffmpeg"
)

const (
	defaultConfigPath       = "~/.config/stillcut/config.toml"
	defaultWorkDir          = "~/.local/share/stillcut/work"
	defaultLogDir           = "~/.local/share/stillcut/logs"
	defaultLogRetentionDays = 30
	defaultLogFormat        = "auto"
	defaultLogLevel         = "info"
	defaultMinDrop          = "5"
	defaultMinKeep          = "1"
	defaultFFmpegBinary     = "ffmpeg"
	defaultFFprobeBinary    = "ffprobe"
	defaultAnalyzeTimeout   = 0
	defaultEncodeTimeout    = 0
	defaultVideoCodec       = "libx264"
	defaultAudioCodec       = "aac"
	defaultPreset           = "medium"
	defaultCRF              = 20
	defaultOutputMode       = "copy"
	defaultOutputSuffix     = ".stillcut"
	defaultCacheMaxAgeDays  = 30
	defaultNtfyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir:   defaultWorkDir,
			LogDir:    defaultLogDir,
			CachePath: filepath.Join(defaultCacheDir(), "analysis.db"),
		},
		Detection: Detection{
			MinDrop:        defaultMinDrop,
			MinKeep:        defaultMinKeep,
			AnalyzerFilter: ffmpeg.DefaultAnalyzerFilter,
		},
		FFmpeg: FFmpeg{
			FFmpegBinary:   defaultFFmpegBinary,
			FFprobeBinary:  defaultFFprobeBinary,
			AnalyzeTimeout: defaultAnalyzeTimeout,
			EncodeTimeout:  defaultEncodeTimeout,
			VideoCodec:     defaultVideoCodec,
			AudioCodec:     defaultAudioCodec,
			Preset:         defaultPreset,
			CRF:            defaultCRF,
		},
		Output: Output{
			Mode:   defaultOutputMode,
			Suffix: defaultOutputSuffix,
		},
		Cache: Cache{
			Enabled:    true,
			MaxAgeDays: defaultCacheMaxAgeDays,
		},
		Notifications: Notifications{
			RequestTimeout: defaultNtfyTimeout,
			OnSuccess:      true,
			OnFailure:      true,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
