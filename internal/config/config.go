// Package config resolves runtime configuration from an optional YAML file
// plus environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config stores all runtime configuration.
type Config struct {
	Gemini   GeminiConfig   `yaml:"gemini"`
	Audio    AudioConfig    `yaml:"audio"`
	Session  SessionConfig  `yaml:"session"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type GeminiConfig struct {
	APIKey         string `yaml:"api_key"`
	LiveModel      string `yaml:"live_model"`
	CheckinModel   string `yaml:"checkin_model"`
	MilestoneModel string `yaml:"milestone_model"`
	FileModel      string `yaml:"file_model"`
}

type AudioConfig struct {
	Backend          string `yaml:"backend"` // pulse or ffmpeg
	InputDevice      string `yaml:"input_device"`
	SampleRate       int    `yaml:"sample_rate"`
	Channels         int    `yaml:"channels"`
	FrameSize        int    `yaml:"frame_size"`
	OutputSampleRate int    `yaml:"output_sample_rate"`
	RecorderCommand  string `yaml:"recorder_command"`
}

type SessionConfig struct {
	TargetLanguage string `yaml:"target_language"`
	StartMuted     bool   `yaml:"start_muted"`
}

type AnalysisConfig struct {
	CheckinInterval   time.Duration `yaml:"checkin_interval"`
	MilestoneInterval time.Duration `yaml:"milestone_interval"`
	RecentSegments    int           `yaml:"recent_segments"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Address string `yaml:"address"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads the YAML file at path when it exists, then applies environment
// overrides and defaults. An empty path falls back to the default location.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path == "" {
		path = defaultPath()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file %q: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// No file is fine; env and defaults carry the day.
		default:
			return Config{}, fmt.Errorf("failed to read config file %q: %w", path, err)
		}
	}

	applyEnv(&cfg)
	normalize(&cfg)
	return cfg, nil
}

func defaults() Config {
	return Config{
		Gemini: GeminiConfig{
			LiveModel:      "gemini-2.5-flash-native-audio-preview-12-2025",
			CheckinModel:   "gemini-3-flash-preview",
			MilestoneModel: "gemini-3-pro-preview",
			FileModel:      "gemini-2.0-flash",
		},
		Audio: AudioConfig{
			Backend:          "pulse",
			InputDevice:      "default",
			SampleRate:       16000,
			Channels:         1,
			FrameSize:        4096,
			OutputSampleRate: 24000,
			RecorderCommand:  "ffmpeg",
		},
		Session: SessionConfig{
			TargetLanguage: "Traditional Chinese",
			StartMuted:     false,
		},
		Analysis: AnalysisConfig{
			CheckinInterval:   5 * time.Minute,
			MilestoneInterval: 15 * time.Minute,
			RecentSegments:    50,
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Address: "127.0.0.1:9477",
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

func defaultPath() string {
	if xdg := strings.TrimSpace(os.Getenv("XDG_CONFIG_HOME")); xdg != "" {
		return filepath.Join(xdg, "livetrans", "config.yaml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "livetrans", "config.yaml")
}

func applyEnv(cfg *Config) {
	cfg.Gemini.APIKey = firstNonEmpty(os.Getenv("GEMINI_API_KEY"), cfg.Gemini.APIKey)
	cfg.Gemini.LiveModel = envOrDefault("LIVETRANS_LIVE_MODEL", cfg.Gemini.LiveModel)
	cfg.Audio.Backend = envOrDefault("LIVETRANS_AUDIO_BACKEND", cfg.Audio.Backend)
	cfg.Audio.InputDevice = envOrDefault("LIVETRANS_AUDIO_INPUT_DEVICE", cfg.Audio.InputDevice)
	cfg.Audio.SampleRate = envOrDefaultInt("LIVETRANS_SAMPLE_RATE", cfg.Audio.SampleRate)
	cfg.Audio.FrameSize = envOrDefaultInt("LIVETRANS_FRAME_SIZE", cfg.Audio.FrameSize)
	cfg.Session.TargetLanguage = envOrDefault("LIVETRANS_TARGET_LANGUAGE", cfg.Session.TargetLanguage)
	cfg.Logging.Level = envOrDefault("LIVETRANS_LOG_LEVEL", cfg.Logging.Level)

	if d := envDuration("LIVETRANS_CHECKIN_INTERVAL"); d > 0 {
		cfg.Analysis.CheckinInterval = d
	}
	if d := envDuration("LIVETRANS_MILESTONE_INTERVAL"); d > 0 {
		cfg.Analysis.MilestoneInterval = d
	}
}

func normalize(cfg *Config) {
	if cfg.Audio.SampleRate <= 0 {
		cfg.Audio.SampleRate = 16000
	}
	if cfg.Audio.Channels <= 0 {
		cfg.Audio.Channels = 1
	}
	if cfg.Audio.FrameSize < 256 {
		cfg.Audio.FrameSize = 4096
	}
	if cfg.Audio.OutputSampleRate <= 0 {
		cfg.Audio.OutputSampleRate = 24000
	}
	if cfg.Audio.Backend != "pulse" && cfg.Audio.Backend != "ffmpeg" {
		cfg.Audio.Backend = "pulse"
	}
	if cfg.Analysis.CheckinInterval <= 0 {
		cfg.Analysis.CheckinInterval = 5 * time.Minute
	}
	if cfg.Analysis.MilestoneInterval <= 0 {
		cfg.Analysis.MilestoneInterval = 15 * time.Minute
	}
	if cfg.Analysis.RecentSegments <= 0 {
		cfg.Analysis.RecentSegments = 50
	}
	if strings.TrimSpace(cfg.Session.TargetLanguage) == "" {
		cfg.Session.TargetLanguage = "Traditional Chinese"
	}
}

// Validate reports configuration that cannot support a live session.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Gemini.APIKey) == "" {
		return errors.New("gemini api key is not configured (set GEMINI_API_KEY)")
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed != "" {
			return trimmed
		}
	}
	return ""
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envDuration(key string) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return 0
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return parsed
}
