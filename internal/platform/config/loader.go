package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Loader reads configuration from an optional YAML file layered over
// the defaults, with environment overrides for secrets.
type Loader struct {
	useDotEnv bool
	paths     []string
}

func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		paths:     []string{".config.yaml", "config.yaml"},
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPaths overrides the candidate config file paths (useful for tests).
func (l *Loader) WithPaths(paths ...string) *Loader {
	if len(paths) > 0 {
		l.paths = paths
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load builds the effective configuration. A missing config file is not
// an error; defaults plus environment apply.
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path := ""

	for _, candidate := range l.paths {
		data, err := os.ReadFile(candidate)
		if err != nil {
			continue
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", candidate, err)
		}
		path = candidate
		break
	}

	applyEnv(cfg)

	if err := Validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: path}, nil
}

func applyEnv(cfg *Config) {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" && cfg.TTS.OpenAI.APIKey == "" {
		cfg.TTS.OpenAI.APIKey = key
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" && cfg.Cache.Redis.Addr == "" {
		cfg.Cache.Redis.Addr = addr
	}
	if dbPath := os.Getenv("ARISTO_DB_PATH"); dbPath != "" {
		cfg.Database.Path = dbPath
	}
}

// Validate rejects configurations the audio pipeline cannot run with.
func Validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server port out of range: %d", cfg.Server.Port)
	}
	if cfg.Audio.SegmentMaxChars <= 0 || cfg.Audio.SegmentMaxChars > 4096 {
		return fmt.Errorf("segment_max_chars must be in (0, 4096], got %d", cfg.Audio.SegmentMaxChars)
	}
	if cfg.Audio.DisplayWordsPerSegment <= 0 {
		return fmt.Errorf("display_words_per_segment must be positive, got %d", cfg.Audio.DisplayWordsPerSegment)
	}
	if cfg.Reader.Volume < 0 || cfg.Reader.Volume > 1 {
		return fmt.Errorf("reader volume must be in [0, 1], got %f", cfg.Reader.Volume)
	}
	if cfg.Reader.Rate <= 0 {
		return fmt.Errorf("reader rate must be positive, got %f", cfg.Reader.Rate)
	}
	switch cfg.Cache.Driver {
	case "", "memory", "sqlite", "redis":
	default:
		return fmt.Errorf("unsupported cache driver: %s", cfg.Cache.Driver)
	}
	switch cfg.TTS.Provider {
	case "", "openai", "edge":
	default:
		return fmt.Errorf("unsupported TTS provider: %s", cfg.TTS.Provider)
	}
	return nil
}
