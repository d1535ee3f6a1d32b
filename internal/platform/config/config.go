package config

import "time"

// Config is the root configuration for the reader server.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Web      WebConfig      `yaml:"web"`
	Database DatabaseConfig `yaml:"database"`
	Audio    AudioConfig    `yaml:"audio"`
	Cache    CacheConfig    `yaml:"cache"`
	TTS      TTSConfig      `yaml:"TTS"`
	Reader   ReaderConfig   `yaml:"reader"`
}

type ServerConfig struct {
	IP   string `yaml:"ip"`
	Port int    `yaml:"port"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}

type WebConfig struct {
	Enabled   bool   `yaml:"enabled"`
	StaticDir string `yaml:"static_dir"`
	Websocket string `yaml:"websocket"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// AudioConfig bounds the synthesis and decode pipeline.
type AudioConfig struct {
	// SegmentMaxChars is the per-request character budget, kept safely
	// under the provider's 4096 hard cap.
	SegmentMaxChars int `yaml:"segment_max_chars"`
	// DisplayWordsPerSegment sizes the word windows used for visual
	// tracking during playback.
	DisplayWordsPerSegment int           `yaml:"display_words_per_segment"`
	DecodeTimeout          time.Duration `yaml:"decode_timeout"`
	SynthesisTimeout       time.Duration `yaml:"synthesis_timeout"`
}

// CacheConfig selects the persisted audio store backend.
type CacheConfig struct {
	Driver string           `yaml:"driver"`
	Redis  RedisCacheConfig `yaml:"redis,omitempty"`
}

type RedisCacheConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// TTSConfig selects and parameterises the synthesis provider.
type TTSConfig struct {
	Provider string          `yaml:"provider"`
	OpenAI   OpenAITTSConfig `yaml:"openai"`
	Edge     EdgeTTSConfig   `yaml:"edge"`
}

type OpenAITTSConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"url,omitempty"`
	Timeout time.Duration `yaml:"timeout"`
}

type EdgeTTSConfig struct {
	// Voice is the Edge voice mapped onto when the reader voice has no
	// Edge equivalent.
	Voice string `yaml:"voice"`
	Rate  string `yaml:"rate"`
}

// ReaderConfig carries the default playback settings handed to a new
// reading session. Stored per-user settings override these.
type ReaderConfig struct {
	Voice  string  `yaml:"voice"`
	Model  string  `yaml:"model"`
	Volume float64 `yaml:"volume"`
	Rate   float64 `yaml:"rate"`
}
