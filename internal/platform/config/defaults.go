package config

import "time"

// DefaultConfig returns the configuration used when no file overrides
// are present.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			IP:   "0.0.0.0",
			Port: 8080,
		},
		Log: LogConfig{
			Level: "info",
			Dir:   "data/logs",
			File:  "server.log",
		},
		Web: WebConfig{
			Enabled:   true,
			StaticDir: "static",
			Websocket: "/ws/progress",
		},
		Database: DatabaseConfig{
			Path: "data/aristo.db",
		},
		Audio: AudioConfig{
			SegmentMaxChars:        3000,
			DisplayWordsPerSegment: 170,
			DecodeTimeout:          5 * time.Second,
			SynthesisTimeout:       90 * time.Second,
		},
		Cache: CacheConfig{
			Driver: "sqlite",
		},
		TTS: TTSConfig{
			Provider: "openai",
			OpenAI: OpenAITTSConfig{
				Timeout: 90 * time.Second,
			},
			Edge: EdgeTTSConfig{
				Voice: "en-US-AriaNeural",
				Rate:  "+0%",
			},
		},
		Reader: ReaderConfig{
			Voice:  "alloy",
			Model:  "tts-1",
			Volume: 0.8,
			Rate:   1.0,
		},
	}
}
