// Package tts wraps the remote text-to-speech providers behind a
// single synthesis interface. One call synthesizes one segment;
// callers must never send text exceeding the provider limit.
package tts

import (
	"context"
	"fmt"

	"aristo-server-go/internal/platform/config"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// Voices accepted by the synthesis surface. They follow the OpenAI
// naming; the Edge adapter maps them onto its own catalogue.
const (
	VoiceAlloy   = "alloy"
	VoiceEcho    = "echo"
	VoiceFable   = "fable"
	VoiceOnyx    = "onyx"
	VoiceNova    = "nova"
	VoiceShimmer = "shimmer"
)

// Models: standard and higher-fidelity renderings.
const (
	ModelStandard = "tts-1"
	ModelHD       = "tts-1-hd"
)

// MaxInputChars is the provider hard cap on a single request.
const MaxInputChars = 4096

// Provider synthesizes one text segment into audio bytes.
type Provider interface {
	// Synthesize returns decoded audio bytes for text, or a
	// provider-kind failure.
	Synthesize(ctx context.Context, text, voice, model string) ([]byte, error)

	// Name identifies the provider for logging.
	Name() string
}

var knownVoices = map[string]bool{
	VoiceAlloy: true, VoiceEcho: true, VoiceFable: true,
	VoiceOnyx: true, VoiceNova: true, VoiceShimmer: true,
}

var knownModels = map[string]bool{
	ModelStandard: true, ModelHD: true,
}

// ValidVoice reports whether voice belongs to the fixed enumerated set.
func ValidVoice(voice string) bool { return knownVoices[voice] }

// ValidModel reports whether model belongs to the fixed enumerated set.
func ValidModel(model string) bool { return knownModels[model] }

// CheckRequest rejects requests the provider would refuse, before any
// network round trip.
func CheckRequest(text, voice, model string) error {
	if text == "" {
		return platformerrors.New(platformerrors.KindProvider, "tts.CheckRequest",
			"empty synthesis text")
	}
	if len(text) > MaxInputChars {
		return platformerrors.New(platformerrors.KindProvider, "tts.CheckRequest",
			fmt.Sprintf("text length %d exceeds provider cap %d", len(text), MaxInputChars))
	}
	if !ValidVoice(voice) {
		return platformerrors.New(platformerrors.KindProvider, "tts.CheckRequest",
			fmt.Sprintf("unknown voice %q", voice))
	}
	if !ValidModel(model) {
		return platformerrors.New(platformerrors.KindProvider, "tts.CheckRequest",
			fmt.Sprintf("unknown model %q", model))
	}
	return nil
}

// New creates the configured synthesis provider.
func New(cfg config.TTSConfig, logger *logging.Logger) (Provider, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAIProvider(cfg.OpenAI, logger)
	case "edge":
		return NewEdgeProvider(cfg.Edge, logger), nil
	default:
		return nil, fmt.Errorf("unsupported TTS provider: %s", cfg.Provider)
	}
}
