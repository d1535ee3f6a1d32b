package tts

import (
	"context"
	"time"

	"github.com/wujunwei928/edge-tts-go/edge_tts"

	"aristo-server-go/internal/platform/config"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// edgeVoices maps reader voices onto Edge neural voices so the free
// provider can stand in for the paid one without changing the API
// surface.
var edgeVoices = map[string]string{
	VoiceAlloy:   "en-US-AriaNeural",
	VoiceEcho:    "en-US-GuyNeural",
	VoiceFable:   "en-GB-RyanNeural",
	VoiceOnyx:    "en-US-ChristopherNeural",
	VoiceNova:    "en-US-JennyNeural",
	VoiceShimmer: "en-US-MichelleNeural",
}

// EdgeProvider synthesizes speech through the Edge TTS service. The
// model parameter is accepted for cache-key symmetry but Edge has a
// single quality tier.
type EdgeProvider struct {
	fallbackVoice string
	logger        *logging.Logger
}

func NewEdgeProvider(cfg config.EdgeTTSConfig, logger *logging.Logger) *EdgeProvider {
	fallback := cfg.Voice
	if fallback == "" {
		fallback = "en-US-AriaNeural"
	}
	return &EdgeProvider{fallbackVoice: fallback, logger: logger}
}

func (p *EdgeProvider) Name() string { return "edge" }

func (p *EdgeProvider) Synthesize(ctx context.Context, text, voice, model string) ([]byte, error) {
	if err := CheckRequest(text, voice, model); err != nil {
		return nil, err
	}

	edgeVoice, ok := edgeVoices[voice]
	if !ok {
		edgeVoice = p.fallbackVoice
	}

	communicate, err := edge_tts.NewCommunicate(text, edge_tts.SetVoice(edgeVoice))
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "tts.Synthesize",
			"failed to create edge communicator", err)
	}

	started := time.Now()
	audio, err := communicate.Stream()
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "tts.Synthesize",
			"edge synthesis failed", err)
	}
	if len(audio) == 0 {
		return nil, platformerrors.New(platformerrors.KindProvider, "tts.Synthesize",
			"edge returned an empty audio payload")
	}

	if p.logger != nil {
		p.logger.DebugTag("TTS", "edge synthesis: %d chars -> %d bytes in %v (voice=%s)",
			len(text), len(audio), time.Since(started), edgeVoice)
	}
	return audio, nil
}
