package tts

import (
	"context"
	"io"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"aristo-server-go/internal/platform/config"
	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// OpenAIProvider synthesizes speech through the OpenAI audio endpoint.
type OpenAIProvider struct {
	client  *openai.Client
	timeout time.Duration
	logger  *logging.Logger
}

// NewOpenAIProvider builds the provider from configuration. The API key
// is required; BaseURL is optional for proxied deployments.
func NewOpenAIProvider(cfg config.OpenAITTSConfig, logger *logging.Logger) (*OpenAIProvider, error) {
	if cfg.APIKey == "" {
		return nil, platformerrors.New(platformerrors.KindConfig, "tts.NewOpenAIProvider",
			"openai api key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &OpenAIProvider{
		client:  openai.NewClientWithConfig(clientConfig),
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (p *OpenAIProvider) Name() string { return "openai" }

// Synthesize performs one speech request and returns the MP3 bytes.
func (p *OpenAIProvider) Synthesize(ctx context.Context, text, voice, model string) ([]byte, error) {
	if err := CheckRequest(text, voice, model); err != nil {
		return nil, err
	}

	reqCtx := ctx
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	started := time.Now()
	resp, err := p.client.CreateSpeech(reqCtx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		ResponseFormat: openai.SpeechResponseFormatMp3,
	})
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "tts.Synthesize",
			"openai speech request failed", err)
	}
	defer resp.Close()

	audio, err := io.ReadAll(resp)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindProvider, "tts.Synthesize",
			"reading openai audio stream failed", err)
	}
	if len(audio) == 0 {
		return nil, platformerrors.New(platformerrors.KindProvider, "tts.Synthesize",
			"openai returned an empty audio payload")
	}

	if p.logger != nil {
		p.logger.DebugTag("TTS", "openai synthesis: %d chars -> %d bytes in %v (voice=%s model=%s)",
			len(text), len(audio), time.Since(started), voice, model)
	}
	return audio, nil
}
