// Package audio holds the in-memory representation of one playable
// unit: decoded bytes, duration, originating text and a releasable
// playback handle.
package audio

import (
	"bytes"
	"context"
	"sync"

	"github.com/hajimehoshi/go-mp3"

	"aristo-server-go/internal/domain/codec"
	platformerrors "aristo-server-go/internal/platform/errors"
)

// bytesPerSample: go-mp3 always decodes to 16-bit stereo PCM.
const bytesPerSample = 4

// Asset is one playable unit (one synthesis segment's audio, or one
// note's/highlight's audio). The cache store owns the byte buffer; the
// playback controller borrows it and must never release it.
type Asset struct {
	MimeType        string
	DurationSeconds float64
	SourceText      string

	mu       sync.Mutex
	bytes    []byte
	released bool
}

// NewAsset probes the MP3 payload for its duration and wraps it. The
// decode is bounded by ctx; a payload that cannot be decoded within the
// deadline surfaces a decode-kind failure rather than hanging.
func NewAsset(ctx context.Context, raw []byte, sourceText string) (*Asset, error) {
	duration, err := ProbeDuration(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &Asset{
		MimeType:        codec.MimeMP3,
		DurationSeconds: duration,
		SourceText:      sourceText,
		bytes:           raw,
	}, nil
}

// Bytes returns the raw audio, or nil once the asset was released.
func (a *Asset) Bytes() []byte {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return nil
	}
	return a.bytes
}

// Released reports whether the underlying buffer was dropped.
func (a *Asset) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

// Release drops the byte buffer so evicted cache entries do not pin
// audio in memory, the equivalent of revoking a blob URL. Safe to call
// more than once.
func (a *Asset) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.bytes = nil
	a.released = true
}

// ProbeDuration decodes the MP3 header/frames far enough to compute the
// stream duration in seconds. The work runs aside so the ctx deadline
// is honoured even mid-decode.
func ProbeDuration(ctx context.Context, raw []byte) (float64, error) {
	if len(raw) == 0 {
		return 0, platformerrors.New(platformerrors.KindDecode, "audio.ProbeDuration",
			"empty audio payload")
	}

	type result struct {
		duration float64
		err      error
	}
	done := make(chan result, 1)

	go func() {
		decoder, err := mp3.NewDecoder(bytes.NewReader(raw))
		if err != nil {
			done <- result{err: platformerrors.Wrap(platformerrors.KindDecode,
				"audio.ProbeDuration", "payload is not decodable mp3", err)}
			return
		}
		length := decoder.Length()
		if length <= 0 {
			done <- result{err: platformerrors.New(platformerrors.KindDecode,
				"audio.ProbeDuration", "mp3 stream length unavailable")}
			return
		}
		sampleRate := decoder.SampleRate()
		if sampleRate <= 0 {
			done <- result{err: platformerrors.New(platformerrors.KindDecode,
				"audio.ProbeDuration", "mp3 sample rate unavailable")}
			return
		}
		done <- result{duration: float64(length) / float64(sampleRate*bytesPerSample)}
	}()

	select {
	case res := <-done:
		return res.duration, res.err
	case <-ctx.Done():
		return 0, platformerrors.Wrap(platformerrors.KindDecode, "audio.ProbeDuration",
			"decode timed out", ctx.Err())
	}
}
