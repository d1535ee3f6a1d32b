// Package codec converts between raw binary audio and the text-safe
// encoding used by the persisted store, which only accepts JSON/text
// payloads.
package codec

import (
	"encoding/base64"

	"github.com/bytedance/sonic"

	platformerrors "aristo-server-go/internal/platform/errors"
)

const MimeMP3 = "audio/mp3"

// Payload wraps encoded bytes with a declared media type.
type Payload struct {
	Data     string `json:"data"`
	MimeType string `json:"mime_type"`
}

// Encode produces the base64 transport form of raw audio bytes.
func Encode(raw []byte) string {
	return base64.StdEncoding.EncodeToString(raw)
}

// Decode reverses Encode. A payload that is not valid base64 is a
// decode-kind failure.
func Decode(encoded string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindDecode, "codec.Decode",
			"payload is not valid base64", err)
	}
	return raw, nil
}

// EncodeSegments renders per-segment audio as a JSON array of base64
// strings. A nil segment (failed synthesis) becomes a JSON null so the
// index positions survive the round trip.
func EncodeSegments(segments [][]byte) (string, error) {
	encoded := make([]*string, len(segments))
	for i, seg := range segments {
		if seg == nil {
			continue
		}
		s := Encode(seg)
		encoded[i] = &s
	}
	out, err := sonic.MarshalString(encoded)
	if err != nil {
		return "", platformerrors.Wrap(platformerrors.KindDecode, "codec.EncodeSegments",
			"marshal segment array", err)
	}
	return out, nil
}

// DecodeSegments reverses EncodeSegments, preserving null slots.
func DecodeSegments(payload string) ([][]byte, error) {
	var encoded []*string
	if err := sonic.UnmarshalString(payload, &encoded); err != nil {
		return nil, platformerrors.Wrap(platformerrors.KindDecode, "codec.DecodeSegments",
			"payload is not a JSON segment array", err)
	}
	segments := make([][]byte, len(encoded))
	for i, s := range encoded {
		if s == nil {
			continue
		}
		raw, err := Decode(*s)
		if err != nil {
			return nil, err
		}
		segments[i] = raw
	}
	return segments, nil
}
