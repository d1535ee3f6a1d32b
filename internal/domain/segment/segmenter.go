// Package segment splits chapter text into synthesizable and
// displayable units. Synthesis segments respect the TTS provider's
// character limit; display segments are fixed-size word windows used
// only for visual tracking during playback.
package segment

import (
	"regexp"
	"strings"
)

const (
	// DefaultMaxChars keeps requests safely under the provider's 4096
	// hard cap.
	DefaultMaxChars = 3000

	// DefaultWordsPerDisplaySegment sizes the highlight windows.
	DefaultWordsPerDisplaySegment = 170
)

// SynthesisSegment is one chunk of text sized for a single synthesis
// call. Index is the segment's position within the chapter.
type SynthesisSegment struct {
	Text  string
	Index int
}

// DisplaySegment is a word window used for highlight granularity. It is
// never sent to the synthesis provider.
type DisplaySegment struct {
	Text           string
	WordCount      int
	StartWordIndex int
	EndWordIndex   int
}

var sentencePattern = regexp.MustCompile(`[^.!?]+[.!?]+`)

// SplitForSynthesis groups paragraphs into segments of at most maxLen
// characters. A paragraph that alone exceeds maxLen is further split on
// sentence boundaries. A single sentence longer than maxLen is passed
// through uncut; the provider rejects it and the segment slot records
// the failure.
func SplitForSynthesis(text string, maxLen int) []SynthesisSegment {
	if maxLen <= 0 {
		maxLen = DefaultMaxChars
	}

	var grouped []string
	current := ""
	for _, paragraph := range strings.Split(text, "\n\n") {
		paragraph = strings.TrimSpace(paragraph)
		if paragraph == "" {
			continue
		}
		if len(current)+len(paragraph) > maxLen && len(current) > 0 {
			grouped = append(grouped, current)
			current = paragraph
		} else if current == "" {
			current = paragraph
		} else {
			current += "\n\n" + paragraph
		}
	}
	if strings.TrimSpace(current) != "" {
		grouped = append(grouped, current)
	}

	var segments []SynthesisSegment
	for _, g := range grouped {
		if len(g) <= maxLen {
			segments = append(segments, SynthesisSegment{Text: g, Index: len(segments)})
			continue
		}
		for _, piece := range splitSentences(g, maxLen) {
			segments = append(segments, SynthesisSegment{Text: piece, Index: len(segments)})
		}
	}
	return segments
}

func splitSentences(text string, maxLen int) []string {
	locs := sentencePattern.FindAllStringIndex(text, -1)

	var sentences []string
	prev := 0
	for _, loc := range locs {
		// Any uncovered run before the match (a leading ellipsis or
		// other punctuation the pattern skips) stays glued to the
		// sentence that follows it, so nothing is dropped.
		sentences = append(sentences, text[prev:loc[1]])
		prev = loc[1]
	}
	// Trailing run without terminal punctuation.
	if tail := strings.TrimSpace(text[prev:]); tail != "" {
		sentences = append(sentences, tail)
	}

	var pieces []string
	current := ""
	for _, sentence := range sentences {
		if len(current)+len(sentence) > maxLen && len(current) > 0 {
			pieces = append(pieces, strings.TrimSpace(current))
			current = sentence
		} else {
			current += sentence
		}
	}
	if strings.TrimSpace(current) != "" {
		pieces = append(pieces, strings.TrimSpace(current))
	}
	return pieces
}

// SplitForDisplay tokenizes on whitespace and groups words into
// fixed-size windows. The last window may be shorter. Deterministic and
// stateless.
func SplitForDisplay(text string, wordsPerSegment int) []DisplaySegment {
	if wordsPerSegment <= 0 {
		wordsPerSegment = DefaultWordsPerDisplaySegment
	}

	words := strings.Fields(text)
	var segments []DisplaySegment
	for start := 0; start < len(words); start += wordsPerSegment {
		end := start + wordsPerSegment
		if end > len(words) {
			end = len(words)
		}
		segments = append(segments, DisplaySegment{
			Text:           strings.Join(words[start:end], " "),
			WordCount:      end - start,
			StartWordIndex: start,
			EndWordIndex:   end - 1,
		})
	}
	return segments
}
