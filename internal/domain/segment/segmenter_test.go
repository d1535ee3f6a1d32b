package segment

import (
	"strings"
	"testing"
)

func paragraph(word string, words int) string {
	parts := make([]string, words)
	for i := range parts {
		parts[i] = word
	}
	return strings.Join(parts, " ") + "."
}

func TestSplitForSynthesisRespectsLimit(t *testing.T) {
	var sb strings.Builder
	for i := 0; i < 12; i++ {
		sb.WriteString(paragraph("reading", 120))
		sb.WriteString("\n\n")
	}
	text := sb.String()

	segments := SplitForSynthesis(text, 3000)
	if len(segments) == 0 {
		t.Fatal("expected at least one segment")
	}
	for _, seg := range segments {
		if len(seg.Text) > 3000 {
			t.Errorf("segment %d exceeds limit: %d chars", seg.Index, len(seg.Text))
		}
		if strings.TrimSpace(seg.Text) == "" {
			t.Errorf("segment %d is empty", seg.Index)
		}
	}
}

func TestSplitForSynthesisIndicesAreSequential(t *testing.T) {
	text := "First paragraph here.\n\nSecond paragraph here.\n\nThird paragraph here."
	segments := SplitForSynthesis(text, 30)
	for i, seg := range segments {
		if seg.Index != i {
			t.Errorf("segment %d carries index %d", i, seg.Index)
		}
	}
}

func TestSplitForSynthesisPreservesContent(t *testing.T) {
	text := "One two three.\n\nFour five six.\n\nSeven eight nine."
	segments := SplitForSynthesis(text, 3000)
	if len(segments) != 1 {
		t.Fatalf("short text should fit one segment, got %d", len(segments))
	}
	if segments[0].Text != text {
		t.Errorf("content not preserved: %q", segments[0].Text)
	}

	// Under a tight limit, rejoining the segments reproduces the
	// normalized input.
	tight := SplitForSynthesis(text, 20)
	joined := make([]string, len(tight))
	for i, seg := range tight {
		joined[i] = seg.Text
	}
	if got := strings.Join(joined, "\n\n"); got != text {
		t.Errorf("rejoined text mismatch:\n got %q\nwant %q", got, text)
	}
}

func TestSplitForSynthesisOversizeParagraphSplitsOnSentences(t *testing.T) {
	// One paragraph, three sentences, each ~40 chars; limit forces
	// sentence-level splitting.
	text := paragraph("alpha", 6) + " " + paragraph("beta", 6) + " " + paragraph("gamma", 6)
	segments := SplitForSynthesis(text, 45)

	if len(segments) < 2 {
		t.Fatalf("expected sentence-level split, got %d segments", len(segments))
	}
	for _, seg := range segments {
		if len(seg.Text) > 45 {
			t.Errorf("segment %q exceeds limit", seg.Text)
		}
	}
}

func TestSplitForSynthesisSingleOversizeSentencePassesThrough(t *testing.T) {
	// No terminal punctuation until the very end; cannot be cut.
	long := strings.Repeat("word ", 50) + "end."
	segments := SplitForSynthesis(long, 40)
	if len(segments) != 1 {
		t.Fatalf("expected uncut pass-through, got %d segments", len(segments))
	}
	if len(segments[0].Text) <= 40 {
		t.Error("expected oversize segment to remain oversize")
	}
}

func TestSplitForSynthesisKeepsPunctuationRunsIntact(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "leading exclamations",
			text: "!!!Hello there. World again.",
			want: []string{"!!!Hello there.", "World again."},
		},
		{
			name: "opening ellipsis",
			text: "...Pause now. Then it began again.",
			want: []string{"...Pause now.", "Then it began again."},
		},
		{
			name: "unterminated tail appears once",
			text: "First bit done. trailing without end",
			want: []string{"First bit done.", "trailing without end"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments := SplitForSynthesis(tt.text, 20)
			if len(segments) != len(tt.want) {
				t.Fatalf("got %d segments %v, want %d", len(segments), segments, len(tt.want))
			}
			for i, seg := range segments {
				if seg.Text != tt.want[i] {
					t.Errorf("segment %d = %q, want %q", i, seg.Text, tt.want[i])
				}
			}

			// Rejoining reproduces the normalized input: no characters
			// dropped, no text duplicated.
			joined := make([]string, len(segments))
			for i, seg := range segments {
				joined[i] = seg.Text
			}
			if got := strings.Join(joined, " "); got != tt.text {
				t.Errorf("rejoined text mismatch:\n got %q\nwant %q", got, tt.text)
			}
		})
	}
}

func TestSplitForSynthesisSkipsBlankParagraphs(t *testing.T) {
	text := "\n\n  \n\nReal content here.\n\n\n\n"
	segments := SplitForSynthesis(text, 3000)
	if len(segments) != 1 {
		t.Fatalf("expected 1 segment, got %d", len(segments))
	}
	if segments[0].Text != "Real content here." {
		t.Errorf("unexpected segment text: %q", segments[0].Text)
	}
}

func TestSplitForSynthesisEmptyInput(t *testing.T) {
	if segments := SplitForSynthesis("", 3000); len(segments) != 0 {
		t.Errorf("expected no segments for empty input, got %d", len(segments))
	}
	if segments := SplitForSynthesis("   \n\n  ", 3000); len(segments) != 0 {
		t.Errorf("expected no segments for whitespace input, got %d", len(segments))
	}
}

func TestNineThousandCharChapterYieldsThreeSegments(t *testing.T) {
	// Paragraphs of ~1000 chars each; 9 of them. With a 3000-char limit
	// the grouping lands on exactly three segments.
	para := strings.Repeat("steady prose flows onward. ", 37) // ~999 chars
	text := strings.TrimSpace(strings.Repeat(para+"\n\n", 9))

	segments := SplitForSynthesis(text, 3000)
	if len(segments) != 3 {
		t.Fatalf("expected 3 segments for ~9000 chars at 3000 limit, got %d", len(segments))
	}
}

func TestSplitForDisplayWordCountsSumToTotal(t *testing.T) {
	tests := []struct {
		name   string
		words  int
		window int
	}{
		{"exact multiple", 340, 170},
		{"remainder window", 400, 170},
		{"single short window", 12, 170},
		{"window of one", 5, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			text := strings.TrimSpace(strings.Repeat("word ", tt.words))
			segments := SplitForDisplay(text, tt.window)

			total := 0
			for _, seg := range segments {
				total += seg.WordCount
				if seg.WordCount != seg.EndWordIndex-seg.StartWordIndex+1 {
					t.Errorf("inconsistent indices: %+v", seg)
				}
			}
			if total != tt.words {
				t.Errorf("word counts sum to %d, want %d", total, tt.words)
			}
		})
	}
}

func TestSplitForDisplayWindowsAreContiguous(t *testing.T) {
	text := strings.TrimSpace(strings.Repeat("word ", 500))
	segments := SplitForDisplay(text, 170)

	next := 0
	for _, seg := range segments {
		if seg.StartWordIndex != next {
			t.Errorf("window starts at %d, want %d", seg.StartWordIndex, next)
		}
		next = seg.EndWordIndex + 1
	}
}
