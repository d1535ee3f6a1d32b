// Package overlay locates stored annotation texts inside rendered
// chapter markup and wraps every occurrence in inline markers the
// reading view turns into clickable highlights.
package overlay

import (
	"html"
	"regexp"
	"sort"
	"strings"

	platformerrors "aristo-server-go/internal/platform/errors"
	"aristo-server-go/internal/platform/logging"
)

// Annotation is a read-only snapshot of one stored highlight or note,
// keyed by its lower-cased source text.
type Annotation struct {
	Key    string
	Source string
	Kind   string
	Title  string
}

// span is one region of the markup to replace, with every annotation
// whose text covers it.
type span struct {
	start       int
	end         int
	matched     string
	annotations []Annotation
}

// Matcher renders annotation overlays. It holds no per-chapter state;
// one instance serves every request.
type Matcher struct {
	logger *logging.Logger
}

func NewMatcher(logger *logging.Logger) *Matcher {
	return &Matcher{logger: logger}
}

// Render wraps every occurrence of each annotation's source text in
// the markup with an inline marker. Matching is case-insensitive with
// the source text treated literally, escaped the same way
// WrapParagraphs escapes the markup. Overlapping matches collapse to
// one marker spanning their union. An annotation whose text does not
// appear in the markup is skipped silently; that is a degraded
// rendering, not an error.
func (m *Matcher) Render(markup string, annotations []Annotation) string {
	spans := m.collect(markup, annotations)
	if len(spans) == 0 {
		return markup
	}
	merged := mergeOverlapping(spans)

	// Replace from the highest offset backward so earlier offsets stay
	// valid as the string length changes.
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].start > merged[j].start
	})
	for _, s := range merged {
		// Re-read the covered text: merging may have widened the span
		// past any single match, and lower offsets are still untouched.
		s.matched = markup[s.start:s.end]
		markup = markup[:s.start] + renderMarker(s) + markup[s.end:]
	}
	return markup
}

// WrapParagraphs renders plain chapter text as the paragraph markup
// Render operates on. Blank-line separated blocks become <p> elements
// with their text escaped.
func WrapParagraphs(text string) string {
	var b strings.Builder
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block == "" {
			continue
		}
		b.WriteString("<p>")
		b.WriteString(html.EscapeString(block))
		b.WriteString("</p>")
	}
	return b.String()
}

func (m *Matcher) collect(markup string, annotations []Annotation) []span {
	byRange := make(map[[2]int]*span)
	var order [][2]int

	for _, ann := range annotations {
		source := strings.TrimSpace(ann.Source)
		if source == "" {
			continue
		}
		// The markup is escaped paragraph text, so the needle must be
		// escaped the same way or sources with quotes and ampersands
		// could never match.
		re, err := regexp.Compile(`(?i)` + regexp.QuoteMeta(html.EscapeString(source)))
		if err != nil {
			m.debug("annotation %q did not compile: %v", ann.Key, err)
			continue
		}
		matches := re.FindAllStringIndex(markup, -1)
		if len(matches) == 0 {
			m.debug("%v", platformerrors.New(platformerrors.KindMatch, "overlay.Render",
				"annotation text not found in rendering: "+ann.Key))
			continue
		}
		for _, loc := range matches {
			key := [2]int{loc[0], loc[1]}
			if existing, ok := byRange[key]; ok {
				existing.annotations = append(existing.annotations, ann)
				continue
			}
			byRange[key] = &span{
				start:       loc[0],
				end:         loc[1],
				matched:     markup[loc[0]:loc[1]],
				annotations: []Annotation{ann},
			}
			order = append(order, key)
		}
	}

	spans := make([]span, 0, len(order))
	for _, key := range order {
		spans = append(spans, *byRange[key])
	}
	return spans
}

// mergeOverlapping collapses intersecting spans into one covering
// their union, carrying every participating annotation.
func mergeOverlapping(spans []span) []span {
	sort.Slice(spans, func(i, j int) bool {
		if spans[i].start != spans[j].start {
			return spans[i].start < spans[j].start
		}
		return spans[i].end < spans[j].end
	})

	merged := make([]span, 0, len(spans))
	for _, s := range spans {
		if len(merged) == 0 {
			merged = append(merged, s)
			continue
		}
		last := &merged[len(merged)-1]
		if s.start >= last.end {
			merged = append(merged, s)
			continue
		}
		if s.end > last.end {
			last.end = s.end
		}
		last.annotations = append(last.annotations, s.annotations...)
	}
	return merged
}

func renderMarker(s span) string {
	if len(s.annotations) == 1 {
		ann := s.annotations[0]
		return `<span class="highlight ` + cssClass(ann.Kind) +
			`" data-highlight="` + html.EscapeString(ann.Key) +
			`" data-type="` + html.EscapeString(ann.Kind) +
			`" data-title="` + html.EscapeString(ann.Title) +
			`">` + s.matched + `</span>`
	}

	keys := make([]string, len(s.annotations))
	kinds := make([]string, len(s.annotations))
	titles := make([]string, len(s.annotations))
	for i, ann := range s.annotations {
		keys[i] = ann.Key
		kinds[i] = ann.Kind
		titles[i] = ann.Title
	}
	return `<span class="highlight highlight-stack" data-highlight="` +
		html.EscapeString(strings.Join(keys, "|")) +
		`" data-types="` + html.EscapeString(strings.Join(kinds, "|")) +
		`" data-titles="` + html.EscapeString(strings.Join(titles, "|")) +
		`">` + s.matched + `</span>`
}

func cssClass(kind string) string {
	if kind == "" {
		return "highlight-other"
	}
	return "highlight-" + kind
}

func (m *Matcher) debug(format string, args ...any) {
	if m.logger != nil {
		m.logger.DebugTag("HTTP", format, args...)
	}
}
