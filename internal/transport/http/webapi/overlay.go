package webapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"aristo-server-go/internal/domain/overlay"
)

// handleChapterOverlay renders a chapter as paragraph markup with the
// book's stored highlights and notes wrapped in inline markers.
func (s *Service) handleChapterOverlay(c *gin.Context) {
	ctx := c.Request.Context()
	bookID := c.Param("id")
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "chapter number must be an integer")
		return
	}

	chapter, err := s.library.GetChapterByNumber(ctx, bookID, number)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	highlights, err := s.library.GetHighlights(ctx, bookID, chapter.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	notes, err := s.library.GetNotes(ctx, bookID, chapter.ID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	annotations := make([]overlay.Annotation, 0, len(highlights)+len(notes))
	for _, h := range highlights {
		annotations = append(annotations, overlay.Annotation{
			Key:    strings.ToLower(h.SelectedText),
			Source: h.SelectedText,
			Kind:   h.HighlightType,
			Title:  h.Title,
		})
	}
	for _, n := range notes {
		annotations = append(annotations, overlay.Annotation{
			Key:    strings.ToLower(n.SelectedText),
			Source: n.SelectedText,
			Kind:   "note",
			Title:  n.Content,
		})
	}

	markup := overlay.WrapParagraphs(chapter.Content)
	respondSuccess(c, gin.H{
		"chapter_id":  chapter.ID,
		"html":        s.matcher.Render(markup, annotations),
		"annotations": len(annotations),
	})
}
