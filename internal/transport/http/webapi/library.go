package webapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"aristo-server-go/internal/platform/storage"
)

func (s *Service) handleListBooks(c *gin.Context) {
	books, err := s.library.ListBooks(c.Request.Context())
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, books)
}

func (s *Service) handleCreateBook(c *gin.Context) {
	var book storage.Book
	if err := c.ShouldBindJSON(&book); err != nil {
		respondError(c, http.StatusBadRequest, "invalid book payload: "+err.Error())
		return
	}
	if book.Title == "" {
		respondError(c, http.StatusBadRequest, "book requires a title")
		return
	}
	if err := s.library.CreateBook(c.Request.Context(), &book); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, book)
}

func (s *Service) handleGetBook(c *gin.Context) {
	book, err := s.library.GetBook(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, book)
}

func (s *Service) handleGetChapterByNumber(c *gin.Context) {
	number, err := strconv.Atoi(c.Param("number"))
	if err != nil {
		respondError(c, http.StatusBadRequest, "chapter number must be an integer")
		return
	}
	chapter, err := s.library.GetChapterByNumber(c.Request.Context(), c.Param("id"), number)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, chapter)
}

func (s *Service) handleGetHighlights(c *gin.Context) {
	highlights, err := s.library.GetHighlights(c.Request.Context(), c.Param("id"), c.Query("chapter_id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, highlights)
}

func (s *Service) handleCreateHighlight(c *gin.Context) {
	var highlight storage.Highlight
	if err := c.ShouldBindJSON(&highlight); err != nil {
		respondError(c, http.StatusBadRequest, "invalid highlight payload: "+err.Error())
		return
	}
	if err := s.library.CreateHighlight(c.Request.Context(), &highlight); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, highlight)
}

func (s *Service) handleGetNotes(c *gin.Context) {
	notes, err := s.library.GetNotes(c.Request.Context(), c.Param("id"), c.Query("chapter_id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, notes)
}

func (s *Service) handleCreateNote(c *gin.Context) {
	var note storage.Note
	if err := c.ShouldBindJSON(&note); err != nil {
		respondError(c, http.StatusBadRequest, "invalid note payload: "+err.Error())
		return
	}
	if err := s.library.CreateNote(c.Request.Context(), &note); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, note)
}

func (s *Service) handleGetProgress(c *gin.Context) {
	progress, err := s.library.GetReadingProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, progress)
}

func (s *Service) handleUpdateProgress(c *gin.Context) {
	var progress storage.ReadingProgress
	if err := c.ShouldBindJSON(&progress); err != nil {
		respondError(c, http.StatusBadRequest, "invalid progress payload: "+err.Error())
		return
	}
	progress.BookID = c.Param("id")
	if err := s.library.UpdateReadingProgress(c.Request.Context(), &progress); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, progress)
}
