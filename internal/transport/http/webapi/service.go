// Package webapi exposes the reading application over HTTP: library
// CRUD, audio generation and retrieval, playback control, reader
// settings, annotation overlays and cache management.
package webapi

import (
	"github.com/gin-gonic/gin"

	"aristo-server-go/internal/domain/library"
	"aristo-server-go/internal/domain/overlay"
	"aristo-server-go/internal/domain/playback"
	"aristo-server-go/internal/domain/reader"
	"aristo-server-go/internal/platform/config"
	"aristo-server-go/internal/platform/logging"
)

// Service bundles the domain services the API fronts.
type Service struct {
	cfg        *config.Config
	logger     *logging.Logger
	library    *library.Service
	reader     *reader.Service
	controller *playback.Controller
	matcher    *overlay.Matcher
}

func NewService(
	cfg *config.Config,
	logger *logging.Logger,
	lib *library.Service,
	rdr *reader.Service,
	controller *playback.Controller,
	matcher *overlay.Matcher,
) *Service {
	return &Service{
		cfg:        cfg,
		logger:     logger,
		library:    lib,
		reader:     rdr,
		controller: controller,
		matcher:    matcher,
	}
}

// Register mounts every API route on the given group.
func (s *Service) Register(api *gin.RouterGroup) {
	api.GET("/books", s.handleListBooks)
	api.POST("/books", s.handleCreateBook)
	api.GET("/books/:id", s.handleGetBook)
	api.GET("/books/:id/chapters/:number", s.handleGetChapterByNumber)
	api.GET("/books/:id/chapters/:number/overlay", s.handleChapterOverlay)
	api.GET("/books/:id/highlights", s.handleGetHighlights)
	api.GET("/books/:id/notes", s.handleGetNotes)
	api.GET("/books/:id/progress", s.handleGetProgress)
	api.POST("/books/:id/progress", s.handleUpdateProgress)
	api.POST("/highlights", s.handleCreateHighlight)
	api.POST("/notes", s.handleCreateNote)

	api.POST("/generate-audio", s.handleGenerateAudio)
	api.GET("/chapters/:id/audio", s.handleChapterAudio)
	api.GET("/notes/:id/audio", s.handleNoteAudio)
	api.GET("/highlights/:id/audio", s.handleHighlightAudio)

	api.POST("/playback/play", s.handlePlay)
	api.POST("/playback/pause", s.handlePause)
	api.POST("/playback/stop", s.handleStop)
	api.POST("/playback/skip", s.handleSkip)
	api.GET("/playback/progress", s.handleProgress)

	api.GET("/settings", s.handleGetSettings)
	api.POST("/settings", s.handleSaveSettings)

	api.GET("/cache/stats", s.handleCacheStats)
	api.POST("/cache/clear", s.handleCacheClear)
}
