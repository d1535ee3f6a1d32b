package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aristo-server-go/internal/domain/reader"
)

func (s *Service) handlePlay(c *gin.Context) {
	if err := s.controller.Play(); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, s.controller.Progress())
}

func (s *Service) handlePause(c *gin.Context) {
	s.controller.Pause()
	respondSuccess(c, s.controller.Progress())
}

func (s *Service) handleStop(c *gin.Context) {
	s.controller.Stop()
	respondSuccess(c, s.controller.Progress())
}

type skipRequest struct {
	Seconds float64 `json:"seconds"`
}

func (s *Service) handleSkip(c *gin.Context) {
	var req skipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "seconds is required")
		return
	}
	if err := s.controller.Skip(req.Seconds); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, s.controller.Progress())
}

func (s *Service) handleProgress(c *gin.Context) {
	respondSuccess(c, s.controller.Progress())
}

func (s *Service) handleGetSettings(c *gin.Context) {
	respondSuccess(c, s.reader.Settings(c.Request.Context()))
}

// handleSaveSettings persists new preferences and applies the volume
// and rate to the active track immediately. Voice or model changes
// take effect on the next generate-audio call.
func (s *Service) handleSaveSettings(c *gin.Context) {
	var settings reader.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		respondError(c, http.StatusBadRequest, "invalid settings payload: "+err.Error())
		return
	}
	if err := s.reader.SaveSettings(c.Request.Context(), settings); err != nil {
		respondDomainError(c, err)
		return
	}
	s.controller.SetVolume(settings.Volume)
	s.controller.SetRate(settings.Rate)
	respondSuccess(c, settings)
}
