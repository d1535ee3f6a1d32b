package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"aristo-server-go/internal/domain/audio"
	"aristo-server-go/internal/domain/codec"
)

type generateAudioRequest struct {
	ChapterID string `json:"chapter_id" binding:"required"`
}

// handleGenerateAudio prepares a chapter's audio (cache tiers first,
// synthesis on a miss) and loads the result into the playback
// controller as the active track.
func (s *Service) handleGenerateAudio(c *gin.Context) {
	var req generateAudioRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, "chapter_id is required")
		return
	}

	prepared, err := s.reader.PrepareChapterAudio(c.Request.Context(), req.ChapterID)
	if err != nil {
		respondDomainError(c, err)
		return
	}
	s.controller.Load(prepared.Assets, len(prepared.Display))

	total := 0.0
	for _, asset := range prepared.Assets {
		if asset != nil {
			total += asset.DurationSeconds
		}
	}
	respondSuccess(c, gin.H{
		"chapter_id":       prepared.ChapterID,
		"voice":            prepared.Voice,
		"model":            prepared.Model,
		"segments":         len(prepared.Assets),
		"display_segments": len(prepared.Display),
		"failed":           prepared.Failed,
		"from_cache":       prepared.FromCache,
		"total_seconds":    total,
	})
}

// handleChapterAudio serves cached chapter audio as base64 segments,
// with null slots where synthesis failed. It never generates; the
// client is expected to call generate-audio first.
func (s *Service) handleChapterAudio(c *gin.Context) {
	chapterID := c.Param("id")
	assets, settings, err := s.reader.CachedChapterAudio(c.Request.Context(), chapterID)
	if err != nil {
		respondDomainError(c, err)
		return
	}

	segments := make([]*string, len(assets))
	for i, asset := range assets {
		if asset == nil {
			continue
		}
		encoded := codec.Encode(asset.Bytes())
		segments[i] = &encoded
	}
	respondSuccess(c, gin.H{
		"chapter_id": chapterID,
		"voice":      settings.Voice,
		"model":      settings.Model,
		"mime_type":  codec.MimeMP3,
		"segments":   segments,
	})
}

func (s *Service) handleNoteAudio(c *gin.Context) {
	asset, err := s.reader.NoteAudio(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	// Annotation audio takes over from the chapter track.
	s.controller.Pause()
	respondSuccess(c, assetPayload(asset))
}

func (s *Service) handleHighlightAudio(c *gin.Context) {
	asset, err := s.reader.HighlightAudio(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondDomainError(c, err)
		return
	}
	s.controller.Pause()
	respondSuccess(c, assetPayload(asset))
}

func assetPayload(asset *audio.Asset) gin.H {
	return gin.H{
		"data":             codec.Encode(asset.Bytes()),
		"mime_type":        asset.MimeType,
		"duration_seconds": asset.DurationSeconds,
	}
}

type cacheClearRequest struct {
	Persisted bool `json:"persisted"`
}

func (s *Service) handleCacheStats(c *gin.Context) {
	respondSuccess(c, s.reader.CacheStats(c.Request.Context()))
}

func (s *Service) handleCacheClear(c *gin.Context) {
	var req cacheClearRequest
	// An empty body clears the memory tier only.
	_ = c.ShouldBindJSON(&req)

	if err := s.reader.ClearCache(c.Request.Context(), req.Persisted); err != nil {
		respondDomainError(c, err)
		return
	}
	respondSuccess(c, gin.H{"cleared": true, "persisted": req.Persisted})
}
