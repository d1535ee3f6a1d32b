package webapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	platformerrors "aristo-server-go/internal/platform/errors"
)

// APIResponse is the envelope every API handler answers with.
type APIResponse struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}

func respondSuccess(c *gin.Context, data any) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

func respondError(c *gin.Context, status int, message string) {
	c.JSON(status, APIResponse{Success: false, Message: message, Code: status})
}

// respondDomainError maps error kinds from the domain layer onto HTTP
// statuses.
func respondDomainError(c *gin.Context, err error) {
	switch {
	case platformerrors.IsNotFound(err):
		respondError(c, http.StatusNotFound, err.Error())
	case platformerrors.IsKind(err, platformerrors.KindConfig),
		platformerrors.IsKind(err, platformerrors.KindPlayback):
		respondError(c, http.StatusBadRequest, err.Error())
	case platformerrors.IsKind(err, platformerrors.KindProvider):
		respondError(c, http.StatusBadGateway, err.Error())
	default:
		respondError(c, http.StatusInternalServerError, err.Error())
	}
}
