package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"webplayer/services"
	"webplayer/types"
)

// statusFor maps service errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, services.ErrRangeNotSatisfiable):
		return http.StatusRequestedRangeNotSatisfiable
	default:
		return http.StatusInternalServerError
	}
}

// messageFor returns the short client-facing message for a status
func messageFor(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "invalid path"
	case http.StatusNotFound:
		return "not found"
	case http.StatusForbidden:
		return "access denied"
	default:
		return "internal error"
	}
}

// respondError writes the error body for err. Nothing may have been written yet.
func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, types.ErrorResponse{
		Error:   messageFor(status),
		Details: err.Error(),
	})
}
