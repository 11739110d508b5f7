package controllers

import (
	"errors"
	"net/http"

	"github.com/osvaldoandrade/repozip/internal/services"

	"github.com/gin-gonic/gin"
)

func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, services.ErrClosed), errors.Is(err, services.ErrAttemptsExhausted):
		return http.StatusConflict
	case errors.Is(err, services.ErrDigestMismatch), errors.Is(err, services.ErrInvalidDigest), errors.Is(err, services.ErrInvalidArchive):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		_ = c.Error(err)
		msg = "internal error"
	}
	c.JSON(status, gin.H{"error": msg})
}
