package controllers

import (
	"errors"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/middleware"
	"github.com/osvaldoandrade/repozip/internal/services"
	"github.com/osvaldoandrade/repozip/internal/upload"

	"github.com/gin-gonic/gin"
)

type submitController struct {
	svc      services.SubmissionService
	maxBytes int64
}

func NewSubmitController(svc services.SubmissionService, maxBytes int64) *submitController {
	return &submitController{svc: svc, maxBytes: maxBytes}
}

// Handle serves POST /submit with a multipart "file" part and an optional
// "competition" field.
func (h *submitController) Handle(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	fh, err := c.FormFile(upload.FilePart)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "archive too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing multipart part \"" + upload.FilePart + "\""})
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "archive too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}

	resp, err := h.svc.Submit(c.Request.Context(), services.SubmitInput{
		Claims:      claims,
		Competition: strings.TrimSpace(c.PostForm(upload.CompetitionPart)),
		FileName:    path.Base(fh.Filename),
		Data:        data,
		Digest:      strings.TrimSpace(c.GetHeader(upload.DigestHeader)),
		RequestID:   middleware.RequestID(c.Request.Context()),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}
