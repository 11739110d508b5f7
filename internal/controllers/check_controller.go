package controllers

import (
	"net/http"
	"strings"

	"github.com/osvaldoandrade/repozip/internal/middleware"
	"github.com/osvaldoandrade/repozip/internal/services"

	"github.com/gin-gonic/gin"
)

type checkController struct{ svc services.SubmissionService }

func NewCheckController(svc services.SubmissionService) *checkController {
	return &checkController{svc: svc}
}

// Handle serves GET /check?competition={id}.
func (h *checkController) Handle(c *gin.Context) {
	claims, ok := middleware.GetClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing claims"})
		return
	}
	resp, err := h.svc.Check(c.Request.Context(), claims, strings.TrimSpace(c.Query("competition")))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
