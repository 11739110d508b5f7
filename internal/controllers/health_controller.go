package controllers

import (
	"net/http"

	"github.com/osvaldoandrade/repozip/internal/buildinfo"

	"github.com/gin-gonic/gin"
)

func HealthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "version": buildinfo.Version})
}
