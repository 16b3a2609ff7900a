package api

import (
	"net/http"

	"github.com/ericogr/skirmish/internal/version"
	"github.com/gin-gonic/gin"
)

// Version returns build metadata. The healthcheck binary probes it.
func Version(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"build":   version.String(),
		"version": version.Version,
		"commit":  version.Commit,
		"date":    version.Date,
		"dirty":   version.Dirty,
	})
}
