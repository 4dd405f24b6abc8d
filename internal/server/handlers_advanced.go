package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"pai-smart-go/internal/apperr"
)

func (a *App) handleListConnections(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"connections": a.streams.List(), "count": a.streams.Count()})
}

func (a *App) handleCancelConnection(c *gin.Context) {
	if !a.streams.Cancel(c.Param("id")) {
		respondError(c, apperr.NotFound("no such stream connection"))
		return
	}
	c.Status(http.StatusNoContent)
}

// handleCleanup purges terminal upload-progress records older than
// older_than_days (default 1). It does not touch the vector store or run the
// memory monitor's cleanup. With dry_run=true nothing is removed and the
// response carries only the cutoff; it does not list or count the records a
// real run would remove.
func (a *App) handleCleanup(c *gin.Context) {
	olderThanDays, _ := strconv.Atoi(c.DefaultQuery("older_than_days", "1"))
	dryRun := c.DefaultQuery("dry_run", "false") == "true"
	cutoff := time.Now().AddDate(0, 0, -olderThanDays)

	if dryRun {
		c.JSON(http.StatusOK, gin.H{"dryRun": true, "cutoff": cutoff})
		return
	}

	removed := a.pipeline.CleanupProgress(cutoff)
	c.JSON(http.StatusOK, gin.H{"dryRun": false, "removedProgressRecords": removed})
}

func (a *App) handleStorageStats(c *gin.Context) {
	stats, err := a.store.Stats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}
