package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (a *App) handleRoot(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"service": "zerorag", "status": "running"})
}

func (a *App) handleHealth(c *gin.Context) {
	state, score := a.store.Health(c.Request.Context())
	status := http.StatusOK
	if score == 0 {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, gin.H{
		"status":      state,
		"healthScore": score,
		"timestamp":   time.Now().UTC(),
	})
}

func (a *App) handleServiceHealth(c *gin.Context) {
	name := c.Param("name")
	switch name {
	case "vector_store":
		state, score := a.store.Health(c.Request.Context())
		c.JSON(http.StatusOK, gin.H{"name": name, "status": state, "healthScore": score})
	default:
		c.JSON(http.StatusNotFound, gin.H{"name": name, "status": "unknown"})
	}
}

func (a *App) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"queueDepth":       a.store.QueueDepth(),
		"activeStreams":    a.streams.Count(),
		"timestamp":        time.Now().UTC(),
	})
}
