package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pai-smart-go/internal/apperr"
)

// RequestID attaches a request id to the Gin context and the response
// header, so error envelopes and logs can be correlated with a single
// identifier end to end.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-Id")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header("X-Request-Id", id)
		c.Next()
	}
}

// respondError writes the {error, detail, timestamp, request_id} envelope
// the service surface uses for every non-2xx response, mapping the error's
// Kind to an HTTP status via apperr.HTTPStatus.
func respondError(c *gin.Context, err error) {
	e := apperr.Wrap(err)
	status := apperr.HTTPStatus(e.Kind)
	c.JSON(status, gin.H{
		"error":      e.Message,
		"detail":     e.Detail,
		"timestamp":  time.Now().UTC(),
		"request_id": c.GetString("request_id"),
	})
}

// Recovery turns a panic in a handler into a 500 error envelope instead of
// taking the whole process down, matching Gin's own gin.Recovery but routing
// through the same error envelope the rest of the service uses.
func Recovery() gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				respondError(c, apperr.Internal("internal server error", nil))
				c.Abort()
			}
		}()
		c.Next()
	}
}
