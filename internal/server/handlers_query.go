package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/model"
)

func (a *App) handleQuery(c *gin.Context) {
	var q model.RAGQuery
	if err := c.ShouldBindJSON(&q); err != nil {
		respondError(c, apperr.ValidationWithDetail("invalid query payload", err.Error()))
		return
	}

	resp, err := a.rag.Answer(c.Request.Context(), q)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// handleQueryStream streams a query's answer as Server-Sent Events. Each
// model.StreamEvent becomes one SSE "event: <type>\ndata: <json>\n\n" frame.
// The connection is registered in the StreamRegistry for the duration of the
// request so /advanced/connections can list and cancel it, and its cancel
// function is wired to the request context so a client disconnect (detected
// via c.Request.Context().Done()) stops generation promptly instead of
// running to completion with nobody listening.
func (a *App) handleQueryStream(c *gin.Context) {
	queryText := c.Query("query")
	if queryText == "" {
		respondError(c, apperr.Validation("missing query parameter"))
		return
	}
	q := model.RAGQuery{QueryText: queryText, IncludeSources: true}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	conn := &model.StreamConnection{
		ConnectionID:   uuid.NewString(),
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
		Status:         model.ConnActive,
		RemoteAddr:     c.ClientIP(),
		UserAgent:      c.Request.UserAgent(),
		Query:          queryText,
	}
	conn.SetCancelFunc(cancel)
	a.streams.Register(conn)
	defer a.streams.Unregister(conn.ConnectionID)

	events, err := a.rag.Stream(ctx, q)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Connection-Id", conn.ConnectionID)

	c.Stream(func(w io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			a.streams.Touch(conn.ConnectionID)
			writeSSEEvent(c, ev)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func writeSSEEvent(c *gin.Context, ev model.StreamEvent) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		payload = []byte(`"encoding error"`)
	}
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", ev.Type, payload)
	c.Writer.Flush()
}
