package server

import (
	"context"
	"sync"
	"time"

	"pai-smart-go/internal/model"
	"pai-smart-go/pkg/log"
)

// StreamRegistry tracks every live streaming query connection, grounded on
// chat_handler.go's per-connection sync.Map of stop flags, generalized from
// a single websocket-specific field into a full StreamConnection record and
// given an idle-timeout reaper since SSE connections have no equivalent of a
// websocket close frame to key cleanup off of.
type StreamRegistry struct {
	conns       sync.Map // connectionID -> *model.StreamConnection
	idleTimeout time.Duration
	cancel      context.CancelFunc
}

func NewStreamRegistry(idleTimeout time.Duration) *StreamRegistry {
	if idleTimeout <= 0 {
		idleTimeout = 10 * time.Minute
	}
	return &StreamRegistry{idleTimeout: idleTimeout}
}

// Register adds a new connection; the caller keeps its pointer to update it.
func (r *StreamRegistry) Register(conn *model.StreamConnection) {
	r.conns.Store(conn.ConnectionID, conn)
}

// Touch refreshes a connection's last-activity timestamp.
func (r *StreamRegistry) Touch(connectionID string) {
	if v, ok := r.conns.Load(connectionID); ok {
		conn := v.(*model.StreamConnection)
		conn.LastActivityAt = time.Now()
	}
}

// Unregister removes a connection, e.g. once its handler returns.
func (r *StreamRegistry) Unregister(connectionID string) {
	r.conns.Delete(connectionID)
}

// Get returns the connection for connectionID, if it's still live.
func (r *StreamRegistry) Get(connectionID string) (*model.StreamConnection, bool) {
	v, ok := r.conns.Load(connectionID)
	if !ok {
		return nil, false
	}
	return v.(*model.StreamConnection), true
}

// List returns a snapshot of all currently registered connections.
func (r *StreamRegistry) List() []*model.StreamConnection {
	var out []*model.StreamConnection
	r.conns.Range(func(_, v any) bool {
		out = append(out, v.(*model.StreamConnection))
		return true
	})
	return out
}

// Count returns the number of currently registered connections.
func (r *StreamRegistry) Count() int {
	n := 0
	r.conns.Range(func(_, _ any) bool { n++; return true })
	return n
}

// Cancel marks a specific connection closing and invokes its cancel func,
// used by the DELETE /advanced/connections/{id} endpoint. It leaves the entry
// registered; the stream handler unregisters it when it returns.
func (r *StreamRegistry) Cancel(connectionID string) bool {
	conn, ok := r.Get(connectionID)
	if !ok {
		return false
	}
	conn.Status = model.ConnClosing
	conn.Cancel()
	return true
}

// StartReaper launches the idle-connection sweep goroutine.
func (r *StreamRegistry) StartReaper(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	go func() {
		ticker := time.NewTicker(r.idleTimeout / 2)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.sweep()
			}
		}
	}()
}

func (r *StreamRegistry) StopReaper() {
	if r.cancel != nil {
		r.cancel()
	}
}

func (r *StreamRegistry) sweep() {
	cutoff := time.Now().Add(-r.idleTimeout)
	r.conns.Range(func(key, v any) bool {
		conn := v.(*model.StreamConnection)
		if conn.LastActivityAt.Before(cutoff) {
			log.Infof("closing idle stream connection %s", conn.ConnectionID)
			conn.Status = model.ConnClosing
			conn.Cancel()
			r.conns.Delete(key)
		}
		return true
	})
}
