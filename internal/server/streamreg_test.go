package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai-smart-go/internal/model"
)

func newTestConnection(id string) *model.StreamConnection {
	return &model.StreamConnection{
		ConnectionID:   id,
		CreatedAt:      time.Now(),
		LastActivityAt: time.Now(),
		Status:         model.ConnActive,
	}
}

func TestStreamRegistryRegisterGetUnregister(t *testing.T) {
	r := NewStreamRegistry(time.Minute)
	conn := newTestConnection("conn-1")
	r.Register(conn)

	got, ok := r.Get("conn-1")
	require.True(t, ok)
	assert.Same(t, conn, got)
	assert.Equal(t, 1, r.Count())

	r.Unregister("conn-1")
	_, ok = r.Get("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 0, r.Count())
}

func TestStreamRegistryTouchRefreshesLastActivity(t *testing.T) {
	r := NewStreamRegistry(time.Minute)
	conn := newTestConnection("conn-1")
	conn.LastActivityAt = time.Now().Add(-time.Hour)
	r.Register(conn)

	r.Touch("conn-1")
	got, _ := r.Get("conn-1")
	assert.WithinDuration(t, time.Now(), got.LastActivityAt, time.Second)
}

func TestStreamRegistryCancelInvokesCancelFuncAndMarksClosing(t *testing.T) {
	r := NewStreamRegistry(time.Minute)
	conn := newTestConnection("conn-1")
	cancelled := false
	conn.SetCancelFunc(func() { cancelled = true })
	r.Register(conn)

	assert.True(t, r.Cancel("conn-1"))
	assert.True(t, cancelled)
	assert.Equal(t, model.ConnClosing, conn.Status)
}

func TestStreamRegistryCancelUnknownConnectionReturnsFalse(t *testing.T) {
	r := NewStreamRegistry(time.Minute)
	assert.False(t, r.Cancel("missing"))
}

func TestStreamRegistryListReturnsAllRegisteredConnections(t *testing.T) {
	r := NewStreamRegistry(time.Minute)
	r.Register(newTestConnection("a"))
	r.Register(newTestConnection("b"))

	list := r.List()
	assert.Len(t, list, 2)
}

func TestStreamRegistrySweepRemovesOnlyIdleConnections(t *testing.T) {
	r := NewStreamRegistry(50 * time.Millisecond)
	idle := newTestConnection("idle")
	idle.LastActivityAt = time.Now().Add(-time.Hour)
	cancelled := false
	idle.SetCancelFunc(func() { cancelled = true })
	r.Register(idle)

	fresh := newTestConnection("fresh")
	r.Register(fresh)

	r.sweep()

	_, ok := r.Get("idle")
	assert.False(t, ok)
	assert.True(t, cancelled)

	_, ok = r.Get("fresh")
	assert.True(t, ok)
}
