package embedclient

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbedBatchDecodesVectorsInOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"embedding":[1,2,3]},{"embedding":[4,5,6]}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Model: "test-embed", Dimensions: 3, Timeout: 5 * time.Second})
	vectors, err := c.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, []float32{1, 2, 3}, vectors[0])
	assert.Equal(t, []float32{4, 5, 6}, vectors[1])
}

func TestEmbedReturnsFirstVectorOfBatch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[0.1,0.2]}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Dimensions: 2, Timeout: 5 * time.Second})
	vec, err := c.Embed(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestEmbedBatchSurfacesTransientErrorOnBadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	_, err := c.EmbedBatch(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestDimReturnsConfiguredDimensions(t *testing.T) {
	c := New(Config{Dimensions: 1536})
	assert.Equal(t, 1536, c.Dim())
}

func TestHealthDelegatesToEmbed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":[{"embedding":[1]}]}`))
	}))
	defer srv.Close()

	c := New(Config{BaseURL: srv.URL, Dimensions: 1, Timeout: 5 * time.Second})
	assert.NoError(t, c.Health(context.Background()))
}
