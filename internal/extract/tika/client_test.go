package tika

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/config"
)

func TestExtractTextReturnsTikaBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, "pdf bytes", string(body))
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("extracted text"))
	}))
	defer srv.Close()

	c := NewClient(config.TikaConfig{ServerURL: srv.URL})
	text, err := c.ExtractText(strings.NewReader("pdf bytes"), "report.pdf")
	require.NoError(t, err)
	assert.Equal(t, "extracted text", text)
}

func TestExtractTextClassifiesServerErrorAsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnsupportedMediaType)
		_, _ = w.Write([]byte("cannot parse"))
	}))
	defer srv.Close()

	c := NewClient(config.TikaConfig{ServerURL: srv.URL})
	_, err := c.ExtractText(strings.NewReader("garbage"), "weird.xyz")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindPermanent))
}

func TestExtractTextContextCancellationIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	c := NewClient(config.TikaConfig{ServerURL: srv.URL})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.ExtractTextContext(ctx, strings.NewReader("x"), "doc.docx")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindTransient))
}
