// Package tika extracts plain text out of binary document formats (PDF,
// DOCX, PPTX, XLSX, legacy .doc) by calling an Apache Tika server's /tika
// endpoint. Adapted from pkg/tika/client.go: the request/response shape is
// unchanged, but the client now takes a context.Context per call, carries
// its own timeout instead of relying on http.DefaultClient, and classifies
// failures through apperr so docpipeline.Pipeline can tell a transient Tika
// outage from a permanently unreadable file.
package tika

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"pai-smart-go/internal/apperr"
	"pai-smart-go/internal/config"
)

// Client talks to a single Apache Tika server.
type Client struct {
	serverURL  string
	httpClient *http.Client
}

// NewClient builds a Client from the configured Tika server URL.
func NewClient(cfg config.TikaConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{serverURL: cfg.ServerURL, httpClient: &http.Client{Timeout: timeout}}
}

// ExtractText infers a content type from fileName's extension and asks Tika
// to parse fileReader into plain text, satisfying docpipeline.Extractor.
func (c *Client) ExtractText(fileReader io.Reader, fileName string) (string, error) {
	return c.ExtractTextContext(context.Background(), fileReader, fileName)
}

// ExtractTextContext is ExtractText with an explicit context, for callers
// that need to cancel a slow Tika call (large PDFs, a stuck server).
func (c *Client) ExtractTextContext(ctx context.Context, fileReader io.Reader, fileName string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", fileReader)
	if err != nil {
		return "", apperr.Internal("failed to build tika request", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", detectMimeType(fileName))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", apperr.Transient("tika request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", apperr.Permanent(fmt.Sprintf("tika returned status %d", resp.StatusCode), fmt.Errorf("%s", body))
	}

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, resp.Body); err != nil {
		return "", apperr.Transient("failed to read tika response", err)
	}
	return buf.String(), nil
}

func detectMimeType(fileName string) string {
	ext := filepath.Ext(fileName)
	if ext == "" {
		return "application/octet-stream"
	}
	if mimeType := mime.TypeByExtension(ext); mimeType != "" {
		return mimeType
	}
	return "application/octet-stream"
}
