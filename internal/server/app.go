// Package server wires the HTTP service surface together as an explicit
// App value instead of the teacher's package-level globals (pkg/es.ESClient,
// pkg/storage.MinioClient, etc). Composition and lifecycle are grounded on
// cmd/server/main.go's init-then-serve-then-drain shape; the dependencies
// themselves are passed in rather than reached for through global state.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"pai-smart-go/internal/config"
	"pai-smart-go/internal/docpipeline"
	"pai-smart-go/internal/rag"
	"pai-smart-go/internal/vectorstore"
	"pai-smart-go/pkg/log"
)

// App owns every long-lived dependency of the HTTP service and controls
// their startup and shutdown order.
type App struct {
	cfg        config.Config
	router     *gin.Engine
	httpServer *http.Server
	store      *vectorstore.Store
	pipeline   *docpipeline.Pipeline
	rag        *rag.Pipeline
	streams    *StreamRegistry
}

// New builds an App from its already-constructed collaborators. Wiring
// those collaborators (ES client, embedder, generator, Tika) remains
// the responsibility of cmd/server/main.go, the same division of labor
// cmd/server/main.go already uses for its own service layer.
func New(cfg config.Config, store *vectorstore.Store, pipeline *docpipeline.Pipeline, ragPipeline *rag.Pipeline) *App {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	streamTimeout := time.Duration(cfg.Service.StreamConnectionTimeoutMinutes) * time.Minute
	app := &App{
		cfg:      cfg,
		router:   router,
		store:    store,
		pipeline: pipeline,
		rag:      ragPipeline,
		streams:  NewStreamRegistry(streamTimeout),
	}

	router.Use(RequestID(), requestLogger(), Recovery())
	app.registerRoutes()

	app.httpServer = &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: router,
	}
	return app
}

// Start launches the vector store's background workers, the stream
// connection reaper, and begins serving HTTP in a background goroutine. It
// returns immediately; call Shutdown to stop everything gracefully.
func (a *App) Start(ctx context.Context) error {
	a.store.Start(ctx)
	a.streams.StartReaper(ctx)

	go func() {
		log.Infof("server listening on %s", a.httpServer.Addr)
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("http server failed: %v", err)
		}
	}()
	return nil
}

// Shutdown drains in-flight requests, then stops the stream reaper and the
// vector store's background workers, in that order so no in-flight request
// loses its backing infrastructure while it's still running.
func (a *App) Shutdown(ctx context.Context) error {
	timeout := time.Duration(a.cfg.Service.ShutdownTimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("http server shutdown error: %v", err)
	}
	a.streams.StopReaper()
	return a.store.Shutdown(shutdownCtx)
}

// Router exposes the underlying gin.Engine, primarily for tests that want
// to exercise handlers with httptest without a real listening socket.
func (a *App) Router() *gin.Engine { return a.router }

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Infof("%s %s %d %s", c.Request.Method, c.Request.URL.Path, c.Writer.Status(), time.Since(start))
	}
}
