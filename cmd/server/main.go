// Package main is the application entrypoint.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pai-smart-go/internal/config"
	"pai-smart-go/internal/docpipeline"
	"pai-smart-go/internal/embedclient"
	"pai-smart-go/internal/extract/tika"
	"pai-smart-go/internal/genclient"
	"pai-smart-go/internal/rag"
	"pai-smart-go/internal/server"
	"pai-smart-go/internal/vectorstore"
	"pai-smart-go/internal/vectorstore/esbackend"
	"pai-smart-go/internal/vectorstore/memory"
	"pai-smart-go/pkg/database"
	"pai-smart-go/pkg/log"
)

func main() {
	// 1. Configuration.
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. Logging.
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync()
	log.Info("logger initialized")

	// 3. Metadata store: MySQL backs DocumentMetadata the same way the
	// teacher's pkg/database.InitMySQL backed its own repositories.
	database.InitMySQL(cfg.Database.MySQL.DSN)

	// 4. RAG engine collaborators: the embedder/generator clients (both
	// thin OpenAI-compatible HTTP clients, narrower than the teacher's own
	// pkg/embedding and pkg/llm), a Tika-backed text extractor for
	// non-trivial formats, and a failover-aware vector store
	// (Elasticsearch primary, in-memory fallback).
	embedder := embedclient.New(embedclient.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Timeout:    time.Duration(cfg.Embedding.Timeout) * time.Second,
	})
	generator := genclient.New(genclient.Config{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Model:   cfg.LLM.Model,
		Timeout: time.Duration(cfg.LLM.Timeout) * time.Second,
	})
	extractor := tika.NewClient(cfg.Tika)

	esClient, err := esbackend.NewClient(cfg.Elasticsearch)
	if err != nil {
		log.Fatalf("failed to build elasticsearch client: %v", err)
	}
	primaryBackend := esbackend.New(esClient, cfg.Elasticsearch.IndexName)
	fallbackBackend := memory.New()
	store := vectorstore.New(primaryBackend, fallbackBackend)

	docRepo := docpipeline.NewDocumentRepository(database.DB)
	ingestPipeline := docpipeline.New(extractor, embedder, store, docRepo)

	ragPipeline := rag.New(embedder, store, generator)

	// 5. HTTP surface.
	app := server.New(cfg, store, ingestPipeline, ragPipeline)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := store.CreateCollection(ctx, cfg.Embedding.Dimensions); err != nil {
		log.Warnf("vector store collection not ready at startup, continuing in degraded mode: %v", err)
	}

	if err := app.Start(ctx); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutdown signal received, draining server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := app.Shutdown(shutdownCtx); err != nil {
		log.Errorf("server shutdown error: %v", err)
	}
	log.Info("server shut down cleanly")
}
