package main

import (
	"log"
	"log/slog"
	nethttp "net/http"
	"os"

	"docchat/internal/config"
	"docchat/internal/handlers"
	"docchat/internal/http"
	"docchat/internal/llm"
	"docchat/internal/storage"
)

func main() {
	// Load configuration first (needed for log level)
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Configure structured logging with configurable level and format
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}
	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
	slog.Debug("Logging configured", "level", cfg.LogLevel.String(), "format", cfg.LogFormat)

	// Initialize database
	db, err := storage.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := storage.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}
	slog.Info("Database initialized", "path", cfg.DBPath)

	sessionRepo := storage.NewSessionRepo(db)
	documentRepo := storage.NewDocumentRepo(db)

	// Provider clients for chat completion and embeddings
	llmClient := llm.NewClient(cfg.LLMBaseURL, cfg.APIKey, cfg.LLMModel)
	embedder := llm.NewEmbeddingsClient(cfg.LLMBaseURL, cfg.APIKey, cfg.EmbeddingModel)
	slog.Info("Provider clients initialized",
		"provider", cfg.Provider, "model", cfg.LLMModel, "embedding_model", cfg.EmbeddingModel)

	sessionManager := handlers.NewSessionManager(cfg, embedder, llmClient, sessionRepo, documentRepo)
	defer sessionManager.Close()

	router := http.NewRouter(&http.Deps{
		SessionManager: sessionManager,
		DB:             db,
	})

	// Start API server
	addr := ":" + cfg.APIPort
	slog.Info("Starting API server", "addr", addr)
	slog.Debug("LLM configuration", "base_url", cfg.LLMBaseURL, "model", cfg.LLMModel)
	if err := nethttp.ListenAndServe(addr, router); err != nil {
		log.Fatalf("API server failed to start: %v", err)
	}
}
