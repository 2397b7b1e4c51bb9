// Package main is the entry point for the API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/converso-ai/dialogue-engine/internal/classifier"
	"github.com/converso-ai/dialogue-engine/internal/config"
	"github.com/converso-ai/dialogue-engine/internal/engine"
	"github.com/converso-ai/dialogue-engine/internal/events"
	"github.com/converso-ai/dialogue-engine/internal/handler"
	"github.com/converso-ai/dialogue-engine/internal/llm"
	"github.com/converso-ai/dialogue-engine/internal/middleware"
	natsclient "github.com/converso-ai/dialogue-engine/internal/nats"
	"github.com/converso-ai/dialogue-engine/internal/store"
	"github.com/converso-ai/dialogue-engine/pkg/logger"
	"github.com/converso-ai/dialogue-engine/pkg/tracing"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting API server")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "dialogue-engine", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	// Connect to NATS when the profile backend or turn events need it.
	var natsClient *natsclient.Client
	if cfg.ProfileBackend == "nats" || cfg.EventsOn {
		natsClient, err = natsclient.Connect(natsclient.Config{
			URL:      cfg.NATSURL,
			CAFile:   cfg.NATSCAFile,
			CertFile: cfg.NATSCertFile,
			KeyFile:  cfg.NATSKeyFile,
			Token:    cfg.NATSToken,
		}, log)
		if err != nil {
			log.Error("failed to connect to NATS", zap.Error(err))
			os.Exit(1)
		}
		defer natsClient.Close()
	}

	// Profile storage
	var profileStore store.Store
	switch cfg.ProfileBackend {
	case "nats":
		profileStore, err = store.NewKVStore(ctx, natsClient.JetStream())
	case "memory":
		profileStore = store.NewMemoryStore()
	default:
		profileStore, err = store.OpenSQLite(cfg.SQLitePath)
	}
	if err != nil {
		log.Error("failed to open profile store", zap.String("backend", cfg.ProfileBackend), zap.Error(err))
		os.Exit(1)
	}
	defer profileStore.Close()

	// Turn event publisher
	var publisher *events.Publisher
	if cfg.EventsOn {
		publisher = events.NewPublisher(natsClient)
		if err := publisher.EnsureStream(ctx); err != nil {
			log.Error("failed to ensure events stream", zap.Error(err))
			os.Exit(1)
		}
	}

	// Classification client
	classifierClient, err := classifier.NewOpenAIClient(cfg.OpenAIAPIKey, "")
	if err != nil {
		log.Error("failed to create classifier client", zap.Error(err))
		os.Exit(1)
	}

	// Generation client
	var llmClient llm.Client
	if cfg.AnthropicAPIKey != "" && cfg.DefaultLLM == "anthropic" {
		llmClient, err = llm.NewAnthropicClient(cfg.AnthropicAPIKey)
	} else {
		llmClient, err = llm.NewOpenAIClient(cfg.OpenAIAPIKey)
	}
	if err != nil {
		log.Error("failed to create generation client", zap.Error(err))
		os.Exit(1)
	}

	// Dialogue engine
	eng := engine.New(cfg, classifierClient, llmClient, profileStore, publisher, log)

	// Initialize handlers
	healthHandler := handler.NewHealthHandler(natsClient, cfg.EventsOn)
	sessionHandler := handler.NewSessionHandler(eng, log)
	streamHandler := handler.NewStreamHandler(eng, log)

	// Create router
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logging(log))
	r.Use(middleware.SecurityHeaders)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.CORS())

	// Health endpoints (no auth required)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	// Metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	// API routes with authentication
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWTSecret))
		r.Use(middleware.RateLimit(cfg.RateLimitRequests, cfg.RateLimitWindow))

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", sessionHandler.Status)
			r.Post("/turns", sessionHandler.ProcessTurn)
			r.Post("/stream", streamHandler.StreamTurn)
		})

		r.Get("/profiles/{id}", sessionHandler.Profile)
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      r,
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	log.Info("server stopped")
}
