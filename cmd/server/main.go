package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gamecrate-api/internal/config"
	"github.com/gamecrate-api/internal/coordinator"
	"github.com/gamecrate-api/internal/document"
	"github.com/gamecrate-api/internal/handler"
	"github.com/gamecrate-api/internal/kafka"
	"github.com/gamecrate-api/internal/relational"
	"github.com/gamecrate-api/internal/sessiontoken"
	"github.com/gamecrate-api/internal/websocket"
	"github.com/gamecrate-api/internal/worker"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Setup structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Warn("failed to load config file, using defaults", "error", err)
		cfg = config.DefaultConfig()
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the document store. An incomplete config yields a
	// disabled adapter, not a startup failure.
	logger.Info("initializing document store", "addr", cfg.Redis.Addr)
	documentStore := document.NewStore(&cfg.Redis, logger)
	defer documentStore.Close()

	// Initialize the relational store
	logger.Info("initializing relational store", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
	relationalStore, err := relational.NewStore(&cfg.Postgres, logger)
	if err != nil {
		logger.Error("failed to initialize relational store", "error", err)
		os.Exit(1)
	}
	defer relationalStore.Close()

	// Run database migrations
	if relationalStore.Available() {
		if err := relationalStore.RunMigrations(ctx); err != nil {
			logger.Error("failed to run migrations", "error", err)
			os.Exit(1)
		}
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(logger)
	go wsHub.Run()
	logger.Info("WebSocket hub initialized")

	// Initialize the coordinator over the two stores
	coord := coordinator.New(relationalStore, documentStore, wsHub, cfg, logger)

	// Initialize maintenance worker
	maintenanceWorker := worker.NewMaintenanceWorker(coord, &cfg.Maintenance, logger)
	if cfg.Maintenance.Enabled {
		if err := maintenanceWorker.Start(ctx); err != nil {
			logger.Error("failed to start maintenance worker", "error", err)
			os.Exit(1)
		}
	}

	// Initialize Kafka consumer for activity ingestion
	var kafkaConsumer *kafka.Consumer
	if cfg.Kafka.Enabled {
		logger.Info("initializing Kafka consumer",
			"brokers", cfg.Kafka.Brokers,
			"topic", cfg.Kafka.Topic,
		)
		var err error
		kafkaConsumer, err = kafka.NewConsumer(&cfg.Kafka, coord, logger)
		if err != nil {
			logger.Warn("failed to create Kafka consumer, continuing without Kafka", "error", err)
		} else {
			if err := kafkaConsumer.Start(); err != nil {
				logger.Warn("failed to start Kafka consumer, continuing without Kafka", "error", err)
				kafkaConsumer = nil
			} else {
				logger.Info("Kafka consumer started successfully")
			}
		}
	}

	// Session token verification is optional in development
	var verifier *sessiontoken.Verifier
	if cfg.Auth.SessionSecret != "" {
		verifier = sessiontoken.NewVerifier(&cfg.Auth)
	} else {
		logger.Warn("no session secret configured, trusting X-User-ID header")
	}

	// Initialize HTTP handler with WebSocket hub
	httpHandler := handler.NewHandler(coord, verifier, wsHub, logger)

	// Create HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      httpHandler.Router(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting HTTP server", "port", cfg.Server.Port)
		logger.Info("WebSocket endpoint available at /ws")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop WebSocket hub
	wsHub.Stop()

	// Stop Kafka consumer
	if kafkaConsumer != nil {
		if err := kafkaConsumer.Stop(); err != nil {
			logger.Error("failed to stop Kafka consumer", "error", err)
		}
	}

	// Stop maintenance worker
	if err := maintenanceWorker.Stop(); err != nil {
		logger.Error("failed to stop maintenance worker", "error", err)
	}

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", "error", err)
	}

	logger.Info("server stopped")
}
