/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the graduation check server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (file, .env, environment), then flags
  2. Build the logger and load the curriculum rule set
  3. Initialize SQLite store
  4. Connect the extraction service when an API key is configured
  5. Configure HTTP router and retention scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  YAML configuration file (default: config.yaml, optional)
  -port    HTTP server port, overrides the config
  -db      SQLite database path, overrides the config
           Use ":memory:" for in-memory database
  -verbose Debug logging

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Stop the retention scheduler
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/curriculum.db"

  # Run offline (parser only)
  GOOGLE_API_KEY= ./server -db=":memory:"

SEE ALSO:
  - config/config.go: Configuration sources and precedence
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/curriculum-engine/api"
	"github.com/warp/curriculum-engine/audit"
	"github.com/warp/curriculum-engine/config"
	"github.com/warp/curriculum-engine/curriculum"
	"github.com/warp/curriculum-engine/extraction"
	"github.com/warp/curriculum-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Flags
	configPath := flag.String("config", "config.yaml", "YAML configuration file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	logger, err := config.NewLogger(cfg.Logging, *verbose)
	if err != nil {
		return err
	}
	defer logger.Sync()

	rules, err := cfg.RuleSet()
	if err != nil {
		return fmt.Errorf("failed to load curriculum: %w", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	extractor, err := newExtractor(ctx, cfg, rules, logger)
	if err != nil {
		return err
	}

	service := audit.NewService(rules, extractor, store, logger)

	handler := api.NewHandler(service, logger)
	handler.MaxUpload = cfg.Server.MaxUploadMB << 20
	handler.Timeout = cfg.Extraction.Timeout

	scheduler := api.NewRetentionScheduler(service, cfg.Database.Retention, logger)
	scheduler.Start()
	defer scheduler.Stop()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      api.NewRouter(handler, cfg.Server.CORSOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.Int("port", cfg.Server.Port),
			zap.String("curriculum", rules.Version()),
			zap.String("database", cfg.Database.Path),
			zap.Bool("offline", extractor == nil))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// Wait for interrupt signal
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}

// newExtractor returns nil (offline mode) when extraction is disabled or no
// API key is configured.
func newExtractor(ctx context.Context, cfg *config.Config, rules *curriculum.RuleSet, logger *zap.Logger) (extraction.Extractor, error) {
	if !cfg.Extraction.Active() {
		logger.Warn("extraction service not configured, running offline")
		return nil, nil
	}
	gen, err := extraction.NewGeminiGenerator(ctx, cfg.Extraction.APIKey, cfg.Extraction.Model)
	if err != nil {
		return nil, fmt.Errorf("failed to create extraction client: %w", err)
	}
	client := extraction.NewClient(gen, rules, logger)
	client.MaxAttempts = cfg.Extraction.MaxAttempts
	client.Backoff = cfg.Extraction.Backoff
	logger.Info("extraction service configured", zap.String("model", gen.Model()))
	return client, nil
}
