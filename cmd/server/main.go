/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the transition engine server. Handles
  configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse environment config, then command-line flags (flags win)
  2. Initialize SQLite store
  3. Build the rule store (JSON file source if given, else the database,
     seeded with the task-domain defaults when empty)
  4. Assemble validator, transaction log, compliance recorder, coordinator
  5. Configure HTTP router
  6. Start server with graceful shutdown

CONFIGURATION:
  Flags:              -port, -db, -rules
  Environment:        PORT, DATABASE_PATH, RULES_FILE, LOG_LEVEL

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database and default task rules
  ./server -db="./data/transitions.db"

  # Run with a JSON rule file
  ./server -rules="./rules.json"

SEE ALSO:
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
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

	"github.com/caarlos0/env/v11"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/warp/transition-engine/api"
	"github.com/warp/transition-engine/factory"
	"github.com/warp/transition-engine/store/sqlite"
	"github.com/warp/transition-engine/tasks"
	"github.com/warp/transition-engine/transition"
)

// Config is the environment-driven configuration. Flags override it.
type Config struct {
	Port         int    `env:"PORT" envDefault:"8080"`
	DatabasePath string `env:"DATABASE_PATH" envDefault:"transitions.db"`
	RulesFile    string `env:"RULES_FILE"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`
}

func main() {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid environment config: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DatabasePath, "SQLite database path")
	rulesFile := flag.String("rules", cfg.RulesFile, "JSON rule file (optional; defaults to database-stored rules)")
	flag.Parse()

	logger := newLogger(cfg.LogLevel)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		logger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()

	// Build the rule store from file or database
	ruleStore, err := buildRuleStore(ctx, store, *rulesFile)
	if err != nil {
		logger.Error("failed to load rules", "error", err)
		os.Exit(1)
	}

	// Assemble the engine
	metrics := transition.NewMetrics(prometheus.DefaultRegisterer)
	coord := transition.NewCoordinator(
		transition.NewValidator(ruleStore),
		transition.NewTransactionLog(store),
		transition.NewComplianceRecorder(store, logger),
		logger,
		metrics,
	)

	handler := api.NewHandler(coord, ruleStore, tasks.NewService(coord))
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server starting",
			"addr", fmt.Sprintf("http://localhost:%d", *port),
			"entity_types", ruleStore.ListEntityTypes(),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

// buildRuleStore prefers an explicit JSON rule file; otherwise it serves
// the database-stored rules, seeding the task-domain defaults into an
// empty database so a fresh install is usable immediately.
func buildRuleStore(ctx context.Context, store *sqlite.Store, rulesFile string) (*transition.RuleStore, error) {
	if rulesFile != "" {
		return transition.NewRuleStoreFromSource(ctx, factory.FileSource{Path: rulesFile})
	}

	rules, err := store.LoadRules(ctx)
	if err != nil {
		return nil, err
	}
	if len(rules) == 0 {
		if err := store.SaveRuleSet(ctx, tasks.DefaultRules()); err != nil {
			return nil, err
		}
	}
	return transition.NewRuleStoreFromSource(ctx, store)
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
