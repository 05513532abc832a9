/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the financial statement visualizer API.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, TOML, .env, STATEMENTVIZ_* env, flags)
  2. Configure logging
  3. Initialize SQLite store
  4. Import the data directory (when configured)
  5. Seed a demo scenario when the store is still empty
  6. Start the import scheduler and the HTTP server

COMMAND-LINE FLAGS:
  -config  TOML config file (optional)
  -env     .env file (default: .env, ignored when missing)
  -port    HTTP server port (overrides config)
  -db      SQLite database path (overrides config)
           Use ":memory:" for in-memory database
  -data    Company data directory (overrides config)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the import scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete ([server] shutdown_timeout)
  4. Close database connection

EXAMPLES:
  # Serve ./data with a file database
  ./server -db="./statements.db" -data="./data"

  # Demo only, nothing on disk
  ./server -db=":memory:" -data=""

SEE ALSO:
  - config/config.go: Configuration layers
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/phuslu/log"
	"github.com/warp/statement-viz/api"
	"github.com/warp/statement-viz/config"
	"github.com/warp/statement-viz/loader"
	"github.com/warp/statement-viz/store/sqlite"
	"github.com/warp/statement-viz/viz"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "TOML config file")
	envFile := flag.String("env", ".env", ".env file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	dataDir := flag.String("data", "", "company data directory (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	flag.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "port":
			cfg.Server.Port = *port
		case "db":
			cfg.Storage.Path = *dbPath
		case "data":
			cfg.Data.Dir = *dataDir
		}
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}
	cfg.Logging.SetupLogging()

	// Initialize store
	store, err := sqlite.New(cfg.Storage.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.Path).Msg("failed to initialize database")
	}
	defer store.Close()

	var dataLoader *loader.Loader
	if cfg.Data.Dir != "" {
		dataLoader = loader.New(cfg.Data.Dir)
	}

	// Initialize handler
	handler := api.NewHandler(store, dataLoader, viz.New(cfg.Viz.Options()))

	ctx := context.Background()
	if dataLoader != nil && cfg.Data.ImportOnStart {
		if _, err := dataLoader.Import(ctx, store); err != nil {
			log.Warn().Err(err).Str("dir", cfg.Data.Dir).Msg("startup import failed")
		}
	}
	seedIfEmpty(ctx, handler, store, cfg.Data.SeedScenario)

	var scheduler *api.ImportScheduler
	if dataLoader != nil {
		scheduler = api.NewImportScheduler(dataLoader, store, cfg.Data.ImportInterval.Std())
		scheduler.Schedule = cfg.Data.ImportSchedule
		if err := scheduler.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start import scheduler")
		}
		handler.Scheduler = scheduler
	}

	// Create server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      api.NewRouter(handler, cfg.Server.AllowedOrigins),
		ReadTimeout:  cfg.Server.ReadTimeout.Std(),
		WriteTimeout: cfg.Server.WriteTimeout.Std(),
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Str("addr", server.Addr).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Std())
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}

// seedIfEmpty loads a demo scenario when nothing was imported.
func seedIfEmpty(ctx context.Context, h *api.Handler, store *sqlite.Store, scenario string) {
	if scenario == "" {
		return
	}
	companies, err := store.ListCompanies(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("failed to check store before seeding")
		return
	}
	if len(companies) > 0 {
		return
	}
	if err := h.Seed(ctx, scenario); err != nil {
		log.Warn().Err(err).Str("scenario", scenario).Msg("seeding failed")
	}
}
