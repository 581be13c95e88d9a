package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"glucomeal/internal/config"
	"glucomeal/internal/database"
	"glucomeal/internal/dataset"
	"glucomeal/internal/recommender"
	"glucomeal/internal/server"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const appVersion = "1.0.0"

var version = flag.Bool("version", false, "Show version")

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Info().Msg("shutting down gracefully, press Ctrl+C again to force")
	stop() // Allow Ctrl+C to force shutdown

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	if cfg.LogFormat == "console" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}

// loadTable reads the reference table from the configured source. The
// returned database service is nil for the CSV source.
func loadTable(ctx context.Context, cfg *config.Config) (dataset.Table, database.Service, error) {
	if cfg.FoodSource != config.SourcePostgres {
		t, err := dataset.Load(cfg.FoodDatasetPath)
		return t, nil, err
	}

	db, err := database.NewService(ctx, cfg.DatabaseURL)
	if err != nil {
		return dataset.Table{}, nil, err
	}
	t, err := db.ListFoods(ctx)
	if err != nil {
		db.Close()
		return dataset.Table{}, nil, err
	}
	return t, db, nil
}

// run loads the reference data and serves until shutdown. Resources opened
// here are released before it returns, on every path.
func run(cfg *config.Config) error {
	// The reference table is loaded once; any failure here is fatal.
	table, db, err := loadTable(context.Background(), cfg)
	if err != nil {
		return fmt.Errorf("could not load food reference table from %s: %w", cfg.FoodSource, err)
	}
	if db != nil {
		defer db.Close()
	}
	log.Info().Str("source", cfg.FoodSource).Int("foods", table.Len()).Msg("Food reference table loaded")

	rec, err := recommender.New(table,
		recommender.WithNeighbors(cfg.Neighbors),
		recommender.WithCacheSize(cfg.CacheSize),
	)
	if err != nil {
		return fmt.Errorf("could not initialize recommender: %w", err)
	}

	srv := server.NewServer(cfg, rec, db)

	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(srv, done)

	log.Info().Str("addr", srv.Addr).Msg("Starting GlucoMeal server")
	err = srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Info().Msg("Graceful shutdown complete.")
	return nil
}

func main() {
	flag.Parse()

	if *version {
		fmt.Println("glucomeal version", appVersion)
		os.Exit(0)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}
	setupLogger(cfg)

	if err := run(cfg); err != nil {
		log.Fatal().Err(err).Msg("Server stopped")
	}
}
