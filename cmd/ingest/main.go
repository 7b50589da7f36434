// Command ingest runs one batch ingestion pass over the shard directory
// and exits. Exit code 0 means every discovered shard ingested without a
// store-level failure; duplicate rejections and malformed records are
// reported but do not fail the run.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betlab/ingestion/internal/config"
	"betlab/ingestion/internal/pipeline"
	"betlab/ingestion/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	setupLogger()

	cfg := config.MustLoad()
	log.Info().
		Str("shard_dir", cfg.ShardDir).
		Str("shard_glob", cfg.ShardGlob).
		Int("concurrency", cfg.Concurrency).
		Msg("Starting ingestion job")

	// Cancelling via SIGINT/SIGTERM stops new shard tasks; in-flight
	// batches are allowed to finish before the summary is printed.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := repository.NewStore(ctx, repository.Config{
		URI:             cfg.StoreURI,
		Database:        cfg.DatabaseName,
		MatchCollection: cfg.MatchCollection,
		Timeout:         cfg.StoreTimeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to store")
		return 1
	}
	defer store.Close(context.Background())

	p := pipeline.New(store.Matches, nil, pipeline.Options{
		ShardDir:            cfg.ShardDir,
		ShardGlob:           cfg.ShardGlob,
		Concurrency:         cfg.Concurrency,
		MaxConsecutiveFails: cfg.MaxConsecutiveFails,
	})

	summary, err := p.Run(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Ingestion run failed to start")
		return 1
	}

	fmt.Print(summary.String())

	if !summary.Success() {
		return 1
	}
	return 0
}

// setupLogger configures the zerolog logger
func setupLogger() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
