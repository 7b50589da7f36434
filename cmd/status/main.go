// Command status checks whether the ingested dataset is ready for the
// training engine and betting agent: store reachable, records present,
// market data present, indexes declared, shard directory readable.
// Exits 0 when all checks pass.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"betlab/ingestion/internal/config"
	"betlab/ingestion/internal/readiness"
	"betlab/ingestion/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	os.Exit(run())
}

func run() int {
	zerolog.SetGlobalLevel(zerolog.WarnLevel)

	cfg := config.MustLoad()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := repository.NewStore(ctx, repository.Config{
		URI:             cfg.StoreURI,
		Database:        cfg.DatabaseName,
		MatchCollection: cfg.MatchCollection,
		Timeout:         cfg.StoreTimeout,
	})
	if err != nil {
		log.Error().Err(err).Msg("Failed to connect to store")
		fmt.Printf("[FAIL] store              %v\nSystem NOT ready\n", err)
		return 1
	}
	defer store.Close(context.Background())

	report := readiness.Run(ctx, store, store.Matches, cfg.ShardDir, cfg.ShardGlob)
	fmt.Print(report.String())

	if !report.Ready() {
		return 1
	}
	return 0
}
