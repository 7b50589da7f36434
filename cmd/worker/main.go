// Command worker runs the ingestion service continuously: an optional
// run-on-start pass, a cron-scheduled re-ingestion of the shard directory,
// and a Prometheus metrics endpoint. Safe to leave running: re-ingesting
// already-loaded shards only produces duplicate rejections.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"betlab/ingestion/internal/cache"
	"betlab/ingestion/internal/config"
	"betlab/ingestion/internal/metrics"
	"betlab/ingestion/internal/pipeline"
	"betlab/ingestion/internal/repository"
	"betlab/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Setup logger
	setupLogger()

	log.Info().Msg("Starting match shard ingestion worker")

	// Load configuration
	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Str("shard_dir", cfg.ShardDir).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize store connection
	store, err := repository.NewStore(ctx, repository.Config{
		URI:             cfg.StoreURI,
		Database:        cfg.DatabaseName,
		MatchCollection: cfg.MatchCollection,
		Timeout:         cfg.StoreTimeout,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to store")
	}
	defer store.Close(context.Background())

	// Initialize Redis shard-marker cache (optional)
	var marker pipeline.ShardMarker
	if cfg.CacheEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     fmt.Sprintf("%d", cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			TTL:      time.Duration(cfg.CacheTTLShard) * time.Second,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without shard cache")
		} else {
			defer redisCache.Close()
			marker = redisCache
		}
	}

	// Start metrics HTTP server
	if cfg.EnableMetrics {
		go startMetricsServer(cfg.MetricsPort)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	p := pipeline.New(store.Matches, marker, pipeline.Options{
		ShardDir:            cfg.ShardDir,
		ShardGlob:           cfg.ShardGlob,
		Concurrency:         cfg.Concurrency,
		MaxConsecutiveFails: cfg.MaxConsecutiveFails,
	})

	runIngestion := func(runCtx context.Context) error {
		summary, err := p.Run(runCtx)
		if err != nil {
			return err
		}
		if !summary.Success() {
			log.Warn().
				Int("failed_shards", len(summary.Failures)).
				Msg("Ingestion run finished with failures")
		}
		if count, err := store.Matches.Count(runCtx); err == nil {
			metrics.MatchesStored.Set(float64(count))
		}
		return nil
	}

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg, runIngestion)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Run initial ingestion if enabled
	if cfg.RunOnStart {
		log.Info().Msg("Running initial ingestion pass...")
		if err := runIngestion(ctx); err != nil {
			log.Error().Err(err).Msg("Initial ingestion failed, continuing anyway...")
		} else {
			log.Info().Msg("Initial ingestion completed")
		}
	}

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down scheduler...")
	sched.Stop()

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	http.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, nil); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
