// Package pipeline implements the batch ingestion run: discover shard
// files, decompress and normalize their records, bulk-insert each shard as
// one batch, and leave the store indexed for downstream queries. Re-running
// against the same shard directory is safe: previously loaded records are
// rejected as duplicates, never re-inserted.
package pipeline

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"betlab/ingestion/internal/metrics"
	"betlab/ingestion/internal/models"
	"betlab/ingestion/internal/repository"
	"betlab/ingestion/internal/shard"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// MatchStore is the slice of the store layer the pipeline needs.
type MatchStore interface {
	InsertBatch(ctx context.Context, matches []*models.Match) (repository.InsertResult, error)
	EnsureIndexes(ctx context.Context) error
}

// ShardMarker remembers shards that already ingested completely, so a
// periodic run can skip re-reading them. It is an optimization only;
// correctness rests on store-side duplicate rejection.
type ShardMarker interface {
	IsComplete(ctx context.Context, shard string) bool
	MarkComplete(ctx context.Context, shard string)
}

// Options configures one pipeline instance. No process-wide state: the
// caller builds Options from its config and passes them in.
type Options struct {
	ShardDir            string
	ShardGlob           string
	Concurrency         int
	MaxConsecutiveFails int
}

// Pipeline ingests shard files into the match store.
type Pipeline struct {
	store  MatchStore
	marker ShardMarker // may be nil
	opts   Options
}

// New creates a pipeline. marker may be nil to disable shard skipping.
func New(store MatchStore, marker ShardMarker, opts Options) *Pipeline {
	if opts.ShardGlob == "" {
		opts.ShardGlob = "matches_part*.json.gz"
	}
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	if opts.MaxConsecutiveFails < 1 {
		opts.MaxConsecutiveFails = 3
	}
	return &Pipeline{store: store, marker: marker, opts: opts}
}

// Run executes one full ingestion pass: discover, ingest every shard in
// discovery order (concurrently when configured), then ensure indexes.
// Shard-level failures accumulate in the summary instead of aborting the
// run, except when the store fails for MaxConsecutiveFails shards in a row,
// which cancels the remaining work. Cancelling ctx stops new shard tasks;
// an in-flight batch is allowed to finish so no shard is left half-judged.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	start := time.Now()

	paths, err := shard.Discover(p.opts.ShardDir, p.opts.ShardGlob)
	if err != nil {
		return nil, err
	}

	summary := &RunSummary{ShardsDiscovered: len(paths)}
	if len(paths) == 0 {
		log.Info().
			Str("dir", p.opts.ShardDir).
			Str("pattern", p.opts.ShardGlob).
			Msg("No shards found, nothing to ingest")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu          sync.Mutex
		consecFails atomic.Int32
	)

	g := new(errgroup.Group)
	g.SetLimit(p.opts.Concurrency)

	for _, path := range paths {
		path := path
		if runCtx.Err() != nil {
			break
		}

		if p.marker != nil && p.marker.IsComplete(runCtx, path) {
			log.Debug().Str("shard", filepath.Base(path)).Msg("Shard already complete, skipping")
			mu.Lock()
			summary.ShardsSkipped++
			mu.Unlock()
			continue
		}

		g.Go(func() error {
			if runCtx.Err() != nil {
				return nil
			}

			report, failure := p.ingestShard(runCtx, path)

			mu.Lock()
			defer mu.Unlock()

			if failure != nil {
				summary.Failures = append(summary.Failures, *failure)
				if failure.Kind == FailureStoreUnavailable {
					if int(consecFails.Add(1)) >= p.opts.MaxConsecutiveFails {
						log.Error().
							Int("threshold", p.opts.MaxConsecutiveFails).
							Msg("Store unreachable for consecutive shards, aborting run")
						summary.Aborted = true
						cancel()
					}
				}
				return nil
			}

			consecFails.Store(0)
			summary.Reports = append(summary.Reports, *report)
			summary.RecordsInserted += report.Inserted
			summary.RecordsDuplicate += report.Duplicates
			summary.RecordsMalformed += report.Malformed

			if p.marker != nil {
				p.marker.MarkComplete(runCtx, path)
			}
			return nil
		})
	}

	_ = g.Wait()

	// Indexes are declared even after a partial run so the store stays
	// queryable for whatever did land.
	if err := p.store.EnsureIndexes(context.WithoutCancel(ctx)); err != nil {
		log.Error().Err(err).Msg("Failed to ensure indexes")
		metrics.RecordError("pipeline", "ensure_indexes")
		summary.IndexError = err.Error()
	}

	summary.Duration = time.Since(start)

	outcome := "success"
	if !summary.Success() {
		outcome = "failed"
	}
	metrics.RecordRun(outcome, summary.Duration.Seconds())

	log.Info().
		Int("shards", summary.ShardsDiscovered).
		Int("inserted", summary.RecordsInserted).
		Int("duplicates", summary.RecordsDuplicate).
		Int("malformed", summary.RecordsMalformed).
		Int("failed_shards", len(summary.Failures)).
		Dur("duration", summary.Duration).
		Msg("Ingestion run complete")

	return summary, nil
}

// ingestShard loads, normalizes, and inserts one shard as a single batch.
// Malformed records are dropped from the batch and counted; they never fail
// the shard.
func (p *Pipeline) ingestShard(ctx context.Context, path string) (*InsertionReport, *ShardFailure) {
	start := time.Now()
	name := filepath.Base(path)

	raws, err := shard.Read(path)
	if err != nil {
		log.Error().Err(err).Str("shard", name).Msg("Failed to read shard")
		metrics.RecordShard("corrupt", time.Since(start).Seconds())
		metrics.RecordError("pipeline", "corrupt_shard")
		return nil, &ShardFailure{Shard: name, Kind: FailureCorruptShard, Cause: err.Error()}
	}

	report := &InsertionReport{Shard: name, Records: len(raws)}

	matches := make([]*models.Match, 0, len(raws))
	for i, raw := range raws {
		match, err := models.NormalizeMatch(raw, i)
		if err != nil {
			var malformed *models.MalformedRecordError
			if errors.As(err, &malformed) {
				log.Warn().
					Str("shard", name).
					Int("position", malformed.Position).
					Str("reason", malformed.Reason).
					Msg("Skipping malformed record")
				report.Malformed++
				continue
			}
			report.Malformed++
			continue
		}
		matches = append(matches, match)
	}

	// The insert is detached from run cancellation: once a batch is in
	// flight it finishes, so the shard's outcome is never ambiguous.
	result, err := p.store.InsertBatch(context.WithoutCancel(ctx), matches)
	if err != nil {
		log.Error().Err(err).Str("shard", name).Msg("Failed to insert batch")
		metrics.RecordShard("store_failed", time.Since(start).Seconds())
		metrics.RecordError("pipeline", "store_unavailable")
		return nil, &ShardFailure{Shard: name, Kind: FailureStoreUnavailable, Cause: err.Error()}
	}

	report.Inserted = result.Inserted
	report.Duplicates = result.Duplicates

	metrics.RecordShard("ok", time.Since(start).Seconds())
	metrics.RecordBatch(report.Inserted, report.Duplicates, report.Malformed)

	log.Info().
		Str("shard", name).
		Int("records", report.Records).
		Int("inserted", report.Inserted).
		Int("duplicates", report.Duplicates).
		Int("malformed", report.Malformed).
		Msg("Shard ingested")

	return report, nil
}
