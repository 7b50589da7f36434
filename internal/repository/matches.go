package repository

import (
	"context"
	"errors"
	"fmt"

	"betlab/ingestion/internal/models"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// duplicateKeyCode is the server error code for a unique index violation.
const duplicateKeyCode = 11000

// StoreUnavailableError indicates the store could not be reached or rejected
// a batch for a non-duplication reason. The current shard fails; the run
// records it and proceeds.
type StoreUnavailableError struct {
	Op  string
	Err error
}

func (e *StoreUnavailableError) Error() string {
	return fmt.Sprintf("store unavailable during %s: %v", e.Op, e.Err)
}

func (e *StoreUnavailableError) Unwrap() error {
	return e.Err
}

// InsertResult reports the per-record outcome of one bulk insert.
type InsertResult struct {
	Inserted   int
	Duplicates int
}

// MatchRepository handles match document operations
type MatchRepository struct {
	col *mongo.Collection
}

// InsertBatch bulk-inserts one shard's normalized matches. The write is
// unordered so a duplicate id rejects only that record; remaining records
// still land. Duplicates are counted and returned, never treated as
// failure. Any other write error fails the batch as store-unavailable.
func (r *MatchRepository) InsertBatch(ctx context.Context, matches []*models.Match) (InsertResult, error) {
	if len(matches) == 0 {
		return InsertResult{}, nil
	}

	docs := make([]interface{}, len(matches))
	for i, m := range matches {
		docs[i] = m.Doc
	}

	res, err := r.col.InsertMany(ctx, docs, options.InsertMany().SetOrdered(false))
	if err != nil {
		var bwe mongo.BulkWriteException
		if !errors.As(err, &bwe) {
			return InsertResult{}, &StoreUnavailableError{Op: "insert batch", Err: err}
		}

		if bwe.WriteConcernError != nil {
			return InsertResult{}, &StoreUnavailableError{Op: "insert batch", Err: err}
		}

		duplicates := 0
		for _, we := range bwe.WriteErrors {
			if we.Code != duplicateKeyCode {
				return InsertResult{}, &StoreUnavailableError{Op: "insert batch", Err: we.WriteError}
			}
			duplicates++
		}

		return InsertResult{Inserted: len(docs) - duplicates, Duplicates: duplicates}, nil
	}

	return InsertResult{Inserted: len(res.InsertedIDs)}, nil
}

// EnsureIndexes idempotently declares the query indexes: unique on id
// (duplicate detection and point lookups), date (range queries), and
// (date, markets) for the principal downstream pattern of "matches in
// period X with market data". Safe to call on every run.
func (r *MatchRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "id", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("id_unique"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}},
			Options: options.Index().SetName("date_asc"),
		},
		{
			Keys:    bson.D{{Key: "date", Value: 1}, {Key: "markets", Value: 1}},
			Options: options.Index().SetName("date_markets"),
		},
	}

	names, err := r.col.Indexes().CreateMany(ctx, indexes)
	if err != nil {
		return &StoreUnavailableError{Op: "ensure indexes", Err: err}
	}

	log.Debug().Strs("indexes", names).Msg("Indexes ensured")
	return nil
}

// IndexNames lists the names of the declared indexes, for health reporting.
func (r *MatchRepository) IndexNames(ctx context.Context) ([]string, error) {
	cursor, err := r.col.Indexes().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list indexes: %w", err)
	}
	defer cursor.Close(ctx)

	var names []string
	for cursor.Next(ctx) {
		var idx bson.M
		if err := cursor.Decode(&idx); err != nil {
			return nil, fmt.Errorf("failed to decode index: %w", err)
		}
		if name, ok := idx["name"].(string); ok {
			names = append(names, name)
		}
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("error iterating indexes: %w", err)
	}

	return names, nil
}

// Count returns the total number of stored matches
func (r *MatchRepository) Count(ctx context.Context) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("failed to count matches: %w", err)
	}
	return count, nil
}

// CountWithMarkets returns the number of matches carrying market data
func (r *MatchRepository) CountWithMarkets(ctx context.Context) (int64, error) {
	count, err := r.col.CountDocuments(ctx, bson.M{"markets": bson.M{"$exists": true}})
	if err != nil {
		return 0, fmt.Errorf("failed to count matches with markets: %w", err)
	}
	return count, nil
}

// GetByDateRange retrieves matches with from <= date <= to, ordered by date.
// This is the training engine's read pattern.
func (r *MatchRepository) GetByDateRange(ctx context.Context, from, to string) ([]map[string]interface{}, error) {
	filter := bson.M{"date": bson.M{"$gte": from, "$lte": to}}
	return r.find(ctx, filter)
}

// GetByDateRangeWithMarkets retrieves matches in a date range that carry
// market data. This is the betting agent's read pattern and the reason the
// (date, markets) compound index exists.
func (r *MatchRepository) GetByDateRangeWithMarkets(ctx context.Context, from, to string) ([]map[string]interface{}, error) {
	filter := bson.M{
		"date":    bson.M{"$gte": from, "$lte": to},
		"markets": bson.M{"$exists": true},
	}
	return r.find(ctx, filter)
}

func (r *MatchRepository) find(ctx context.Context, filter bson.M) ([]map[string]interface{}, error) {
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "date", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query matches: %w", err)
	}
	defer cursor.Close(ctx)

	var matches []map[string]interface{}
	if err := cursor.All(ctx, &matches); err != nil {
		return nil, fmt.Errorf("failed to decode matches: %w", err)
	}

	return matches, nil
}
