package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Store holds the document store client and provides access to repositories
type Store struct {
	Client *mongo.Client
	DB     *mongo.Database

	// Repositories
	Matches *MatchRepository
}

// Config holds store configuration
type Config struct {
	URI             string
	Database        string
	MatchCollection string
	Timeout         time.Duration
}

// NewStore connects to the document store and initializes repositories
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}

	connectCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(cfg.Timeout))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to store: %w", err)
	}

	// Test connection
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping store: %w", err)
	}

	log.Info().
		Str("uri", cfg.URI).
		Str("database", cfg.Database).
		Msg("Successfully connected to store")

	db := client.Database(cfg.Database)

	s := &Store{
		Client: client,
		DB:     db,
	}

	collection := cfg.MatchCollection
	if collection == "" {
		collection = "matches"
	}
	s.Matches = &MatchRepository{col: db.Collection(collection)}

	return s, nil
}

// Close disconnects from the store
func (s *Store) Close(ctx context.Context) {
	if s.Client != nil {
		if err := s.Client.Disconnect(ctx); err != nil {
			log.Warn().Err(err).Msg("Error disconnecting from store")
			return
		}
		log.Info().Msg("Store connection closed")
	}
}

// Health checks if the store is reachable
func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.Client.Ping(ctx, readpref.Primary()); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}

	return nil
}
