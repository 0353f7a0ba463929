package repository

import (
	"context"
	"fmt"

	"wardrobe-backend/internal/config"

	"github.com/rs/zerolog/log"
)

// Store modes reported by Open
const (
	ModeMemory   = "memory"
	ModePostgres = "postgres"
	ModeMongo    = "mongo"
)

// Seams for tests.
var (
	openPostgres = func(ctx context.Context, cfg config.StoreConfig) (UserStore, error) {
		return OpenPostgresStore(ctx, cfg.Postgres.DSN)
	}
	openMongo = func(ctx context.Context, cfg config.StoreConfig) (UserStore, error) {
		return OpenMongoStore(ctx, cfg.Mongo.URI, cfg.Mongo.Database, cfg.Mongo.Collection)
	}
)

// Open resolves the configured driver into a store, once, at startup. When
// the durable store cannot be reached and fallback is enabled, the process
// keeps serving from memory instead of failing.
func Open(ctx context.Context, cfg config.StoreConfig) (UserStore, string, error) {
	var open func(context.Context, config.StoreConfig) (UserStore, error)

	switch cfg.Driver {
	case ModeMemory:
		return NewMemoryStore(), ModeMemory, nil
	case ModePostgres:
		open = openPostgres
	case ModeMongo:
		open = openMongo
	default:
		return nil, "", fmt.Errorf("unknown store driver %q", cfg.Driver)
	}

	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	store, err := open(ctx, cfg)
	if err == nil {
		log.Info().Str("driver", cfg.Driver).Msg("Durable store connected")
		return store, cfg.Driver, nil
	}

	if !cfg.Fallback {
		return nil, "", fmt.Errorf("failed to open %s store: %w", cfg.Driver, err)
	}

	log.Warn().
		Err(err).
		Str("driver", cfg.Driver).
		Msg("Durable store unavailable, falling back to in-memory store")

	return NewMemoryStore(), ModeMemory, nil
}
