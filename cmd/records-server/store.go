package main

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ehr/records/internal/config"
	"github.com/ehr/records/internal/platform/db"
	"github.com/ehr/records/internal/platform/store"
	"github.com/ehr/records/internal/platform/store/mongostore"
	"github.com/ehr/records/internal/platform/store/pgstore"
)

const connectTimeout = 15 * time.Second

// openStore connects the configured driver. The returned func, when non-nil,
// reports driver details for the store health endpoint.
func openStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (store.Store, func() any, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	switch cfg.StoreDriver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory store, records are lost on restart")
		return store.NewMemory(), nil, nil

	case config.DriverPostgres:
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
			MaxConns: cfg.DBMaxConns,
			MinConns: cfg.DBMinConns,
		})
		if err != nil {
			return nil, nil, err
		}
		return pgstore.New(pool), func() any { return db.GetPoolStats(pool) }, nil

	case config.DriverMongo:
		st, err := mongostore.Connect(ctx, cfg.MongoURL, cfg.MongoDatabase)
		if err != nil {
			return nil, nil, err
		}
		return st, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
}
