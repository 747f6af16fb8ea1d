// Package backend builds the record store selected by configuration.
package backend

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mamadbah2/floorlog/internal/config"
	"github.com/mamadbah2/floorlog/internal/repository"
	"github.com/mamadbah2/floorlog/internal/repository/memory"
	"github.com/mamadbah2/floorlog/internal/repository/mongodb"
	"github.com/mamadbah2/floorlog/internal/repository/sqlstore"
)

const defaultConnectTimeout = 10 * time.Second

// Open constructs one of the supported stores. The caller owns the returned
// store and must Close it.
func Open(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (repository.Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch cfg.Driver {
	case config.DriverMemory:
		logger.Warn("using in-memory store, records are lost on restart")
		return memory.NewStore(), nil
	case config.DriverSQLite:
		store, err := sqlstore.Open(ctx, sqlstore.SQLite, sqlstore.SQLiteDSN(cfg.URL), sqlOptions(cfg), logger.Named("sqlite"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverPostgres:
		store, err := sqlstore.Open(ctx, sqlstore.Postgres, cfg.URL, sqlOptions(cfg), logger.Named("postgres"))
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.DriverMongoDB:
		connectCtx, cancel := context.WithTimeout(ctx, connectTimeout(cfg))
		defer cancel()
		store, err := mongodb.NewMongoDBRepository(connectCtx, cfg.URL, cfg.MongoDBName, logger.Named("mongodb"))
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", cfg.Driver)
	}
}

func sqlOptions(cfg config.StorageConfig) sqlstore.Options {
	return sqlstore.Options{
		MaxOpenConns:   cfg.MaxOpenConns,
		ConnectTimeout: connectTimeout(cfg),
	}
}

func connectTimeout(cfg config.StorageConfig) time.Duration {
	if cfg.ConnectTimeout <= 0 {
		return defaultConnectTimeout
	}
	return cfg.ConnectTimeout
}
