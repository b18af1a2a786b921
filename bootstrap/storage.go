package bootstrap

import (
	"context"
	"fmt"
	"time"

	"threatintel/config"
	"threatintel/threat/cache"

	"go.uber.org/zap"
)

// InitCacheBackend opens the backend selected by cache.backend.
func InitCacheBackend(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (cache.Backend, error) {
	switch cfg.Cache.Backend {
	case cache.BackendFile, "":
		backend, err := cache.NewFileBackend(cfg.Cache.Dir)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file cache: %w", err)
		}
		sugar.Infow("Feed cache ready", "backend", cache.BackendFile, "dir", cfg.Cache.Dir)
		return backend, nil

	case cache.BackendLevelDB:
		backend, err := cache.NewLevelDBBackend(cfg.Cache.LevelDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize leveldb cache: %w", err)
		}
		sugar.Infow("Feed cache ready", "backend", cache.BackendLevelDB, "path", cfg.Cache.LevelDBPath)
		return backend, nil

	case cache.BackendSQLite:
		backend, err := cache.NewSQLiteBackend(cfg.Cache.SQLitePath)
		if err != nil {
			sugar.Error(ClassifySQLiteError(err, cfg.Cache.SQLitePath))
			return nil, fmt.Errorf("failed to initialize sqlite cache: %w", err)
		}
		sugar.Infow("Feed cache ready", "backend", cache.BackendSQLite, "path", cfg.Cache.SQLitePath)
		return backend, nil

	case cache.BackendRedis:
		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		r := cfg.Cache.Redis
		backend, err := cache.NewRedisBackend(pingCtx, r.Addr, r.Password, r.DB, r.PoolSize)
		if err != nil {
			sugar.Error(ClassifyConnectionError(err, "Redis", r.Addr))
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		sugar.Infow("Feed cache ready", "backend", cache.BackendRedis, "addr", r.Addr)
		return backend, nil

	default:
		return nil, fmt.Errorf("%w: %q", cache.ErrUnknownBackend, cfg.Cache.Backend)
	}
}

// InitCacheStore opens the configured backend and wraps it in a Store using
// the codec that backend stores records with.
func InitCacheStore(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*cache.Store, error) {
	backend, err := InitCacheBackend(ctx, cfg, sugar)
	if err != nil {
		return nil, err
	}
	return cache.NewStore(backend, sugar,
		cache.WithTTL(cfg.Cache.TTL),
		cache.WithCodec(cache.CodecFor(backend.Name())),
	), nil
}
