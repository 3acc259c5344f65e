// Package bootstrap opens the backends selected by configuration. It is shared by the
// API server and the export worker.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"classlog/internal/cache"
	"classlog/internal/config"
	"classlog/internal/queue"
	"classlog/internal/school"
	"classlog/internal/store"
)

// Runtime holds the opened backends.
type Runtime struct {
	DB     *store.DB
	Redis  *store.Redis
	Store  school.Store
	Cache  cache.Cache
	Queue  queue.Queue
	Checks map[string]func(context.Context) bool
}

// ErrSplitState is returned when the queue is shared between processes but the store or
// cache it feeds is private to each of them.
var ErrSplitState = errors.New("backends: a redis queue needs a shared store and cache")

// checkShared rejects a redis queue paired with process-local state. The worker would
// read records and write job statuses that the API process never sees.
func checkShared(cfg config.App) error {
	if cfg.QueueBackend != "redis" {
		return nil
	}
	if cfg.StoreBackend == "memory" {
		return fmt.Errorf("%w: STORE_BACKEND=memory with QUEUE_BACKEND=redis", ErrSplitState)
	}
	if cfg.CacheBackend != "redis" {
		return fmt.Errorf("%w: CACHE_BACKEND=%s with QUEUE_BACKEND=redis", ErrSplitState, cfg.CacheBackend)
	}
	return nil
}

// Open connects the store, cache and queue named in cfg.
func Open(ctx context.Context, cfg config.App, log *logrus.Entry) (*Runtime, error) {
	if err := checkShared(cfg); err != nil {
		return nil, err
	}
	rt := &Runtime{Checks: make(map[string]func(context.Context) bool)}

	switch cfg.StoreBackend {
	case "memory":
		rt.Store = school.NewMemory()
		log.Warn("using in-memory store; data is lost on restart")
	case "postgres", "":
		db, err := store.NewDB(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		rt.DB = db
		if cfg.AutoMigrate {
			if err := db.Migrate(ctx); err != nil {
				rt.Close()
				return nil, err
			}
			log.Info("schema migrated")
		}
		rt.Store = school.NewRepository(db.Client)
		rt.Checks["db"] = db.Healthy
	default:
		return nil, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	if cfg.CacheBackend == "redis" || cfg.QueueBackend == "redis" {
		rt.Redis = store.NewRedis(cfg.RedisAddr)
		if !rt.Redis.Healthy(ctx) {
			log.WithField("addr", cfg.RedisAddr).Warn("redis not reachable yet")
		}
		rt.Checks["redis"] = rt.Redis.Healthy
	}

	switch cfg.CacheBackend {
	case "memory":
		rt.Cache = cache.NewInMemory()
	case "redis":
		rt.Cache = cache.NewRedis(rt.Redis.Client, "")
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown CACHE_BACKEND %q", cfg.CacheBackend)
	}

	switch cfg.QueueBackend {
	case "memory":
		rt.Queue = queue.NewInMemory(64)
	case "redis":
		rt.Queue = queue.NewRedisQueue(rt.Redis.Client, cfg.QueueKey)
	default:
		rt.Close()
		return nil, fmt.Errorf("unknown QUEUE_BACKEND %q", cfg.QueueBackend)
	}

	log.WithFields(logrus.Fields{
		"store": cfg.StoreBackend,
		"cache": cfg.CacheBackend,
		"queue": cfg.QueueBackend,
	}).Info("backends ready")
	return rt, nil
}

// Close releases every connection that was opened.
func (rt *Runtime) Close() {
	_ = rt.DB.Close()
	_ = rt.Redis.Close()
}
