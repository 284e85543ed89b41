package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/snipstash/snipstash-server/internal/cache"
	"github.com/snipstash/snipstash-server/internal/config"
	"github.com/snipstash/snipstash-server/internal/logger"
)

// redisConnectTimeout bounds the startup ping to Redis.
const redisConnectTimeout = 5 * time.Second

// CacheHandle wraps the cache backend with shutdown capability.
type CacheHandle struct {
	cache.Cache
}

// Shutdown implements do.Shutdownable.
func (h *CacheHandle) Shutdown() error {
	return h.Close()
}

// ProvideCache provides the cache backend: Redis when REDIS_URL is set,
// otherwise an in-process map.
func ProvideCache(i do.Injector) (*CacheHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	opts := cache.Options{DefaultTTL: cfg.Cache.MetadataTTL}

	if cfg.Cache.RedisURL == "" {
		log.Info("Using in-memory cache")
		return &CacheHandle{Cache: cache.NewMemory(opts)}, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisConnectTimeout)
	defer cancel()

	backend, err := cache.NewRedis(ctx, cfg.Cache.RedisURL, opts)
	if err != nil {
		return nil, err
	}

	log.Info("Using Redis cache")
	return &CacheHandle{Cache: backend}, nil
}

// ProvideMetadataCache provides the metadata aggregate cache.
func ProvideMetadataCache(i do.Injector) (*cache.MetadataCache, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	backend := do.MustInvoke[*CacheHandle](i)

	return cache.NewMetadataCache(backend.Cache, cfg.Cache.MetadataTTL, log.Logger), nil
}
