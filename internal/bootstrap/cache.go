package bootstrap

import (
	"fmt"
	"log"

	"github.com/heshen/BookStack-1/internal/cache"
	"github.com/heshen/BookStack-1/internal/config"
	"github.com/heshen/BookStack-1/internal/core"
	"github.com/heshen/BookStack-1/internal/metrics"
	"github.com/heshen/BookStack-1/internal/models"
)

// initializeMetrics picks the metrics recorder implementation
func initializeMetrics(cfg *config.Config) metrics.Recorder {
	if !cfg.EnableMetrics {
		log.Println("Metrics disabled")
		return metrics.NewNoopMetrics()
	}
	return metrics.New()
}

// initializeUserCache creates the cache backing user lookups. Memory for
// single-instance deployments, Redis with client-side caching otherwise.
func initializeUserCache(cfg *config.Config) (core.Cache[models.User], error) {
	switch cfg.CacheBackend {
	case config.CacheBackendMemory:
		log.Println("User cache: in-memory")
		return cache.NewMemoryCache[models.User](), nil

	case config.CacheBackendRedis:
		c, err := cache.NewRueidisAsideCache[models.User](
			cfg.RedisAddr,
			cfg.RedisPassword,
			cfg.RedisDB,
			"auth:",
			cfg.UserCacheTTL,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize redis cache: %w", err)
		}
		log.Printf("User cache: redis (address: %s, db: %d)", cfg.RedisAddr, cfg.RedisDB)
		return c, nil

	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", cfg.CacheBackend)
	}
}
