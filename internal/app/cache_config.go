package app

import (
	"strings"

	"github.com/charlesng35/tronobserver/internal/cache"
	"github.com/charlesng35/tronobserver/internal/services"
)

// RedisClientConfig converts the application cache configuration into the cache package representation.
func (c CacheConfig) RedisClientConfig() cache.RedisConfig {
	return cache.RedisConfig{
		Address:  strings.TrimSpace(c.Redis.Address),
		Username: strings.TrimSpace(c.Redis.Username),
		Password: c.Redis.Password,
		DB:       c.Redis.DB,
		TLS:      c.Redis.TLS,
		Timeout:  c.Redis.Timeout,
	}
}

// RecencyCacheConfig returns the settings of the recent lookups cache.
func (c CacheConfig) RecencyCacheConfig() services.RecencyCacheConfig {
	return services.RecencyCacheConfig{
		Key:      strings.TrimSpace(c.Lookups.Key),
		Capacity: c.Lookups.Capacity,
		TTL:      c.Lookups.TTL,
	}
}

// LookupRepositoryOptions returns the repository read policy.
func (c CacheConfig) LookupRepositoryOptions() services.LookupRepositoryOptions {
	return services.LookupRepositoryOptions{FallbackOnMiss: c.Lookups.FallbackOnMiss}
}
