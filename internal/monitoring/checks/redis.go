package checks

import (
	"context"
	"time"

	"github.com/charlesng35/tronobserver/internal/monitoring"
)

const defaultRedisTimeout = 2 * time.Second

// RedisPinger represents the minimal interface required to probe a redis connection.
type RedisPinger interface {
	Ping(ctx context.Context) error
}

// Redis returns a readiness probe for the shared cache. The recency cache is an
// accelerator, so an unreachable Redis degrades readiness instead of failing it.
func Redis(client RedisPinger, enabled bool, timeout time.Duration) monitoring.Check {
	return monitoring.NewCheck("redis", func(ctx context.Context) monitoring.ProbeResult {
		if !enabled {
			return monitoring.ProbeResult{Status: monitoring.StatusUp, Details: "redis disabled, using database cache"}
		}
		if client == nil {
			return monitoring.ProbeResult{Status: monitoring.StatusDegraded, Details: "redis unavailable"}
		}

		start := time.Now()
		probeCtx, cancel := context.WithTimeout(ctx, chooseTimeout(timeout, defaultRedisTimeout))
		defer cancel()

		result := monitoring.ResultFromError("redis", client.Ping(probeCtx), time.Since(start))
		if result.Status == monitoring.StatusDown {
			result.Status = monitoring.StatusDegraded
		}
		return result
	})
}
