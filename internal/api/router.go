package api

import (
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/charlesng35/tronobserver/internal/app"
	"github.com/charlesng35/tronobserver/internal/handlers"
	"github.com/charlesng35/tronobserver/internal/middleware"
	"github.com/charlesng35/tronobserver/internal/monitoring"
)

// NewRouter builds the Gin engine, wires middleware and registers the lookup, health and
// metrics routes. A nil rate store falls back to process-local counters.
func NewRouter(cfg *app.Config, lookups handlers.LookupService, health *monitoring.HealthManager, rateStore middleware.RateStore) (*gin.Engine, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must be provided")
	}
	if lookups == nil {
		return nil, fmt.Errorf("lookup service must be provided")
	}

	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.Metrics())
	r.Use(middleware.SecurityHeaders())

	if err := registerHealthRoutes(r, cfg, health); err != nil {
		return nil, err
	}
	registerMetricsRoute(r, cfg)

	api := r.Group("/api")
	if cfg.RateLimit.Enabled {
		if rateStore == nil {
			rateStore = middleware.NewMemoryRateStore()
		}
		api.Use(middleware.RateLimit(rateStore, cfg.RateLimit.Requests, cfg.RateLimit.Window))
	}

	lookupHandler, err := handlers.NewLookupHandler(lookups)
	if err != nil {
		return nil, err
	}
	registerLookupRoutes(api, lookupHandler)

	// NotFound fallback
	r.NoRoute(middleware.NotFoundHandler)

	return r, nil
}

func metricsEndpoint(cfg *app.Config) string {
	endpoint := strings.TrimSpace(cfg.Monitoring.Prometheus.Endpoint)
	if endpoint == "" {
		return "/metrics"
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}
	return endpoint
}
