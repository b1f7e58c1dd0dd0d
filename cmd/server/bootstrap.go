package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/charlesng35/tronobserver/internal/api"
	"github.com/charlesng35/tronobserver/internal/app"
	"github.com/charlesng35/tronobserver/internal/app/maintenance"
	"github.com/charlesng35/tronobserver/internal/cache"
	"github.com/charlesng35/tronobserver/internal/database"
	"github.com/charlesng35/tronobserver/internal/middleware"
	"github.com/charlesng35/tronobserver/internal/monitoring"
	"github.com/charlesng35/tronobserver/internal/monitoring/checks"
	"github.com/charlesng35/tronobserver/internal/services"
	"github.com/charlesng35/tronobserver/internal/tron"
	"github.com/charlesng35/tronobserver/pkg/logger"
)

const probeTimeout = 2 * time.Second

// runtimeStack bundles long-lived services used by the HTTP server.
type runtimeStack struct {
	DB      *gorm.DB
	Redis   *cache.RedisClient
	Store   cache.Store
	Cleaner *maintenance.Cleaner
	Health  *monitoring.HealthManager
	Lookups *services.LookupService
	Router  *gin.Engine
}

// bootstrapRuntime initialises the database, the shared cache, services, and the HTTP router.
func bootstrapRuntime(cfg *app.Config, log *zap.Logger) (*runtimeStack, error) {
	stack := &runtimeStack{}
	var err error
	success := false

	defer func() {
		if !success {
			stack.Shutdown(context.Background(), log)
		}
	}()

	// enable gin debug mod
	if debug, _ := os.LookupEnv("GIN_DEBUG"); debug != "true" {
		gin.SetMode(gin.ReleaseMode)
	}

	stack.DB, err = initialiseDatabase(cfg)
	if err != nil {
		return nil, err
	}

	stack.Store, stack.Redis = initialiseCache(cfg, stack.DB, log)

	recent, err := services.NewRecencyCache(stack.Store, cfg.Cache.RecencyCacheConfig())
	if err != nil {
		return nil, fmt.Errorf("initialise recency cache: %w", err)
	}

	factory, err := services.NewUnitOfWorkFactory(stack.DB, recent, cfg.Cache.LookupRepositoryOptions())
	if err != nil {
		return nil, fmt.Errorf("initialise unit of work: %w", err)
	}

	ledger := tron.NewClient(cfg.Tron.ClientConfig(), nil)
	stack.Lookups, err = services.NewLookupService(ledger, factory)
	if err != nil {
		return nil, fmt.Errorf("initialise lookup service: %w", err)
	}

	var cleanerOpts []maintenance.Option
	if purger, ok := stack.Store.(maintenance.ExpiredEntryPurger); ok {
		cleanerOpts = append(cleanerOpts, maintenance.WithJob(maintenance.CachePurgeJob(purger, cfg.Maintenance.CachePurgeSchedule)))
	}
	stack.Cleaner = maintenance.NewCleaner(cleanerOpts...)
	if err := stack.Cleaner.Start(); err != nil {
		return nil, fmt.Errorf("start maintenance jobs: %w", err)
	}

	stack.Health = buildHealthManager(cfg, stack)

	stack.Router, err = api.NewRouter(cfg, stack.Lookups, stack.Health, middleware.NewCacheRateStore(stack.Store))
	if err != nil {
		return nil, fmt.Errorf("build api router: %w", err)
	}

	success = true
	return stack, nil
}

// Shutdown gracefully stops background jobs and releases resources.
func (s *runtimeStack) Shutdown(ctx context.Context, log *zap.Logger) {
	if s == nil {
		return
	}

	if s.Cleaner != nil {
		stopCtx := s.Cleaner.Stop()
		if stopCtx != nil {
			<-stopCtx.Done()
		}
		if err := s.Cleaner.RunOnce(ctx); err != nil {
			log.Warn("maintenance shutdown cleanup failed", zap.Error(err))
		}
	}

	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			log.Warn("redis shutdown", zap.Error(err))
		}
	}

	if s.DB != nil {
		if err := database.Close(s.DB); err != nil {
			log.Warn("failed to close database", zap.Error(err))
		}
	}
}

func initialiseDatabase(cfg *app.Config) (*gorm.DB, error) {
	dbCfg := cfg.Database.ConnectionConfig()
	db, err := database.Open(dbCfg)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := database.AutoMigrate(db); err != nil {
		_ = database.Close(db)
		return nil, fmt.Errorf("auto-migrate database: %w", err)
	}

	log := logger.WithModule("database")
	log.Info("database connected", zap.String("driver", strings.ToLower(strings.TrimSpace(dbCfg.Driver))))

	return db, nil
}

// initialiseCache prefers Redis when enabled and reachable and falls back to the
// database-backed store otherwise.
func initialiseCache(cfg *app.Config, db *gorm.DB, log *zap.Logger) (cache.Store, *cache.RedisClient) {
	if cfg.Cache.Redis.Enabled {
		client, err := cache.NewRedisClient(cfg.Cache.RedisClientConfig())
		if err == nil {
			log.Info("redis connected", zap.String("addr", cfg.Cache.Redis.Address))
			return client, client
		}
		log.Warn("redis unavailable; falling back to database cache", zap.Error(err))
	}
	return cache.NewDatabaseStore(db), nil
}

func buildHealthManager(cfg *app.Config, stack *runtimeStack) *monitoring.HealthManager {
	manager := monitoring.NewHealthManager()

	manager.RegisterLiveness(monitoring.NewCheck("process", func(context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	manager.RegisterReadiness(checks.Database(stack.DB, probeTimeout))

	var pinger checks.RedisPinger
	if stack.Redis != nil {
		pinger = stack.Redis
	}
	manager.RegisterReadiness(checks.Redis(pinger, cfg.Cache.Redis.Enabled, probeTimeout))
	manager.RegisterReadiness(checks.Maintenance(stack.Cleaner, 0))

	return manager
}

func newHTTPServer(cfg *app.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
