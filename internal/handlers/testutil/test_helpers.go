package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/charlesng35/tronobserver/internal/api"
	"github.com/charlesng35/tronobserver/internal/app"
	"github.com/charlesng35/tronobserver/internal/cache"
	sharedtestutil "github.com/charlesng35/tronobserver/internal/database/testutil"
	"github.com/charlesng35/tronobserver/internal/middleware"
	"github.com/charlesng35/tronobserver/internal/monitoring"
	"github.com/charlesng35/tronobserver/internal/monitoring/checks"
	"github.com/charlesng35/tronobserver/internal/services"
	"github.com/charlesng35/tronobserver/internal/tron"
	"github.com/charlesng35/tronobserver/pkg/response"
)

// Account is the ledger state the fake TronGrid node reports for an address.
type Account struct {
	Balance      int64
	FreeNetUsed  int64
	FreeNetLimit int64
	EnergyUsed   int64
	EnergyLimit  int64
}

// Ledger is an httptest TronGrid node serving the wallet endpoints used by the client.
type Ledger struct {
	Server *httptest.Server

	mu       sync.Mutex
	accounts map[string]Account
	status   int
	calls    int
}

func newLedger(t *testing.T) *Ledger {
	t.Helper()

	ledger := &Ledger{accounts: map[string]Account{}}
	ledger.Server = httptest.NewServer(http.HandlerFunc(ledger.serve))
	t.Cleanup(ledger.Server.Close)
	return ledger
}

// SetAccount registers the state returned for address.
func (l *Ledger) SetAccount(address string, account Account) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.accounts[address] = account
}

// FailWith makes every subsequent call answer with status. Zero restores normal replies.
func (l *Ledger) FailWith(status int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.status = status
}

// Calls returns the number of wallet API calls served.
func (l *Ledger) Calls() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func (l *Ledger) serve(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	l.mu.Lock()
	l.calls++
	status := l.status
	account := l.accounts[req.Address]
	l.mu.Unlock()

	if status != 0 {
		http.Error(w, "ledger unavailable", status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	switch r.URL.Path {
	case "/wallet/getaccount":
		_ = json.NewEncoder(w).Encode(map[string]any{"balance": account.Balance})
	case "/wallet/getaccountresource":
		_ = json.NewEncoder(w).Encode(map[string]any{
			"freeNetUsed":  account.FreeNetUsed,
			"freeNetLimit": account.FreeNetLimit,
			"EnergyUsed":   account.EnergyUsed,
			"EnergyLimit":  account.EnergyLimit,
		})
	default:
		http.NotFound(w, r)
	}
}

// Env encapsulates a fully-wired API instance backed by an in-memory database, a
// miniredis cache and a fake ledger for handler tests.
type Env struct {
	T      *testing.T
	DB     *gorm.DB
	Redis  *miniredis.Miniredis
	Cache  *cache.RedisClient
	Ledger *Ledger
	Config *app.Config
	Router *gin.Engine
}

// Option adjusts the configuration before the router is built.
type Option func(cfg *app.Config)

// WithConfig mutates the default test configuration.
func WithConfig(fn func(cfg *app.Config)) Option {
	return fn
}

// NewEnv provisions a fresh handler test environment with migrations applied.
func NewEnv(t *testing.T, opts ...Option) *Env {
	t.Helper()

	gin.SetMode(gin.TestMode)

	db := sharedtestutil.MustOpenTestDB(t, sharedtestutil.WithAutoMigrate())

	server := miniredis.RunT(t)
	store := cache.NewRedisClientFromUniversal(redis.NewClient(&redis.Options{
		Addr:       server.Addr(),
		MaxRetries: -1,
	}), time.Second)
	t.Cleanup(func() { _ = store.Close() })

	ledger := newLedger(t)

	cfg := &app.Config{
		Cache: app.CacheConfig{
			Redis: app.RedisCacheConfig{Enabled: true, Address: server.Addr()},
			Lookups: app.LookupsCacheConfig{
				Key:            services.DefaultRecentLookupsKey,
				Capacity:       services.DefaultRecentLookupsCapacity,
				TTL:            services.DefaultRecentLookupsTTL,
				FallbackOnMiss: true,
			},
		},
		Tron: app.TronConfig{BaseURL: ledger.Server.URL, Timeout: 2 * time.Second},
		Monitoring: app.MonitoringConfig{
			Prometheus: app.PrometheusConfig{Enabled: true, Endpoint: "/metrics"},
			Health:     app.HealthConfig{Enabled: true},
		},
		RateLimit: app.RateLimitConfig{Enabled: true, Requests: 1000, Window: time.Minute},
	}
	for _, opt := range opts {
		opt(cfg)
	}

	recent, err := services.NewRecencyCache(store, cfg.Cache.RecencyCacheConfig())
	require.NoError(t, err)

	factory, err := services.NewUnitOfWorkFactory(db, recent, cfg.Cache.LookupRepositoryOptions())
	require.NoError(t, err)

	client := tron.NewClient(cfg.Tron.ClientConfig(), ledger.Server.Client())
	svc, err := services.NewLookupService(client, factory)
	require.NoError(t, err)

	health := monitoring.NewHealthManager()
	health.RegisterLiveness(monitoring.NewCheck("process", func(ctx context.Context) monitoring.ProbeResult {
		return monitoring.ProbeResult{Status: monitoring.StatusUp}
	}))
	health.RegisterReadiness(checks.Database(db, time.Second))
	health.RegisterReadiness(checks.Redis(store, true, time.Second))

	router, err := api.NewRouter(cfg, svc, health, middleware.NewCacheRateStore(store))
	require.NoError(t, err)

	return &Env{
		T:      t,
		DB:     db,
		Redis:  server,
		Cache:  store,
		Ledger: ledger,
		Config: cfg,
		Router: router,
	}
}

// APIResponse represents the canonical API envelope returned by handlers.
type APIResponse struct {
	Success bool                `json:"success"`
	Data    json.RawMessage     `json:"data"`
	Error   *response.ErrorInfo `json:"error"`
	Meta    *response.Meta      `json:"meta"`
}

// DecodeResponse parses the standard API response object from a recorder.
func DecodeResponse(t *testing.T, w *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), w.Body.String())
	return resp
}

// DecodeInto unmarshals the data payload into the provided destination.
func DecodeInto[T any](t *testing.T, raw json.RawMessage, dest *T) {
	t.Helper()
	if dest == nil {
		t.Fatal("destination must not be nil")
	}
	require.NoError(t, json.Unmarshal(raw, dest))
}

// Request executes an HTTP request against the test router, JSON encoding body when set.
func (e *Env) Request(method, path string, body any) *httptest.ResponseRecorder {
	e.T.Helper()

	var buf *bytes.Buffer
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(e.T, err)
		buf = bytes.NewBuffer(data)
	} else {
		buf = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, path, buf)
	require.NoError(e.T, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	e.Router.ServeHTTP(w, req)
	return w
}

// Address returns a deterministic valid TRON address derived from seed.
func Address(t *testing.T, seed byte) string {
	t.Helper()
	account := bytes.Repeat([]byte{seed}, 20)
	address, err := tron.EncodeAddress(account)
	require.NoError(t, err)
	return address
}
