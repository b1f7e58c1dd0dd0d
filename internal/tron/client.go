package tron

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/charlesng35/tronobserver/pkg/logger"
	"github.com/charlesng35/tronobserver/pkg/metrics"
)

const (
	// DefaultBaseURL points at the public Shasta testnet full node.
	DefaultBaseURL = "https://api.shasta.trongrid.io"

	defaultTimeout   = 10 * time.Second
	apiKeyHeader     = "TRON-PRO-API-KEY"
	sunPerTRXExp     = -6
	maxErrorBodySize = 4 << 10

	endpointAccount         = "/wallet/getaccount"
	endpointAccountResource = "/wallet/getaccountresource"
)

// Config controls how the client reaches the ledger API.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// ClientError is returned for any failed ledger lookup. StatusCode carries the upstream
// HTTP status when the node answered, and 400 otherwise.
type ClientError struct {
	StatusCode int
	Detail     string
	Err        error
}

func (e *ClientError) Error() string {
	return fmt.Sprintf("tron client: %d: %s", e.StatusCode, e.Detail)
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// AccountInfo summarises the balance and resource usage of an address.
type AccountInfo struct {
	Address        string  `json:"address"`
	BandwidthUsed  int64   `json:"bandwidth_used"`
	BandwidthLimit int64   `json:"bandwidth_limit"`
	EnergyUsed     int64   `json:"energy_used"`
	EnergyLimit    int64   `json:"energy_limit"`
	TRXBalance     float64 `json:"trx_balance"`
}

// Fields returns the account info without the address, as persisted with a lookup.
func (a AccountInfo) Fields() map[string]any {
	return map[string]any{
		"bandwidth_used":  a.BandwidthUsed,
		"bandwidth_limit": a.BandwidthLimit,
		"energy_used":     a.EnergyUsed,
		"energy_limit":    a.EnergyLimit,
		"trx_balance":     a.TRXBalance,
	}
}

type accountResponse struct {
	Balance int64 `json:"balance"`
}

type accountResourceResponse struct {
	FreeNetUsed  int64 `json:"freeNetUsed"`
	FreeNetLimit int64 `json:"freeNetLimit"`
	EnergyUsed   int64 `json:"EnergyUsed"`
	EnergyLimit  int64 `json:"EnergyLimit"`
}

type accountRequest struct {
	Address string `json:"address"`
	Visible bool   `json:"visible"`
}

// Client talks to a TRON full node over its HTTP wallet API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	log     *zap.Logger
}

// NewClient constructs a ledger client. A nil httpClient gets one with the configured timeout.
func NewClient(cfg Config, httpClient *http.Client) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL: baseURL,
		apiKey:  strings.TrimSpace(cfg.APIKey),
		http:    httpClient,
		log:     logger.WithModule("tron"),
	}
}

// GetAccountInfo validates the address and fetches the account and its resources concurrently.
func (c *Client) GetAccountInfo(ctx context.Context, address string) (*AccountInfo, error) {
	address, err := ParseAddress(address)
	if err != nil {
		return nil, &ClientError{StatusCode: http.StatusBadRequest, Detail: "Invalid TRON address", Err: err}
	}

	var (
		account   accountResponse
		resources accountResourceResponse
	)

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return c.post(groupCtx, endpointAccount, address, &account)
	})
	group.Go(func() error {
		return c.post(groupCtx, endpointAccountResource, address, &resources)
	})
	if err := group.Wait(); err != nil {
		var clientErr *ClientError
		if errors.As(err, &clientErr) {
			return nil, clientErr
		}
		return nil, &ClientError{
			StatusCode: http.StatusBadRequest,
			Detail:     fmt.Sprintf("Error fetching account info: %v", err),
			Err:        err,
		}
	}

	return &AccountInfo{
		Address:        address,
		BandwidthUsed:  resources.FreeNetUsed,
		BandwidthLimit: resources.FreeNetLimit,
		EnergyUsed:     resources.EnergyUsed,
		EnergyLimit:    resources.EnergyLimit,
		TRXBalance:     SunToTRX(account.Balance),
	}, nil
}

// SunToTRX converts an amount in sun (10^-6 TRX) to TRX.
func SunToTRX(sun int64) float64 {
	return decimal.New(sun, sunPerTRXExp).InexactFloat64()
}

func (c *Client) post(ctx context.Context, endpoint, address string, out any) (err error) {
	defer func() {
		result := "success"
		if err != nil {
			result = "failure"
		}
		metrics.LedgerRequests.WithLabelValues(endpoint, result).Inc()
	}()

	body, err := json.Marshal(accountRequest{Address: address, Visible: true})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("ledger request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodySize))
		c.log.Warn("ledger returned error status",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return &ClientError{
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("HTTP error: %s", strings.TrimSpace(string(payload))),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode %s response: %w", endpoint, err)
	}
	return nil
}
