// Package client provides the CredoSafe REST API client. It normalizes every
// call into a single response envelope, injects bearer credentials from a
// pluggable token source, and groups endpoints into domain sub-clients
// (auth, vouchers, wallet, support chat).
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/credosafe/credosafe-go/internal/metrics"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the current bearer token. A miss means the request
// proceeds unauthenticated; the server decides what that is allowed to do.
type TokenSource interface {
	Get() (string, bool)
}

// Config holds client configuration. BaseURL is required and explicit; there
// is no runtime environment sniffing.
type Config struct {
	// BaseURL is the API origin including the /api prefix,
	// e.g. https://app.credosafe.com/api.
	BaseURL string

	// Tokens supplies bearer tokens for authenticated calls. Optional.
	Tokens TokenSource

	// HTTPClient overrides the default client (30s timeout). Optional.
	HTTPClient *http.Client

	// RateLimit caps outgoing requests per second. Zero means unlimited.
	RateLimit rate.Limit
	RateBurst int

	// EnableResilience turns on retry with backoff and a circuit breaker.
	// Off by default: a failed call is reported once.
	EnableResilience bool
	Retry            RetryConfig
	CircuitBreaker   CircuitBreakerConfig

	// Logger receives request-level debug logs. Defaults to a no-op logger.
	Logger *zerolog.Logger
}

// Client is the CredoSafe API client.
type Client struct {
	baseURL    string
	tokens     TokenSource
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// New creates a new API client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.EnableResilience {
		retry := cfg.Retry
		if retry.MaxRetries == 0 {
			retry = DefaultRetryConfig()
		}
		breaker := cfg.CircuitBreaker
		if breaker.FailureThreshold == 0 {
			breaker = DefaultCircuitBreakerConfig()
		}
		httpClient = resilientHTTPClient(httpClient, retry, breaker)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst == 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(cfg.RateLimit, burst)
	}

	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = cfg.Logger.With().Str("component", "client").Logger()
	}

	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		tokens:     cfg.Tokens,
		httpClient: httpClient,
		limiter:    limiter,
		log:        logger,
	}, nil
}

// =============================================================================
// Domain Sub-Clients
// =============================================================================

// Auth returns the authentication sub-client.
func (c *Client) Auth() *AuthService { return &AuthService{client: c} }

// Users returns the user profile sub-client.
func (c *Client) Users() *UsersService { return &UsersService{client: c} }

// Vouchers returns the voucher sub-client.
func (c *Client) Vouchers() *VouchersService { return &VouchersService{client: c} }

// Wallet returns the wallet and payments sub-client.
func (c *Client) Wallet() *WalletService { return &WalletService{client: c} }

// Referrals returns the referrals sub-client.
func (c *Client) Referrals() *ReferralsService { return &ReferralsService{client: c} }

// Catalog returns the credentials/categories/themes sub-client.
func (c *Client) Catalog() *CatalogService { return &CatalogService{client: c} }

// SupportChat returns the support chat sub-client.
func (c *Client) SupportChat() *SupportChatService { return &SupportChatService{client: c} }

// =============================================================================
// Request Execution
// =============================================================================

// Do builds and executes a request against the API and normalizes the outcome
// into an Envelope. It never returns an error for HTTP-level failures; those
// are folded into the envelope with the transport status. The only hard
// failure is a request body that cannot be marshaled, which is also folded
// in (status 0) so callers keep a single contract.
func (c *Client) Do(ctx context.Context, method, path string, body any) *Envelope {
	start := time.Now()
	env := c.do(ctx, method, path, body)
	metrics.ObserveRequest(method, path, env.Status, time.Since(start))
	if !env.Success {
		c.log.Debug().
			Str("method", method).
			Str("path", path).
			Int("status", env.Status).
			Str("error", env.Error).
			Msg("request failed")
	}
	return env
}

func (c *Client) do(ctx context.Context, method, path string, body any) *Envelope {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return networkFailure(err)
		}
	}

	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return networkFailure(fmt.Errorf("marshal request body: %w", err))
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return networkFailure(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	// Bearer token only when one is available; unauthenticated otherwise.
	if c.tokens != nil {
		if token, ok := c.tokens.Get(); ok && token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkFailure(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return networkFailure(fmt.Errorf("read response: %w", err))
	}

	return normalize(resp.StatusCode, resp.Header.Get("Content-Type"), raw)
}

// Get performs a GET request.
func (c *Client) Get(ctx context.Context, path string) *Envelope {
	return c.Do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any) *Envelope {
	return c.Do(ctx, http.MethodPost, path, body)
}

// Put performs a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any) *Envelope {
	return c.Do(ctx, http.MethodPut, path, body)
}

// Delete performs a DELETE request.
func (c *Client) Delete(ctx context.Context, path string) *Envelope {
	return c.Do(ctx, http.MethodDelete, path, nil)
}
