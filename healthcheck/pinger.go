// Package healthcheck keeps CredoSafe service instances awake and observable.
// The pinger polls each target's /health endpoint on a fixed schedule, logs
// every result, and never fails the process: a dead target is reported, not
// fatal.
package healthcheck

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/credosafe/credosafe-go/internal/metrics"
)

// Target is one service to keep alive.
type Target struct {
	Name string
	URL  string
}

// HealthResponse is the expected /health body.
type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

// Result is the latest outcome for one target.
type Result struct {
	Target    string
	Healthy   bool
	Status    string
	Error     string
	CheckedAt time.Time
	Latency   time.Duration
}

// Config holds pinger configuration.
type Config struct {
	Targets []Target
	// Interval between rounds. Defaults to 3 minutes.
	Interval time.Duration
	// HTTPClient overrides the default (10s timeout).
	HTTPClient *http.Client
	Logger     *zerolog.Logger
}

// Pinger polls the configured targets.
type Pinger struct {
	mu sync.Mutex

	targets    []Target
	interval   time.Duration
	httpClient *http.Client
	log        zerolog.Logger

	cron    *cron.Cron
	results map[string]Result
	running bool
}

// New creates a pinger.
func New(cfg Config) (*Pinger, error) {
	if len(cfg.Targets) == 0 {
		return nil, fmt.Errorf("at least one target is required")
	}
	for _, t := range cfg.Targets {
		if t.URL == "" {
			return nil, fmt.Errorf("target %q: URL is required", t.Name)
		}
	}
	if cfg.Interval == 0 {
		cfg.Interval = 3 * time.Minute
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	log := zerolog.Nop()
	if cfg.Logger != nil {
		log = cfg.Logger.With().Str("component", "healthcheck").Logger()
	}

	return &Pinger{
		targets:    cfg.Targets,
		interval:   cfg.Interval,
		httpClient: httpClient,
		log:        log,
		results:    make(map[string]Result),
	}, nil
}

// Start schedules recurring rounds and runs the first one immediately.
// It returns an error if already started.
func (p *Pinger) Start(ctx context.Context) error {
	// Build the schedule before claiming the running flag so a scheduling
	// failure leaves the pinger startable.
	c := cron.New()
	if _, err := c.AddFunc(fmt.Sprintf("@every %s", p.interval), func() {
		p.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("schedule: %w", err)
	}

	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return fmt.Errorf("pinger already running")
	}
	p.running = true
	p.cron = c
	p.mu.Unlock()

	c.Start()
	go p.RunOnce(ctx)
	p.log.Info().Dur("interval", p.interval).Int("targets", len(p.targets)).Msg("started")
	return nil
}

// Stop stops the schedule. In-flight checks finish on their own.
func (p *Pinger) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	p.running = false
	p.cron.Stop()
	p.log.Info().Msg("stopped")
}

// RunOnce checks every target once. Errors are recorded and logged per
// target; the round itself always completes.
func (p *Pinger) RunOnce(ctx context.Context) {
	for _, target := range p.targets {
		result := p.check(ctx, target)

		p.mu.Lock()
		p.results[target.Name] = result
		p.mu.Unlock()

		metrics.ObserveHealthCheck(target.Name, result.Healthy)
		event := p.log.Info()
		if !result.Healthy {
			event = p.log.Warn()
		}
		event.
			Str("target", target.Name).
			Bool("healthy", result.Healthy).
			Dur("latency", result.Latency).
			Str("error", result.Error).
			Msg("health check")
	}
}

// Results returns the latest result per target.
func (p *Pinger) Results() map[string]Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]Result, len(p.results))
	for k, v := range p.results {
		out[k] = v
	}
	return out
}

// AllHealthy reports whether every checked target's last result was healthy.
func (p *Pinger) AllHealthy() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, r := range p.results {
		if !r.Healthy {
			return false
		}
	}
	return len(p.results) > 0
}

func (p *Pinger) check(ctx context.Context, target Target) Result {
	result := Result{Target: target.Name, CheckedAt: time.Now()}
	start := time.Now()

	url := strings.TrimSuffix(target.URL, "/") + "/health"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		result.Error = err.Error()
		return result
	}

	resp, err := p.httpClient.Do(req)
	result.Latency = time.Since(start)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		result.Error = fmt.Sprintf("read body: %v", err)
		return result
	}

	if resp.StatusCode != http.StatusOK {
		result.Error = fmt.Sprintf("status %d", resp.StatusCode)
		return result
	}

	var health HealthResponse
	if err := json.Unmarshal(body, &health); err != nil {
		result.Error = fmt.Sprintf("malformed body: %v", err)
		return result
	}

	result.Status = health.Status
	result.Healthy = strings.EqualFold(health.Status, "OK")
	if !result.Healthy {
		result.Error = fmt.Sprintf("status %q", health.Status)
	}
	return result
}
