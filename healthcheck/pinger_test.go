package healthcheck

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func healthServer(t *testing.T, status string, code int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(HealthResponse{Status: status, Timestamp: time.Now().Format(time.RFC3339)})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPinger_HealthyTarget(t *testing.T) {
	srv := healthServer(t, "OK", http.StatusOK)

	p, err := New(Config{Targets: []Target{{Name: "api", URL: srv.URL}}})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	p.RunOnce(context.Background())

	results := p.Results()
	r, ok := results["api"]
	if !ok {
		t.Fatalf("Results() = %+v, want entry for api", results)
	}
	if !r.Healthy {
		t.Errorf("Healthy = false, want true: %+v", r)
	}
	if r.Status != "OK" {
		t.Errorf("Status = %q, want OK", r.Status)
	}
	if !p.AllHealthy() {
		t.Error("AllHealthy() = false, want true")
	}
}

func TestPinger_UnhealthyStatusRecorded(t *testing.T) {
	srv := healthServer(t, "DEGRADED", http.StatusOK)

	p, _ := New(Config{Targets: []Target{{Name: "api", URL: srv.URL}}})
	p.RunOnce(context.Background())

	r := p.Results()["api"]
	if r.Healthy {
		t.Error("Healthy = true for DEGRADED status, want false")
	}
	if r.Error == "" {
		t.Error("Error empty for unhealthy target, want a reason")
	}
	if p.AllHealthy() {
		t.Error("AllHealthy() = true, want false")
	}
}

func TestPinger_Non200Recorded(t *testing.T) {
	srv := healthServer(t, "OK", http.StatusServiceUnavailable)

	p, _ := New(Config{Targets: []Target{{Name: "api", URL: srv.URL}}})
	p.RunOnce(context.Background())

	r := p.Results()["api"]
	if r.Healthy {
		t.Error("Healthy = true on 503, want false")
	}
}

func TestPinger_DeadTargetIsNotFatal(t *testing.T) {
	alive := healthServer(t, "OK", http.StatusOK)

	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	p, _ := New(Config{Targets: []Target{
		{Name: "dead", URL: dead.URL},
		{Name: "alive", URL: alive.URL},
	}})

	// The round must complete and still check the remaining target.
	p.RunOnce(context.Background())

	results := p.Results()
	if results["dead"].Healthy {
		t.Error("dead target reported healthy")
	}
	if results["dead"].Error == "" {
		t.Error("dead target Error empty, want the connection failure recorded")
	}
	if !results["alive"].Healthy {
		t.Error("alive target not checked after the dead one")
	}
}

func TestPinger_CaseInsensitiveOK(t *testing.T) {
	srv := healthServer(t, "ok", http.StatusOK)

	p, _ := New(Config{Targets: []Target{{Name: "api", URL: srv.URL}}})
	p.RunOnce(context.Background())

	if !p.Results()["api"].Healthy {
		t.Error(`Healthy = false for status "ok", want case-insensitive match`)
	}
}

func TestPinger_ValidatesConfig(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Error("New() with no targets = nil, want error")
	}
	if _, err := New(Config{Targets: []Target{{Name: "x"}}}); err == nil {
		t.Error("New() with empty URL = nil, want error")
	}
}

func TestPinger_DoubleStartFails(t *testing.T) {
	srv := healthServer(t, "OK", http.StatusOK)

	p, _ := New(Config{
		Targets:  []Target{{Name: "api", URL: srv.URL}},
		Interval: time.Hour,
	})

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	defer p.Stop()

	if err := p.Start(ctx); err == nil {
		t.Error("second Start() = nil, want error")
	}
}

func TestPinger_RestartAfterStop(t *testing.T) {
	srv := healthServer(t, "OK", http.StatusOK)

	p, _ := New(Config{
		Targets:  []Target{{Name: "api", URL: srv.URL}},
		Interval: time.Hour,
	})

	ctx := context.Background()
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() error: %v", err)
	}
	p.Stop()

	// Stopping releases the running flag; a new schedule can start.
	if err := p.Start(ctx); err != nil {
		t.Fatalf("Start() after Stop error: %v", err)
	}
	p.Stop()
}

func TestPinger_AllHealthyRequiresResults(t *testing.T) {
	srv := healthServer(t, "OK", http.StatusOK)
	p, _ := New(Config{Targets: []Target{{Name: "api", URL: srv.URL}}})

	if p.AllHealthy() {
		t.Error("AllHealthy() = true before any round, want false")
	}
}
