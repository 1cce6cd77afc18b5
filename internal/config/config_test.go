package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CREDOSAFE_API_URL", "https://api.credosafe.com/api")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.APIBaseURL != "https://api.credosafe.com/api" {
		t.Errorf("APIBaseURL = %q", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 30*time.Second {
		t.Errorf("HTTPTimeout = %v, want 30s", cfg.HTTPTimeout)
	}
	if cfg.IdleTimeout != 5*time.Minute {
		t.Errorf("IdleTimeout = %v, want 5m", cfg.IdleTimeout)
	}
	if cfg.ChatPollInterval != 3*time.Second {
		t.Errorf("ChatPollInterval = %v, want 3s", cfg.ChatPollInterval)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.HealthInterval != 3*time.Minute {
		t.Errorf("HealthInterval = %v, want 3m", cfg.HealthInterval)
	}
}

func TestLoad_RejectsNonHTTPURL(t *testing.T) {
	t.Setenv("CREDOSAFE_API_URL", "ftp://api.credosafe.com")

	if _, err := Load(); err == nil {
		t.Error("Load() = nil with ftp URL, want error")
	}
}

func TestLoad_EmptyURLIsAllowed(t *testing.T) {
	t.Setenv("CREDOSAFE_API_URL", "")
	os.Unsetenv("CREDOSAFE_API_URL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if err := cfg.RequireAPI(); err == nil {
		t.Error("RequireAPI() = nil with no URL, want error")
	}
}

func TestLoadFile_EnvFillsGaps(t *testing.T) {
	t.Setenv("CREDOSAFE_API_URL", "https://env.credosafe.com/api")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("idle_timeout: 10m\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}

	if cfg.IdleTimeout != 10*time.Minute {
		t.Errorf("IdleTimeout = %v, want the file's 10m", cfg.IdleTimeout)
	}
	if cfg.APIBaseURL != "https://env.credosafe.com/api" {
		t.Errorf("APIBaseURL = %q, want the environment's value filling the gap", cfg.APIBaseURL)
	}
}

func TestLoadFile_FileWinsOverEnv(t *testing.T) {
	t.Setenv("CREDOSAFE_API_URL", "https://env.credosafe.com/api")

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("api_base_url: https://file.credosafe.com/api\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error: %v", err)
	}
	if cfg.APIBaseURL != "https://file.credosafe.com/api" {
		t.Errorf("APIBaseURL = %q, want the file's value", cfg.APIBaseURL)
	}
}

func TestTargets_Parsing(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []Target
	}{
		{
			name: "named pairs",
			in:   "api=https://api.credosafe.com,web=https://credosafe.com",
			want: []Target{
				{Name: "api", URL: "https://api.credosafe.com"},
				{Name: "web", URL: "https://credosafe.com"},
			},
		},
		{
			name: "bare url takes itself as name",
			in:   "https://api.credosafe.com",
			want: []Target{{Name: "https://api.credosafe.com", URL: "https://api.credosafe.com"}},
		},
		{
			name: "whitespace and empty entries skipped",
			in:   " api=https://api.credosafe.com , ,",
			want: []Target{{Name: "api", URL: "https://api.credosafe.com"}},
		},
		{
			name: "empty",
			in:   "",
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{HealthTargets: tt.in}
			got := cfg.Targets()
			if len(got) != len(tt.want) {
				t.Fatalf("Targets() = %+v, want %+v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("Targets()[%d] = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestValidate_NegativeDurations(t *testing.T) {
	cfg := Config{IdleTimeout: -time.Minute}
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil with negative duration, want error")
	}
}
