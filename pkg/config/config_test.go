package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vulndesk/vulndesk/pkg/defaults"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Listen != defaults.ListenAddr {
		t.Errorf("got listen %q, want %q", cfg.Listen, defaults.ListenAddr)
	}
	if cfg.TeamName != defaults.TeamName {
		t.Errorf("got team name %q, want %q", cfg.TeamName, defaults.TeamName)
	}
	if cfg.ReportsDir != defaults.ReportsDir {
		t.Errorf("got reports dir %q, want %q", cfg.ReportsDir, defaults.ReportsDir)
	}
	if cfg.Queue.Workers != defaults.WorkersDefault {
		t.Errorf("got workers %d, want %d", cfg.Queue.Workers, defaults.WorkersDefault)
	}
	if cfg.Converter.Kind != ConverterWkhtmltopdf {
		t.Errorf("got converter kind %q, want %q", cfg.Converter.Kind, ConverterWkhtmltopdf)
	}

	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate, got: %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name        string
		content     string
		wantErr     error
		errContains string
		validate    func(t *testing.T, cfg Config)
	}{
		{
			name: "full config",
			content: `
listen: ":9090"
host: "https://vulndesk.example.com"
team_name: "AppSec"
reports_dir: "/var/lib/vulndesk/reports"
snapshot: "/var/lib/vulndesk/data.json"
log_level: debug
queue:
  workers: 8
converter:
  kind: chrome
  path: /usr/bin/chromium
webhook:
  url: "https://hooks.example.com/vulndesk"
telemetry:
  endpoint: "otel-collector:4317"
  insecure: true
`,
			validate: func(t *testing.T, cfg Config) {
				if cfg.Listen != ":9090" {
					t.Errorf("got listen %q, want %q", cfg.Listen, ":9090")
				}
				if cfg.Host != "https://vulndesk.example.com" {
					t.Errorf("got host %q", cfg.Host)
				}
				if cfg.TeamName != "AppSec" {
					t.Errorf("got team name %q, want %q", cfg.TeamName, "AppSec")
				}
				if cfg.Queue.Workers != 8 {
					t.Errorf("got workers %d, want 8", cfg.Queue.Workers)
				}
				if cfg.Converter.Kind != ConverterChrome {
					t.Errorf("got converter kind %q, want chrome", cfg.Converter.Kind)
				}
				if cfg.Converter.Path != "/usr/bin/chromium" {
					t.Errorf("got converter path %q", cfg.Converter.Path)
				}
				if cfg.Webhook.URL != "https://hooks.example.com/vulndesk" {
					t.Errorf("got webhook url %q", cfg.Webhook.URL)
				}
				if cfg.Telemetry.Endpoint != "otel-collector:4317" {
					t.Errorf("got telemetry endpoint %q", cfg.Telemetry.Endpoint)
				}
				if !cfg.Telemetry.Insecure {
					t.Error("telemetry.insecure should be true")
				}
			},
		},
		{
			name: "minimal config keeps defaults",
			content: `
host: "http://localhost:8080"
`,
			validate: func(t *testing.T, cfg Config) {
				if cfg.Host != "http://localhost:8080" {
					t.Errorf("got host %q", cfg.Host)
				}
				if cfg.Listen != defaults.ListenAddr {
					t.Errorf("listen should default, got %q", cfg.Listen)
				}
				if cfg.TeamName != defaults.TeamName {
					t.Errorf("team_name should default, got %q", cfg.TeamName)
				}
				if cfg.Queue.Workers != defaults.WorkersDefault {
					t.Errorf("workers should default, got %d", cfg.Queue.Workers)
				}
				if cfg.Converter.Kind != ConverterWkhtmltopdf {
					t.Errorf("converter kind should default, got %q", cfg.Converter.Kind)
				}
			},
		},
		{
			name:     "empty config",
			content:  "",
			validate: func(t *testing.T, cfg Config) {},
		},
		{
			name:        "invalid yaml",
			content:     "{{not yaml",
			wantErr:     ErrInvalidConfig,
			errContains: "invalid configuration",
		},
		{
			name: "unknown converter kind",
			content: `
converter:
  kind: ghostscript
`,
			wantErr:     ErrInvalidConfig,
			errContains: "converter.kind",
		},
		{
			name: "negative workers",
			content: `
queue:
  workers: -1
`,
			wantErr:     ErrInvalidConfig,
			errContains: "queue.workers",
		},
		{
			name: "bad webhook url",
			content: `
webhook:
  url: "ftp://hooks.example.com"
`,
			wantErr:     ErrInvalidConfig,
			errContains: "webhook.url",
		},
		{
			name: "bad log level",
			content: `
log_level: loud
`,
			wantErr:     ErrInvalidConfig,
			errContains: "log_level",
		},
		{
			name: "cleared listen",
			content: `
listen: ""
`,
			wantErr:     ErrMissingRequired,
			errContains: "listen",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Parse([]byte(tt.content))
			if tt.wantErr != nil {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("error %v should match %v", err, tt.wantErr)
				}
				if tt.errContains != "" && !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("error %q should contain %q", err.Error(), tt.errContains)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.validate != nil {
				tt.validate(t, cfg)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vulndesk.yaml")
	content := `
team_name: "Platform Security"
queue:
  workers: 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.TeamName != "Platform Security" {
		t.Errorf("got team name %q", cfg.TeamName)
	}
	if cfg.Queue.Workers != 2 {
		t.Errorf("got workers %d, want 2", cfg.Queue.Workers)
	}
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error should be ErrNotFound, got: %v", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := Default()
	cfg.Listen = ""
	cfg.Converter.Kind = "carrier-pigeon"
	cfg.Queue.Workers = -3

	err := cfg.Validate()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	for _, want := range []string{"listen", "converter.kind", "queue.workers"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q should mention %q", err.Error(), want)
		}
	}
	if !errors.Is(err, ErrMissingRequired) {
		t.Error("joined error should match ErrMissingRequired")
	}
	if !errors.Is(err, ErrInvalidConfig) {
		t.Error("joined error should match ErrInvalidConfig")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name    string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"INFO", slog.LevelInfo, false},
		{"debug", slog.LevelDebug, false},
		{"warn", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{" error ", slog.LevelError, false},
		{"loud", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseLogLevel(tt.name)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidConfig) {
					t.Errorf("error should be ErrInvalidConfig, got: %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
