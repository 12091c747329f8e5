// Package config loads the vulndesk runtime configuration from a YAML
// file. Every field has a usable default, so a deployment can start with
// no file at all and tighten settings incrementally.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vulndesk/vulndesk/pkg/defaults"
)

// Converter kinds accepted by the converter.kind setting.
const (
	ConverterWkhtmltopdf = "wkhtmltopdf"
	ConverterChrome      = "chrome"
	ConverterLocal       = "local"
)

// Config is the full runtime configuration.
type Config struct {
	// Listen is the API listen address.
	Listen string `yaml:"listen"`

	// Host is the externally reachable base URL stamped into cover pages
	// and download links. Empty disables both.
	Host string `yaml:"host"`

	// TeamName is the report byline.
	TeamName string `yaml:"team_name"`

	// ReportsDir is where generated report files land.
	ReportsDir string `yaml:"reports_dir"`

	// Snapshot is a store snapshot file to serve from. Empty runs
	// against the built-in sample dataset.
	Snapshot string `yaml:"snapshot"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	Queue     QueueConfig     `yaml:"queue"`
	Converter ConverterConfig `yaml:"converter"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// QueueConfig sizes the background report queue.
type QueueConfig struct {
	// Workers is the PDF worker count. The queue clamps out-of-range
	// values to its own bounds.
	Workers int `yaml:"workers"`
}

// ConverterConfig selects the HTML-to-PDF backend.
type ConverterConfig struct {
	// Kind is wkhtmltopdf, chrome, or local.
	Kind string `yaml:"kind"`

	// Path overrides the converter binary location. The local backend
	// ignores it.
	Path string `yaml:"path"`
}

// WebhookConfig points report notifications at an HTTP receiver.
type WebhookConfig struct {
	// URL receives a JSON event per finished report. Empty disables
	// webhook delivery.
	URL string `yaml:"url"`
}

// TelemetryConfig points trace export at an OTLP collector.
type TelemetryConfig struct {
	// Endpoint is the OTLP/gRPC address. Empty disables tracing.
	Endpoint string `yaml:"endpoint"`

	// Insecure skips TLS toward the collector.
	Insecure bool `yaml:"insecure"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Listen:     defaults.ListenAddr,
		TeamName:   defaults.TeamName,
		ReportsDir: defaults.ReportsDir,
		LogLevel:   "info",
		Queue:      QueueConfig{Workers: defaults.WorkersDefault},
		Converter:  ConverterConfig{Kind: ConverterWkhtmltopdf},
	}
}

// Load reads and validates a configuration file. A missing file is
// reported as ErrNotFound so callers can fall back to Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Config{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML over the defaults and validates the result.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, fmt.Errorf("%w: listen", ErrMissingRequired))
	}
	if c.ReportsDir == "" {
		errs = append(errs, fmt.Errorf("%w: reports_dir", ErrMissingRequired))
	}
	if c.Queue.Workers < 0 {
		errs = append(errs, fmt.Errorf("%w: queue.workers must not be negative", ErrInvalidConfig))
	}
	switch c.Converter.Kind {
	case ConverterWkhtmltopdf, ConverterChrome, ConverterLocal:
	default:
		errs = append(errs, fmt.Errorf("%w: converter.kind %q (want %s, %s or %s)",
			ErrInvalidConfig, c.Converter.Kind, ConverterWkhtmltopdf, ConverterChrome, ConverterLocal))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	if c.Webhook.URL != "" {
		u, err := url.Parse(c.Webhook.URL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			errs = append(errs, fmt.Errorf("%w: webhook.url %q must be an http(s) URL", ErrInvalidConfig, c.Webhook.URL))
		}
	}

	return errors.Join(errs...)
}

// ParseLogLevel maps a configured level name to a slog level.
func ParseLogLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "info":
		return slog.LevelInfo, nil
	case "debug":
		return slog.LevelDebug, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("%w: log_level %q", ErrInvalidConfig, name)
}
