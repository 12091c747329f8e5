// Package duration provides canonical time constants for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all time-based configuration.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.JobWait)
//	client := &http.Client{Timeout: duration.Webhook}
//
// DO NOT use hardcoded time.Duration values like `30 * time.Second` anywhere.
// Instead, reference the appropriate constant from this package.
package duration

import "time"

// ============================================================================
// HTTP SERVER
// ============================================================================

const (
	// ServerRead bounds request header+body reads (10s)
	ServerRead = 10 * time.Second

	// ServerWrite bounds response writes; stored PDFs can be large (60s)
	ServerWrite = 60 * time.Second

	// ServerIdle is the keep-alive idle timeout (90s)
	ServerIdle = 90 * time.Second

	// Shutdown is the graceful-stop grace period for the server and the
	// report queue (10s)
	Shutdown = 10 * time.Second
)

// ============================================================================
// REPORT GENERATION
// ============================================================================

const (
	// JobWait is how long the CLI and tests wait for an async report job
	// before giving up; wkhtmltopdf on a large report can take minutes (10min)
	JobWait = 10 * time.Minute

	// ChromeRender bounds one headless-Chrome print operation (60s)
	ChromeRender = 60 * time.Second
)

// ============================================================================
// NOTIFICATIONS
// ============================================================================

const (
	// Webhook is the per-attempt delivery timeout (10s)
	Webhook = 10 * time.Second

	// WebhookBackoff is the base delay between delivery attempts; each
	// retry doubles it (500ms)
	WebhookBackoff = 500 * time.Millisecond
)

// ============================================================================
// TELEMETRY
// ============================================================================

const (
	// TelemetryStartup bounds the OTLP exporter dial (5s)
	TelemetryStartup = 5 * time.Second

	// TelemetryShutdown bounds the final span flush (5s)
	TelemetryShutdown = 5 * time.Second
)
