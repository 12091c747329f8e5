// Package defaults provides canonical default values for the entire codebase.
// This is the SINGLE SOURCE OF TRUTH for all runtime configuration defaults.
//
// Usage:
//
//	cfg.Workers = defaults.WorkersDefault
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
//
// DO NOT use hardcoded values like `Workers: 4` anywhere.
// Instead, reference the appropriate constant from this package.
package defaults

import "fmt"

// Version is the current vulndesk version.
const Version = "1.3.0"

// ToolName is the canonical binary and user-agent name.
const ToolName = "vulndesk"

// TeamName is the report byline used when the config leaves it unset.
const TeamName = "Security Engineering"

// ============================================================================
// WORKER POOL SETTINGS
// ============================================================================
//
// Use these for the report queue and any parallel generation paths.
// ============================================================================

const (
	// WorkersMinimal runs generation strictly sequentially (1)
	WorkersMinimal = 1

	// WorkersDefault is the standard queue size for one converter binary (4)
	WorkersDefault = 4

	// WorkersMax caps the queue; wkhtmltopdf is memory-hungry (16)
	WorkersMax = 16

	// QueueDepth is the buffered job backlog before Enqueue blocks (64)
	QueueDepth = 64
)

// ============================================================================
// RETRY SETTINGS
// ============================================================================

const (
	// RetryNone disables retries (0)
	RetryNone = 0

	// RetryWebhook is the delivery attempt count for notifications (3)
	RetryWebhook = 3
)

// ============================================================================
// BUFFER SIZES
// ============================================================================
//
// Use these for byte buffers, slices, and I/O operations.
// ============================================================================

const (
	// BufferSmall is for typical reads (4KB)
	BufferSmall = 4 * 1024

	// BufferMedium is the io.CopyBuffer size for stored report files (32KB)
	BufferMedium = 32 * 1024

	// BufferLarge is for bulk reads (64KB)
	BufferLarge = 64 * 1024

	// MaxRequestBody caps API request bodies (1MB)
	MaxRequestBody = 1024 * 1024
)

// ============================================================================
// HTTP CONTENT TYPES
// ============================================================================
//
// Use these for Content-Type headers and renderer format keys.
// ============================================================================

const (
	// ContentTypeJSON is application/json
	ContentTypeJSON = "application/json"

	// ContentTypePlain is text/plain
	ContentTypePlain = "text/plain"

	// ContentTypeHTML is text/html
	ContentTypeHTML = "text/html"

	// ContentTypePDF is application/pdf
	ContentTypePDF = "application/pdf"

	// ContentTypeOctetStream is application/octet-stream
	ContentTypeOctetStream = "application/octet-stream"
)

// ============================================================================
// REPORT GENERATION
// ============================================================================

const (
	// ConvertMaxDepth bounds native-type conversion recursion; the record
	// graph is shallow, anything deeper is a cycle (16)
	ConvertMaxDepth = 16

	// TOCDepthDefault is the heading depth of a generated table of
	// contents (4)
	TOCDepthDefault = 4

	// ReportsDir is the default directory for stored report files
	ReportsDir = "reports"

	// ListenAddr is the default API listen address
	ListenAddr = ":8080"
)

// ============================================================================
// FILESYSTEM PERMISSIONS
// ============================================================================

const (
	// DirPerm is the mode for created directories
	DirPerm = 0o755

	// FilePerm is the mode for stored report files
	FilePerm = 0o644
)

// UserAgent returns the vulndesk user agent with context.
func UserAgent(context string) string {
	if context == "" {
		return ToolName + "/" + Version
	}
	return fmt.Sprintf("%s/%s (%s)", ToolName, Version, context)
}
