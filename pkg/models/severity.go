package models

import "strings"

// Severity represents the severity level of a tracked finding.
// Values are title-case strings as they appear in reports.
type Severity string

const (
	// SeverityCritical represents immediate compromise (RCE, auth bypass).
	SeverityCritical Severity = "Critical"

	// SeverityHigh represents significant impact requiring prompt fix.
	SeverityHigh Severity = "High"

	// SeverityMedium represents moderate impact.
	SeverityMedium Severity = "Medium"

	// SeverityLow represents limited impact.
	SeverityLow Severity = "Low"

	// SeverityInfo represents informational findings with no direct impact.
	SeverityInfo Severity = "Informational"
)

// Severities returns all severity levels in descending order of impact.
// Reports and month buckets iterate this order.
func Severities() []Severity {
	return []Severity{SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo}
}

// IsValid reports whether s is a recognized severity level.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow, SeverityInfo:
		return true
	}
	return false
}

// Score returns a numeric score for sorting and comparison.
// Critical=5, High=4, Medium=3, Low=2, Informational=1, unknown=0.
func (s Severity) Score() int {
	switch s {
	case SeverityCritical:
		return 5
	case SeverityHigh:
		return 4
	case SeverityMedium:
		return 3
	case SeverityLow:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// String returns the severity as a string.
func (s Severity) String() string {
	return string(s)
}

// ParseSeverity normalizes free-form input ("high", "HIGH", "info") to a
// canonical Severity. Unrecognized input returns the empty Severity.
func ParseSeverity(raw string) Severity {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "critical":
		return SeverityCritical
	case "high":
		return SeverityHigh
	case "medium":
		return SeverityMedium
	case "low":
		return SeverityLow
	case "info", "informational":
		return SeverityInfo
	}
	return ""
}
