package report

import (
	"time"

	"github.com/vulndesk/vulndesk/pkg/models"
)

// MonthBucket is one month-long window of finding activity. Month is the
// window's start day; windows are anchored at the earliest finding's date,
// not at calendar month boundaries.
type MonthBucket struct {
	Month    models.Date `json:"month"`
	Opened   int         `json:"opened"`
	Critical int         `json:"critical"`
	High     int         `json:"high"`
	Medium   int         `json:"medium"`
	Low      int         `json:"low"`
	Info     int         `json:"info"`
	Closed   int         `json:"closed"`
}

// OpenedPerMonth buckets findings into month windows from the earliest
// finding's date through now. A finding counts as opened in the window
// holding its date and as closed in the window holding its mitigation
// time. The current partial month is always included; no findings means
// no buckets.
func OpenedPerMonth(findings []models.Finding, now time.Time) []MonthBucket {
	if len(findings) == 0 {
		return nil
	}
	start := findings[0].Date.Time
	for _, f := range findings[1:] {
		if f.Date.Time.Before(start) {
			start = f.Date.Time
		}
	}

	months := monthsBetween(start, now) + 1
	buckets := make([]MonthBucket, 0, months)
	for i := range months {
		from := start.AddDate(0, i, 0)
		to := start.AddDate(0, i+1, 0)
		b := MonthBucket{Month: models.DateOf(from)}
		for _, f := range findings {
			if inWindow(f.Date.Time, from, to) {
				b.Opened++
				switch f.Severity {
				case models.SeverityCritical:
					b.Critical++
				case models.SeverityHigh:
					b.High++
				case models.SeverityMedium:
					b.Medium++
				case models.SeverityLow:
					b.Low++
				case models.SeverityInfo:
					b.Info++
				}
			}
			if f.Mitigated != nil && inWindow(*f.Mitigated, from, to) {
				b.Closed++
			}
		}
		buckets = append(buckets, b)
	}
	return buckets
}

// inWindow reports whether t falls in [from, to). Half-open windows keep
// boundary findings out of two adjacent buckets.
func inWindow(t, from, to time.Time) bool {
	return !t.Before(from) && t.Before(to)
}

// monthsBetween counts whole months from start to end, ignoring the time
// of day. A partial trailing month does not count.
func monthsBetween(start, end time.Time) int {
	if !start.Before(end) {
		return 0
	}
	months := (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month())
	if end.Day() < start.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
