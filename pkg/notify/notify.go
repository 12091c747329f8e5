// Package notify delivers report lifecycle events to interested
// channels: the application log, an optional HTTP webhook, or any
// combination via Fanout. Delivery failures are the notifier's problem;
// report generation never blocks on them.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/vulndesk/vulndesk/pkg/models"
)

// Kind identifies the event being delivered.
type Kind string

const (
	// KindReportReady fires when a report file is available for download.
	KindReportReady Kind = "report_ready"

	// KindReportFailed fires when report generation ends in error.
	KindReportFailed Kind = "report_failed"
)

// Event is the payload delivered to every notifier.
type Event struct {
	Kind      Kind      `json:"kind"`
	ReportID  int64     `json:"report_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	URL       string    `json:"url,omitempty"`
	Requester string    `json:"requester,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ReportReady builds the success event for a finished report.
func ReportReady(report *models.Report, url string) Event {
	ev := Event{
		Kind:      KindReportReady,
		ReportID:  report.ID,
		Title:     report.Name,
		Message:   "Your report is ready.",
		URL:       url,
		CreatedAt: time.Now().UTC(),
	}
	if report.Requester != nil {
		ev.Requester = report.Requester.Username
	}
	return ev
}

// ReportFailed builds the failure event for a report that could not be
// generated. The cause is summarized, not exposed verbatim.
func ReportFailed(report *models.Report) Event {
	ev := Event{
		Kind:      KindReportFailed,
		ReportID:  report.ID,
		Title:     report.Name,
		Message:   "There was an error generating your report.",
		CreatedAt: time.Now().UTC(),
	}
	if report.Requester != nil {
		ev.Requester = report.Requester.Username
	}
	return ev
}

// Notifier delivers a single event. Implementations must be safe for
// concurrent use.
type Notifier interface {
	Notify(ctx context.Context, ev Event) error
}

// Compile-time interface checks.
var (
	_ Notifier = (*LogNotifier)(nil)
	_ Notifier = (*Fanout)(nil)
	_ Notifier = (*Recorder)(nil)
)

// LogNotifier writes events to the structured log. It is the default
// channel when no webhook is configured.
type LogNotifier struct {
	Log *slog.Logger
}

// Notify logs the event and never fails.
func (n *LogNotifier) Notify(ctx context.Context, ev Event) error {
	log := n.Log
	if log == nil {
		log = slog.Default()
	}

	attrs := []any{
		"kind", string(ev.Kind),
		"report_id", ev.ReportID,
		"title", ev.Title,
	}
	if ev.Requester != "" {
		attrs = append(attrs, "requester", ev.Requester)
	}
	if ev.URL != "" {
		attrs = append(attrs, "url", ev.URL)
	}

	if ev.Kind == KindReportFailed {
		log.WarnContext(ctx, ev.Message, attrs...)
	} else {
		log.InfoContext(ctx, ev.Message, attrs...)
	}
	return nil
}

// Fanout delivers each event to every child notifier. All children are
// attempted even when earlier ones fail; errors are joined.
type Fanout []Notifier

// Notify delivers ev to all children.
func (f Fanout) Notify(ctx context.Context, ev Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
