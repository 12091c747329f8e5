// Package metrics collects the report pipeline's Prometheus metrics on a
// private registry, served through the API's /metrics endpoint. A nil
// *Metrics is a no-op everywhere, so instrumented code never guards.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline collectors. Create one per process with New.
type Metrics struct {
	registry *prometheus.Registry

	reportsGenerated  *prometheus.CounterVec
	renderSeconds     *prometheus.HistogramVec
	convertSeconds    prometheus.Histogram
	notificationsSent *prometheus.CounterVec
}

// New registers the collectors on a fresh registry, keeping the process's
// default registry untouched.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		reportsGenerated: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vulndesk_reports_generated_total",
				Help: "Reports generated, by scope, format and outcome",
			},
			[]string{"scope", "format", "status"},
		),
		renderSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "vulndesk_report_render_seconds",
				Help:    "Render duration per scope and format",
				Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"scope", "format"},
		),
		convertSeconds: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "vulndesk_pdf_convert_seconds",
				Help:    "HTML to PDF conversion duration",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
			},
		),
		notificationsSent: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "vulndesk_notifications_sent_total",
				Help: "Notification deliveries, by kind and outcome",
			},
			[]string{"kind", "outcome"},
		),
	}

	m.registry.MustRegister(
		m.reportsGenerated,
		m.renderSeconds,
		m.convertSeconds,
		m.notificationsSent,
	)
	return m
}

// Registry exposes the private registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

// ReportGenerated counts one finished report generation.
func (m *Metrics) ReportGenerated(scope, format, status string) {
	if m == nil {
		return
	}
	m.reportsGenerated.WithLabelValues(scope, format, status).Inc()
}

// ObserveRender records one render duration.
func (m *Metrics) ObserveRender(scope, format string, d time.Duration) {
	if m == nil {
		return
	}
	m.renderSeconds.WithLabelValues(scope, format).Observe(d.Seconds())
}

// ObserveConvert records one HTML to PDF conversion duration.
func (m *Metrics) ObserveConvert(d time.Duration) {
	if m == nil {
		return
	}
	m.convertSeconds.Observe(d.Seconds())
}

// NotificationSent counts one notification delivery attempt.
func (m *Metrics) NotificationSent(kind, outcome string) {
	if m == nil {
		return
	}
	m.notificationsSent.WithLabelValues(kind, outcome).Inc()
}
