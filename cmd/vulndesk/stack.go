package main

import (
	"context"
	"log/slog"

	"github.com/vulndesk/vulndesk/pkg/config"
	"github.com/vulndesk/vulndesk/pkg/filestore"
	"github.com/vulndesk/vulndesk/pkg/htmltopdf"
	"github.com/vulndesk/vulndesk/pkg/metrics"
	"github.com/vulndesk/vulndesk/pkg/notify"
	"github.com/vulndesk/vulndesk/pkg/queue"
	"github.com/vulndesk/vulndesk/pkg/report"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/pkg/store/memstore"
	"github.com/vulndesk/vulndesk/pkg/telemetry"
	"github.com/vulndesk/vulndesk/templates"
)

// stack is the fully wired report engine plus everything serve and
// generate need around it.
type stack struct {
	Store     store.Store
	Files     *filestore.Store
	Templates *templates.Engine
	Metrics   *metrics.Metrics
	Queue     *queue.Queue
	Engine    *report.Engine

	telemetry *telemetry.Provider
	log       *slog.Logger
}

// buildStack opens the store and wires the engine per the configuration.
// Errors carry their exit code.
func buildStack(ctx context.Context, cfg config.Config, log *slog.Logger) (*stack, error) {
	st, err := openStore(cfg, log)
	if err != nil {
		return nil, err
	}

	tmpl, err := templates.New()
	if err != nil {
		return nil, internalErr(err)
	}

	files, err := filestore.New(cfg.ReportsDir)
	if err != nil {
		return nil, ioErr(err)
	}

	var provider *telemetry.Provider
	if cfg.Telemetry.Endpoint != "" {
		provider, err = telemetry.New(ctx, telemetry.Options{
			Endpoint: cfg.Telemetry.Endpoint,
			Insecure: cfg.Telemetry.Insecure,
		})
		if err != nil {
			return nil, ioErr(err)
		}
		log.Info("telemetry enabled", "endpoint", provider.Endpoint())
	}

	var notifier notify.Notifier = &notify.LogNotifier{Log: log}
	if cfg.Webhook.URL != "" {
		notifier = notify.Fanout{notifier, notify.NewWebhookNotifier(cfg.Webhook.URL, notify.WebhookOptions{})}
		log.Info("webhook notifications enabled", "url", cfg.Webhook.URL)
	}

	q := queue.New(cfg.Queue.Workers, log)
	m := metrics.New()

	eng, err := report.NewEngine(report.Config{Host: cfg.Host, TeamName: cfg.TeamName}, report.Deps{
		Store:     st,
		Templates: tmpl,
		Queue:     q,
		Files:     files,
		Converter: converterFor(cfg.Converter),
		Notifier:  notifier,
		Metrics:   m,
		Log:       log,
	})
	if err != nil {
		q.Close()
		if provider != nil {
			_ = provider.Shutdown(context.Background())
		}
		return nil, internalErr(err)
	}

	return &stack{
		Store:     st,
		Files:     files,
		Templates: tmpl,
		Metrics:   m,
		Queue:     q,
		Engine:    eng,
		telemetry: provider,
		log:       log,
	}, nil
}

// Close drains in-flight report jobs, then flushes telemetry.
func (s *stack) Close() {
	s.Queue.Close()
	if err := s.telemetry.Shutdown(context.Background()); err != nil {
		s.log.Warn("telemetry shutdown", "error", err)
	}
}

// openStore loads the configured snapshot, or the built-in sample
// dataset when none is configured.
func openStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.Snapshot == "" {
		log.Info("no snapshot configured, serving the built-in sample dataset")
		return memstore.Sample(), nil
	}
	st, err := memstore.LoadSnapshot(cfg.Snapshot)
	if err != nil {
		return nil, ioErr(err)
	}
	log.Info("snapshot loaded", "path", cfg.Snapshot)
	return st, nil
}

// converterFor maps the configured backend to a converter. Validation
// already rejected unknown kinds; the zero kind means wkhtmltopdf.
func converterFor(cc config.ConverterConfig) htmltopdf.Converter {
	switch cc.Kind {
	case config.ConverterChrome:
		return &htmltopdf.Chrome{ExecPath: cc.Path}
	case config.ConverterLocal:
		return &htmltopdf.Local{}
	default:
		return &htmltopdf.Wkhtmltopdf{Path: cc.Path}
	}
}
