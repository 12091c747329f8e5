package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/vulndesk/vulndesk/pkg/bufpool"
	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/filestore"
	"github.com/vulndesk/vulndesk/pkg/htmltopdf"
	"github.com/vulndesk/vulndesk/pkg/jsonutil"
	"github.com/vulndesk/vulndesk/pkg/metrics"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/notify"
	"github.com/vulndesk/vulndesk/pkg/queue"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/templates"
)

// PDFTask is the worker body that turns a populated view into a stored
// PDF file. Every failure is contained: the Report row is flipped to its
// terminal state and exactly one notification goes out, whether the task
// succeeds or not. The returned error only feeds the queue's bookkeeping.
type PDFTask struct {
	Store     store.Store
	Files     *filestore.Store
	Templates *templates.Engine
	Converter htmltopdf.Converter
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Tracer    trace.Tracer

	// Host is the external base URL for the cover page and the download
	// link in the ready notification.
	Host string

	Log *slog.Logger
}

// newPDFTask builds the task from the engine's wiring.
func (e *Engine) newPDFTask() *PDFTask {
	return &PDFTask{
		Store:     e.store,
		Files:     e.files,
		Templates: e.templates,
		Converter: e.converter,
		Notifier:  e.notifier,
		Metrics:   e.metrics,
		Tracer:    e.tracer,
		Host:      e.cfg.Host,
		Log:       e.log,
	}
}

// PDFRequest is the unit of work handed to Run.
type PDFRequest struct {
	Report   *models.Report
	View     *View
	Filename string
}

func (t *PDFTask) logger() *slog.Logger {
	if t.Log != nil {
		return t.Log
	}
	return slog.Default()
}

func (t *PDFTask) tracer() trace.Tracer {
	if t.Tracer != nil {
		return t.Tracer
	}
	return otel.Tracer(instrumentation)
}

// Run generates the standard scope report PDF. taskID is the queue job ID
// and is persisted on the row before any work happens, so operators can
// tie a stuck row back to its job.
func (t *PDFTask) Run(ctx context.Context, taskID string, req PDFRequest) error {
	ctx, span := t.tracer().Start(ctx, "report.pdf_task", trace.WithAttributes(
		attribute.String("report.scope", string(req.View.Scope)),
		attribute.Int64("report.id", req.Report.ID),
	))
	defer span.End()

	log := t.logger().With(
		"report_id", req.Report.ID,
		"task_id", taskID,
		"scope", string(req.View.Scope),
	)

	req.Report.TaskID = taskID
	if err := t.Store.UpdateReport(ctx, req.Report); err != nil {
		return t.fail(ctx, log, req.Report, req.View.Scope, fmt.Errorf("record task id: %w", err))
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	if err := t.Templates.HTML(buf, string(req.View.Scope), req.View.Context); err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			err = fmt.Errorf("%w: %s", ErrNoTemplate, req.View.Scope)
		}
		return t.fail(ctx, log, req.Report, req.View.Scope, err)
	}

	rc := req.View.Context
	opts := htmltopdf.Options{
		CoverURL:   t.coverURL(rc.Title, rc.Subtitle, rc.Parameters["info"]),
		CoverFirst: true,
	}
	if rc.Include.TableOfContents {
		path, release, err := writeStylesheet(t.Templates.TOCStylesheet())
		if err != nil {
			return t.fail(ctx, log, req.Report, req.View.Scope, err)
		}
		defer release()
		opts.TOCStylesheet = path
	}

	pdf, err := t.convert(ctx, buf.Bytes(), opts)
	if err != nil {
		return t.fail(ctx, log, req.Report, req.View.Scope, err)
	}
	return t.succeed(ctx, log, req.Report, req.View.Scope, req.Filename, pdf)
}

// CustomSection is one block of a user-assembled report. Kind selects the
// layout; Body is used by text sections and FindingIDs by findings
// sections.
type CustomSection struct {
	Kind       string  `json:"kind"`
	Title      string  `json:"title,omitempty"`
	Body       string  `json:"body,omitempty"`
	FindingIDs []int64 `json:"finding_ids,omitempty"`
}

// Section kinds understood by the custom report template.
const (
	SectionHeading  = "heading"
	SectionText     = "text"
	SectionFindings = "findings"
)

// CoverOptions parameterize the optional cover page of a custom report.
type CoverOptions struct {
	Title    string `json:"title,omitempty"`
	Subtitle string `json:"subtitle,omitempty"`
	Info     string `json:"info,omitempty"`
}

// TOCOptions parameterize the table-of-contents stylesheet of a custom
// report.
type TOCOptions struct {
	Header string `json:"header,omitempty"`
	Depth  int    `json:"depth,omitempty"`
}

// CustomOptions is the options blob stored on a custom report's row.
type CustomOptions struct {
	Sections   []CustomSection `json:"sections"`
	Cover      *CoverOptions   `json:"cover,omitempty"`
	CoverFirst bool            `json:"cover_first,omitempty"`
	TOC        *TOCOptions     `json:"toc,omitempty"`
}

// customView feeds the custom HTML template.
type customView struct {
	Title    string
	TeamName string
	User     *models.User
	Sections []customSection
}

type customSection struct {
	Kind     string
	Title    string
	Body     string
	Findings []models.Finding
}

// RunCustom generates a user-assembled PDF from the options blob on the
// report row. Findings referenced by sections are re-resolved under the
// requester's visibility. Same containment contract as Run.
func (t *PDFTask) RunCustom(ctx context.Context, taskID string, rep *models.Report, teamName string) error {
	ctx, span := t.tracer().Start(ctx, "report.pdf_task", trace.WithAttributes(
		attribute.String("report.scope", "custom"),
		attribute.Int64("report.id", rep.ID),
	))
	defer span.End()

	log := t.logger().With("report_id", rep.ID, "task_id", taskID, "scope", "custom")

	rep.TaskID = taskID
	if err := t.Store.UpdateReport(ctx, rep); err != nil {
		return t.fail(ctx, log, rep, "custom", fmt.Errorf("record task id: %w", err))
	}

	var opts CustomOptions
	if err := jsonutil.Unmarshal([]byte(rep.Options), &opts); err != nil {
		return t.fail(ctx, log, rep, "custom", fmt.Errorf("decode options: %w", err))
	}

	view := customView{Title: rep.Name, TeamName: teamName, User: rep.Requester}
	if view.TeamName == "" {
		view.TeamName = defaults.TeamName
	}
	for _, s := range opts.Sections {
		cs := customSection{Kind: s.Kind, Title: s.Title, Body: s.Body}
		if s.Kind == SectionFindings && len(s.FindingIDs) > 0 {
			findings, err := t.Store.Findings(ctx, store.FindingQuery{
				IDs:              s.FindingIDs,
				AuthorizedUserID: requesterVisibility(rep.Requester),
			})
			if err != nil {
				return t.fail(ctx, log, rep, "custom", fmt.Errorf("resolve section findings: %w", err))
			}
			cs.Findings = findings
		}
		view.Sections = append(view.Sections, cs)
	}

	buf := bufpool.Get()
	defer bufpool.Put(buf)
	if err := t.Templates.HTML(buf, "custom", view); err != nil {
		return t.fail(ctx, log, rep, "custom", err)
	}

	var convOpts htmltopdf.Options
	if opts.Cover != nil {
		title := opts.Cover.Title
		if title == "" {
			title = rep.Name
		}
		convOpts.CoverURL = t.coverURL(title, opts.Cover.Subtitle, opts.Cover.Info)
		convOpts.CoverFirst = opts.CoverFirst
	}
	if opts.TOC != nil {
		sheet := bufpool.Get()
		defer bufpool.Put(sheet)
		if err := t.Templates.RenderTOCStylesheet(sheet, opts.TOC.Header, opts.TOC.Depth); err != nil {
			return t.fail(ctx, log, rep, "custom", fmt.Errorf("render toc stylesheet: %w", err))
		}
		path, release, err := writeStylesheet(sheet.Bytes())
		if err != nil {
			return t.fail(ctx, log, rep, "custom", err)
		}
		defer release()
		convOpts.TOCStylesheet = path
	}

	pdf, err := t.convert(ctx, buf.Bytes(), convOpts)
	if err != nil {
		return t.fail(ctx, log, rep, "custom", err)
	}
	return t.succeed(ctx, log, rep, "custom", "custom_report.pdf", pdf)
}

func (t *PDFTask) convert(ctx context.Context, html []byte, opts htmltopdf.Options) ([]byte, error) {
	start := time.Now()
	pdf, err := t.Converter.Convert(ctx, html, opts)
	t.Metrics.ObserveConvert(time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("convert html: %w", err)
	}
	return pdf, nil
}

// coverURL builds the address the converter fetches for the cover page.
func (t *PDFTask) coverURL(title, subtitle, info string) string {
	if t.Host == "" {
		return ""
	}
	q := url.Values{}
	q.Set("title", title)
	q.Set("subtitle", subtitle)
	q.Set("info", info)
	return t.Host + "/reports/cover?" + q.Encode()
}

func (t *PDFTask) succeed(ctx context.Context, log *slog.Logger, rep *models.Report, scope Scope, filename string, pdf []byte) error {
	rel, err := t.Files.Save(filename, bytes.NewReader(pdf))
	if err != nil {
		return t.fail(ctx, log, rep, scope, fmt.Errorf("store pdf: %w", err))
	}
	if err := rep.MarkSuccess(rel, time.Now().UTC()); err != nil {
		return t.fail(ctx, log, rep, scope, err)
	}
	if err := t.Store.UpdateReport(ctx, rep); err != nil {
		log.Error("persist finished report", "error", err)
	}
	t.Metrics.ReportGenerated(string(scope), string(FormatPDF), "success")

	downloadURL := ""
	if t.Host != "" {
		downloadURL = t.Host + "/api/v1/reports/" + formatID(rep.ID) + "/download"
	}
	t.send(ctx, log, notify.ReportReady(rep, downloadURL))

	log.Info("pdf report ready", "file", rel, "bytes", len(pdf))
	return nil
}

// fail flips the row to error, alerts once, and hands the cause back to
// the queue. Nothing is re-raised past the job.
func (t *PDFTask) fail(ctx context.Context, log *slog.Logger, rep *models.Report, scope Scope, cause error) error {
	if htmltopdf.IsNotInstalled(cause) {
		log.Error("pdf converter unavailable, check that the converter binary is installed and its configured path is correct",
			"error", cause)
	} else {
		log.Error("pdf report failed", "error", cause)
	}

	if err := rep.MarkError(); err != nil {
		log.Error("mark report errored", "error", err)
	}
	if err := t.Store.UpdateReport(ctx, rep); err != nil {
		log.Error("persist errored report", "error", err)
	}
	t.Metrics.ReportGenerated(string(scope), string(FormatPDF), "error")
	t.send(ctx, log, notify.ReportFailed(rep))

	return fmt.Errorf("report: pdf task: %w", cause)
}

func (t *PDFTask) send(ctx context.Context, log *slog.Logger, ev notify.Event) {
	if t.Notifier == nil {
		return
	}
	if err := t.Notifier.Notify(ctx, ev); err != nil {
		t.Metrics.NotificationSent(string(ev.Kind), "error")
		log.Error("send notification", "kind", string(ev.Kind), "error", err)
		return
	}
	t.Metrics.NotificationSent(string(ev.Kind), "success")
}

// requesterVisibility mirrors the ad-hoc report rule: staff see all
// findings, everyone else only their authorized products.
func requesterVisibility(u *models.User) int64 {
	if u == nil {
		return 0
	}
	if u.IsStaff {
		return 0
	}
	return u.ID
}

// writeStylesheet materializes a stylesheet to a temp file for converters
// that only accept file paths. release removes the file and is safe to
// call exactly once on every exit path.
func writeStylesheet(data []byte) (path string, release func(), err error) {
	f, err := os.CreateTemp("", "vulndesk-toc-*.xsl")
	if err != nil {
		return "", nil, fmt.Errorf("toc stylesheet: %w", err)
	}
	_, werr := f.Write(data)
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(f.Name())
		return "", nil, fmt.Errorf("toc stylesheet: %w", errors.Join(werr, cerr))
	}
	return f.Name(), func() { os.Remove(f.Name()) }, nil
}

// GenerateCustom persists a pending custom report row and queues its
// build. The options blob is stored on the row, so a failed row can be
// retried with the same content.
func (e *Engine) GenerateCustom(ctx context.Context, name string, requester *models.User, opts CustomOptions) (*Output, error) {
	if e.queue == nil || e.files == nil || e.converter == nil {
		return nil, fmt.Errorf("report: pdf pipeline not configured")
	}
	if name == "" {
		name = "Custom Report"
	}

	blob, err := jsonutil.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("report: encode custom options: %w", err)
	}
	rep := models.NewReport(name, "custom", "PDF", requester, string(blob))
	if err := e.store.CreateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("report: create report row: %w", err)
	}

	task := e.newPDFTask()
	teamName := e.cfg.TeamName
	job, err := e.queue.Enqueue("custom pdf report "+formatID(rep.ID), func(ctx context.Context, job *queue.Job) error {
		return task.RunCustom(ctx, job.ID, rep, teamName)
	})
	if err != nil {
		if merr := rep.MarkError(); merr == nil {
			if uerr := e.store.UpdateReport(ctx, rep); uerr != nil {
				e.log.Error("update report row", "report_id", rep.ID, "error", uerr)
			}
		}
		return nil, fmt.Errorf("report: enqueue pdf job: %w", err)
	}
	return &Output{Format: FormatPDF, Report: rep, Job: job}, nil
}
