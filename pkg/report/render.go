package report

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/vulndesk/vulndesk/pkg/bufpool"
	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/jsonutil"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/queue"
	"github.com/vulndesk/vulndesk/templates"
)

// Format is the MIME type a report renders to.
type Format string

const (
	FormatJSON Format = defaults.ContentTypeJSON
	FormatText Format = defaults.ContentTypePlain
	FormatPDF  Format = defaults.ContentTypePDF
)

// ParseFormat resolves a format from its MIME type or the short names
// "json", "text" and "pdf". Unknown formats are ErrUnsupportedFormat.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "json", string(FormatJSON):
		return FormatJSON, nil
	case "text", "txt", string(FormatText):
		return FormatText, nil
	case "pdf", string(FormatPDF):
		return FormatPDF, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, raw)
}

func (f Format) String() string { return string(f) }

// Output is one rendered report. JSON and text fill Body; PDF is
// asynchronous and fills Report (the pending row) and Job instead.
type Output struct {
	Format Format
	Body   []byte
	Report *models.Report
	Job    *queue.Job
}

// Renderer turns a populated view into one output format.
type Renderer interface {
	RenderReport(ctx context.Context, view *View) (*Output, error)
}

// rendererFor is the closed format dispatch.
func (e *Engine) rendererFor(format Format) (Renderer, error) {
	switch format {
	case FormatJSON:
		return &JSONRenderer{}, nil
	case FormatText:
		return &TextRenderer{Templates: e.templates}, nil
	case FormatPDF:
		return &pdfRenderer{eng: e}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// JSONRenderer produces the machine-readable report document: the context
// key set plus "objects", the field-projected root record-set. Output is
// deterministic; rendering the same view twice yields identical bytes.
type JSONRenderer struct {
	// Converter overrides the zero-value converter, e.g. to ignore
	// unconvertible values.
	Converter *NativeConverter

	// Overrides are merged over the document before conversion. Callers
	// use them to stamp extra top-level keys into the output.
	Overrides map[string]any
}

func (r *JSONRenderer) RenderReport(_ context.Context, view *View) (*Output, error) {
	conv := r.Converter
	if conv == nil {
		conv = &NativeConverter{}
	}
	doc := view.Context.Map()
	doc["objects"] = view.Roots
	for k, v := range r.Overrides {
		doc[k] = v
	}
	native, err := conv.Convert(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	body, err := jsonutil.MarshalDeterministic(native)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSerialization, err)
	}
	return &Output{Format: FormatJSON, Body: body}, nil
}

// TextRenderer renders the plain-text report from the embedded template
// keyed by the view's scope tag.
type TextRenderer struct {
	Templates *templates.Engine
}

func (r *TextRenderer) RenderReport(_ context.Context, view *View) (*Output, error) {
	buf := bufpool.Get()
	defer bufpool.Put(buf)

	if err := r.Templates.Text(buf, string(view.Scope), view.Context); err != nil {
		if errors.Is(err, templates.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrNoTemplate, view.Scope)
		}
		return nil, fmt.Errorf("report: render text: %w", err)
	}
	body := make([]byte, buf.Len())
	copy(body, buf.Bytes())
	return &Output{Format: FormatText, Body: body}, nil
}

// pdfRenderer persists a pending Report row and queues the PDF task. The
// caller observes completion through the row, or through the job handle
// when it holds one.
type pdfRenderer struct {
	eng *Engine
}

func (r *pdfRenderer) RenderReport(ctx context.Context, view *View) (*Output, error) {
	e := r.eng
	if e.queue == nil || e.files == nil || e.converter == nil {
		return nil, fmt.Errorf("report: pdf pipeline not configured")
	}

	rep := models.NewReport(view.Context.ReportName, string(view.Scope), "PDF", view.Context.User, "")
	if err := e.store.CreateReport(ctx, rep); err != nil {
		return nil, fmt.Errorf("report: create report row: %w", err)
	}

	task := e.newPDFTask()
	req := PDFRequest{
		Report:   rep,
		View:     view,
		Filename: string(view.Scope) + "_report.pdf",
	}
	job, err := e.queue.Enqueue("pdf report "+formatID(rep.ID), func(ctx context.Context, job *queue.Job) error {
		return task.Run(ctx, job.ID, req)
	})
	if err != nil {
		// The row must not stay pending forever when the queue is gone.
		if merr := rep.MarkError(); merr == nil {
			if uerr := e.store.UpdateReport(ctx, rep); uerr != nil {
				e.log.Error("update report row", "report_id", rep.ID, "error", uerr)
			}
		}
		return nil, fmt.Errorf("report: enqueue pdf job: %w", err)
	}
	return &Output{Format: FormatPDF, Report: rep, Job: job}, nil
}

var (
	_ Renderer = (*JSONRenderer)(nil)
	_ Renderer = (*TextRenderer)(nil)
	_ Renderer = (*pdfRenderer)(nil)
)
