// Package report builds vulnerability reports from the product hierarchy.
//
// A report is produced in two phases. A scope-bound Creator resolves the
// records visible to the requesting user and assembles a rendering
// context; a format-bound Renderer turns that context into a JSON
// document, plain text, or a queued PDF job. Both dispatches are closed
// enum switches.
//
//	creator, err := engine.CreatorFor(report.ScopeProduct, user)
//	err = creator.Populate(ctx, product, params)
//	out, err := creator.Render(ctx, report.FormatJSON)
package report

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/filestore"
	"github.com/vulndesk/vulndesk/pkg/htmltopdf"
	"github.com/vulndesk/vulndesk/pkg/metrics"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/notify"
	"github.com/vulndesk/vulndesk/pkg/queue"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/templates"
)

// instrumentation names the tracer used for report spans.
const instrumentation = "github.com/vulndesk/vulndesk/pkg/report"

// Scope identifies the hierarchy node a report is anchored to.
type Scope string

const (
	ScopeProductType Scope = "product_type"
	ScopeProduct     Scope = "product"
	ScopeEngagement  Scope = "engagement"
	ScopeTest        Scope = "test"
	ScopeEndpoint    Scope = "endpoint"
	ScopeFinding     Scope = "finding"
)

// Scopes lists every report scope in hierarchy order.
func Scopes() []Scope {
	return []Scope{
		ScopeProductType, ScopeProduct, ScopeEngagement,
		ScopeTest, ScopeEndpoint, ScopeFinding,
	}
}

// ParseScope resolves a scope tag. Unknown tags are ErrUnknownScope.
func ParseScope(raw string) (Scope, error) {
	s := Scope(strings.ToLower(strings.TrimSpace(raw)))
	switch s {
	case ScopeProductType, ScopeProduct, ScopeEngagement,
		ScopeTest, ScopeEndpoint, ScopeFinding:
		return s, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownScope, raw)
}

func (s Scope) String() string { return string(s) }

var titleCaser = cases.Title(language.English)

// Label is the human form of the scope tag, e.g. "Product Type".
func (s Scope) Label() string {
	return titleCaser.String(strings.ReplaceAll(string(s), "_", " "))
}

// Config carries the report-wide settings every creator stamps into its
// context.
type Config struct {
	// Host is the externally reachable base URL, used for cover pages
	// and download links. No trailing slash.
	Host string

	// TeamName appears in every report header. Defaults to
	// defaults.TeamName.
	TeamName string
}

// Deps bundles the collaborators an Engine drives. Store and Templates
// are required; the rest are needed only for the PDF pipeline and
// observability.
type Deps struct {
	Store     store.Store
	Templates *templates.Engine
	Queue     *queue.Queue
	Files     *filestore.Store
	Converter htmltopdf.Converter
	Notifier  notify.Notifier
	Metrics   *metrics.Metrics
	Log       *slog.Logger
}

// Engine owns the creator and renderer dispatch for one configured
// deployment. Engines are safe for concurrent use.
type Engine struct {
	cfg       Config
	store     store.Store
	templates *templates.Engine
	queue     *queue.Queue
	files     *filestore.Store
	converter htmltopdf.Converter
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	log       *slog.Logger
	tracer    trace.Tracer
}

// NewEngine validates the dependency set and returns a ready engine.
func NewEngine(cfg Config, deps Deps) (*Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("report: engine requires a store")
	}
	if deps.Templates == nil {
		return nil, fmt.Errorf("report: engine requires templates")
	}
	if cfg.TeamName == "" {
		cfg.TeamName = defaults.TeamName
	}
	cfg.Host = strings.TrimRight(cfg.Host, "/")
	log := deps.Log
	if log == nil {
		log = slog.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = &notify.LogNotifier{Log: log}
	}
	return &Engine{
		cfg:       cfg,
		store:     deps.Store,
		templates: deps.Templates,
		queue:     deps.Queue,
		files:     deps.Files,
		converter: deps.Converter,
		notifier:  notifier,
		metrics:   deps.Metrics,
		log:       log,
		tracer:    otel.Tracer(instrumentation),
	}, nil
}

// Creator assembles one report. The life cycle is populate then render;
// rendering an unpopulated creator is ErrNotPopulated. Creators are
// single-use and not safe for concurrent population.
type Creator interface {
	// Scope returns the scope the creator was built for.
	Scope() Scope

	// Populate resolves the records the requesting user may see for the
	// given root and assembles the rendering context. The root's type is
	// fixed per scope: the scope's record value, or []models.Finding for
	// ad-hoc finding reports.
	Populate(ctx context.Context, root any, params Params) error

	// Render produces the report in the given format. PDF output is
	// asynchronous: the returned Output carries a pending Report row and
	// the queue job handle instead of bytes.
	Render(ctx context.Context, format Format) (*Output, error)

	// View returns the populated view, or nil before Populate.
	View() *View
}

// CreatorFor returns the creator for a scope, bound to the requesting
// user. Unknown scopes are ErrUnknownScope.
func (e *Engine) CreatorFor(scope Scope, user *models.User) (Creator, error) {
	base := baseCreator{eng: e, scope: scope, user: user}
	switch scope {
	case ScopeProductType:
		return &productTypeCreator{base}, nil
	case ScopeProduct:
		return &productCreator{base}, nil
	case ScopeEngagement:
		return &engagementCreator{base}, nil
	case ScopeTest:
		return &testCreator{base}, nil
	case ScopeEndpoint:
		return &endpointCreator{base}, nil
	case ScopeFinding:
		return &findingCreator{base}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownScope, scope)
}

type baseCreator struct {
	eng   *Engine
	scope Scope
	user  *models.User

	view      *View
	populated bool
}

func (b *baseCreator) Scope() Scope { return b.scope }

func (b *baseCreator) View() *View { return b.view }

// newContext builds the base rendering context shared by every scope.
func (b *baseCreator) newContext(subtitle string, params Params) *Context {
	title := b.scope.Label() + " Report"
	name := title
	if subtitle != "" {
		name = title + ": " + subtitle
	}
	return &Context{
		Host:       b.eng.cfg.Host,
		Title:      title,
		Subtitle:   subtitle,
		ReportName: name,
		TeamName:   b.eng.cfg.TeamName,
		User:       b.user,
		Parameters: params.Raw,
		Include:    params.Include,
	}
}

// finish flips the creator into its populated state.
func (b *baseCreator) finish(c *Context, roots []any) {
	b.view = &View{Scope: b.scope, Roots: roots, Context: c}
	b.populated = true
}

// attachNotes loads per-finding notes when the request asked for them.
func (b *baseCreator) attachNotes(ctx context.Context, c *Context) error {
	if !c.Include.FindingNotes || len(c.Findings) == 0 {
		return nil
	}
	c.notes = make(map[int64][]models.Note, len(c.Findings))
	for _, f := range c.Findings {
		notes, err := b.eng.store.NotesForFinding(ctx, f.ID)
		if err != nil {
			return fmt.Errorf("report: notes for finding %d: %w", f.ID, err)
		}
		if len(notes) > 0 {
			c.notes[f.ID] = notes
		}
	}
	return nil
}

func (b *baseCreator) startPopulate(ctx context.Context) (context.Context, trace.Span) {
	return b.eng.tracer.Start(ctx, "report.populate",
		trace.WithAttributes(attribute.String("report.scope", string(b.scope))))
}

// Render dispatches to the renderer for the format.
func (b *baseCreator) Render(ctx context.Context, format Format) (*Output, error) {
	if !b.populated {
		return nil, ErrNotPopulated
	}
	r, err := b.eng.rendererFor(format)
	if err != nil {
		return nil, err
	}
	ctx, span := b.eng.tracer.Start(ctx, "report.render", trace.WithAttributes(
		attribute.String("report.scope", string(b.scope)),
		attribute.String("report.format", string(format)),
	))
	defer span.End()

	start := time.Now()
	out, err := r.RenderReport(ctx, b.view)
	b.eng.metrics.ObserveRender(string(b.scope), string(format), time.Since(start))
	if err != nil {
		span.RecordError(err)
		b.eng.metrics.ReportGenerated(string(b.scope), string(format), "error")
		return nil, err
	}
	// PDF completion is counted by the task when the job settles.
	if format != FormatPDF {
		b.eng.metrics.ReportGenerated(string(b.scope), string(format), "success")
	}
	return out, nil
}

func (b *baseCreator) userID() int64 {
	if b.user == nil {
		return 0
	}
	return b.user.ID
}

// authorizedUserID is the visibility restriction for ad-hoc finding
// reports: staff see everything, everyone else only products that list
// them.
func (b *baseCreator) authorizedUserID() int64 {
	if b.user != nil && b.user.IsStaff {
		return 0
	}
	return b.userID()
}

func badRoot(scope Scope, want string, got any) error {
	return fmt.Errorf("report: %s creator: root must be %s, got %T", scope, want, got)
}

func formatID(id int64) string { return strconv.FormatInt(id, 10) }

type productTypeCreator struct{ baseCreator }

func (c *productTypeCreator) Populate(ctx context.Context, root any, params Params) error {
	pt, ok := root.(models.ProductType)
	if !ok {
		return badRoot(c.scope, "models.ProductType", root)
	}
	ctx, span := c.startPopulate(ctx)
	defer span.End()

	findings, err := c.eng.store.Findings(ctx, store.FindingQuery{
		ProductTypeID: pt.ID,
		Filter:        params.Filter,
	})
	if err != nil {
		return fmt.Errorf("report: product type findings: %w", err)
	}
	ids := store.FindingIDs(findings)
	products, err := c.eng.store.ProductsForFindings(ctx, pt.ID, ids)
	if err != nil {
		return fmt.Errorf("report: products for findings: %w", err)
	}
	engagements, err := c.eng.store.EngagementsForFindings(ctx, ids)
	if err != nil {
		return fmt.Errorf("report: engagements for findings: %w", err)
	}
	tests, err := c.eng.store.TestsForFindings(ctx, ids)
	if err != nil {
		return fmt.Errorf("report: tests for findings: %w", err)
	}

	rc := c.newContext(pt.Name, params)
	rc.ProductType = &pt
	rc.Products = products
	rc.Engagements = engagements
	rc.Tests = tests
	rc.Findings = findings
	rc.OpenedPerMonth = OpenedPerMonth(findings, time.Now())
	if err := c.attachNotes(ctx, rc); err != nil {
		return err
	}
	c.finish(rc, []any{pt})
	return nil
}

type productCreator struct{ baseCreator }

func (c *productCreator) Populate(ctx context.Context, root any, params Params) error {
	prod, ok := root.(models.Product)
	if !ok {
		return badRoot(c.scope, "models.Product", root)
	}
	ctx, span := c.startPopulate(ctx)
	defer span.End()

	// Product reports are visible only to the product's authorized
	// users; everyone else gets the empty report, not an error. A nil
	// user is a trusted caller (the CLI), not an anonymous one.
	visible := c.user == nil || prod.AuthorizedFor(c.userID())

	findings, err := c.eng.store.Findings(ctx, store.FindingQuery{
		ProductID:        prod.ID,
		Filter:           params.Filter,
		AuthorizedUserID: c.userID(),
	})
	if err != nil {
		return fmt.Errorf("report: product findings: %w", err)
	}
	ids := store.FindingIDs(findings)
	engagements, err := c.eng.store.EngagementsForFindings(ctx, ids)
	if err != nil {
		return fmt.Errorf("report: engagements for findings: %w", err)
	}
	tests, err := c.eng.store.TestsForFindings(ctx, ids)
	if err != nil {
		return fmt.Errorf("report: tests for findings: %w", err)
	}

	subtitle := ""
	var roots []any
	if visible {
		subtitle = prod.Name
		roots = []any{prod}
	}
	rc := c.newContext(subtitle, params)
	rc.Product = &prod
	rc.Engagements = engagements
	rc.Tests = tests
	rc.Findings = findings
	if err := c.attachNotes(ctx, rc); err != nil {
		return err
	}
	c.finish(rc, roots)
	return nil
}

type engagementCreator struct{ baseCreator }

func (c *engagementCreator) Populate(ctx context.Context, root any, params Params) error {
	en, ok := root.(models.Engagement)
	if !ok {
		return badRoot(c.scope, "models.Engagement", root)
	}
	ctx, span := c.startPopulate(ctx)
	defer span.End()

	findings, err := c.eng.store.Findings(ctx, store.FindingQuery{
		EngagementID: en.ID,
		Filter:       params.Filter,
	})
	if err != nil {
		return fmt.Errorf("report: engagement findings: %w", err)
	}
	tests, err := c.eng.store.TestsForFindings(ctx, store.FindingIDs(findings))
	if err != nil {
		return fmt.Errorf("report: tests for findings: %w", err)
	}

	rc := c.newContext(en.Name, params)
	rc.Engagement = &en
	rc.Tests = tests
	rc.Findings = findings
	if err := c.attachNotes(ctx, rc); err != nil {
		return err
	}
	c.finish(rc, []any{en})
	return nil
}

type testCreator struct{ baseCreator }

func (c *testCreator) Populate(ctx context.Context, root any, params Params) error {
	t, ok := root.(models.Test)
	if !ok {
		return badRoot(c.scope, "models.Test", root)
	}
	ctx, span := c.startPopulate(ctx)
	defer span.End()

	findings, err := c.eng.store.Findings(ctx, store.FindingQuery{
		TestID: t.ID,
		Filter: params.Filter,
	})
	if err != nil {
		return fmt.Errorf("report: test findings: %w", err)
	}

	rc := c.newContext(t.String(), params)
	rc.Test = &t
	rc.Findings = findings
	if err := c.attachNotes(ctx, rc); err != nil {
		return err
	}
	c.finish(rc, []any{t})
	return nil
}

type endpointCreator struct{ baseCreator }

func (c *endpointCreator) Populate(ctx context.Context, root any, params Params) error {
	ep, ok := root.(models.Endpoint)
	if !ok {
		return badRoot(c.scope, "models.Endpoint", root)
	}
	ctx, span := c.startPopulate(ctx)
	defer span.End()

	// Same visibility rule as product reports, through the owning
	// product.
	visible := ep.Product != nil && (c.user == nil || ep.Product.AuthorizedFor(c.userID()))

	var (
		endpoints []models.Endpoint
		findings  []models.Finding
		roots     []any
		err       error
	)
	if visible {
		endpoints, err = c.eng.store.EndpointsByHost(ctx, ep.Product.ID, ep.HostNoPort())
		if err != nil {
			return fmt.Errorf("report: endpoints by host: %w", err)
		}
		ids := make([]int64, len(endpoints))
		for i, e := range endpoints {
			ids[i] = e.ID
		}
		findings, err = c.eng.store.Findings(ctx, store.FindingQuery{
			EndpointIDs:      ids,
			Filter:           params.Filter,
			AuthorizedUserID: c.userID(),
		})
		if err != nil {
			return fmt.Errorf("report: endpoint findings: %w", err)
		}
		roots = []any{ep}
	}

	rc := c.newContext(ep.HostNoPort(), params)
	rc.Endpoint = &ep
	rc.Endpoints = endpoints
	rc.Findings = findings
	if err := c.attachNotes(ctx, rc); err != nil {
		return err
	}
	c.finish(rc, roots)
	return nil
}

type findingCreator struct{ baseCreator }

func (c *findingCreator) Populate(ctx context.Context, root any, params Params) error {
	picked, ok := root.([]models.Finding)
	if !ok {
		return badRoot(c.scope, "[]models.Finding", root)
	}
	ctx, span := c.startPopulate(ctx)
	defer span.End()

	var findings []models.Finding
	if len(picked) > 0 {
		var err error
		findings, err = c.eng.store.Findings(ctx, store.FindingQuery{
			IDs:              store.FindingIDs(picked),
			Filter:           params.Filter,
			AuthorizedUserID: c.authorizedUserID(),
		})
		if err != nil {
			return fmt.Errorf("report: findings: %w", err)
		}
	}

	// Ad-hoc reports carry no subtitle.
	rc := c.newContext("", params)
	rc.Findings = findings
	if err := c.attachNotes(ctx, rc); err != nil {
		return err
	}
	roots := make([]any, len(findings))
	for i, f := range findings {
		roots[i] = f
	}
	c.finish(rc, roots)
	return nil
}

var (
	_ Creator = (*productTypeCreator)(nil)
	_ Creator = (*productCreator)(nil)
	_ Creator = (*engagementCreator)(nil)
	_ Creator = (*testCreator)(nil)
	_ Creator = (*endpointCreator)(nil)
	_ Creator = (*findingCreator)(nil)
)
