package report

import (
	"github.com/vulndesk/vulndesk/pkg/models"
)

// Context is the data a populated creator hands to the templates and the
// JSON document builder. Scope pointers are set only for the scope that
// produced the report; slices hold the enrichment records for that scope.
type Context struct {
	Host       string
	Title      string
	Subtitle   string
	ReportName string
	TeamName   string
	User       *models.User
	Parameters map[string]string
	Include    IncludeFlags

	ProductType *models.ProductType
	Product     *models.Product
	Engagement  *models.Engagement
	Test        *models.Test
	Endpoint    *models.Endpoint

	Products       []models.Product
	Engagements    []models.Engagement
	Tests          []models.Test
	Endpoints      []models.Endpoint
	Findings       []models.Finding
	OpenedPerMonth []MonthBucket

	notes map[int64][]models.Note
}

// NotesFor returns the notes attached to one finding. It returns nil
// unless the creator populated notes (Include.FindingNotes).
func (c *Context) NotesFor(findingID int64) []models.Note {
	return c.notes[findingID]
}

// SeverityCount is one row of the executive summary.
type SeverityCount struct {
	Severity models.Severity `json:"severity"`
	Count    int             `json:"count"`
}

// SeveritySummary tallies the included findings per severity, ordered
// from Critical down to Informational.
func (c *Context) SeveritySummary() []SeverityCount {
	counts := make(map[models.Severity]int, len(models.Severities()))
	for _, f := range c.Findings {
		counts[f.Severity]++
	}
	out := make([]SeverityCount, 0, len(models.Severities()))
	for _, sev := range models.Severities() {
		out = append(out, SeverityCount{Severity: sev, Count: counts[sev]})
	}
	return out
}

// Map flattens the context into the key set the JSON document is built
// from. Scope keys appear only when set.
func (c *Context) Map() map[string]any {
	m := map[string]any{
		"host":        c.Host,
		"title":       c.Title,
		"subtitle":    c.Subtitle,
		"report_name": c.ReportName,
		"team_name":   c.TeamName,
		"user":        c.User,
		"parameters":  c.Parameters,
		"findings":    c.Findings,

		"include_finding_notes":     c.Include.FindingNotes,
		"include_finding_images":    c.Include.FindingImages,
		"include_executive_summary": c.Include.ExecutiveSummary,
		"include_table_of_contents": c.Include.TableOfContents,
	}
	if c.ProductType != nil {
		m["product_type"] = *c.ProductType
	}
	if c.Product != nil {
		m["product"] = *c.Product
	}
	if c.Engagement != nil {
		m["engagement"] = *c.Engagement
	}
	if c.Test != nil {
		m["test"] = *c.Test
	}
	if c.Endpoint != nil {
		m["endpoint"] = *c.Endpoint
	}
	if c.Products != nil {
		m["products"] = c.Products
	}
	if c.Engagements != nil {
		m["engagements"] = c.Engagements
	}
	if c.Tests != nil {
		m["tests"] = c.Tests
	}
	if c.Endpoints != nil {
		m["endpoints"] = c.Endpoints
	}
	if c.OpenedPerMonth != nil {
		m["endpoint_opened_per_month"] = c.OpenedPerMonth
	}
	if c.Include.ExecutiveSummary {
		m["severity_summary"] = c.SeveritySummary()
	}
	if len(c.notes) > 0 {
		m["notes"] = c.noteMap()
	}
	return m
}

func (c *Context) noteMap() map[string][]models.Note {
	out := make(map[string][]models.Note, len(c.notes))
	for id, notes := range c.notes {
		out[formatID(id)] = notes
	}
	return out
}

// View is what Populate builds and a Renderer consumes: the scope tag,
// the authorized root record-set, and the assembled context.
type View struct {
	Scope   Scope
	Roots   []any
	Context *Context
}
