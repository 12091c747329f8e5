package report

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"testing"

	"github.com/vulndesk/vulndesk/pkg/jsonutil"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/store/memstore"
	"github.com/vulndesk/vulndesk/templates"
)

func newTestEngine(t *testing.T) (*Engine, *memstore.Store) {
	t.Helper()
	tpl, err := templates.New()
	if err != nil {
		t.Fatalf("templates.New: %v", err)
	}
	st := memstore.Sample()
	eng, err := NewEngine(
		Config{Host: "http://vulndesk.local", TeamName: "AppSec"},
		Deps{Store: st, Templates: tpl, Log: slog.New(slog.NewTextHandler(io.Discard, nil))},
	)
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return eng, st
}

func sampleUser(t *testing.T, st *memstore.Store, id int64) *models.User {
	t.Helper()
	u, err := st.User(context.Background(), id)
	if err != nil {
		t.Fatalf("User(%d): %v", id, err)
	}
	return &u
}

// renderDoc populates a creator and parses its JSON document.
func renderDoc(t *testing.T, eng *Engine, scope Scope, user *models.User, root any, params Params) map[string]any {
	t.Helper()
	creator, err := eng.CreatorFor(scope, user)
	if err != nil {
		t.Fatalf("CreatorFor(%s): %v", scope, err)
	}
	if err := creator.Populate(context.Background(), root, params); err != nil {
		t.Fatalf("Populate: %v", err)
	}
	out, err := creator.Render(context.Background(), FormatJSON)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	var doc map[string]any
	if err := jsonutil.Unmarshal(out.Body, &doc); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return doc
}

func docList(t *testing.T, doc map[string]any, key string) []any {
	t.Helper()
	v, ok := doc[key]
	if !ok {
		t.Fatalf("document has no %q key", key)
	}
	list, ok := v.([]any)
	if !ok {
		t.Fatalf("document %q = %T, want a list", key, v)
	}
	return list
}

func TestParseScope(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		raw  string
		want Scope
		ok   bool
	}{
		{"product_type", ScopeProductType, true},
		{"Product", ScopeProduct, true},
		{" test ", ScopeTest, true},
		{"endpoint", ScopeEndpoint, true},
		{"finding", ScopeFinding, true},
		{"campaign", "", false},
		{"", "", false},
	} {
		got, err := ParseScope(tc.raw)
		if tc.ok {
			if err != nil {
				t.Errorf("ParseScope(%q): %v", tc.raw, err)
			}
			if got != tc.want {
				t.Errorf("ParseScope(%q) = %q, want %q", tc.raw, got, tc.want)
			}
			continue
		}
		if !errors.Is(err, ErrUnknownScope) {
			t.Errorf("ParseScope(%q) err = %v, want ErrUnknownScope", tc.raw, err)
		}
	}
}

func TestScopeLabel(t *testing.T) {
	t.Parallel()

	for scope, want := range map[Scope]string{
		ScopeProductType: "Product Type",
		ScopeProduct:     "Product",
		ScopeEngagement:  "Engagement",
		ScopeTest:        "Test",
		ScopeEndpoint:    "Endpoint",
		ScopeFinding:     "Finding",
	} {
		if got := scope.Label(); got != want {
			t.Errorf("Label(%s) = %q, want %q", scope, got, want)
		}
	}
}

func TestNewEngineValidation(t *testing.T) {
	t.Parallel()
	tpl, err := templates.New()
	if err != nil {
		t.Fatalf("templates.New: %v", err)
	}

	if _, err := NewEngine(Config{}, Deps{Templates: tpl}); err == nil {
		t.Error("NewEngine without store succeeded")
	}
	if _, err := NewEngine(Config{}, Deps{Store: memstore.New()}); err == nil {
		t.Error("NewEngine without templates succeeded")
	}

	eng, err := NewEngine(Config{Host: "http://vulndesk.local/"}, Deps{Store: memstore.New(), Templates: tpl})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	if eng.cfg.Host != "http://vulndesk.local" {
		t.Errorf("host = %q, want trailing slash trimmed", eng.cfg.Host)
	}
	if eng.cfg.TeamName == "" {
		t.Error("team name not defaulted")
	}
}

func TestCreatorForUnknownScope(t *testing.T) {
	t.Parallel()
	eng, _ := newTestEngine(t)

	if _, err := eng.CreatorFor(Scope("campaign"), nil); !errors.Is(err, ErrUnknownScope) {
		t.Errorf("err = %v, want ErrUnknownScope", err)
	}
}

func TestRenderRequiresPopulate(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	creator, err := eng.CreatorFor(ScopeProduct, sampleUser(t, st, 2))
	if err != nil {
		t.Fatalf("CreatorFor: %v", err)
	}
	if _, err := creator.Render(context.Background(), FormatJSON); !errors.Is(err, ErrNotPopulated) {
		t.Errorf("err = %v, want ErrNotPopulated", err)
	}
}

func TestPopulateRejectsWrongRoot(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	creator, err := eng.CreatorFor(ScopeProduct, sampleUser(t, st, 2))
	if err != nil {
		t.Fatalf("CreatorFor: %v", err)
	}
	err = creator.Populate(context.Background(), models.Test{ID: 1}, Params{})
	if err == nil || !strings.Contains(err.Error(), "root must be") {
		t.Errorf("err = %v, want root type rejection", err)
	}
}

func TestProductTypeReport(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	pt, err := st.ProductType(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProductType: %v", err)
	}
	doc := renderDoc(t, eng, ScopeProductType, sampleUser(t, st, 1), pt, Params{})

	if doc["title"] != "Product Type Report" {
		t.Errorf("title = %v", doc["title"])
	}
	if doc["subtitle"] != "Web Applications" {
		t.Errorf("subtitle = %v", doc["subtitle"])
	}
	if doc["report_name"] != "Product Type Report: Web Applications" {
		t.Errorf("report_name = %v", doc["report_name"])
	}
	if doc["team_name"] != "AppSec" {
		t.Errorf("team_name = %v", doc["team_name"])
	}
	if doc["host"] != "http://vulndesk.local" {
		t.Errorf("host = %v", doc["host"])
	}

	if got := len(docList(t, doc, "findings")); got != 3 {
		t.Errorf("findings = %d, want 3", got)
	}
	if got := len(docList(t, doc, "products")); got != 1 {
		t.Errorf("products = %d, want 1", got)
	}
	if got := len(docList(t, doc, "engagements")); got != 1 {
		t.Errorf("engagements = %d, want 1", got)
	}
	if got := len(docList(t, doc, "tests")); got != 1 {
		t.Errorf("tests = %d, want 1", got)
	}
	if got := len(docList(t, doc, "objects")); got != 1 {
		t.Errorf("objects = %d, want the product type itself", got)
	}

	user, ok := doc["user"].(map[string]any)
	if !ok {
		t.Fatalf("user = %T, want record", doc["user"])
	}
	if user["username"] != "admin" {
		t.Errorf("user.username = %v", user["username"])
	}
	if _, leaked := user["password"]; leaked {
		t.Error("user password leaked into document")
	}

	buckets := docList(t, doc, "endpoint_opened_per_month")
	if len(buckets) == 0 {
		t.Fatal("no month buckets")
	}
	first, ok := buckets[0].(map[string]any)
	if !ok {
		t.Fatalf("bucket = %T, want record", buckets[0])
	}
	if first["month"] != "2026-02-10" {
		t.Errorf("first bucket month = %v, want anchored at earliest finding", first["month"])
	}
	if first["opened"] != float64(3) {
		t.Errorf("first bucket opened = %v, want 3", first["opened"])
	}
	if first["critical"] != float64(1) || first["medium"] != float64(1) || first["low"] != float64(1) {
		t.Errorf("first bucket severity split = %v", first)
	}
}

func TestProductReportAuthorization(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)
	ctx := context.Background()

	t.Run("authorized user sees the product", func(t *testing.T) {
		prod, err := st.Product(ctx, 1)
		if err != nil {
			t.Fatalf("Product: %v", err)
		}
		doc := renderDoc(t, eng, ScopeProduct, sampleUser(t, st, 2), prod, Params{})

		if doc["subtitle"] != "Storefront" {
			t.Errorf("subtitle = %v", doc["subtitle"])
		}
		if doc["report_name"] != "Product Report: Storefront" {
			t.Errorf("report_name = %v", doc["report_name"])
		}
		if got := len(docList(t, doc, "findings")); got != 3 {
			t.Errorf("findings = %d, want 3", got)
		}
		if got := len(docList(t, doc, "objects")); got != 1 {
			t.Errorf("objects = %d, want 1", got)
		}
	})

	t.Run("unauthorized user gets the empty report", func(t *testing.T) {
		prod, err := st.Product(ctx, 2)
		if err != nil {
			t.Fatalf("Product: %v", err)
		}
		doc := renderDoc(t, eng, ScopeProduct, sampleUser(t, st, 3), prod, Params{})

		if got := len(docList(t, doc, "findings")); got != 0 {
			t.Errorf("findings = %d, want none", got)
		}
		if got := len(docList(t, doc, "objects")); got != 0 {
			t.Errorf("objects = %d, want none", got)
		}
		if doc["subtitle"] != "" {
			t.Errorf("subtitle = %v, want empty", doc["subtitle"])
		}
		if doc["report_name"] != "Product Report" {
			t.Errorf("report_name = %v, want no trailing subtitle", doc["report_name"])
		}
		// The requested product still echoes in the context.
		product, ok := doc["product"].(map[string]any)
		if !ok {
			t.Fatalf("product = %T, want record", doc["product"])
		}
		if product["name"] != "Billing API" {
			t.Errorf("product.name = %v", product["name"])
		}
	})

	t.Run("nil user is a trusted caller", func(t *testing.T) {
		prod, err := st.Product(ctx, 2)
		if err != nil {
			t.Fatalf("Product: %v", err)
		}
		doc := renderDoc(t, eng, ScopeProduct, nil, prod, Params{})

		if doc["subtitle"] != "Billing API" {
			t.Errorf("subtitle = %v", doc["subtitle"])
		}
		if got := len(docList(t, doc, "findings")); got != 3 {
			t.Errorf("findings = %d, want 3", got)
		}
	})
}

func TestEngagementReport(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	en, err := st.Engagement(context.Background(), 1)
	if err != nil {
		t.Fatalf("Engagement: %v", err)
	}
	doc := renderDoc(t, eng, ScopeEngagement, sampleUser(t, st, 3), en, Params{})

	if doc["subtitle"] != "Q1 Penetration Test" {
		t.Errorf("subtitle = %v", doc["subtitle"])
	}
	if got := len(docList(t, doc, "findings")); got != 3 {
		t.Errorf("findings = %d, want 3", got)
	}
	if got := len(docList(t, doc, "tests")); got != 1 {
		t.Errorf("tests = %d, want 1", got)
	}
	if _, ok := doc["engagement"]; !ok {
		t.Error("engagement record missing from document")
	}
}

func TestTestReportSubtitle(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	tst, err := st.Test(context.Background(), 1)
	if err != nil {
		t.Fatalf("Test: %v", err)
	}
	doc := renderDoc(t, eng, ScopeTest, sampleUser(t, st, 2), tst, Params{})

	if doc["subtitle"] != "Checkout flow review (Manual Pen Test)" {
		t.Errorf("subtitle = %v, want title with test type", doc["subtitle"])
	}
	if got := len(docList(t, doc, "findings")); got != 3 {
		t.Errorf("findings = %d, want 3", got)
	}
}

func TestEndpointReport(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)
	ctx := context.Background()

	t.Run("groups sibling endpoints by host", func(t *testing.T) {
		ep, err := st.Endpoint(ctx, 1)
		if err != nil {
			t.Fatalf("Endpoint: %v", err)
		}
		doc := renderDoc(t, eng, ScopeEndpoint, sampleUser(t, st, 2), ep, Params{})

		if doc["subtitle"] != "store.example.com" {
			t.Errorf("subtitle = %v", doc["subtitle"])
		}
		// store.example.com and store.example.com:8443 are the same host.
		if got := len(docList(t, doc, "endpoints")); got != 2 {
			t.Errorf("endpoints = %d, want 2", got)
		}
		if got := len(docList(t, doc, "findings")); got != 3 {
			t.Errorf("findings = %d, want 3", got)
		}
		if got := len(docList(t, doc, "objects")); got != 1 {
			t.Errorf("objects = %d, want 1", got)
		}
	})

	t.Run("unauthorized user gets the empty report", func(t *testing.T) {
		ep, err := st.Endpoint(ctx, 3)
		if err != nil {
			t.Fatalf("Endpoint: %v", err)
		}
		doc := renderDoc(t, eng, ScopeEndpoint, sampleUser(t, st, 3), ep, Params{})

		if doc["subtitle"] != "billing.internal.example.com" {
			t.Errorf("subtitle = %v, want host echoed", doc["subtitle"])
		}
		if got := len(docList(t, doc, "findings")); got != 0 {
			t.Errorf("findings = %d, want none", got)
		}
		if got := len(docList(t, doc, "objects")); got != 0 {
			t.Errorf("objects = %d, want none", got)
		}
		if _, ok := doc["endpoints"]; ok {
			t.Error("sibling endpoints listed for unauthorized user")
		}
	})
}

func TestFindingReportVisibility(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	picked := func(ids ...int64) []models.Finding {
		out := make([]models.Finding, len(ids))
		for i, id := range ids {
			out[i] = models.Finding{ID: id}
		}
		return out
	}

	t.Run("user sees findings on authorized products", func(t *testing.T) {
		doc := renderDoc(t, eng, ScopeFinding, sampleUser(t, st, 2), picked(1, 4), Params{})

		findings := docList(t, doc, "findings")
		if len(findings) != 2 {
			t.Fatalf("findings = %d, want 2", len(findings))
		}
		// Ordered by date: the 2025 build-script finding first.
		first := findings[0].(map[string]any)
		if first["id"] != float64(4) {
			t.Errorf("first finding id = %v, want 4", first["id"])
		}
		if got := len(docList(t, doc, "objects")); got != 2 {
			t.Errorf("objects = %d, want the findings themselves", got)
		}
		if doc["subtitle"] != "" {
			t.Errorf("subtitle = %v, want empty for ad-hoc reports", doc["subtitle"])
		}
		if doc["report_name"] != "Finding Report" {
			t.Errorf("report_name = %v", doc["report_name"])
		}
	})

	t.Run("unauthorized findings drop out", func(t *testing.T) {
		doc := renderDoc(t, eng, ScopeFinding, sampleUser(t, st, 3), picked(1, 4), Params{})

		findings := docList(t, doc, "findings")
		if len(findings) != 1 {
			t.Fatalf("findings = %d, want 1", len(findings))
		}
		if findings[0].(map[string]any)["id"] != float64(1) {
			t.Errorf("finding id = %v, want 1", findings[0].(map[string]any)["id"])
		}
	})

	t.Run("staff bypass visibility", func(t *testing.T) {
		doc := renderDoc(t, eng, ScopeFinding, sampleUser(t, st, 1), picked(1, 4), Params{})

		if got := len(docList(t, doc, "findings")); got != 2 {
			t.Errorf("findings = %d, want 2 for staff", got)
		}
	})
}

func TestFindingNotesIncluded(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	pt, err := st.ProductType(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProductType: %v", err)
	}

	params, err := ParseParams(url.Values{"include_finding_notes": {"on"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	doc := renderDoc(t, eng, ScopeProductType, sampleUser(t, st, 1), pt, params)

	notes, ok := doc["notes"].(map[string]any)
	if !ok {
		t.Fatalf("notes = %T, want map keyed by finding ID", doc["notes"])
	}
	entries, ok := notes["1"].([]any)
	if !ok || len(entries) != 1 {
		t.Fatalf("notes for finding 1 = %v, want one entry", notes["1"])
	}
	entry := entries[0].(map[string]any)
	if !strings.Contains(entry["entry"].(string), "payments team") {
		t.Errorf("note entry = %v", entry["entry"])
	}

	// Without the flag the key does not appear at all.
	plain := renderDoc(t, eng, ScopeProductType, sampleUser(t, st, 1), pt, Params{})
	if _, ok := plain["notes"]; ok {
		t.Error("notes present without include_finding_notes")
	}
}

func TestExecutiveSummary(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	pt, err := st.ProductType(context.Background(), 1)
	if err != nil {
		t.Fatalf("ProductType: %v", err)
	}
	params, err := ParseParams(url.Values{"include_executive_summary": {"true"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	doc := renderDoc(t, eng, ScopeProductType, sampleUser(t, st, 1), pt, params)

	rows := docList(t, doc, "severity_summary")
	if len(rows) != len(models.Severities()) {
		t.Fatalf("summary rows = %d, want one per severity", len(rows))
	}
	first := rows[0].(map[string]any)
	if first["severity"] != "Critical" || first["count"] != float64(1) {
		t.Errorf("first row = %v, want Critical x1", first)
	}
	for i, sev := range models.Severities() {
		row := rows[i].(map[string]any)
		if row["severity"] != string(sev) {
			t.Errorf("row %d severity = %v, want %s", i, row["severity"], sev)
		}
	}
}

func TestFindingFilterParams(t *testing.T) {
	t.Parallel()
	eng, st := newTestEngine(t)

	en, err := st.Engagement(context.Background(), 2)
	if err != nil {
		t.Fatalf("Engagement: %v", err)
	}

	// Engagement 2 has one High (active), one Medium (mitigated, inactive)
	// and one more High (active).
	params, err := ParseParams(url.Values{"severity": {"high"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	doc := renderDoc(t, eng, ScopeEngagement, sampleUser(t, st, 1), en, params)
	if got := len(docList(t, doc, "findings")); got != 2 {
		t.Errorf("high findings = %d, want 2", got)
	}

	params, err = ParseParams(url.Values{"active": {"false"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	doc = renderDoc(t, eng, ScopeEngagement, sampleUser(t, st, 1), en, params)
	if got := len(docList(t, doc, "findings")); got != 1 {
		t.Errorf("inactive findings = %d, want 1", got)
	}

	params, err = ParseParams(url.Values{"date_from": {"2026-01-01"}})
	if err != nil {
		t.Fatalf("ParseParams: %v", err)
	}
	doc = renderDoc(t, eng, ScopeEngagement, sampleUser(t, st, 1), en, params)
	if got := len(docList(t, doc, "findings")); got != 1 {
		t.Errorf("findings from 2026 = %d, want 1", got)
	}
}
