package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/vulndesk/vulndesk/pkg/config"
	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/htmltopdf"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/report"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/pkg/store/memstore"
	"github.com/vulndesk/vulndesk/pkg/ui"
)

func TestMain(m *testing.M) {
	ui.SetSilent(true)
	os.Exit(m.Run())
}

func TestExitCode(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"usage", usageErr(errors.New("x")), defaults.ExitUserError},
		{"generate", genErr(errors.New("x")), defaults.ExitGenerateError},
		{"io", ioErr(errors.New("x")), defaults.ExitIOError},
		{"internal", internalErr(errors.New("x")), defaults.ExitInternalError},
		{"wrapped", fmt.Errorf("outer: %w", ioErr(errors.New("x"))), defaults.ExitIOError},
		{"plain flag error", errors.New("unknown flag"), defaults.ExitUserError},
	}
	for _, tc := range cases {
		if got := exitCode(tc.err); got != tc.want {
			t.Errorf("%s: exitCode = %d, want %d", tc.name, got, tc.want)
		}
	}
}

func TestConverterFor(t *testing.T) {
	if _, ok := converterFor(config.ConverterConfig{Kind: config.ConverterChrome, Path: "/opt/chrome"}).(*htmltopdf.Chrome); !ok {
		t.Error("chrome kind did not map to the Chrome converter")
	}
	if _, ok := converterFor(config.ConverterConfig{Kind: config.ConverterLocal}).(*htmltopdf.Local); !ok {
		t.Error("local kind did not map to the Local converter")
	}
	conv, ok := converterFor(config.ConverterConfig{Kind: config.ConverterWkhtmltopdf, Path: "/usr/bin/wkhtmltopdf"}).(*htmltopdf.Wkhtmltopdf)
	if !ok {
		t.Fatal("wkhtmltopdf kind did not map to the Wkhtmltopdf converter")
	}
	if conv.Path != "/usr/bin/wkhtmltopdf" {
		t.Errorf("Path = %q", conv.Path)
	}
}

func TestParseIDList(t *testing.T) {
	ids, err := parseIDList("1, 4,,6")
	if err != nil {
		t.Fatalf("parseIDList: %v", err)
	}
	if len(ids) != 3 || ids[0] != 1 || ids[1] != 4 || ids[2] != 6 {
		t.Errorf("ids = %v, want [1 4 6]", ids)
	}

	for _, bad := range []string{"", "x", "1,x", "0", "-3"} {
		if _, err := parseIDList(bad); err == nil {
			t.Errorf("parseIDList(%q) accepted", bad)
		}
	}
}

func TestResolveRoot(t *testing.T) {
	st := memstore.Sample()
	ctx := context.Background()

	root, err := resolveRoot(ctx, st, report.ScopeProduct, "1")
	if err != nil {
		t.Fatalf("resolveRoot product: %v", err)
	}
	prod, ok := root.(models.Product)
	if !ok || prod.Name != "Storefront" {
		t.Errorf("root = %#v, want product Storefront", root)
	}

	root, err = resolveRoot(ctx, st, report.ScopeFinding, "1,4")
	if err != nil {
		t.Fatalf("resolveRoot finding: %v", err)
	}
	picked, ok := root.([]models.Finding)
	if !ok || len(picked) != 2 {
		t.Fatalf("root = %#v, want 2 finding stubs", root)
	}
	if picked[0].ID != 1 || picked[1].ID != 4 {
		t.Errorf("stub ids = %d,%d", picked[0].ID, picked[1].ID)
	}

	if _, err := resolveRoot(ctx, st, report.ScopeTest, "999"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing test err = %v, want ErrNotFound", err)
	}
	if _, err := resolveRoot(ctx, st, report.ScopeEngagement, "zero"); err == nil {
		t.Error("malformed id accepted")
	}
}

func TestGenerateParams(t *testing.T) {
	saved := generateFlags
	t.Cleanup(func() { generateFlags = saved })

	generateFlags.includeNotes = true
	generateFlags.includeSummary = true
	generateFlags.includeTOC = false
	generateFlags.severity = "High"
	generateFlags.params = []string{"active=true", "title=Quarterly"}

	params, err := generateParams()
	if err != nil {
		t.Fatalf("generateParams: %v", err)
	}
	if !params.Include.FindingNotes || !params.Include.ExecutiveSummary {
		t.Error("include flags not set")
	}
	if params.Include.TableOfContents {
		t.Error("toc set without the flag")
	}
	if params.Filter.Severity != models.SeverityHigh {
		t.Errorf("severity = %v", params.Filter.Severity)
	}
	if params.Filter.Active == nil || !*params.Filter.Active {
		t.Error("active filter not parsed from --param")
	}
	if params.Raw["title"] != "Quarterly" {
		t.Errorf("raw title = %q", params.Raw["title"])
	}

	generateFlags.params = []string{"whoops"}
	if _, err := generateParams(); err == nil {
		t.Error("malformed --param accepted")
	}

	generateFlags.params = nil
	generateFlags.severity = "catastrophic"
	if _, err := generateParams(); err == nil {
		t.Error("unknown severity accepted")
	}
}

func TestSeedRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "snapshot.json")

	if err := runSeed(nil, []string{path}); err != nil {
		t.Fatalf("runSeed: %v", err)
	}

	// Refuses to clobber without --force.
	if err := runSeed(nil, []string{path}); err == nil {
		t.Fatal("runSeed overwrote an existing file")
	}

	st, err := memstore.LoadSnapshot(path)
	if err != nil {
		t.Fatalf("LoadSnapshot: %v", err)
	}
	prod, err := st.Product(context.Background(), 1)
	if err != nil {
		t.Fatalf("Product: %v", err)
	}
	if prod.Name != "Storefront" {
		t.Errorf("product name = %q", prod.Name)
	}
	findings, err := st.Findings(context.Background(), store.FindingQuery{ProductID: 1})
	if err != nil {
		t.Fatalf("Findings: %v", err)
	}
	if len(findings) != 3 {
		t.Errorf("findings = %d, want 3", len(findings))
	}
}

func TestConfigBannerOmitsUnsetOptionals(t *testing.T) {
	cfg := config.Default()
	opts := configBanner(cfg)

	if _, ok := opts["Webhook"]; ok {
		t.Error("webhook listed without a URL")
	}
	if _, ok := opts["Telemetry"]; ok {
		t.Error("telemetry listed without an endpoint")
	}
	if opts["Listen"] != defaults.ListenAddr {
		t.Errorf("Listen = %q", opts["Listen"])
	}
	if opts["Converter"] != config.ConverterWkhtmltopdf {
		t.Errorf("Converter = %q", opts["Converter"])
	}

	cfg.Webhook.URL = "https://hooks.example.com/reports"
	cfg.Telemetry.Endpoint = "collector:4317"
	opts = configBanner(cfg)
	if opts["Webhook"] == "" || opts["Telemetry"] == "" {
		t.Error("optional settings missing from the banner")
	}
}
