package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/vulndesk/vulndesk/pkg/bufpool"
	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/duration"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/report"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/pkg/ui"
)

var generateFlags struct {
	format   string
	output   string
	username string

	includeNotes   bool
	includeSummary bool
	includeTOC     bool
	severity       string
	params         []string
}

var generateCmd = &cobra.Command{
	Use:   "generate <scope> <id>",
	Short: "Generate one report and exit",
	Long: `Generate a report for one record. Scopes: product_type, product,
engagement, test, endpoint, finding. The finding scope takes a
comma-separated id list instead of a single id.

JSON and text reports stream to stdout unless --output names a file.
PDF reports wait for the conversion and report the stored file.`,
	Example: `  vulndesk generate product 2 --user rivera
  vulndesk generate engagement 1 --format pdf --output q1-pentest.pdf
  vulndesk generate finding 1,4 --include-notes --severity High`,
	Args: cobra.ExactArgs(2),
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateFlags.format, "format", "f", "json", "output format: json, text or pdf")
	generateCmd.Flags().StringVarP(&generateFlags.output, "output", "o", "", "write the report to a file (default stdout, or the reports dir for pdf)")
	generateCmd.Flags().StringVarP(&generateFlags.username, "user", "u", "", "generate as this username; unset runs unrestricted")
	generateCmd.Flags().BoolVar(&generateFlags.includeNotes, "include-notes", false, "include finding notes")
	generateCmd.Flags().BoolVar(&generateFlags.includeSummary, "include-summary", false, "include the executive summary")
	generateCmd.Flags().BoolVar(&generateFlags.includeTOC, "include-toc", false, "include a table of contents (pdf)")
	generateCmd.Flags().StringVar(&generateFlags.severity, "severity", "", "only findings of this severity")
	generateCmd.Flags().StringArrayVar(&generateFlags.params, "param", nil, "extra report parameter as key=value, repeatable")
	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	scope, err := report.ParseScope(args[0])
	if err != nil {
		return usageErr(err)
	}
	format, err := report.ParseFormat(generateFlags.format)
	if err != nil {
		return usageErr(err)
	}
	params, err := generateParams()
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stk, err := buildStack(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer stk.Close()

	root, err := resolveRoot(ctx, stk.Store, scope, args[1])
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return usageErr(fmt.Errorf("%s %s: %w", scope, args[1], err))
		}
		return ioErr(err)
	}

	var requester *models.User
	if generateFlags.username != "" {
		u, err := stk.Store.UserByUsername(ctx, generateFlags.username)
		if err != nil {
			return usageErr(fmt.Errorf("user %q: %w", generateFlags.username, err))
		}
		requester = &u
	}

	creator, err := stk.Engine.CreatorFor(scope, requester)
	if err != nil {
		return usageErr(err)
	}

	start := time.Now()
	populate := ui.NewWaiter("Assembling " + scope.Label() + " report")
	if err := populate.Elapse(func() error {
		return creator.Populate(ctx, root, params)
	}); err != nil {
		return genErr(err)
	}

	out, err := creator.Render(ctx, format)
	if err != nil {
		return genErr(err)
	}

	if out.Format == report.FormatPDF {
		return finishPDF(ctx, stk, creator, out, start)
	}
	return writeBody(creator, out, time.Since(start))
}

// generateParams folds the dedicated flags and any --param pairs into
// one parameter set.
func generateParams() (report.Params, error) {
	values := url.Values{}
	for _, kv := range generateFlags.params {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return report.Params{}, usageErr(fmt.Errorf("malformed --param %q, want key=value", kv))
		}
		values.Set(k, v)
	}
	if generateFlags.includeNotes {
		values.Set("include_finding_notes", "on")
	}
	if generateFlags.includeSummary {
		values.Set("include_executive_summary", "on")
	}
	if generateFlags.includeTOC {
		values.Set("include_table_of_contents", "on")
	}
	if generateFlags.severity != "" {
		values.Set("severity", generateFlags.severity)
	}
	params, err := report.ParseParams(values)
	if err != nil {
		return report.Params{}, usageErr(err)
	}
	return params, nil
}

// resolveRoot loads the scope's root record. Finding reports take a
// comma-separated id list; the creator re-resolves the full rows.
func resolveRoot(ctx context.Context, st store.Store, scope report.Scope, arg string) (any, error) {
	if scope == report.ScopeFinding {
		ids, err := parseIDList(arg)
		if err != nil {
			return nil, usageErr(err)
		}
		picked := make([]models.Finding, len(ids))
		for i, id := range ids {
			picked[i] = models.Finding{ID: id}
		}
		return picked, nil
	}

	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return nil, usageErr(fmt.Errorf("invalid %s id %q", scope, arg))
	}
	switch scope {
	case report.ScopeProductType:
		return st.ProductType(ctx, id)
	case report.ScopeProduct:
		return st.Product(ctx, id)
	case report.ScopeEngagement:
		return st.Engagement(ctx, id)
	case report.ScopeTest:
		return st.Test(ctx, id)
	case report.ScopeEndpoint:
		return st.Endpoint(ctx, id)
	}
	return nil, usageErr(fmt.Errorf("unsupported scope %q", scope))
}

func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid finding id %q", part)
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no finding ids in %q", raw)
	}
	return ids, nil
}

// writeBody delivers a synchronous (JSON or text) report body.
func writeBody(creator report.Creator, out *report.Output, elapsed time.Duration) error {
	if generateFlags.output == "" || generateFlags.output == "-" {
		if _, err := os.Stdout.Write(out.Body); err != nil {
			return ioErr(err)
		}
		return nil
	}
	if err := os.WriteFile(generateFlags.output, out.Body, defaults.FilePerm); err != nil {
		return ioErr(fmt.Errorf("write report: %w", err))
	}
	printSummary(creator.View(), string(out.Format), string(models.ReportStatusSuccess), generateFlags.output, elapsed)
	return nil
}

// finishPDF waits out the conversion job and reports where the file
// landed. The job owns the Report row while it runs, so the final state
// is reread from the store.
func finishPDF(ctx context.Context, stk *stack, creator report.Creator, out *report.Output, start time.Time) error {
	waitCtx, cancel := context.WithTimeout(ctx, duration.JobWait)
	defer cancel()

	convert := ui.NewWaiter("Converting to PDF")
	if err := convert.Elapse(func() error {
		return out.Job.Wait(waitCtx)
	}); err != nil {
		return genErr(fmt.Errorf("pdf job: %w", err))
	}

	rep, err := stk.Store.Report(ctx, out.Report.ID)
	if err != nil {
		return ioErr(err)
	}
	if rep.Status != models.ReportStatusSuccess {
		return genErr(fmt.Errorf("report %d finished with status %s", rep.ID, rep.Status))
	}

	path, err := stk.Files.Path(rep.FilePath)
	if err != nil {
		return ioErr(err)
	}
	if generateFlags.output != "" && generateFlags.output != "-" {
		if err := copyReportFile(stk, rep.FilePath, generateFlags.output); err != nil {
			return err
		}
		path = generateFlags.output
	}

	if ui.IsSilent() {
		fmt.Println(path)
		return nil
	}
	printSummary(creator.View(), rep.Format, string(rep.Status), path, time.Since(start))
	return nil
}

func copyReportFile(stk *stack, rel, dest string) error {
	src, err := stk.Files.Open(rel)
	if err != nil {
		return ioErr(err)
	}
	defer src.Close()

	dst, err := os.OpenFile(dest, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, defaults.FilePerm)
	if err != nil {
		return ioErr(err)
	}

	buf := bufpool.GetSlice(defaults.BufferMedium)
	_, err = io.CopyBuffer(dst, src, buf)
	bufpool.PutSlice(buf)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return ioErr(fmt.Errorf("copy report to %s: %w", dest, err))
	}
	return nil
}

func printSummary(view *report.View, format, status, file string, elapsed time.Duration) {
	if ui.IsSilent() {
		return
	}
	census := make(map[string]int, len(models.Severities()))
	for _, row := range view.Context.SeveritySummary() {
		census[string(row.Severity)] = row.Count
	}
	ui.PrintReportSummary(ui.ReportSummary{
		Name:       view.Context.ReportName,
		Scope:      string(view.Scope),
		Format:     format,
		Status:     status,
		File:       file,
		Findings:   len(view.Context.Findings),
		BySeverity: census,
		Duration:   elapsed,
	})
}
