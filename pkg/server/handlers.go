package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/vulndesk/vulndesk/pkg/bufpool"
	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/filestore"
	"github.com/vulndesk/vulndesk/pkg/jsonutil"
	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/report"
	"github.com/vulndesk/vulndesk/pkg/store"
	"github.com/vulndesk/vulndesk/templates"
)

// handler carries the report pipeline the routes drive.
type handler struct {
	store     store.Store
	engine    *report.Engine
	files     *filestore.Store
	templates *templates.Engine
	log       *slog.Logger
}

func (h *handler) reqLog(r *http.Request) *slog.Logger {
	return loggerFrom(r.Context(), h.log)
}

// createReport generates a scope report for one root record. JSON and
// text render inline; PDF responds 202 with the pending row.
func (h *handler) createReport(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r)

	scope, err := report.ParseScope(chi.URLParam(r, "scope"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	root, err := h.resolveRoot(r.Context(), scope, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, log, http.StatusNotFound, err.Error())
		return
	case err != nil:
		log.Error("resolve report root", "scope", string(scope), "id", id, "error", err)
		writeError(w, log, http.StatusInternalServerError, "resolve report root")
		return
	}
	h.generate(w, r, scope, root)
}

// createFindingReport generates an ad-hoc report over a picked finding
// set. The set may be empty; findings the requester may not see are
// dropped, not rejected.
func (h *handler) createFindingReport(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r)

	ids, err := parseIDList(r.URL.Query().Get("ids"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	picked := make([]models.Finding, len(ids))
	for i, id := range ids {
		picked[i] = models.Finding{ID: id}
	}
	h.generate(w, r, report.ScopeFinding, picked)
}

func (h *handler) generate(w http.ResponseWriter, r *http.Request, scope report.Scope, root any) {
	ctx := r.Context()
	log := h.reqLog(r)

	format, err := report.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	params, err := report.ParseParams(r.URL.Query())
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}

	creator, err := h.engine.CreatorFor(scope, userFrom(ctx))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return
	}
	if err := creator.Populate(ctx, root, params); err != nil {
		log.Error("populate report", "scope", string(scope), "error", err)
		writeError(w, log, http.StatusInternalServerError, "populate report")
		return
	}
	out, err := creator.Render(ctx, format)
	if err != nil {
		log.Error("render report", "scope", string(scope), "format", string(format), "error", err)
		writeError(w, log, http.StatusInternalServerError, "render report")
		return
	}

	if out.Format == report.FormatPDF {
		h.writeReportRow(w, r, http.StatusAccepted, out.Report.ID)
		return
	}
	w.Header().Set("Content-Type", string(out.Format)+"; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out.Body); err != nil {
		log.Error("write report body", "error", err)
	}
}

// customReportRequest is the POST /reports/custom body: a report name
// plus the options blob stored on the row.
type customReportRequest struct {
	Name string `json:"name"`
	report.CustomOptions
}

func (h *handler) createCustomReport(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r)

	var req customReportRequest
	body := http.MaxBytesReader(w, r.Body, defaults.MaxRequestBody)
	if err := jsonutil.NewDecoder(body).Decode(&req); err != nil {
		writeError(w, log, http.StatusBadRequest, "decode request body: "+err.Error())
		return
	}

	out, err := h.engine.GenerateCustom(r.Context(), req.Name, userFrom(r.Context()), req.CustomOptions)
	if err != nil {
		log.Error("generate custom report", "error", err)
		writeError(w, log, http.StatusInternalServerError, "generate custom report")
		return
	}
	h.writeReportRow(w, r, http.StatusAccepted, out.Report.ID)
}

func (h *handler) listReports(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r)

	rows, err := h.store.Reports(r.Context())
	if err != nil {
		log.Error("list report rows", "error", err)
		writeError(w, log, http.StatusInternalServerError, "list report rows")
		return
	}
	user := userFrom(r.Context())
	out := make([]apiReport, 0, len(rows))
	for _, rep := range rows {
		if visibleTo(user, rep) {
			out = append(out, toAPIReport(rep))
		}
	}
	writeJSON(w, log, http.StatusOK, out)
}

func (h *handler) getReport(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r)

	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, log, http.StatusOK, toAPIReport(rep))
}

// downloadReport streams the stored document. Rows that have not
// reached success are 409.
func (h *handler) downloadReport(w http.ResponseWriter, r *http.Request) {
	log := h.reqLog(r)

	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	if rep.Status != models.ReportStatusSuccess {
		writeError(w, log, http.StatusConflict,
			fmt.Sprintf("report %d is not ready: status %s", rep.ID, rep.Status))
		return
	}
	if h.files == nil {
		log.Error("download requested without a file store", "report_id", rep.ID)
		writeError(w, log, http.StatusInternalServerError, "file store not configured")
		return
	}
	f, err := h.files.Open(rep.FilePath)
	if err != nil {
		log.Error("open stored report", "report_id", rep.ID, "path", rep.FilePath, "error", err)
		writeError(w, log, http.StatusInternalServerError, "open stored report")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Type", contentTypeFor(rep.Format))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(rep.FilePath)))

	buf := bufpool.GetSlice(defaults.BufferMedium)
	defer bufpool.PutSlice(buf)
	if _, err := io.CopyBuffer(w, f, buf); err != nil {
		log.Error("stream stored report", "report_id", rep.ID, "error", err)
	}
}

// loadReport resolves the {id} route param to a visible report row. On
// failure the response is already written.
func (h *handler) loadReport(w http.ResponseWriter, r *http.Request) (*models.Report, bool) {
	log := h.reqLog(r)

	id, err := parseID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, log, http.StatusBadRequest, err.Error())
		return nil, false
	}
	rep, err := h.store.Report(r.Context(), id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, log, http.StatusNotFound, err.Error())
		return nil, false
	case err != nil:
		log.Error("load report row", "report_id", id, "error", err)
		writeError(w, log, http.StatusInternalServerError, "load report row")
		return nil, false
	}
	if !visibleTo(userFrom(r.Context()), rep) {
		writeError(w, log, http.StatusForbidden, "report belongs to another requester")
		return nil, false
	}
	return rep, true
}

// coverPage renders the standalone HTML cover the PDF converter fetches.
func (h *handler) coverPage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	w.Header().Set("Content-Type", defaults.ContentTypeHTML+"; charset=utf-8")
	err := h.templates.Cover(w, templates.CoverData{
		Title:    q.Get("title"),
		Subtitle: q.Get("subtitle"),
		Info:     q.Get("info"),
	})
	if err != nil {
		h.reqLog(r).Error("render cover page", "error", err)
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.reqLog(r), http.StatusOK, map[string]string{
		"status":  "ok",
		"version": defaults.Version,
	})
}

// writeReportRow responds with a fresh snapshot of the row. The copy
// handed back by Render belongs to the queued task once the job is
// enqueued, so handlers reread instead of touching it.
func (h *handler) writeReportRow(w http.ResponseWriter, r *http.Request, status int, id int64) {
	log := h.reqLog(r)
	rep, err := h.store.Report(r.Context(), id)
	if err != nil {
		log.Error("load report row", "report_id", id, "error", err)
		writeError(w, log, http.StatusInternalServerError, "load report row")
		return
	}
	writeJSON(w, log, status, toAPIReport(rep))
}

// resolveRoot loads the scope's root record. Ad-hoc finding roots are
// ID stubs; the creator re-resolves them under the requester's
// visibility.
func (h *handler) resolveRoot(ctx context.Context, scope report.Scope, id int64) (any, error) {
	switch scope {
	case report.ScopeProductType:
		return h.store.ProductType(ctx, id)
	case report.ScopeProduct:
		return h.store.Product(ctx, id)
	case report.ScopeEngagement:
		return h.store.Engagement(ctx, id)
	case report.ScopeTest:
		return h.store.Test(ctx, id)
	case report.ScopeEndpoint:
		return h.store.Endpoint(ctx, id)
	case report.ScopeFinding:
		return []models.Finding{{ID: id}}, nil
	}
	return nil, fmt.Errorf("%w: %q", report.ErrUnknownScope, scope)
}

// apiReport is the wire form of a report row: models.Report minus the
// requester's credential hash, which must never leave the process.
type apiReport struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Type      string     `json:"type"`
	Format    string     `json:"format"`
	Requester *apiUser   `json:"requester,omitempty"`
	TaskID    string     `json:"task_id,omitempty"`
	FilePath  string     `json:"file_path,omitempty"`
	Status    string     `json:"status"`
	Options   string     `json:"options,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	DoneAt    *time.Time `json:"done_at,omitempty"`
}

type apiUser struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	IsStaff  bool   `json:"is_staff"`
}

func toAPIReport(rep *models.Report) apiReport {
	out := apiReport{
		ID:        rep.ID,
		Name:      rep.Name,
		Type:      rep.Type,
		Format:    rep.Format,
		TaskID:    rep.TaskID,
		FilePath:  rep.FilePath,
		Status:    string(rep.Status),
		Options:   rep.Options,
		CreatedAt: rep.CreatedAt,
		DoneAt:    rep.DoneAt,
	}
	if rep.Requester != nil {
		out.Requester = &apiUser{
			ID:       rep.Requester.ID,
			Username: rep.Requester.Username,
			IsStaff:  rep.Requester.IsStaff,
		}
	}
	return out
}

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	if err := jsonutil.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, log *slog.Logger, status int, msg string) {
	writeJSON(w, log, status, errorBody{Error: msg})
}

func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("server: invalid id %q", raw)
	}
	return id, nil
}

// parseIDList splits a comma-separated ID list. Empty entries are
// skipped, so "1,,2" and "" both parse.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := parseID(part)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// contentTypeFor maps a report row's format tag to its MIME type.
func contentTypeFor(format string) string {
	switch strings.ToUpper(format) {
	case "PDF":
		return defaults.ContentTypePDF
	case "JSON":
		return defaults.ContentTypeJSON
	case "TEXT":
		return defaults.ContentTypePlain
	}
	return defaults.ContentTypeOctetStream
}
