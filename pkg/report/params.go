package report

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/store"
)

// IncludeFlags toggle the optional report sections. All default to off.
type IncludeFlags struct {
	FindingNotes     bool
	FindingImages    bool
	ExecutiveSummary bool
	TableOfContents  bool
}

// Params carries one request's report options: the inclusion flags, the
// finding field filters, and the raw parameter set as the caller passed it
// (echoed into the rendered document under "parameters").
type Params struct {
	Raw     map[string]string
	Include IncludeFlags
	Filter  store.FindingFilter
}

// Parameter names recognized by ParseParams. Anything else is carried in
// Raw untouched.
const (
	paramFindingNotes     = "include_finding_notes"
	paramFindingImages    = "include_finding_images"
	paramExecutiveSummary = "include_executive_summary"
	paramTableOfContents  = "include_table_of_contents"

	paramSeverity  = "severity"
	paramActive    = "active"
	paramVerified  = "verified"
	paramDuplicate = "duplicate"
	paramDateFrom  = "date_from"
	paramDateTo    = "date_to"
)

// ParseParams extracts the inclusion flags and finding filters from a
// query-parameter set. Unknown keys are preserved in Raw; malformed values
// for known keys are an error.
func ParseParams(values url.Values) (Params, error) {
	p := Params{Raw: make(map[string]string, len(values))}
	for key := range values {
		p.Raw[key] = values.Get(key)
	}

	var err error
	if p.Include.FindingNotes, err = flagValue(values, paramFindingNotes); err != nil {
		return Params{}, err
	}
	if p.Include.FindingImages, err = flagValue(values, paramFindingImages); err != nil {
		return Params{}, err
	}
	if p.Include.ExecutiveSummary, err = flagValue(values, paramExecutiveSummary); err != nil {
		return Params{}, err
	}
	if p.Include.TableOfContents, err = flagValue(values, paramTableOfContents); err != nil {
		return Params{}, err
	}

	if raw := values.Get(paramSeverity); raw != "" {
		sev := models.ParseSeverity(raw)
		if !sev.IsValid() {
			return Params{}, fmt.Errorf("report: parameter %s: unknown severity %q", paramSeverity, raw)
		}
		p.Filter.Severity = sev
	}
	for _, b := range []struct {
		key  string
		dest **bool
	}{
		{paramActive, &p.Filter.Active},
		{paramVerified, &p.Filter.Verified},
		{paramDuplicate, &p.Filter.Duplicate},
	} {
		if !values.Has(b.key) {
			continue
		}
		v, err := parseBool(values.Get(b.key))
		if err != nil {
			return Params{}, fmt.Errorf("report: parameter %s: %w", b.key, err)
		}
		*b.dest = &v
	}
	if raw := values.Get(paramDateFrom); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return Params{}, fmt.Errorf("report: parameter %s: %w", paramDateFrom, err)
		}
		p.Filter.DateFrom = d
	}
	if raw := values.Get(paramDateTo); raw != "" {
		d, err := models.ParseDate(raw)
		if err != nil {
			return Params{}, fmt.Errorf("report: parameter %s: %w", paramDateTo, err)
		}
		p.Filter.DateTo = d
	}
	return p, nil
}

func flagValue(values url.Values, key string) (bool, error) {
	if !values.Has(key) {
		return false, nil
	}
	v, err := parseBool(values.Get(key))
	if err != nil {
		return false, fmt.Errorf("report: parameter %s: %w", key, err)
	}
	return v, nil
}

// parseBool accepts strconv forms plus the HTML checkbox value "on".
func parseBool(raw string) (bool, error) {
	if raw == "on" {
		return true, nil
	}
	if raw == "" {
		return true, nil
	}
	return strconv.ParseBool(raw)
}
