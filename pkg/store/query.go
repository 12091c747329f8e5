package store

import "github.com/vulndesk/vulndesk/pkg/models"

// FindingFilter narrows a finding traversal by field values. Zero values
// mean "no constraint"; tri-state booleans use pointers.
type FindingFilter struct {
	Severity  models.Severity
	Active    *bool
	Verified  *bool
	Duplicate *bool
	DateFrom  models.Date
	DateTo    models.Date
}

// IsZero reports whether the filter constrains nothing.
func (f FindingFilter) IsZero() bool {
	return f.Severity == "" && f.Active == nil && f.Verified == nil &&
		f.Duplicate == nil && f.DateFrom.IsZero() && f.DateTo.IsZero()
}

// Matches reports whether the finding satisfies every set constraint.
func (f FindingFilter) Matches(finding models.Finding) bool {
	if f.Severity != "" && finding.Severity != f.Severity {
		return false
	}
	if f.Active != nil && finding.Active != *f.Active {
		return false
	}
	if f.Verified != nil && finding.Verified != *f.Verified {
		return false
	}
	if f.Duplicate != nil && finding.Duplicate != *f.Duplicate {
		return false
	}
	if !f.DateFrom.IsZero() && finding.Date.Before(f.DateFrom.Time) {
		return false
	}
	if !f.DateTo.IsZero() && finding.Date.After(f.DateTo.Time) {
		return false
	}
	return true
}

// FindingQuery selects findings reachable from one point of the product
// hierarchy. At most one hierarchy anchor (ProductTypeID, ProductID,
// EngagementID, TestID, EndpointIDs, IDs) is set per query; creators pick
// the anchor for their scope.
//
// AuthorizedUserID, when non-zero, restricts results to findings whose
// owning product lists that user as authorized. Callers decide when the
// restriction applies; an unauthorized traversal yields an empty slice,
// never an error.
type FindingQuery struct {
	ProductTypeID int64
	ProductID     int64
	EngagementID  int64
	TestID        int64
	EndpointIDs   []int64
	IDs           []int64

	Filter           FindingFilter
	AuthorizedUserID int64
}

// FindingIDs projects the IDs out of a finding slice, preserving order.
func FindingIDs(findings []models.Finding) []int64 {
	ids := make([]int64, len(findings))
	for i, f := range findings {
		ids[i] = f.ID
	}
	return ids
}
