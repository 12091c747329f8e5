package memstore

import (
	"time"

	"github.com/vulndesk/vulndesk/pkg/models"
)

// Sample returns a store preloaded with the demo dataset. The serve and
// generate commands fall back to it when no snapshot file is configured,
// and the HTTP handler tests run against it.
func Sample() *Store {
	s, err := FromSnapshot(SampleSnapshot())
	if err != nil {
		panic("memstore: sample snapshot is inconsistent: " + err.Error())
	}
	return s
}

// SampleSnapshot returns the demo dataset in snapshot form, for the seed
// command to write out as a starting point for custom data files.
func SampleSnapshot() Snapshot {
	mitigated := time.Date(2026, time.February, 9, 10, 30, 0, 0, time.UTC)
	return Snapshot{
		ProductTypes: []models.ProductType{
			{ID: 1, Name: "Web Applications", Description: "Customer-facing web properties", CriticalProduct: true},
			{ID: 2, Name: "Internal Services", Description: "Back-office APIs and batch jobs"},
		},
		TestTypes: []models.TestType{
			{ID: 1, Name: "Manual Pen Test", DynamicTool: false},
			{ID: 2, Name: "SAST Scan", StaticTool: true},
		},
		Users: []models.User{
			{ID: 1, Username: "admin", FirstName: "Ada", LastName: "Moreno", Email: "admin@example.com", IsStaff: true},
			{ID: 2, Username: "rivera", FirstName: "Sam", LastName: "Rivera", Email: "rivera@example.com"},
			{ID: 3, Username: "chen", FirstName: "Li", LastName: "Chen", Email: "chen@example.com"},
		},
		Products: []ProductRecord{
			{ID: 1, Name: "Storefront", Description: "Primary e-commerce site", ProdTypeID: 1,
				Created:           time.Date(2025, time.June, 2, 9, 0, 0, 0, time.UTC),
				AuthorizedUserIDs: []int64{2, 3}},
			{ID: 2, Name: "Billing API", Description: "Invoice and payment processing", ProdTypeID: 2,
				Created:           time.Date(2025, time.September, 14, 9, 0, 0, 0, time.UTC),
				AuthorizedUserIDs: []int64{2}},
		},
		Engagements: []EngagementRecord{
			{ID: 1, Name: "Q1 Penetration Test", ProductID: 1,
				TargetStart: models.NewDate(2026, time.January, 12),
				TargetEnd:   models.NewDate(2026, time.March, 27),
				Active:      true, Status: "In Progress"},
			{ID: 2, Name: "Continuous AppSec", ProductID: 2,
				TargetStart: models.NewDate(2025, time.November, 3),
				TargetEnd:   models.NewDate(2026, time.October, 30),
				Active:      true, Status: "In Progress"},
		},
		Tests: []TestRecord{
			{ID: 1, Title: "Checkout flow review", TestTypeID: 1, EngagementID: 1,
				TargetStart: time.Date(2026, time.February, 2, 9, 0, 0, 0, time.UTC),
				TargetEnd:   time.Date(2026, time.February, 27, 17, 0, 0, 0, time.UTC),
				Environment: "Production"},
			{ID: 2, Title: "Pipeline scan", TestTypeID: 2, EngagementID: 2,
				TargetStart: time.Date(2025, time.November, 10, 0, 0, 0, 0, time.UTC),
				TargetEnd:   time.Date(2025, time.November, 10, 4, 0, 0, 0, time.UTC),
				Environment: "Staging"},
		},
		Endpoints: []EndpointRecord{
			{ID: 1, Protocol: "https", Host: "store.example.com", Path: "checkout", ProductID: 1},
			{ID: 2, Protocol: "https", Host: "store.example.com:8443", Path: "admin", ProductID: 1},
			{ID: 3, Protocol: "https", Host: "billing.internal.example.com", Path: "v2/invoices", ProductID: 2},
		},
		Notes: []NoteRecord{
			{ID: 1, Entry: "Confirmed with the payments team, fix scheduled for the next sprint.",
				AuthorID: 2, Date: time.Date(2026, time.February, 11, 15, 4, 0, 0, time.UTC)},
		},
		Findings: []FindingRecord{
			{ID: 1, Title: "SQL injection in checkout coupon field",
				Date: models.NewDate(2026, time.February, 10), CWE: 89, Severity: models.SeverityCritical,
				Description: "The coupon parameter is concatenated into a SQL statement.",
				Mitigation:  "Use parameterized queries for all coupon lookups.",
				Impact:      "Full read access to the orders database.",
				Active:      true, Verified: true,
				TestID: 1, ReporterID: 2, EndpointIDs: []int64{1}, NoteIDs: []int64{1}},
			{ID: 2, Title: "Session cookie missing Secure flag",
				Date: models.NewDate(2026, time.February, 12), CWE: 614, Severity: models.SeverityMedium,
				Description: "Session cookies are issued without the Secure attribute.",
				Mitigation:  "Set Secure and SameSite on all session cookies.",
				Active:      true,
				TestID:      1, ReporterID: 2, EndpointIDs: []int64{1, 2}},
			{ID: 3, Title: "Stack trace disclosure on error page",
				Date: models.NewDate(2026, time.March, 2), CWE: 209, Severity: models.SeverityLow,
				Description: "Unhandled exceptions render full stack traces.",
				Active:      true,
				TestID:      1, ReporterID: 3, EndpointIDs: []int64{2}},
			{ID: 4, Title: "Hardcoded credentials in build script",
				Date: models.NewDate(2025, time.November, 12), CWE: 798, Severity: models.SeverityHigh,
				Description: "A deploy token is committed to the repository.",
				Mitigation:  "Move the token into the secret store and rotate it.",
				Active:      true, Verified: true,
				TestID: 2, ReporterID: 1},
			{ID: 5, Title: "Outdated TLS configuration",
				Date: models.NewDate(2025, time.December, 1), CWE: 327, Severity: models.SeverityMedium,
				Description: "TLS 1.0 is still accepted on the invoice endpoint.",
				Mitigated:   &mitigated,
				TestID:      2, ReporterID: 1, EndpointIDs: []int64{3}},
			{ID: 6, Title: "XML external entity processing enabled",
				Date: models.NewDate(2026, time.April, 5), CWE: 611, Severity: models.SeverityHigh,
				Description: "The invoice importer resolves external entities.",
				Mitigation:  "Disable DTD processing in the XML parser.",
				Active:      true, Verified: true,
				TestID: 2, ReporterID: 2, EndpointIDs: []int64{3}},
		},
	}
}
