// Package store defines the query contract the report engine consumes.
// Creators never touch a database directly; they traverse the product
// hierarchy through this interface, so any backend that can answer these
// queries can feed reports. The in-memory reference implementation lives
// in store/memstore.
package store

import (
	"context"

	"github.com/vulndesk/vulndesk/pkg/models"
)

// Store answers the record lookups and traversals reports are built from.
//
// Slice-returning methods must order results deterministically (findings
// by date then ID, everything else by ID): rendering the same report twice
// must produce identical output.
type Store interface {
	// Root lookups.
	ProductType(ctx context.Context, id int64) (models.ProductType, error)
	Product(ctx context.Context, id int64) (models.Product, error)
	Engagement(ctx context.Context, id int64) (models.Engagement, error)
	Test(ctx context.Context, id int64) (models.Test, error)
	Endpoint(ctx context.Context, id int64) (models.Endpoint, error)

	// Users, for request attribution and authorization.
	User(ctx context.Context, id int64) (models.User, error)
	UserByUsername(ctx context.Context, username string) (models.User, error)

	// Findings returns findings matching the query with relations attached
	// (test, engagement, product, product type, reporter).
	Findings(ctx context.Context, q FindingQuery) ([]models.Finding, error)

	// Distinct traversals used by scope enrichment. Each returns the
	// records that contain at least one of the given findings.
	ProductsForFindings(ctx context.Context, productTypeID int64, findingIDs []int64) ([]models.Product, error)
	EngagementsForFindings(ctx context.Context, findingIDs []int64) ([]models.Engagement, error)
	TestsForFindings(ctx context.Context, findingIDs []int64) ([]models.Test, error)

	// EndpointsByHost returns the endpoints of one product whose host
	// (ignoring any port suffix) matches the given host.
	EndpointsByHost(ctx context.Context, productID int64, host string) ([]models.Endpoint, error)

	// NotesForFinding returns a finding's notes in attachment order.
	NotesForFinding(ctx context.Context, findingID int64) ([]models.Note, error)

	// Report rows.
	CreateReport(ctx context.Context, r *models.Report) error
	UpdateReport(ctx context.Context, r *models.Report) error
	Report(ctx context.Context, id int64) (*models.Report, error)
	Reports(ctx context.Context) ([]*models.Report, error)
}
