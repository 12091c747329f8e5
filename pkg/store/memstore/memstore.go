// Package memstore is the in-memory reference implementation of
// store.Store. It backs the CLI and the test suites, and doubles as the
// seed-data store for standalone deployments: load a snapshot file and
// every report scope works without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vulndesk/vulndesk/pkg/models"
	"github.com/vulndesk/vulndesk/pkg/store"
)

// Compile-time interface check.
var _ store.Store = (*Store)(nil)

// Store holds the record graph behind a RWMutex. Records are registered
// with their relation pointers already wired (AddFinding expects
// finding.Test.Engagement.Product to be reachable); queries hand back
// shallow copies that share those pointers.
type Store struct {
	mu sync.RWMutex

	productTypes map[int64]models.ProductType
	products     map[int64]models.Product
	engagements  map[int64]models.Engagement
	tests        map[int64]models.Test
	endpoints    map[int64]models.Endpoint
	findings     map[int64]models.Finding
	notes        map[int64]models.Note
	users        map[int64]models.User

	reports      map[int64]models.Report
	nextReportID int64
}

// New returns an empty store.
func New() *Store {
	return &Store{
		productTypes: make(map[int64]models.ProductType),
		products:     make(map[int64]models.Product),
		engagements:  make(map[int64]models.Engagement),
		tests:        make(map[int64]models.Test),
		endpoints:    make(map[int64]models.Endpoint),
		findings:     make(map[int64]models.Finding),
		notes:        make(map[int64]models.Note),
		users:        make(map[int64]models.User),
		reports:      make(map[int64]models.Report),
	}
}

// Add registers records of any supported kind, keyed by their IDs.
// Unknown kinds panic: registration happens at wiring time, not runtime.
func (s *Store) Add(records ...any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		switch v := r.(type) {
		case models.ProductType:
			s.productTypes[v.ID] = v
		case models.Product:
			s.products[v.ID] = v
		case models.Engagement:
			s.engagements[v.ID] = v
		case models.Test:
			s.tests[v.ID] = v
		case models.Endpoint:
			s.endpoints[v.ID] = v
		case models.Finding:
			s.findings[v.ID] = v
		case models.Note:
			s.notes[v.ID] = v
		case models.User:
			s.users[v.ID] = v
		default:
			panic(fmt.Sprintf("memstore: unsupported record type %T", r))
		}
	}
}

// ProductType looks up a product type by ID.
func (s *Store) ProductType(_ context.Context, id int64) (models.ProductType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pt, ok := s.productTypes[id]
	if !ok {
		return models.ProductType{}, fmt.Errorf("product type %d: %w", id, store.ErrNotFound)
	}
	return pt, nil
}

// Product looks up a product by ID.
func (s *Store) Product(_ context.Context, id int64) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return models.Product{}, fmt.Errorf("product %d: %w", id, store.ErrNotFound)
	}
	return p, nil
}

// Engagement looks up an engagement by ID.
func (s *Store) Engagement(_ context.Context, id int64) (models.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.engagements[id]
	if !ok {
		return models.Engagement{}, fmt.Errorf("engagement %d: %w", id, store.ErrNotFound)
	}
	return e, nil
}

// Test looks up a test by ID.
func (s *Store) Test(_ context.Context, id int64) (models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tests[id]
	if !ok {
		return models.Test{}, fmt.Errorf("test %d: %w", id, store.ErrNotFound)
	}
	return t, nil
}

// Endpoint looks up an endpoint by ID.
func (s *Store) Endpoint(_ context.Context, id int64) (models.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.endpoints[id]
	if !ok {
		return models.Endpoint{}, fmt.Errorf("endpoint %d: %w", id, store.ErrNotFound)
	}
	return e, nil
}

// User looks up a user by ID.
func (s *Store) User(_ context.Context, id int64) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return models.User{}, fmt.Errorf("user %d: %w", id, store.ErrNotFound)
	}
	return u, nil
}

// UserByUsername looks up a user by username.
func (s *Store) UserByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return models.User{}, fmt.Errorf("user %q: %w", username, store.ErrNotFound)
}

// Findings returns findings matching q, ordered by date then ID.
func (s *Store) Findings(_ context.Context, q store.FindingQuery) ([]models.Finding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var idSet map[int64]struct{}
	if len(q.IDs) > 0 {
		idSet = make(map[int64]struct{}, len(q.IDs))
		for _, id := range q.IDs {
			idSet[id] = struct{}{}
		}
	}
	var endpointSet map[int64]struct{}
	if len(q.EndpointIDs) > 0 {
		endpointSet = make(map[int64]struct{}, len(q.EndpointIDs))
		for _, id := range q.EndpointIDs {
			endpointSet[id] = struct{}{}
		}
	}

	var out []models.Finding
	for _, f := range s.findings {
		if !matchesAnchor(f, q, idSet, endpointSet) {
			continue
		}
		if !q.Filter.Matches(f) {
			continue
		}
		if q.AuthorizedUserID != 0 {
			p := f.Product()
			if p == nil || !p.AuthorizedFor(q.AuthorizedUserID) {
				continue
			}
		}
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func matchesAnchor(f models.Finding, q store.FindingQuery, idSet, endpointSet map[int64]struct{}) bool {
	if idSet != nil {
		if _, ok := idSet[f.ID]; !ok {
			return false
		}
	}
	if endpointSet != nil {
		hit := false
		for _, eid := range f.EndpointIDs {
			if _, ok := endpointSet[eid]; ok {
				hit = true
				break
			}
		}
		if !hit {
			return false
		}
	}
	if q.TestID != 0 && (f.Test == nil || f.Test.ID != q.TestID) {
		return false
	}
	if q.EngagementID != 0 {
		if f.Test == nil || f.Test.Engagement == nil || f.Test.Engagement.ID != q.EngagementID {
			return false
		}
	}
	if q.ProductID != 0 {
		p := f.Product()
		if p == nil || p.ID != q.ProductID {
			return false
		}
	}
	if q.ProductTypeID != 0 {
		p := f.Product()
		if p == nil || p.ProdType == nil || p.ProdType.ID != q.ProductTypeID {
			return false
		}
	}
	return true
}

// ProductsForFindings returns the distinct products containing at least
// one of the given findings, restricted to a product type when
// productTypeID is non-zero. Ordered by ID.
func (s *Store) ProductsForFindings(_ context.Context, productTypeID int64, findingIDs []int64) ([]models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]models.Product)
	for _, id := range findingIDs {
		f, ok := s.findings[id]
		if !ok {
			continue
		}
		p := f.Product()
		if p == nil {
			continue
		}
		if productTypeID != 0 && (p.ProdType == nil || p.ProdType.ID != productTypeID) {
			continue
		}
		seen[p.ID] = *p
	}
	return sortProducts(seen), nil
}

// EngagementsForFindings returns the distinct engagements containing at
// least one of the given findings, ordered by ID.
func (s *Store) EngagementsForFindings(_ context.Context, findingIDs []int64) ([]models.Engagement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]models.Engagement)
	for _, id := range findingIDs {
		f, ok := s.findings[id]
		if !ok || f.Test == nil || f.Test.Engagement == nil {
			continue
		}
		seen[f.Test.Engagement.ID] = *f.Test.Engagement
	}
	out := make([]models.Engagement, 0, len(seen))
	for _, e := range seen {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// TestsForFindings returns the distinct tests containing at least one of
// the given findings, ordered by ID.
func (s *Store) TestsForFindings(_ context.Context, findingIDs []int64) ([]models.Test, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[int64]models.Test)
	for _, id := range findingIDs {
		f, ok := s.findings[id]
		if !ok || f.Test == nil {
			continue
		}
		seen[f.Test.ID] = *f.Test
	}
	out := make([]models.Test, 0, len(seen))
	for _, t := range seen {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// EndpointsByHost returns one product's endpoints whose port-stripped
// host equals the port-stripped input host, ordered by ID.
func (s *Store) EndpointsByHost(_ context.Context, productID int64, host string) ([]models.Endpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := (models.Endpoint{Host: host}).HostNoPort()
	var out []models.Endpoint
	for _, e := range s.endpoints {
		if e.Product == nil || e.Product.ID != productID {
			continue
		}
		if e.HostNoPort() != want {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// NotesForFinding returns a finding's notes in attachment order.
func (s *Store) NotesForFinding(_ context.Context, findingID int64) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	f, ok := s.findings[findingID]
	if !ok {
		return nil, fmt.Errorf("finding %d: %w", findingID, store.ErrNotFound)
	}
	var out []models.Note
	for _, nid := range f.NoteIDs {
		if n, ok := s.notes[nid]; ok {
			out = append(out, n)
		}
	}
	return out, nil
}

// CreateReport assigns the next ID and persists a copy of the row.
func (s *Store) CreateReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextReportID++
	r.ID = s.nextReportID
	s.reports[r.ID] = *r
	return nil
}

// UpdateReport persists a copy of an existing row.
func (s *Store) UpdateReport(_ context.Context, r *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[r.ID]; !ok {
		return fmt.Errorf("report %d: %w", r.ID, store.ErrNotFound)
	}
	s.reports[r.ID] = *r
	return nil
}

// Report returns a copy of the row with the given ID.
func (s *Store) Report(_ context.Context, id int64) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %d: %w", id, store.ErrNotFound)
	}
	out := r
	return &out, nil
}

// Reports returns copies of all rows, ordered by ID.
func (s *Store) Reports(_ context.Context) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		cp := r
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func sortProducts(seen map[int64]models.Product) []models.Product {
	out := make([]models.Product, 0, len(seen))
	for _, p := range seen {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
