package memstore

import (
	"fmt"
	"os"
	"time"

	"github.com/vulndesk/vulndesk/pkg/jsonutil"
	"github.com/vulndesk/vulndesk/pkg/models"
)

// Snapshot is the flat on-disk form of a record graph. Relations are
// foreign-key IDs; FromSnapshot rebuilds the pointers. Product types,
// test types and users carry no relations and reuse the model structs.
type Snapshot struct {
	ProductTypes []models.ProductType `json:"product_types"`
	TestTypes    []models.TestType    `json:"test_types"`
	Users        []models.User        `json:"users"`
	Products     []ProductRecord      `json:"products"`
	Engagements  []EngagementRecord   `json:"engagements"`
	Tests        []TestRecord         `json:"tests"`
	Endpoints    []EndpointRecord     `json:"endpoints"`
	Notes        []NoteRecord         `json:"notes"`
	Findings     []FindingRecord      `json:"findings"`
}

// ProductRecord is a flattened product row.
type ProductRecord struct {
	ID                int64     `json:"id"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	ProdTypeID        int64     `json:"prod_type_id"`
	Created           time.Time `json:"created"`
	AuthorizedUserIDs []int64   `json:"authorized_user_ids"`
}

// EngagementRecord is a flattened engagement row.
type EngagementRecord struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	ProductID   int64       `json:"product_id"`
	TargetStart models.Date `json:"target_start"`
	TargetEnd   models.Date `json:"target_end"`
	Active      bool        `json:"active"`
	Status      string      `json:"status"`
}

// TestRecord is a flattened test row.
type TestRecord struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	TestTypeID   int64     `json:"test_type_id"`
	EngagementID int64     `json:"engagement_id"`
	TargetStart  time.Time `json:"target_start"`
	TargetEnd    time.Time `json:"target_end"`
	Environment  string    `json:"environment"`
}

// EndpointRecord is a flattened endpoint row.
type EndpointRecord struct {
	ID        int64  `json:"id"`
	Protocol  string `json:"protocol"`
	Host      string `json:"host"`
	Path      string `json:"path"`
	Query     string `json:"query"`
	Fragment  string `json:"fragment"`
	ProductID int64  `json:"product_id"`
}

// NoteRecord is a flattened note row. AuthorID may be zero for system
// notes.
type NoteRecord struct {
	ID       int64     `json:"id"`
	Entry    string    `json:"entry"`
	AuthorID int64     `json:"author_id"`
	Date     time.Time `json:"date"`
	Private  bool      `json:"private"`
}

// FindingRecord is a flattened finding row. ReporterID may be zero for
// imported findings.
type FindingRecord struct {
	ID            int64           `json:"id"`
	Title         string          `json:"title"`
	Date          models.Date     `json:"date"`
	CWE           int             `json:"cwe"`
	Severity      models.Severity `json:"severity"`
	Description   string          `json:"description"`
	Mitigation    string          `json:"mitigation"`
	Impact        string          `json:"impact"`
	Active        bool            `json:"active"`
	Verified      bool            `json:"verified"`
	FalsePositive bool            `json:"false_positive"`
	Duplicate     bool            `json:"duplicate"`
	Mitigated     *time.Time      `json:"mitigated"`
	TestID        int64           `json:"test_id"`
	ReporterID    int64           `json:"reporter_id"`
	EndpointIDs   []int64         `json:"endpoint_ids"`
	NoteIDs       []int64         `json:"note_ids"`
}

// LoadSnapshot reads a snapshot file and returns a store over its graph.
func LoadSnapshot(path string) (*Store, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("memstore: read snapshot: %w", err)
	}
	var snap Snapshot
	if err := jsonutil.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("memstore: decode snapshot: %w", err)
	}
	return FromSnapshot(snap)
}

// FromSnapshot rebuilds relation pointers and registers every record.
// A record referencing an unknown ID fails the whole load; a partially
// wired graph would surface as nil-pointer panics much later, inside
// report generation.
func FromSnapshot(snap Snapshot) (*Store, error) {
	s := New()

	productTypes := make(map[int64]*models.ProductType, len(snap.ProductTypes))
	for i := range snap.ProductTypes {
		pt := &snap.ProductTypes[i]
		productTypes[pt.ID] = pt
		s.Add(*pt)
	}
	testTypes := make(map[int64]*models.TestType, len(snap.TestTypes))
	for i := range snap.TestTypes {
		tt := &snap.TestTypes[i]
		testTypes[tt.ID] = tt
	}
	users := make(map[int64]*models.User, len(snap.Users))
	for i := range snap.Users {
		u := &snap.Users[i]
		users[u.ID] = u
		s.Add(*u)
	}

	products := make(map[int64]*models.Product, len(snap.Products))
	for _, r := range snap.Products {
		pt, ok := productTypes[r.ProdTypeID]
		if !ok {
			return nil, fmt.Errorf("memstore: product %d: unknown product type %d", r.ID, r.ProdTypeID)
		}
		p := &models.Product{
			ID:                r.ID,
			Name:              r.Name,
			Description:       r.Description,
			ProdType:          pt,
			Created:           r.Created,
			AuthorizedUserIDs: r.AuthorizedUserIDs,
		}
		products[p.ID] = p
		s.Add(*p)
	}

	engagements := make(map[int64]*models.Engagement, len(snap.Engagements))
	for _, r := range snap.Engagements {
		p, ok := products[r.ProductID]
		if !ok {
			return nil, fmt.Errorf("memstore: engagement %d: unknown product %d", r.ID, r.ProductID)
		}
		e := &models.Engagement{
			ID:          r.ID,
			Name:        r.Name,
			Product:     p,
			TargetStart: r.TargetStart,
			TargetEnd:   r.TargetEnd,
			Active:      r.Active,
			Status:      r.Status,
		}
		engagements[e.ID] = e
		s.Add(*e)
	}

	tests := make(map[int64]*models.Test, len(snap.Tests))
	for _, r := range snap.Tests {
		tt, ok := testTypes[r.TestTypeID]
		if !ok {
			return nil, fmt.Errorf("memstore: test %d: unknown test type %d", r.ID, r.TestTypeID)
		}
		e, ok := engagements[r.EngagementID]
		if !ok {
			return nil, fmt.Errorf("memstore: test %d: unknown engagement %d", r.ID, r.EngagementID)
		}
		t := &models.Test{
			ID:          r.ID,
			Title:       r.Title,
			TestType:    tt,
			Engagement:  e,
			TargetStart: r.TargetStart,
			TargetEnd:   r.TargetEnd,
			Environment: r.Environment,
		}
		tests[t.ID] = t
		s.Add(*t)
	}

	for _, r := range snap.Endpoints {
		p, ok := products[r.ProductID]
		if !ok {
			return nil, fmt.Errorf("memstore: endpoint %d: unknown product %d", r.ID, r.ProductID)
		}
		s.Add(models.Endpoint{
			ID:       r.ID,
			Protocol: r.Protocol,
			Host:     r.Host,
			Path:     r.Path,
			Query:    r.Query,
			Fragment: r.Fragment,
			Product:  p,
		})
	}

	noteIDs := make(map[int64]struct{}, len(snap.Notes))
	for _, r := range snap.Notes {
		var author *models.User
		if r.AuthorID != 0 {
			u, ok := users[r.AuthorID]
			if !ok {
				return nil, fmt.Errorf("memstore: note %d: unknown author %d", r.ID, r.AuthorID)
			}
			author = u
		}
		noteIDs[r.ID] = struct{}{}
		s.Add(models.Note{
			ID:      r.ID,
			Entry:   r.Entry,
			Author:  author,
			Date:    r.Date,
			Private: r.Private,
		})
	}

	for _, r := range snap.Findings {
		t, ok := tests[r.TestID]
		if !ok {
			return nil, fmt.Errorf("memstore: finding %d: unknown test %d", r.ID, r.TestID)
		}
		var reporter *models.User
		if r.ReporterID != 0 {
			u, ok := users[r.ReporterID]
			if !ok {
				return nil, fmt.Errorf("memstore: finding %d: unknown reporter %d", r.ID, r.ReporterID)
			}
			reporter = u
		}
		for _, nid := range r.NoteIDs {
			if _, ok := noteIDs[nid]; !ok {
				return nil, fmt.Errorf("memstore: finding %d: unknown note %d", r.ID, nid)
			}
		}
		s.Add(models.Finding{
			ID:            r.ID,
			Title:         r.Title,
			Date:          r.Date,
			CWE:           r.CWE,
			Severity:      r.Severity,
			Description:   r.Description,
			Mitigation:    r.Mitigation,
			Impact:        r.Impact,
			Active:        r.Active,
			Verified:      r.Verified,
			FalsePositive: r.FalsePositive,
			Duplicate:     r.Duplicate,
			Mitigated:     r.Mitigated,
			Test:          t,
			Reporter:      reporter,
			EndpointIDs:   r.EndpointIDs,
			NoteIDs:       r.NoteIDs,
		})
	}

	return s, nil
}
