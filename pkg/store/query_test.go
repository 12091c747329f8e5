package store

import (
	"testing"
	"time"

	"github.com/vulndesk/vulndesk/pkg/models"
)

func boolPtr(b bool) *bool { return &b }

func TestFindingFilterMatches(t *testing.T) {
	finding := models.Finding{
		ID:       1,
		Severity: models.SeverityHigh,
		Active:   true,
		Verified: true,
		Date:     models.NewDate(2026, time.March, 10),
	}

	tests := []struct {
		name   string
		filter FindingFilter
		want   bool
	}{
		{"zero filter matches everything", FindingFilter{}, true},
		{"severity match", FindingFilter{Severity: models.SeverityHigh}, true},
		{"severity mismatch", FindingFilter{Severity: models.SeverityLow}, false},
		{"active match", FindingFilter{Active: boolPtr(true)}, true},
		{"active mismatch", FindingFilter{Active: boolPtr(false)}, false},
		{"verified mismatch", FindingFilter{Verified: boolPtr(false)}, false},
		{"duplicate false matches", FindingFilter{Duplicate: boolPtr(false)}, true},
		{"date window contains", FindingFilter{
			DateFrom: models.NewDate(2026, time.March, 1),
			DateTo:   models.NewDate(2026, time.March, 31),
		}, true},
		{"date window before", FindingFilter{DateFrom: models.NewDate(2026, time.April, 1)}, false},
		{"date window after", FindingFilter{DateTo: models.NewDate(2026, time.February, 28)}, false},
		{"date boundary inclusive", FindingFilter{
			DateFrom: models.NewDate(2026, time.March, 10),
			DateTo:   models.NewDate(2026, time.March, 10),
		}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.filter.Matches(finding); got != tc.want {
				t.Errorf("Matches = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestFindingFilterIsZero(t *testing.T) {
	if !(FindingFilter{}).IsZero() {
		t.Error("empty filter should be zero")
	}
	if (FindingFilter{Severity: models.SeverityInfo}).IsZero() {
		t.Error("severity-constrained filter should not be zero")
	}
	if (FindingFilter{Active: boolPtr(false)}).IsZero() {
		t.Error("tri-state false is a constraint, not zero")
	}
}

func TestFindingIDs(t *testing.T) {
	ids := FindingIDs([]models.Finding{{ID: 9}, {ID: 4}, {ID: 7}})
	want := []int64{9, 4, 7}
	if len(ids) != len(want) {
		t.Fatalf("len = %d, want %d", len(ids), len(want))
	}
	for i := range want {
		if ids[i] != want[i] {
			t.Errorf("ids[%d] = %d, want %d (order must be preserved)", i, ids[i], want[i])
		}
	}
}
