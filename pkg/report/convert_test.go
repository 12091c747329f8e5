package report

import (
	"errors"
	"testing"
	"time"

	"github.com/vulndesk/vulndesk/pkg/models"
)

func TestConvertScalars(t *testing.T) {
	t.Parallel()
	conv := &NativeConverter{}

	for _, tc := range []struct {
		name string
		in   any
		want any
	}{
		{"nil", nil, nil},
		{"bool", true, true},
		{"string", "checkout", "checkout"},
		{"int", 42, int64(42)},
		{"int32", int32(-7), int64(-7)},
		{"uint16", uint16(9), uint64(9)},
		{"float", 2.5, 2.5},
		{"named string type", models.SeverityCritical, "Critical"},
		{"bytes", []byte("raw"), "raw"},
		{"datetime", time.Date(2026, 2, 10, 14, 30, 5, 0, time.UTC), "2026-02-10T14:30:05"},
		{"date", models.NewDate(2026, time.February, 10), "2026-02-10"},
		{"time of day", models.NewTimeOfDay(14, 30, 5), "14:30:05"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got, err := conv.Convert(tc.in)
			if err != nil {
				t.Fatalf("Convert(%v): %v", tc.in, err)
			}
			if got != tc.want {
				t.Errorf("Convert(%v) = %#v, want %#v", tc.in, got, tc.want)
			}
		})
	}
}

func TestConvertDateRoundTrips(t *testing.T) {
	t.Parallel()

	d := models.NewDate(2026, time.March, 2)
	got, err := (&NativeConverter{}).Convert(d)
	if err != nil {
		t.Fatalf("Convert: %v", err)
	}
	back, err := models.ParseDate(got.(string))
	if err != nil {
		t.Fatalf("ParseDate(%q): %v", got, err)
	}
	if !back.Equal(d.Time) {
		t.Errorf("round trip = %v, want %v", back, d)
	}
}

func TestConvertContainers(t *testing.T) {
	t.Parallel()
	conv := &NativeConverter{}

	t.Run("slice keeps order", func(t *testing.T) {
		got, err := conv.Convert([]int{3, 1, 2})
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		want := []any{int64(3), int64(1), int64(2)}
		list := got.([]any)
		if len(list) != len(want) {
			t.Fatalf("len = %d, want %d", len(list), len(want))
		}
		for i := range want {
			if list[i] != want[i] {
				t.Errorf("[%d] = %v, want %v", i, list[i], want[i])
			}
		}
	})

	t.Run("map keys become strings", func(t *testing.T) {
		got, err := conv.Convert(map[int]string{1: "a", 2: "b"})
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		m := got.(map[string]any)
		if m["1"] != "a" || m["2"] != "b" {
			t.Errorf("map = %#v, want string keys 1 and 2", m)
		}
	})

	t.Run("nil pointer is nil", func(t *testing.T) {
		var p *models.Product
		got, err := conv.Convert(p)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		if got != nil {
			t.Errorf("Convert(nil pointer) = %#v, want nil", got)
		}
	})

	t.Run("pointer dereferences", func(t *testing.T) {
		d := models.NewDate(2025, time.November, 12)
		got, err := conv.Convert(&d)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		if got != "2025-11-12" {
			t.Errorf("Convert(&date) = %#v, want flattened date string", got)
		}
	})
}

func TestConvertRecordFieldMaps(t *testing.T) {
	t.Parallel()
	conv := &NativeConverter{}

	t.Run("finding uses json tags and drops link tables", func(t *testing.T) {
		f := models.Finding{
			ID:          1,
			Title:       "SQL injection in checkout coupon field",
			Date:        models.NewDate(2026, time.February, 10),
			CWE:         89,
			Severity:    models.SeverityCritical,
			Active:      true,
			EndpointIDs: []int64{1},
			NoteIDs:     []int64{1},
		}
		got, err := conv.Convert(f)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		m := got.(map[string]any)
		if m["id"] != int64(1) {
			t.Errorf("id = %#v, want 1", m["id"])
		}
		if m["title"] != f.Title {
			t.Errorf("title = %#v, want %q", m["title"], f.Title)
		}
		if m["date"] != "2026-02-10" {
			t.Errorf("date = %#v, want flattened date", m["date"])
		}
		if m["severity"] != "Critical" {
			t.Errorf("severity = %#v, want Critical", m["severity"])
		}
		if m["test"] != nil {
			t.Errorf("test = %#v, want nil for unset relation", m["test"])
		}
		for _, key := range []string{"EndpointIDs", "endpoint_ids", "NoteIDs", "note_ids"} {
			if _, ok := m[key]; ok {
				t.Errorf("field map leaked link table %q", key)
			}
		}
	})

	t.Run("user drops password", func(t *testing.T) {
		u := models.User{ID: 2, Username: "rivera", Password: "hash-not-for-export"}
		got, err := conv.Convert(u)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		m := got.(map[string]any)
		if m["username"] != "rivera" {
			t.Errorf("username = %#v, want rivera", m["username"])
		}
		if _, ok := m["password"]; ok {
			t.Error("password survived conversion")
		}
	})

	t.Run("nested relations convert recursively", func(t *testing.T) {
		f := models.Finding{
			ID:   4,
			Test: &models.Test{ID: 2, Title: "Pipeline scan"},
		}
		got, err := conv.Convert(f)
		if err != nil {
			t.Fatalf("Convert: %v", err)
		}
		test := got.(map[string]any)["test"].(map[string]any)
		if test["title"] != "Pipeline scan" {
			t.Errorf("test.title = %#v, want Pipeline scan", test["title"])
		}
	})
}

func TestConvertFieldsSelection(t *testing.T) {
	t.Parallel()
	conv := &NativeConverter{}
	f := models.Finding{ID: 1, Title: "XSS in search", Severity: models.SeverityHigh}

	t.Run("exclude drops fields", func(t *testing.T) {
		m, err := conv.ConvertFields(f, nil, []string{"severity"})
		if err != nil {
			t.Fatalf("ConvertFields: %v", err)
		}
		if _, ok := m["severity"]; ok {
			t.Error("excluded field present")
		}
		if m["title"] != "XSS in search" {
			t.Errorf("title = %#v, want kept", m["title"])
		}
	})

	t.Run("include keeps only named fields", func(t *testing.T) {
		m, err := conv.ConvertFields(f, []string{"id", "title"}, nil)
		if err != nil {
			t.Fatalf("ConvertFields: %v", err)
		}
		if len(m) != 2 {
			t.Fatalf("len = %d (%#v), want 2", len(m), m)
		}
		if m["id"] != int64(1) || m["title"] != "XSS in search" {
			t.Errorf("m = %#v, want id and title only", m)
		}
	})

	t.Run("include overrides exclude", func(t *testing.T) {
		m, err := conv.ConvertFields(f, []string{"severity"}, []string{"severity"})
		if err != nil {
			t.Fatalf("ConvertFields: %v", err)
		}
		if m["severity"] != "High" {
			t.Errorf("severity = %#v, want included despite exclude", m["severity"])
		}
	})

	t.Run("non-record input fails", func(t *testing.T) {
		if _, err := conv.ConvertFields(42, nil, nil); !errors.Is(err, ErrUnsupportedType) {
			t.Errorf("err = %v, want ErrUnsupportedType", err)
		}
	})
}

func TestConvertUnsupported(t *testing.T) {
	t.Parallel()

	ch := make(chan int)
	if _, err := (&NativeConverter{}).Convert(ch); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("Convert(chan) err = %v, want ErrUnsupportedType", err)
	}

	got, err := (&NativeConverter{IgnoreErrors: true}).Convert(ch)
	if err != nil {
		t.Fatalf("Convert with IgnoreErrors: %v", err)
	}
	if got != nil {
		t.Errorf("Convert(chan) = %#v, want nil under IgnoreErrors", got)
	}
}

func TestConvertDepthCap(t *testing.T) {
	t.Parallel()

	var nested any = "leaf"
	for range 20 {
		nested = []any{nested}
	}

	if _, err := (&NativeConverter{}).Convert(nested); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("deep nesting err = %v, want ErrUnsupportedType", err)
	}

	// A tighter cap trips sooner.
	shallow := []any{[]any{[]any{"leaf"}}}
	if _, err := (&NativeConverter{MaxDepth: 2}).Convert(shallow); !errors.Is(err, ErrUnsupportedType) {
		t.Errorf("MaxDepth=2 err = %v, want ErrUnsupportedType", err)
	}
	if _, err := (&NativeConverter{}).Convert(shallow); err != nil {
		t.Errorf("default cap rejected shallow nesting: %v", err)
	}

	got, err := (&NativeConverter{MaxDepth: 2, IgnoreErrors: true}).Convert(shallow)
	if err != nil {
		t.Fatalf("Convert with IgnoreErrors: %v", err)
	}
	if got == nil {
		t.Error("IgnoreErrors dropped the whole value, want outer layers kept")
	}
}
