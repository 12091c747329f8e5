package models

import (
	"fmt"
	"strings"
	"time"
)

// ProductType groups products into a business line or portfolio.
// It is the widest report scope.
type ProductType struct {
	ID              int64  `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	CriticalProduct bool   `json:"critical_product"`
	KeyProduct      bool   `json:"key_product"`
}

// String returns the product type name.
func (p ProductType) String() string { return p.Name }

// Product is a single tracked application or system.
//
// AuthorizedUserIDs is the access-control list consulted by product- and
// endpoint-scoped reports. It is a link table, not a field of the record,
// so it is excluded from serialized field maps.
type Product struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	ProdType    *ProductType `json:"prod_type"`
	Created     time.Time    `json:"created"`

	AuthorizedUserIDs []int64 `json:"-"`
}

// String returns the product name.
func (p Product) String() string { return p.Name }

// AuthorizedFor reports whether the user with the given ID is on the
// product's authorized-user list.
func (p Product) AuthorizedFor(userID int64) bool {
	for _, id := range p.AuthorizedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Engagement is a time-boxed testing effort against one product.
type Engagement struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Product     *Product `json:"product"`
	TargetStart Date     `json:"target_start"`
	TargetEnd   Date     `json:"target_end"`
	Active      bool     `json:"active"`
	Status      string   `json:"status"`
}

// String returns the engagement name, or its date window when unnamed.
func (e Engagement) String() string {
	if e.Name != "" {
		return e.Name
	}
	return e.TargetStart.String() + " - " + e.TargetEnd.String()
}

// TestType identifies the kind of assessment a test performed
// (e.g. "SAST Scan", "Manual Pen Test").
type TestType struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	StaticTool  bool   `json:"static_tool"`
	DynamicTool bool   `json:"dynamic_tool"`
}

// String returns the test type name.
func (t TestType) String() string { return t.Name }

// Test is one assessment run inside an engagement. Findings hang off tests.
type Test struct {
	ID          int64       `json:"id"`
	Title       string      `json:"title"`
	TestType    *TestType   `json:"test_type"`
	Engagement  *Engagement `json:"engagement"`
	TargetStart time.Time   `json:"target_start"`
	TargetEnd   time.Time   `json:"target_end"`
	Environment string      `json:"environment"`
}

// String returns "title (test type)" when titled, otherwise the test type
// name. Test-scoped report subtitles use this form.
func (t Test) String() string {
	typeName := ""
	if t.TestType != nil {
		typeName = t.TestType.Name
	}
	if t.Title == "" {
		return typeName
	}
	if typeName == "" {
		return t.Title
	}
	return fmt.Sprintf("%s (%s)", t.Title, typeName)
}

// Endpoint is a network location a finding was observed on. Host may carry
// a port suffix ("api.example.com:8443").
type Endpoint struct {
	ID       int64    `json:"id"`
	Protocol string   `json:"protocol"`
	Host     string   `json:"host"`
	Path     string   `json:"path"`
	Query    string   `json:"query"`
	Fragment string   `json:"fragment"`
	Product  *Product `json:"product"`
}

// HostNoPort returns the host with any ":port" suffix removed.
// Endpoint-scoped reports group sibling endpoints by this value.
func (e Endpoint) HostNoPort() string {
	if i := strings.IndexByte(e.Host, ':'); i >= 0 {
		return e.Host[:i]
	}
	return e.Host
}

// String reassembles the endpoint into URL-ish form.
func (e Endpoint) String() string {
	var sb strings.Builder
	if e.Protocol != "" {
		sb.WriteString(e.Protocol)
		sb.WriteString("://")
	}
	sb.WriteString(e.Host)
	if e.Path != "" {
		if !strings.HasPrefix(e.Path, "/") {
			sb.WriteByte('/')
		}
		sb.WriteString(e.Path)
	}
	if e.Query != "" {
		sb.WriteByte('?')
		sb.WriteString(e.Query)
	}
	if e.Fragment != "" {
		sb.WriteByte('#')
		sb.WriteString(e.Fragment)
	}
	return sb.String()
}

// User is a tracker account. Password is the stored credential hash; the
// report serializer strips it, and nothing else may emit it.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	IsStaff   bool   `json:"is_staff"`
}

// String returns the username.
func (u User) String() string { return u.Username }

// FullName returns "first last", falling back to the username.
func (u User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Username
	}
	return name
}

// Note is a free-text annotation attached to a finding.
type Note struct {
	ID      int64     `json:"id"`
	Entry   string    `json:"entry"`
	Author  *User     `json:"author"`
	Date    time.Time `json:"date"`
	Private bool      `json:"private"`
}

// Finding is a single tracked vulnerability.
//
// EndpointIDs and NoteIDs are link tables and excluded from serialized
// field maps; reports that need the linked records fetch them explicitly.
type Finding struct {
	ID            int64      `json:"id"`
	Title         string     `json:"title"`
	Date          Date       `json:"date"`
	CWE           int        `json:"cwe"`
	Severity      Severity   `json:"severity"`
	Description   string     `json:"description"`
	Mitigation    string     `json:"mitigation"`
	Impact        string     `json:"impact"`
	Active        bool       `json:"active"`
	Verified      bool       `json:"verified"`
	FalsePositive bool       `json:"false_positive"`
	Duplicate     bool       `json:"duplicate"`
	Mitigated     *time.Time `json:"mitigated"`
	Test          *Test      `json:"test"`
	Reporter      *User      `json:"reporter"`

	EndpointIDs []int64 `json:"-"`
	NoteIDs     []int64 `json:"-"`
}

// String returns the finding title.
func (f Finding) String() string { return f.Title }

// Product walks the relation chain to the owning product, or nil when the
// chain is incomplete.
func (f Finding) Product() *Product {
	if f.Test == nil || f.Test.Engagement == nil {
		return nil
	}
	return f.Test.Engagement.Product
}
