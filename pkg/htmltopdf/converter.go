// Package htmltopdf drives HTML to PDF conversion for the report
// pipeline. Three converters ship: Wkhtmltopdf shells out to the
// canonical binary, Chrome prints through a headless browser, and Local
// typesets a rough approximation in pure Go for hosts with neither
// installed.
package htmltopdf

import (
	"context"
	"errors"
	"io/fs"
	"os/exec"
)

// ErrNotInstalled marks conversion failures caused by a missing or
// unlaunchable converter binary, so callers can log remediation hints
// instead of raw exec noise.
var ErrNotInstalled = errors.New("htmltopdf: converter not installed")

// Options carry the per-document converter settings.
type Options struct {
	// CoverURL, when set, is fetched and bound as the cover page.
	CoverURL string

	// CoverFirst places the cover before the table of contents.
	CoverFirst bool

	// TOCStylesheet is a path to an XSL stylesheet describing the table
	// of contents. Empty means no table of contents.
	TOCStylesheet string
}

// Converter renders an HTML document to PDF bytes.
type Converter interface {
	Convert(ctx context.Context, html []byte, opts Options) ([]byte, error)
}

// IsNotInstalled reports whether err was caused by a converter binary
// that is missing from the host.
func IsNotInstalled(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotInstalled) || errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var execErr *exec.Error
	return errors.As(err, &execErr)
}
