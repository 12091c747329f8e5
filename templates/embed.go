// Package templates embeds the bundled report templates and renders them.
//
// Embedding ensures reports generate identically regardless of installation
// method (Docker, package manager, or a bare binary). Each report scope has
// a text template under text/ and an HTML template under pdf/; pdf/ also
// carries the cover page, the custom-report layout, and the wkhtmltopdf
// table-of-contents stylesheets.
package templates

import "embed"

// FS contains the bundled template files. Subdirectory structure matches
// the on-disk templates/ layout minus this Go file.
//
//go:embed text/*.tmpl pdf/*.tmpl pdf/*.xsl
var FS embed.FS
