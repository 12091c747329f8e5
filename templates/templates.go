package templates

import (
	"errors"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// ErrNotFound is returned when no template exists for the requested key.
var ErrNotFound = errors.New("templates: no template for key")

// CoverData fills the PDF cover page.
type CoverData struct {
	Title    string
	Subtitle string
	Info     string
}

// Engine holds the parsed template sets. An Engine is safe for concurrent
// use; all parsing happens in New.
type Engine struct {
	text *template.Template
	html *htmltemplate.Template
	toc  *template.Template
	xsl  []byte
}

// New parses the embedded template sets.
func New() (*Engine, error) {
	text, err := template.New("text").Funcs(sprig.TxtFuncMap()).ParseFS(FS, "text/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("templates: parse text set: %w", err)
	}
	html, err := htmltemplate.New("pdf").Funcs(sprig.HtmlFuncMap()).ParseFS(FS, "pdf/*.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("templates: parse pdf set: %w", err)
	}
	toc, err := template.ParseFS(FS, "pdf/toc.xsl.tmpl")
	if err != nil {
		return nil, fmt.Errorf("templates: parse toc stylesheet template: %w", err)
	}
	xsl, err := FS.ReadFile("pdf/toc.xsl")
	if err != nil {
		return nil, fmt.Errorf("templates: read toc stylesheet: %w", err)
	}
	return &Engine{text: text, html: html, toc: toc, xsl: xsl}, nil
}

// HasText reports whether a text template exists for the key.
func (e *Engine) HasText(key string) bool {
	return e.text.Lookup(key+".tmpl") != nil
}

// Text renders the text template for the key.
func (e *Engine) Text(w io.Writer, key string, data any) error {
	name := key + ".tmpl"
	t := e.text.Lookup(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t.Execute(w, data)
}

// HasHTML reports whether an HTML template exists for the key.
func (e *Engine) HasHTML(key string) bool {
	return e.html.Lookup(key+".html.tmpl") != nil
}

// HTML renders the HTML template for the key.
func (e *Engine) HTML(w io.Writer, key string, data any) error {
	name := key + ".html.tmpl"
	t := e.html.Lookup(name)
	if t == nil {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return t.Execute(w, data)
}

// Cover renders the PDF cover page.
func (e *Engine) Cover(w io.Writer, data CoverData) error {
	return e.html.Lookup("cover.html.tmpl").Execute(w, data)
}

// TOCStylesheet returns the stock table-of-contents stylesheet.
func (e *Engine) TOCStylesheet() []byte {
	return e.xsl
}

// RenderTOCStylesheet renders the parameterized table-of-contents
// stylesheet with a custom header and heading depth.
func (e *Engine) RenderTOCStylesheet(w io.Writer, header string, depth int) error {
	if header == "" {
		header = "Table of Contents"
	}
	if depth < 1 {
		depth = 1
	}
	return e.toc.Execute(w, struct {
		HeaderText string
		Depth      int
	}{HeaderText: header, Depth: depth})
}
