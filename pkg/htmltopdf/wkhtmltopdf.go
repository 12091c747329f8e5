package htmltopdf

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// Wkhtmltopdf shells out to the wkhtmltopdf binary, reading HTML on stdin
// and collecting the PDF from stdout. This is the canonical converter:
// it is the only one that honors every Option, including the XSL table
// of contents.
type Wkhtmltopdf struct {
	// Path is the executable to run. Empty means "wkhtmltopdf" resolved
	// through PATH.
	Path string
}

var _ Converter = (*Wkhtmltopdf)(nil)

func (w *Wkhtmltopdf) path() string {
	if w.Path != "" {
		return w.Path
	}
	return "wkhtmltopdf"
}

func (w *Wkhtmltopdf) Convert(ctx context.Context, html []byte, opts Options) ([]byte, error) {
	bin, err := exec.LookPath(w.path())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotInstalled, err)
	}

	cmd := exec.CommandContext(ctx, bin, buildArgs(opts)...)
	cmd.Stdin = bytes.NewReader(html)
	var out, stderr bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			return nil, fmt.Errorf("htmltopdf: wkhtmltopdf: %w", err)
		}
		return nil, fmt.Errorf("htmltopdf: wkhtmltopdf: %w: %s", err, msg)
	}
	return out.Bytes(), nil
}

// buildArgs assembles the wkhtmltopdf object list: global flags, then
// cover and toc objects in the requested order, then stdin to stdout.
func buildArgs(opts Options) []string {
	args := []string{"--quiet", "--encoding", "utf-8"}

	var cover, toc []string
	if opts.CoverURL != "" {
		cover = []string{"cover", opts.CoverURL}
	}
	if opts.TOCStylesheet != "" {
		toc = []string{"toc", "--xsl-style-sheet", opts.TOCStylesheet}
	}
	if opts.CoverFirst {
		args = append(args, cover...)
		args = append(args, toc...)
	} else {
		args = append(args, toc...)
		args = append(args, cover...)
	}

	return append(args, "-", "-")
}
