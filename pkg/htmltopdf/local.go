package htmltopdf

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"

	gofpdf "github.com/go-pdf/fpdf"
)

// Local is the pure-Go fallback converter. It extracts the document's
// text content and typesets it with fpdf: headings become bold lines,
// table cells collapse onto their row. Layout fidelity is deliberately
// rough; it exists so report generation works on hosts without
// wkhtmltopdf or Chrome, and so tests can exercise the full PDF path
// deterministically. Cover and table-of-contents options are ignored.
type Local struct {
	// NoCompression emits uncompressed page streams so tests can assert
	// on the raw bytes.
	NoCompression bool
}

var _ Converter = (*Local)(nil)

func (l *Local) Convert(_ context.Context, htmlDoc []byte, _ Options) ([]byte, error) {
	blocks := textBlocks(htmlDoc)

	pdf := gofpdf.New("P", "mm", "A4", "")
	if l.NoCompression {
		pdf.SetCompression(false)
	}
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	for _, b := range blocks {
		switch b.level {
		case 1:
			pdf.SetFont("Helvetica", "B", 16)
			pdf.SetTextColor(30, 41, 59)
			pdf.MultiCell(0, 8, b.text, "", "L", false)
			pdf.Ln(3)
		case 2:
			pdf.SetFont("Helvetica", "B", 13)
			pdf.SetTextColor(30, 41, 59)
			pdf.MultiCell(0, 7, b.text, "", "L", false)
			pdf.Ln(2)
		case 3:
			pdf.SetFont("Helvetica", "B", 11)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 6, b.text, "", "L", false)
			pdf.Ln(1)
		default:
			pdf.SetFont("Helvetica", "", 10)
			pdf.SetTextColor(60, 60, 60)
			pdf.MultiCell(0, 5, b.text, "", "L", false)
			pdf.Ln(1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("htmltopdf: local: %w", err)
	}
	return buf.Bytes(), nil
}

type textBlock struct {
	level int // 1..3 headings, 0 body text
	text  string
}

// blockTags end the current text block when opened or closed. Values are
// the heading level the following text belongs to.
var blockTags = map[string]int{
	"h1": 1, "h2": 2, "h3": 3,
	"p": 0, "div": 0, "li": 0, "tr": 0, "br": 0,
	"table": 0, "ul": 0, "ol": 0, "section": 0, "article": 0,
	"header": 0, "footer": 0, "blockquote": 0, "pre": 0,
}

// textBlocks reduces an HTML document to flat text blocks. It is a small
// hand tokenizer, not a parser: tags switch blocks, cell boundaries turn
// into separators, scripts and styles are dropped, and entities are
// decoded.
func textBlocks(doc []byte) []textBlock {
	var (
		blocks  []textBlock
		current strings.Builder
		level   int
		skip    string // inside <script>/<style>/<head>
	)
	flush := func() {
		text := collapseSpace(html.UnescapeString(current.String()))
		current.Reset()
		if text != "" {
			blocks = append(blocks, textBlock{level: level, text: text})
		}
	}

	s := string(doc)
	for i := 0; i < len(s); {
		if s[i] != '<' {
			j := strings.IndexByte(s[i:], '<')
			if j < 0 {
				j = len(s) - i
			}
			if skip == "" {
				current.WriteString(s[i : i+j])
			}
			i += j
			continue
		}
		end := strings.IndexByte(s[i:], '>')
		if end < 0 {
			break
		}
		tag := s[i+1 : i+end]
		i += end + 1

		closing := strings.HasPrefix(tag, "/")
		name := strings.ToLower(strings.TrimPrefix(tag, "/"))
		if cut := strings.IndexAny(name, " \t\n/"); cut >= 0 {
			name = name[:cut]
		}

		switch name {
		case "script", "style", "head", "title":
			if closing && skip == name {
				skip = ""
			} else if !closing && skip == "" {
				skip = name
			}
			continue
		case "td", "th":
			if !closing && current.Len() > 0 {
				current.WriteString("  |  ")
			}
			continue
		}

		if lvl, ok := blockTags[name]; ok {
			flush()
			if closing {
				level = 0
			} else {
				level = lvl
			}
		}
	}
	flush()
	return blocks
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
