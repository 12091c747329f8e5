package htmltopdf

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/duration"
	"github.com/vulndesk/vulndesk/pkg/httpclient"
)

// Chrome prints the document through a headless Chrome/Chromium. The
// cover page is approximated by fetching CoverURL and inlining it ahead
// of the body with a page break; the XSL table of contents is a
// wkhtmltopdf feature and is ignored here.
type Chrome struct {
	// ExecPath points at the browser binary. Empty lets chromedp find
	// an installed Chrome.
	ExecPath string

	// Timeout bounds one conversion. Zero means duration.ChromeRender.
	Timeout time.Duration

	// Client fetches the cover page. Nil means the pooled default.
	Client *http.Client
}

var _ Converter = (*Chrome)(nil)

func (c *Chrome) Convert(ctx context.Context, html []byte, opts Options) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = duration.ChromeRender
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	doc := html
	if opts.CoverURL != "" {
		cover, err := c.fetchCover(ctx, opts.CoverURL)
		if err != nil {
			return nil, err
		}
		doc = joinCover(cover, html)
	}

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if c.ExecPath != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(c.ExecPath))
	}
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer allocCancel()
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)
	defer tabCancel()

	var pdf []byte
	err := chromedp.Run(tabCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			tree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(tree.Frame.ID, string(doc)).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPreferCSSPageSize(true).
				Do(ctx)
			if err != nil {
				return err
			}
			pdf = buf
			return nil
		}),
	)
	if err != nil {
		var execErr *exec.Error
		if errors.As(err, &execErr) {
			return nil, fmt.Errorf("%w: %v", ErrNotInstalled, err)
		}
		return nil, fmt.Errorf("htmltopdf: chrome: %w", err)
	}
	return pdf, nil
}

func (c *Chrome) fetchCover(ctx context.Context, coverURL string) ([]byte, error) {
	client := c.Client
	if client == nil {
		client = httpclient.Default()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, coverURL, nil)
	if err != nil {
		return nil, fmt.Errorf("htmltopdf: cover request: %w", err)
	}
	req.Header.Set("User-Agent", defaults.UserAgent("htmltopdf"))

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("htmltopdf: fetch cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("htmltopdf: fetch cover: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, defaults.MaxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("htmltopdf: read cover: %w", err)
	}
	return body, nil
}

// joinCover embeds the cover markup ahead of the document body, forcing
// a page break between the two.
func joinCover(cover, html []byte) []byte {
	out := make([]byte, 0, len(cover)+len(html)+64)
	out = append(out, `<div style="page-break-after: always">`...)
	out = append(out, cover...)
	out = append(out, `</div>`...)
	out = append(out, html...)
	return out
}
