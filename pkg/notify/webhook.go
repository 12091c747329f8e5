package notify

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/vulndesk/vulndesk/pkg/defaults"
	"github.com/vulndesk/vulndesk/pkg/duration"
	"github.com/vulndesk/vulndesk/pkg/httpclient"
	"github.com/vulndesk/vulndesk/pkg/jsonutil"
)

// Compile-time interface check.
var _ Notifier = (*WebhookNotifier)(nil)

// WebhookNotifier POSTs events as JSON to an HTTP endpoint, with
// retries and linear backoff on transient failures.
type WebhookNotifier struct {
	endpoint string
	client   *http.Client
	opts     WebhookOptions
}

// WebhookOptions configures webhook delivery.
type WebhookOptions struct {
	// Headers to include in every request.
	Headers map[string]string

	// Timeout for each HTTP attempt (default: 10s).
	Timeout time.Duration

	// RetryCount is the number of attempts per event (default: 3).
	RetryCount int

	// Backoff between attempts (default: 500ms, doubled per retry).
	Backoff time.Duration
}

// NewWebhookNotifier builds a notifier for the given endpoint. The
// notifier is safe for concurrent use.
func NewWebhookNotifier(endpoint string, opts WebhookOptions) *WebhookNotifier {
	if opts.Timeout == 0 {
		opts.Timeout = duration.Webhook
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = defaults.RetryWebhook
	}
	if opts.Backoff == 0 {
		opts.Backoff = duration.WebhookBackoff
	}

	return &WebhookNotifier{
		endpoint: endpoint,
		client:   httpclient.New(httpclient.Config{Timeout: opts.Timeout}),
		opts:     opts,
	}
}

// Notify serializes the event and sends it with retries. 4xx responses
// are terminal; 5xx and transport errors are retried.
func (n *WebhookNotifier) Notify(ctx context.Context, ev Event) error {
	body, err := jsonutil.Marshal(ev)
	if err != nil {
		return fmt.Errorf("notify: marshal event: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < n.opts.RetryCount; attempt++ {
		if attempt > 0 {
			backoff := n.opts.Backoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("notify: build request: %w", err)
		}
		req.Header.Set("Content-Type", defaults.ContentTypeJSON)
		req.Header.Set("User-Agent", defaults.UserAgent("notify"))
		req.Header.Set("X-Vulndesk-Event", string(ev.Kind))
		for key, value := range n.opts.Headers {
			req.Header.Set(key, value)
		}

		resp, err := n.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("notify: request failed: %w", err)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return nil
		}
		if resp.StatusCode >= 500 {
			lastErr = fmt.Errorf("notify: server error: %d", resp.StatusCode)
			continue
		}
		return fmt.Errorf("notify: client error: %d", resp.StatusCode)
	}

	return lastErr
}
