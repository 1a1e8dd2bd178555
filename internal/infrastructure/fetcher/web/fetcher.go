// Package web retrieves text content from user-pasted URLs and wraps it
// with provenance. Transport failures are logged for diagnostics but never
// surfaced verbatim into the chat transcript.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/resilience"
	"github.com/dmkuzmin/chat-assistant/internal/weburl"
)

// ErrFetchFailed is the stable user-facing failure for every fetch
// problem; the original cause is logged only.
var ErrFetchFailed = errors.New("Failed to fetch URL content")

const (
	DefaultTimeout = 30 * time.Second

	// Bodies are capped so one pasted URL cannot balloon a chat request.
	maxBodyBytes = 2 << 20
)

type Fetcher struct {
	httpClient *http.Client
	executor   *resilience.Executor
}

func New(timeout time.Duration, executor *resilience.Executor) *Fetcher {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		httpClient: &http.Client{Timeout: timeout},
		executor:   executor,
	}
}

// Fetch performs one GET and returns the body prefixed with a provenance
// header naming the source URL. HTML responses are reduced to readable
// text; everything else passes through verbatim.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	if !weburl.IsValid(rawURL) {
		slog.Warn("url_fetch_rejected", "url", rawURL, "reason", "not an absolute URL")
		return "", fmt.Errorf("%w (%w)", ErrFetchFailed, domain.ErrInvalidInput)
	}

	var body string
	call := func(ctx context.Context) error {
		var err error
		body, err = f.fetchOnce(ctx, rawURL)
		return err
	}

	var err error
	if f.executor != nil {
		err = f.executor.Execute(ctx, "web.fetch", call, classifyFetchError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		slog.Warn("url_fetch_failed", "url", rawURL, "error", err)
		return "", fmt.Errorf("%w (%w)", ErrFetchFailed, fetchKind(err))
	}

	return fmt.Sprintf("Content from URL (%s):\n\n%s", rawURL, body), nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("get url: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", &httpStatusError{status: resp.StatusCode, text: resp.Status}
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	if strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		if text := htmlToText(raw); text != "" {
			return text, nil
		}
	}
	return string(raw), nil
}

type httpStatusError struct {
	status int
	text   string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("unexpected status: %s", e.text)
}

func classifyFetchError(err error) resilience.ErrorClassification {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{}
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		retryable := statusErr.status == http.StatusTooManyRequests || statusErr.status >= 500
		return resilience.ErrorClassification{Retryable: retryable, RecordFailure: retryable}
	}
	return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
}

func fetchKind(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrTimeout
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return domain.ErrServerError
	}
	return domain.ErrNetwork
}

// htmlToText collapses an HTML document to its visible text, one line per
// text node, scripts and styles skipped.
func htmlToText(raw []byte) string {
	doc, err := html.Parse(strings.NewReader(string(raw)))
	if err != nil {
		return ""
	}

	var lines []string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && (n.Data == "script" || n.Data == "style" || n.Data == "noscript") {
			return
		}
		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				lines = append(lines, text)
			}
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)
	return strings.Join(lines, "\n")
}
