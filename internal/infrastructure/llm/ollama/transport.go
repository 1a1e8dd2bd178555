package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// responses are decoded fully but error bodies are capped so a
// misbehaving server cannot balloon log lines.
const maxErrorBodyBytes = 4 << 10

type httpDoer struct {
	client *http.Client
}

func newHTTPDoer(timeout time.Duration) *httpDoer {
	return &httpDoer{client: &http.Client{Timeout: timeout}}
}

// postJSON sends body as JSON and decodes the response into out. Non-2xx
// responses come back as *HTTPStatusError so classifiers and the kind
// mapping can inspect the status code.
func (c *Client) postJSON(ctx context.Context, path string, body any, out any, operation string) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("ollama %s: encode request: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("ollama %s: build request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.client.Do(req)
	if err != nil {
		return fmt.Errorf("ollama %s: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return &HTTPStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(snippet),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("ollama %s: decode response: %w", operation, err)
	}
	return nil
}
