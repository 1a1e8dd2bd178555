// Package ollama talks to a local Ollama server for vision-model image
// analysis.
package ollama

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/resilience"
)

const defaultVisionPrompt = "Describe this image in detail. Mention any visible text, objects, people and the overall scene."

type Client struct {
	baseURL     string
	visionModel string
	httpClient  *httpDoer
	executor    *resilience.Executor
}

func New(baseURL, visionModel string, timeout time.Duration, executor *resilience.Executor) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		visionModel: visionModel,
		httpClient:  newHTTPDoer(timeout),
		executor:    executor,
	}
}

// Describer produces a textual description of an image via the vision
// model. It accepts the same data URIs the ingestion pipeline builds.
type Describer struct {
	client *Client
	prompt string
}

func NewDescriber(client *Client) *Describer {
	return &Describer{client: client, prompt: defaultVisionPrompt}
}

func (d *Describer) Describe(ctx context.Context, imageDataURI string) (string, error) {
	payload, ok := base64Payload(imageDataURI)
	if !ok {
		return "", domain.WrapError(domain.ErrInvalidInput, "describe image", fmt.Errorf("not an image data URI"))
	}

	reqBody := map[string]any{
		"model":  d.client.visionModel,
		"prompt": d.prompt,
		"images": []string{payload},
		"stream": false,
	}

	var response struct {
		Response string `json:"response"`
	}

	call := func(ctx context.Context) error {
		return d.client.postJSON(ctx, "/api/generate", reqBody, &response, "describe")
	}

	var err error
	if d.client.executor != nil {
		err = d.client.executor.Execute(ctx, "ollama.describe", call, classifyOllamaError)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return "", mapDescribeError(err)
	}
	return strings.TrimSpace(response.Response), nil
}

// base64Payload strips the data-URI envelope, leaving the raw base64
// body the Ollama API expects.
func base64Payload(dataURI string) (string, bool) {
	if !strings.HasPrefix(dataURI, "data:image/") {
		return "", false
	}
	_, payload, found := strings.Cut(dataURI, ",")
	if !found || payload == "" {
		return "", false
	}
	return payload, true
}
