package httpadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dmkuzmin/chat-assistant/internal/config"
	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

type ingestorFake struct{}

func (f ingestorFake) Ingest(_ context.Context, files []domain.PendingFile) ([]domain.Attachment, []domain.Notice) {
	attachments := make([]domain.Attachment, 0, len(files))
	notices := make([]domain.Notice, 0)
	for _, file := range files {
		if strings.HasPrefix(file.Name, "bad") {
			notices = append(notices, domain.Notice{FileName: file.Name, Reason: "Unsupported file type: application/octet-stream."})
			continue
		}
		attachments = append(attachments, domain.Attachment{
			ID:             file.Name,
			Name:           file.Name,
			MediaType:      file.MediaType,
			SourceSize:     file.SourceSize,
			TextualContent: "text",
			CreatedAt:      time.Now().UTC(),
		})
	}
	return attachments, notices
}

type fetcherFake struct {
	content string
	err     error
}

func (f fetcherFake) Fetch(context.Context, string) (string, error) {
	return f.content, f.err
}

type describerFake struct {
	description string
	err         error
}

func (f describerFake) Describe(context.Context, string) (string, error) {
	return f.description, f.err
}

type blobStoreFake struct {
	content  map[string]string
	released []string
}

func (f *blobStoreFake) Create(_ context.Context, _ string, _ []byte) (string, error) {
	return "key", nil
}

func (f *blobStoreFake) Open(_ context.Context, key string) (io.ReadCloser, string, error) {
	body, ok := f.content[key]
	if !ok {
		return nil, "", errors.New("unknown key")
	}
	return io.NopCloser(strings.NewReader(body)), "image/png", nil
}

func (f *blobStoreFake) Release(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

func newIngestRouter(fetcher fetcherFake, describer describerFake, blobs *blobStoreFake) http.Handler {
	if blobs == nil {
		blobs = &blobStoreFake{}
	}
	return NewRouter(config.Config{}, ingestorFake{}, fetcher, describer, blobs, &chatStoreFake{}).Handler()
}

func TestHealthzEndpoint(t *testing.T) {
	handler := newIngestRouter(fetcherFake{}, describerFake{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
}

func TestIngestAttachmentsReturnsAttachmentsAndNotices(t *testing.T) {
	handler := newIngestRouter(fetcherFake{}, describerFake{}, nil)

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	for _, name := range []string{"a.txt", "bad.bin", "b.txt"} {
		part, err := writer.CreateFormFile("files", name)
		if err != nil {
			t.Fatalf("CreateFormFile() error = %v", err)
		}
		if _, err := part.Write([]byte("hello")); err != nil {
			t.Fatalf("Write() error = %v", err)
		}
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp struct {
		Attachments []domain.Attachment `json:"attachments"`
		Notices     []domain.Notice     `json:"notices"`
	}
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Attachments) != 2 {
		t.Fatalf("expected 2 attachments, got %d", len(resp.Attachments))
	}
	if resp.Attachments[0].Name != "a.txt" || resp.Attachments[1].Name != "b.txt" {
		t.Fatalf("expected input order preserved, got %+v", resp.Attachments)
	}
	if len(resp.Notices) != 1 || resp.Notices[0].FileName != "bad.bin" {
		t.Fatalf("expected notice for bad.bin, got %+v", resp.Notices)
	}
}

func TestIngestAttachmentsRequiresFilesField(t *testing.T) {
	handler := newIngestRouter(fetcherFake{}, describerFake{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/attachments", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestFetchURLSuccess(t *testing.T) {
	handler := newIngestRouter(fetcherFake{content: "Content from URL (http://a):\n\nbody"}, describerFake{}, nil)

	payload, _ := json.Marshal(map[string]string{"url": "http://a"})
	req := httptest.NewRequest(http.MethodPost, "/v1/fetch-url", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !strings.HasPrefix(resp["content"], "Content from URL (http://a):") {
		t.Fatalf("unexpected content: %q", resp["content"])
	}
}

func TestFetchURLFailureUsesStableMessage(t *testing.T) {
	fetchErr := errors.New("Failed to fetch URL content (connection refused)")
	handler := newIngestRouter(fetcherFake{err: fetchErr}, describerFake{}, nil)

	payload, _ := json.Marshal(map[string]string{"url": "http://a"})
	req := httptest.NewRequest(http.MethodPost, "/v1/fetch-url", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "Failed to fetch URL content" {
		t.Fatalf("expected stable failure message, got %q", resp["error"])
	}
}

func TestFetchURLRequiresURL(t *testing.T) {
	handler := newIngestRouter(fetcherFake{}, describerFake{}, nil)

	payload, _ := json.Marshal(map[string]string{"url": "  "})
	req := httptest.NewRequest(http.MethodPost, "/v1/fetch-url", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}

func TestAnalyzeImageRejectsNonDataURI(t *testing.T) {
	handler := newIngestRouter(fetcherFake{}, describerFake{description: "ok"}, nil)

	payload, _ := json.Marshal(map[string]string{"image_data_uri": "http://example.com/cat.png"})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-image", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["error"] != "Invalid image data" {
		t.Fatalf("expected invalid image message, got %q", resp["error"])
	}
}

func TestAnalyzeImageMapsProviderErrorKinds(t *testing.T) {
	tests := []struct {
		name    string
		kind    error
		status  int
		mention string
	}{
		{"misconfigured", domain.ErrServiceMisconfigured, http.StatusUnauthorized, "not configured"},
		{"quota", domain.ErrQuotaExceeded, http.StatusPaymentRequired, "quota exceeded"},
		{"throttled", domain.ErrRateLimited, http.StatusTooManyRequests, "rate limit"},
		{"outage", domain.ErrServerError, http.StatusInternalServerError, "analysis failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.WrapError(tt.kind, "describe image", errors.New("upstream"))
			handler := newIngestRouter(fetcherFake{}, describerFake{err: err}, nil)

			payload, _ := json.Marshal(map[string]string{"image_data_uri": "data:image/png;base64,aGVsbG8="})
			req := httptest.NewRequest(http.MethodPost, "/v1/analyze-image", bytes.NewReader(payload))
			res := httptest.NewRecorder()
			handler.ServeHTTP(res, req)

			if res.Code != tt.status {
				t.Fatalf("expected %d, got %d", tt.status, res.Code)
			}
			var resp map[string]string
			if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
				t.Fatalf("decode response: %v", err)
			}
			if !strings.Contains(strings.ToLower(resp["error"]), tt.mention) {
				t.Fatalf("error %q does not mention %q", resp["error"], tt.mention)
			}
			if strings.Contains(resp["error"], "upstream") {
				t.Fatalf("error %q leaks the provider cause", resp["error"])
			}
		})
	}
}

func TestAnalyzeImageSuccess(t *testing.T) {
	handler := newIngestRouter(fetcherFake{}, describerFake{description: "a red square"}, nil)

	payload, _ := json.Marshal(map[string]string{"image_data_uri": "data:image/png;base64,aGVsbG8="})
	req := httptest.NewRequest(http.MethodPost, "/v1/analyze-image", bytes.NewReader(payload))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	var resp map[string]string
	if err := json.NewDecoder(res.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp["analysis"] != "a red square" {
		t.Fatalf("unexpected analysis: %q", resp["analysis"])
	}
}

func TestBlobEndpointServesAndReleases(t *testing.T) {
	blobs := &blobStoreFake{content: map[string]string{"k1": "png-bytes"}}
	handler := newIngestRouter(fetcherFake{}, describerFake{}, blobs)

	req := httptest.NewRequest(http.MethodGet, "/v1/blobs/k1", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", res.Code)
	}
	if res.Body.String() != "png-bytes" {
		t.Fatalf("unexpected body: %q", res.Body.String())
	}
	if res.Header().Get("Content-Type") != "image/png" {
		t.Fatalf("expected stored content type, got %q", res.Header().Get("Content-Type"))
	}

	req = httptest.NewRequest(http.MethodDelete, "/v1/blobs/k1", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", res.Code)
	}
	if len(blobs.released) != 1 || blobs.released[0] != "k1" {
		t.Fatalf("expected release of k1, got %v", blobs.released)
	}

	req = httptest.NewRequest(http.MethodGet, "/v1/blobs/missing", nil)
	res = httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.Code)
	}
}
