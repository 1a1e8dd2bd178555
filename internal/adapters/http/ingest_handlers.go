package httpadapter

import (
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/imagepipe"
)

const fetchFailureMessage = "Failed to fetch URL content"

// multipartMemoryLimit caps how much of the form is buffered in memory;
// larger files spill to temp files managed by net/http.
const multipartMemoryLimit = 32 << 20

func (rt *Router) ingestAttachments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	if err := r.ParseMultipartForm(multipartMemoryLimit); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart form is required"})
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "multipart field 'files' is required"})
		return
	}

	files := make([]domain.PendingFile, 0, len(headers))
	for _, header := range headers {
		files = append(files, pendingFileFromHeader(header))
	}

	started := time.Now()
	attachments, notices := rt.ingestor.Ingest(r.Context(), files)
	rt.recordIngest(files, attachments, time.Since(started))
	writeJSON(w, http.StatusOK, map[string]any{
		"attachments": attachments,
		"notices":     notices,
	})
}

// recordIngest attributes per-file outcomes after a batch. The use case
// processes files sequentially, so an even split of the batch duration is
// close enough for histogram purposes.
func (rt *Router) recordIngest(files []domain.PendingFile, attachments []domain.Attachment, elapsed time.Duration) {
	if rt.metrics == nil {
		return
	}
	succeeded := make(map[string]int, len(attachments))
	for _, att := range attachments {
		succeeded[att.Name]++
	}
	perFile := elapsed
	if len(files) > 1 {
		perFile = elapsed / time.Duration(len(files))
	}
	for _, f := range files {
		outcome := "error"
		if succeeded[f.Name] > 0 {
			succeeded[f.Name]--
			outcome = "success"
		}
		rt.metrics.RecordIngestedFile(rt.service, string(domain.FamilyOf(f.MediaType)), outcome, f.SourceSize, perFile)
	}
}

// pendingFileFromHeader defers reading the part so the size gate can run
// on the declared size before any content is touched.
func pendingFileFromHeader(header *multipart.FileHeader) domain.PendingFile {
	return domain.PendingFile{
		Name:       header.Filename,
		MediaType:  header.Header.Get("Content-Type"),
		SourceSize: header.Size,
		Open: func() ([]byte, error) {
			part, err := header.Open()
			if err != nil {
				return nil, err
			}
			defer part.Close()
			return io.ReadAll(part)
		},
	}
}

func (rt *Router) fetchURL(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(req.URL) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}

	content, err := rt.fetcher.Fetch(r.Context(), req.URL)
	if rt.metrics != nil {
		rt.metrics.RecordURLFetch(rt.service, err)
	}
	if err != nil {
		status := mapErrorToHTTPStatus(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadGateway
		}
		writeJSON(w, status, map[string]string{"error": fetchFailureMessage})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"content": content})
}

func (rt *Router) analyzeImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
		return
	}

	var req struct {
		ImageDataURI string `json:"image_data_uri"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if _, _, err := imagepipe.ParseImageDataURI(req.ImageDataURI); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid image data"})
		return
	}

	analysis, err := rt.describer.Describe(r.Context(), req.ImageDataURI)
	if rt.metrics != nil {
		rt.metrics.RecordVisionAnalysis(rt.service, err)
	}
	if err != nil {
		writeJSON(w, mapErrorToHTTPStatus(err), map[string]string{"error": analyzeFailureMessage(err)})
		return
	}
	if strings.TrimSpace(analysis) == "" {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate image analysis"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"analysis": analysis})
}

// analyzeFailureMessage keeps the response body aligned with the status:
// callers see which category failed, never the wrapped provider error.
func analyzeFailureMessage(err error) string {
	switch {
	case domain.IsKind(err, domain.ErrInvalidInput):
		return "Invalid image data"
	case domain.IsKind(err, domain.ErrServiceMisconfigured):
		return "Image analysis service is not configured. Please contact support."
	case domain.IsKind(err, domain.ErrQuotaExceeded):
		return "API quota exceeded. Please check your billing status."
	case domain.IsKind(err, domain.ErrRateLimited):
		return "API rate limit exceeded. Please try again later."
	case domain.IsKind(err, domain.ErrTimeout):
		return "Image analysis timed out. Please try again."
	}
	return "Image analysis failed. Please try again."
}

func (rt *Router) blobByKey(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimPrefix(r.URL.Path, "/v1/blobs/")
	if key == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "blob key is required"})
		return
	}

	switch r.Method {
	case http.MethodGet:
		reader, contentType, err := rt.blobs.Open(r.Context(), key)
		if err != nil {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "blob not found"})
			return
		}
		defer reader.Close()
		if contentType != "" {
			w.Header().Set("Content-Type", contentType)
		}
		_, _ = io.Copy(w, reader)
	case http.MethodDelete:
		if err := rt.blobs.Release(r.Context(), key); err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "release failed"})
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		writeJSON(w, http.StatusMethodNotAllowed, map[string]string{"error": "method not allowed"})
	}
}
