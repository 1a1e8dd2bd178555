// Package httpadapter exposes the ingestion pipeline, URL fetching,
// image analysis and chat persistence over a JSON HTTP API.
package httpadapter

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/dmkuzmin/chat-assistant/internal/config"
	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
	"github.com/dmkuzmin/chat-assistant/internal/observability/metrics"
)

const (
	maxInFlightRequests = 64
	backpressureWait    = 100 * time.Millisecond
)

type Router struct {
	cfg       config.Config
	ingestor  ports.AttachmentIngestor
	fetcher   ports.URLFetcher
	describer ports.VisionDescriber
	blobs     ports.BlobStore
	chats     ports.ChatStore

	service string
	metrics *metrics.HTTPServerMetrics
}

// WithMetrics attaches domain metric recording to the router's handlers.
func (rt *Router) WithMetrics(service string, m *metrics.HTTPServerMetrics) *Router {
	rt.service = service
	rt.metrics = m
	return rt
}

func NewRouter(
	cfg config.Config,
	ingestor ports.AttachmentIngestor,
	fetcher ports.URLFetcher,
	describer ports.VisionDescriber,
	blobs ports.BlobStore,
	chats ports.ChatStore,
) *Router {
	return &Router{
		cfg:       cfg,
		ingestor:  ingestor,
		fetcher:   fetcher,
		describer: describer,
		blobs:     blobs,
		chats:     chats,
	}
}

func (rt *Router) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", rt.healthz)
	mux.HandleFunc("/v1/attachments", rt.ingestAttachments)
	mux.HandleFunc("/v1/fetch-url", rt.fetchURL)
	mux.HandleFunc("/v1/analyze-image", rt.analyzeImage)
	mux.HandleFunc("/v1/blobs/", rt.blobByKey)
	mux.HandleFunc("/v1/chats", rt.chatsCollection)
	mux.HandleFunc("/v1/chats/", rt.chatByID)
	mux.HandleFunc("/v1/bin", rt.listBin)
	mux.HandleFunc("/v1/bin/", rt.binChatByID)
	mux.HandleFunc("/v1/collection", rt.savedMessages)
	mux.HandleFunc("/v1/collection/", rt.savedMessageByID)

	var handler http.Handler = mux
	handler = backpressureMiddleware(handler, maxInFlightRequests, backpressureWait)
	handler = rateLimitMiddleware(handler, rt.cfg.RateLimitRPS, rt.cfg.RateLimitBurst)
	handler = accessLogMiddleware(handler)
	handler = requestIDMiddleware(handler)
	return handler
}

func (rt *Router) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
