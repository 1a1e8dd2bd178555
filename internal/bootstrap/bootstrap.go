// Package bootstrap wires configuration, infrastructure adapters and use
// cases into a runnable application for the api, worker and mcp binaries.
package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dmkuzmin/chat-assistant/internal/config"
	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
	"github.com/dmkuzmin/chat-assistant/internal/core/usecase"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/blob/localfs"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/imagepipe"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/msword"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/pdfdoc"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/plaintext"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/spreadsheet"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/extractor/video"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/fetcher/web"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/llm/ollama"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/queue/nats"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/repository/postgres"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/resilience"
	"github.com/dmkuzmin/chat-assistant/internal/infrastructure/sniff"
)

type App struct {
	Config config.Config

	Queue     ports.MessageQueue
	ChatStore ports.ChatStore
	Blobs     ports.BlobStore
	Fetcher   ports.URLFetcher
	Describer ports.VisionDescriber
	Ingestor  ports.AttachmentIngestor

	db      *sql.DB
	closeFn func()
}

func New(ctx context.Context, cfg config.Config) (*App, error) {
	db, err := postgres.OpenDB(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	repo := postgres.NewChatRepository(db)
	if err := repo.EnsureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	blobs, err := localfs.New(cfg.BlobPath)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init blob store: %w", err)
	}

	executor := resilience.NewExecutor(resilience.DefaultConfig())

	queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
		ResilienceExecutor: executor,
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init message queue: %w", err)
	}

	ollamaClient := ollama.New(cfg.OllamaURL, cfg.OllamaVisionModel, cfg.VisionTimeout(), executor)
	describer := ollama.NewDescriber(ollamaClient)

	fetcher := web.New(cfg.FetchTimeout(), executor)

	extractors := usecase.Extractors{
		PDF:         pdfdoc.NewExtractor(),
		Word:        msword.NewExtractor(),
		Spreadsheet: spreadsheet.NewExtractor(),
		Text:        plaintext.NewExtractor(),
		Image:       imagepipe.NewPipeline(blobs, describer, cfg.MaxFileBytes()),
		Video:       video.NewExtractor(blobs),
	}

	ingestor := usecase.NewIngestAttachmentsUseCase(
		usecase.IngestConfig{MaxFileBytes: cfg.MaxFileBytes()},
		extractors,
		sniff.NewDetector(),
		queue,
	)

	return &App{
		Config: cfg,

		Queue:     queue,
		ChatStore: repo,
		Blobs:     blobs,
		Fetcher:   fetcher,
		Describer: describer,
		Ingestor:  ingestor,

		db: db,
		closeFn: func() {
			queue.Close()
			_ = db.Close()
		},
	}, nil
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
