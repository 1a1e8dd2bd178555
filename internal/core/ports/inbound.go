package ports

import (
	"context"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

// AttachmentIngestor is the inbound contract for batch file ingestion.
// Partial success is allowed: one file's failure becomes a Notice and never
// aborts the batch.
type AttachmentIngestor interface {
	Ingest(ctx context.Context, files []domain.PendingFile) ([]domain.Attachment, []domain.Notice)
}
