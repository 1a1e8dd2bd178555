package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
	"github.com/dmkuzmin/chat-assistant/internal/format"
)

// TypeSniffer detects a media type from raw content when the declared type
// is missing or unusable.
type TypeSniffer interface {
	Detect(data []byte) string
}

// IngestConfig is the orchestrator's tuning surface. One canonical size
// ceiling applies to every media family; there is deliberately no
// per-family override.
type IngestConfig struct {
	MaxFileBytes int64
}

const DefaultMaxFileBytes = 10 << 20 // 10 MiB

// Extractors groups the per-family extraction collaborators. Exactly one
// entry handles each supported family.
type Extractors struct {
	PDF         ports.DocumentExtractor
	Word        ports.DocumentExtractor
	Spreadsheet ports.DocumentExtractor
	Text        ports.DocumentExtractor
	Image       ports.ImagePipeline
	Video       ports.VideoExtractor
}

// IngestAttachmentsUseCase coordinates per-file ingestion: size gate,
// family dispatch, attachment assembly, per-file failure notices. Files are
// processed sequentially in selection order, which keeps error attribution
// simple and bounds memory to one file's working set; output order always
// matches input order.
type IngestAttachmentsUseCase struct {
	cfg        IngestConfig
	extractors Extractors
	sniffer    TypeSniffer
	queue      ports.MessageQueue
}

func NewIngestAttachmentsUseCase(
	cfg IngestConfig,
	extractors Extractors,
	sniffer TypeSniffer,
	queue ports.MessageQueue,
) *IngestAttachmentsUseCase {
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = DefaultMaxFileBytes
	}
	return &IngestAttachmentsUseCase{
		cfg:        cfg,
		extractors: extractors,
		sniffer:    sniffer,
		queue:      queue,
	}
}

func (uc *IngestAttachmentsUseCase) Ingest(
	ctx context.Context,
	files []domain.PendingFile,
) ([]domain.Attachment, []domain.Notice) {
	attachments := make([]domain.Attachment, 0, len(files))
	notices := make([]domain.Notice, 0)

	for _, file := range files {
		att, err := uc.ingestOne(ctx, file)
		if err != nil {
			slog.Warn("attachment_ingest_failed",
				"file", file.Name,
				"media_type", file.MediaType,
				"size", file.SourceSize,
				"error", err,
			)
			notices = append(notices, domain.Notice{
				FileName: file.Name,
				Reason:   uc.noticeReason(file, err),
			})
			continue
		}

		attachments = append(attachments, att)
		uc.publishIngested(ctx, att)
	}

	return attachments, notices
}

func (uc *IngestAttachmentsUseCase) ingestOne(ctx context.Context, file domain.PendingFile) (domain.Attachment, error) {
	// The size ceiling is checked on the declared source size before any
	// bytes are read; extraction never runs on an oversized file.
	if file.SourceSize > uc.cfg.MaxFileBytes {
		return domain.Attachment{}, domain.WrapError(
			domain.ErrTooLarge,
			"size gate",
			fmt.Errorf("%d bytes exceeds ceiling of %d", file.SourceSize, uc.cfg.MaxFileBytes),
		)
	}

	if file.Open == nil {
		return domain.Attachment{}, domain.WrapError(domain.ErrEncodingFailure, "read file", errors.New("no content reader"))
	}
	data, err := file.Open()
	if err != nil {
		return domain.Attachment{}, domain.WrapError(domain.ErrEncodingFailure, "read file", err)
	}

	mediaType := file.MediaType
	if uc.sniffer != nil && needsSniff(mediaType) {
		if detected := uc.sniffer.Detect(data); detected != "" {
			mediaType = detected
		}
	}

	att := domain.Attachment{
		ID:         uuid.NewString(),
		Name:       file.Name,
		MediaType:  mediaType,
		SourceSize: file.SourceSize,
		CreatedAt:  time.Now().UTC(),
	}

	switch family := domain.FamilyOf(mediaType); family {
	case domain.FamilyPDF:
		att.TextualContent, err = uc.extractors.PDF.Extract(ctx, data)
	case domain.FamilyWord:
		att.TextualContent, err = uc.extractors.Word.Extract(ctx, data)
	case domain.FamilySpreadsheet:
		att.TextualContent, err = uc.extractors.Spreadsheet.Extract(ctx, data)
	case domain.FamilyText:
		att.TextualContent, err = uc.extractors.Text.Extract(ctx, data)
	case domain.FamilyImage:
		var res domain.ImageResult
		res, err = uc.extractors.Image.Prepare(ctx, file.Name, mediaType, data)
		if err == nil {
			att.DisplayKey = res.DisplayKey
			att.TextualContent = res.Description
		}
	case domain.FamilyVideo:
		var res domain.VideoResult
		res, err = uc.extractors.Video.Extract(ctx, file.Name, mediaType, data)
		if err == nil {
			att.DisplayKey = res.DisplayKey
			att.ThumbnailKey = res.ThumbnailKey
			att.VideoDuration = res.Duration
			att.TextualContent = fmt.Sprintf("Video: %s (%s)", file.Name, format.Duration(res.Duration))
		}
	default:
		err = domain.WrapError(domain.ErrUnsupportedType, "dispatch", fmt.Errorf("declared type %q", mediaType))
	}
	if err != nil {
		return domain.Attachment{}, err
	}

	if !att.HasContent() {
		return domain.Attachment{}, domain.WrapError(
			domain.ErrEmptyFile,
			"assemble attachment",
			errors.New("extraction produced no usable content"),
		)
	}
	return att, nil
}

// publishIngested emits the plain attachment record for the history worker.
// A queue outage never fails an ingestion the user already paid for.
func (uc *IngestAttachmentsUseCase) publishIngested(ctx context.Context, att domain.Attachment) {
	if uc.queue == nil {
		return
	}
	if err := uc.queue.PublishAttachmentIngested(ctx, att.ToRecord()); err != nil {
		slog.Warn("attachment_event_publish_failed", "attachment_id", att.ID, "error", err)
	}
}

func (uc *IngestAttachmentsUseCase) noticeReason(file domain.PendingFile, err error) string {
	switch {
	case domain.IsKind(err, domain.ErrTooLarge):
		return fmt.Sprintf(
			"File is too large: %.2fMB. Maximum size is %dMB.",
			float64(file.SourceSize)/(1 << 20),
			uc.cfg.MaxFileBytes/(1 << 20),
		)
	case domain.IsKind(err, domain.ErrUnsupportedType):
		return fmt.Sprintf("Unsupported file type: %s.", orUnknown(file.MediaType))
	case domain.IsKind(err, domain.ErrEmptyFile):
		return "File is empty or produced no content."
	case domain.IsKind(err, domain.ErrCorruptFile):
		return "The file appears to be corrupted."
	case domain.IsKind(err, domain.ErrNotInitialized):
		return "Extraction engine is not ready. Please try again."
	case domain.IsKind(err, domain.ErrRateLimited):
		return "API rate limit exceeded. Please try again later."
	case domain.IsKind(err, domain.ErrQuotaExceeded):
		return "API quota exceeded. Please try again later."
	case domain.IsKind(err, domain.ErrServiceMisconfigured):
		return "Server configuration error. Please contact support."
	case domain.IsKind(err, domain.ErrTimeout):
		return "Request timed out. Please try again."
	case domain.IsKind(err, domain.ErrNetwork):
		return "Network error: could not reach a required service."
	case domain.IsKind(err, domain.ErrEncodingFailure):
		return "Could not read the file content."
	default:
		// Wrapped causes stay in the logs; the user never sees them.
		return "Failed to process the file. Please try again."
	}
}

// needsSniff reports whether the declared type carries no information:
// either absent, or the generic octet-stream browsers fall back to for
// files they cannot classify. An explicit declaration is never overridden.
func needsSniff(mediaType string) bool {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	return mt == "" || mt == "application/octet-stream"
}

func orUnknown(mediaType string) string {
	if mediaType == "" {
		return "unknown"
	}
	return mediaType
}
