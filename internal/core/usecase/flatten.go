package usecase

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
)

// FlattenAttachments converts attachments into the {name, mediaType,
// content} list the chat completion endpoint consumes. Text content passes
// through; image attachments are inlined as data URIs read back from the
// blob store, since handles are process-local and not transmittable.
func FlattenAttachments(ctx context.Context, blobs ports.BlobStore, attachments []domain.Attachment) ([]domain.ModelContent, error) {
	out := make([]domain.ModelContent, 0, len(attachments))
	for _, att := range attachments {
		content := att.TextualContent

		if domain.FamilyOf(att.MediaType) == domain.FamilyImage && att.DisplayKey != "" {
			uri, err := inlineBlob(ctx, blobs, att.DisplayKey)
			if err != nil {
				return nil, fmt.Errorf("inline image %s: %w", att.Name, err)
			}
			content = uri
		}

		out = append(out, domain.ModelContent{
			Name:      att.Name,
			MediaType: att.MediaType,
			Content:   content,
		})
	}
	return out, nil
}

func inlineBlob(ctx context.Context, blobs ports.BlobStore, key string) (string, error) {
	reader, contentType, err := blobs.Open(ctx, key)
	if err != nil {
		return "", err
	}
	defer reader.Close()

	raw, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(raw)), nil
}
