package ports

import (
	"context"
	"io"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

// BlobStore keeps binary content addressable by handle keys. Each key has
// exactly one owner responsible for Release; a key created during a failed
// extraction must be released before the error surfaces.
type BlobStore interface {
	Create(ctx context.Context, contentType string, data []byte) (string, error)
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Release(ctx context.Context, key string) error
}

// DocumentExtractor converts one document media family into plain text.
type DocumentExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// ImagePipeline validates an image, stores a display handle, and obtains a
// description of its visual content from a remote vision model.
type ImagePipeline interface {
	Prepare(ctx context.Context, name, mediaType string, data []byte) (domain.ImageResult, error)
}

// VideoExtractor reads duration/metadata from a video and renders one
// representative thumbnail.
type VideoExtractor interface {
	Extract(ctx context.Context, name, mediaType string, data []byte) (domain.VideoResult, error)
}

// VisionDescriber produces a natural-language description for an image data
// URI.
type VisionDescriber interface {
	Describe(ctx context.Context, imageDataURI string) (string, error)
}

// URLFetcher retrieves text content from a URL and wraps it with
// provenance.
type URLFetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// ChatStore persists chats, the collection of saved messages, and the bin
// of deleted chats. Attachments inside messages are plain records.
type ChatStore interface {
	SaveChat(ctx context.Context, chat *domain.Chat) error
	GetChat(ctx context.Context, id string) (*domain.Chat, error)
	ListChats(ctx context.Context) ([]domain.Chat, error)
	MoveChatToBin(ctx context.Context, id string) error
	ListBin(ctx context.Context) ([]domain.Chat, error)
	RestoreChat(ctx context.Context, id string) error
	PurgeChat(ctx context.Context, id string) error

	AddToCollection(ctx context.Context, msg *domain.SavedMessage) error
	ListCollection(ctx context.Context) ([]domain.SavedMessage, error)
	RemoveFromCollection(ctx context.Context, id string) error

	RecordAttachment(ctx context.Context, rec domain.Record) error
}

// MessageQueue publishes/consumes attachment ingestion events.
type MessageQueue interface {
	PublishAttachmentIngested(ctx context.Context, rec domain.Record) error
	SubscribeAttachmentIngested(ctx context.Context, handler func(context.Context, domain.Record) error) error
}
