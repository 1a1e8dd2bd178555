// Package imagepipe validates an image attachment, stores a display
// handle, and obtains a natural-language description of its content from a
// remote vision model. Every step after handle creation releases the handle
// on failure before the error surfaces.
package imagepipe

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
)

const DefaultMaxImageBytes = 10 << 20 // 10 MiB

var pngMagic = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

type Pipeline struct {
	blobs     ports.BlobStore
	describer ports.VisionDescriber
	maxBytes  int64
}

func NewPipeline(blobs ports.BlobStore, describer ports.VisionDescriber, maxBytes int64) *Pipeline {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	return &Pipeline{
		blobs:     blobs,
		describer: describer,
		maxBytes:  maxBytes,
	}
}

// Prepare runs the gates in order; each is a hard stop. On success the
// returned display key is owned by the caller.
func (p *Pipeline) Prepare(ctx context.Context, name, mediaType string, data []byte) (domain.ImageResult, error) {
	if !strings.HasPrefix(mediaType, "image/") {
		return domain.ImageResult{}, domain.WrapError(
			domain.ErrUnsupportedType,
			"image type gate",
			fmt.Errorf("declared type %q", mediaType),
		)
	}
	if int64(len(data)) > p.maxBytes {
		return domain.ImageResult{}, domain.WrapError(
			domain.ErrTooLarge,
			"image size gate",
			fmt.Errorf("file is too large: %.2fMB, maximum size is %dMB",
				float64(len(data))/(1<<20), p.maxBytes/(1<<20)),
		)
	}
	if len(data) == 0 {
		return domain.ImageResult{}, domain.WrapError(domain.ErrEmptyFile, "image empty gate", errors.New("zero-byte file"))
	}
	// Magic-number spot check for formats with a fixed header. A defense
	// against mislabeled or truncated uploads, not a full format validator.
	if mediaType == "image/png" && !bytes.HasPrefix(data, pngMagic) {
		return domain.ImageResult{}, domain.WrapError(
			domain.ErrCorruptFile,
			"png signature check",
			errors.New("first 8 bytes do not match the PNG magic number"),
		)
	}

	width, height := decodeDimensions(data)

	displayKey, err := p.blobs.Create(ctx, mediaType, data)
	if err != nil {
		return domain.ImageResult{}, fmt.Errorf("create display handle: %w", err)
	}

	dataURI := BuildImageDataURI(mediaType, data)
	if _, _, err := ParseImageDataURI(dataURI); err != nil {
		p.release(ctx, displayKey)
		return domain.ImageResult{}, domain.WrapError(domain.ErrEncodingFailure, "encode image", err)
	}

	description, err := p.describer.Describe(ctx, dataURI)
	if err != nil {
		p.release(ctx, displayKey)
		return domain.ImageResult{}, fmt.Errorf("describe image %q: %w", name, err)
	}
	if strings.TrimSpace(description) == "" {
		p.release(ctx, displayKey)
		return domain.ImageResult{}, errors.New("Image analysis returned no content. Please try again.")
	}

	return domain.ImageResult{
		DisplayKey:  displayKey,
		Description: description,
		Width:       width,
		Height:      height,
	}, nil
}

func (p *Pipeline) release(ctx context.Context, key string) {
	if err := p.blobs.Release(ctx, key); err != nil {
		slog.Warn("image_handle_release_failed", "key", key, "error", err)
	}
}

// decodeDimensions is best effort metadata; an undecodable image is still
// acceptable to the vision model.
func decodeDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}
