// Package video reads duration/metadata from a video attachment and
// renders one representative thumbnail. Probing is delegated to ffprobe
// (gopkg.in/vansante/go-ffprobe.v2) and frame extraction to ffmpeg
// (github.com/u2takey/ffmpeg-go); both are injectable so the handle
// lifecycle is testable without the binaries installed.
package video

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	ffprobe "gopkg.in/vansante/go-ffprobe.v2"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
	"github.com/dmkuzmin/chat-assistant/internal/core/ports"
)

// Fixed sampling policy: single thumbnail at t=1s, quality 0.6, scale 0.25.
const (
	thumbnailOffsetSeconds = 1
	thumbnailScale         = 0.25
	thumbnailQuality       = 0.6
)

// jpegQFactor maps the 0..1 quality policy onto ffmpeg's 2..31 -q:v range
// (lower is better).
var jpegQFactor = func() int {
	q := 1 - thumbnailQuality
	return 2 + int(q*29)
}()

type probeFunc func(ctx context.Context, data []byte) (float64, map[string]string, error)

type thumbnailFunc func(ctx context.Context, data []byte) ([]byte, error)

type Extractor struct {
	blobs     ports.BlobStore
	probe     probeFunc
	thumbnail thumbnailFunc
}

func NewExtractor(blobs ports.BlobStore) *Extractor {
	return &Extractor{
		blobs:     blobs,
		probe:     probeWithFFprobe,
		thumbnail: thumbnailWithFFmpeg,
	}
}

// Extract creates the playback handle first, then probes metadata and
// renders the thumbnail. Any failure after handle creation releases every
// handle created so far before the error propagates; on success ownership
// of both handles transfers to the caller.
func (e *Extractor) Extract(ctx context.Context, name, mediaType string, data []byte) (domain.VideoResult, error) {
	displayKey, err := e.blobs.Create(ctx, mediaType, data)
	if err != nil {
		return domain.VideoResult{}, fmt.Errorf("create playback handle: %w", err)
	}

	duration, metadata, err := e.probe(ctx, data)
	if err != nil {
		e.release(ctx, displayKey)
		return domain.VideoResult{}, fmt.Errorf("probe video %q: %w", name, err)
	}

	thumb, err := e.thumbnail(ctx, data)
	if err != nil {
		e.release(ctx, displayKey)
		return domain.VideoResult{}, fmt.Errorf("render thumbnail for %q: %w", name, err)
	}
	if len(thumb) == 0 {
		e.release(ctx, displayKey)
		return domain.VideoResult{}, errors.New("Failed to generate video thumbnail")
	}

	thumbKey, err := e.blobs.Create(ctx, "image/jpeg", thumb)
	if err != nil {
		e.release(ctx, displayKey)
		return domain.VideoResult{}, fmt.Errorf("create thumbnail handle: %w", err)
	}

	return domain.VideoResult{
		Duration:     duration,
		DisplayKey:   displayKey,
		ThumbnailKey: thumbKey,
		Metadata:     metadata,
	}, nil
}

func (e *Extractor) release(ctx context.Context, key string) {
	if err := e.blobs.Release(ctx, key); err != nil {
		slog.Warn("video_handle_release_failed", "key", key, "error", err)
	}
}

// One-time probe of the media toolchain; never torn down for the process
// lifetime.
var (
	engineOnce sync.Once
	engineErr  error
)

func ensureEngine() error {
	engineOnce.Do(func() {
		for _, binary := range []string{"ffprobe", "ffmpeg"} {
			if _, err := exec.LookPath(binary); err != nil {
				engineErr = domain.WrapError(domain.ErrNotInitialized, "probe media toolchain", err)
				return
			}
		}
	})
	return engineErr
}

func probeWithFFprobe(ctx context.Context, data []byte) (float64, map[string]string, error) {
	if err := ensureEngine(); err != nil {
		return 0, nil, err
	}

	probed, err := ffprobe.ProbeReader(ctx, bytes.NewReader(data))
	if err != nil {
		return 0, nil, fmt.Errorf("ffprobe: %w", err)
	}

	metadata := map[string]string{
		"format": probed.Format.FormatName,
	}
	return probed.Format.DurationSeconds, metadata, nil
}

func thumbnailWithFFmpeg(ctx context.Context, data []byte) ([]byte, error) {
	if err := ensureEngine(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	src, err := os.CreateTemp("", "attach-video-*")
	if err != nil {
		return nil, fmt.Errorf("create temp source: %w", err)
	}
	defer os.Remove(src.Name())

	if _, err := src.Write(data); err != nil {
		src.Close()
		return nil, fmt.Errorf("write temp source: %w", err)
	}
	if err := src.Close(); err != nil {
		return nil, fmt.Errorf("close temp source: %w", err)
	}

	outPath := src.Name() + ".jpg"
	defer os.Remove(outPath)

	stream := ffmpeg.Input(src.Name(), ffmpeg.KwArgs{"ss": thumbnailOffsetSeconds}).
		Filter("scale", ffmpeg.Args{fmt.Sprintf("iw*%g", thumbnailScale), "-2"}).
		Output(outPath, ffmpeg.KwArgs{"vframes": 1, "q:v": jpegQFactor})
	err = stream.OverwriteOutput(stream).
		Silent(true).
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg frame extraction: %w", err)
	}

	return os.ReadFile(outPath)
}
