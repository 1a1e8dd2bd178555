package imagepipe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

type blobStoreFake struct {
	nextKey   string
	created   int
	released  []string
	createErr error
}

func (f *blobStoreFake) Create(context.Context, string, []byte) (string, error) {
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created++
	if f.nextKey == "" {
		f.nextKey = "blob-1"
	}
	return f.nextKey, nil
}

func (f *blobStoreFake) Open(context.Context, string) (io.ReadCloser, string, error) {
	return io.NopCloser(bytes.NewReader(nil)), "application/octet-stream", nil
}

func (f *blobStoreFake) Release(_ context.Context, key string) error {
	f.released = append(f.released, key)
	return nil
}

type describerFake struct {
	description string
	err         error
	calls       int
}

func (f *describerFake) Describe(context.Context, string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return f.description, nil
}

func pngBytes() []byte {
	return append(append([]byte{}, pngMagic...), []byte("rest of png")...)
}

func TestPrepareSuccessTransfersHandle(t *testing.T) {
	blobs := &blobStoreFake{nextKey: "display-1"}
	describer := &describerFake{description: "a sunset over water"}
	p := NewPipeline(blobs, describer, 0)

	res, err := p.Prepare(context.Background(), "sunset.png", "image/png", pngBytes())
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if res.DisplayKey != "display-1" || res.Description != "a sunset over water" {
		t.Fatalf("unexpected result: %+v", res)
	}
	if len(blobs.released) != 0 {
		t.Fatalf("handle released on success path: %v", blobs.released)
	}
}

func TestPrepareTypeGate(t *testing.T) {
	p := NewPipeline(&blobStoreFake{}, &describerFake{}, 0)

	_, err := p.Prepare(context.Background(), "a.pdf", "application/pdf", []byte("x"))
	if !domain.IsKind(err, domain.ErrUnsupportedType) {
		t.Fatalf("expected unsupported type kind, got %v", err)
	}
}

func TestPrepareSizeGateBeforeHandleCreation(t *testing.T) {
	blobs := &blobStoreFake{}
	describer := &describerFake{}
	p := NewPipeline(blobs, describer, 10<<20)

	big := make([]byte, 15<<20)
	_, err := p.Prepare(context.Background(), "big.jpg", "image/jpeg", big)
	if !domain.IsKind(err, domain.ErrTooLarge) {
		t.Fatalf("expected too large kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "15.00MB") {
		t.Fatalf("expected size in MiB in error, got %v", err)
	}
	if blobs.created != 0 {
		t.Fatalf("handle created for oversized file")
	}
	if describer.calls != 0 {
		t.Fatalf("network call attempted for oversized file")
	}
}

func TestPrepareEmptyGate(t *testing.T) {
	p := NewPipeline(&blobStoreFake{}, &describerFake{}, 0)

	_, err := p.Prepare(context.Background(), "empty.jpg", "image/jpeg", nil)
	if !domain.IsKind(err, domain.ErrEmptyFile) {
		t.Fatalf("expected empty file kind, got %v", err)
	}
}

func TestPreparePNGMagicCheckBeforeNetwork(t *testing.T) {
	blobs := &blobStoreFake{}
	describer := &describerFake{}
	p := NewPipeline(blobs, describer, 0)

	bad := pngBytes()
	bad[0] = 0x00
	_, err := p.Prepare(context.Background(), "bad.png", "image/png", bad)
	if !domain.IsKind(err, domain.ErrCorruptFile) {
		t.Fatalf("expected corrupt file kind, got %v", err)
	}
	if describer.calls != 0 {
		t.Fatalf("network call attempted for corrupt PNG")
	}
	if blobs.created != 0 {
		t.Fatalf("handle created for corrupt PNG")
	}
}

func TestPrepareReleasesHandleOnDescribeFailure(t *testing.T) {
	blobs := &blobStoreFake{nextKey: "display-9"}
	describer := &describerFake{err: domain.WrapError(domain.ErrRateLimited, "describe", errors.New("429"))}
	p := NewPipeline(blobs, describer, 0)

	_, err := p.Prepare(context.Background(), "cat.jpg", "image/jpeg", []byte("jpeg bytes"))
	if !domain.IsKind(err, domain.ErrRateLimited) {
		t.Fatalf("expected rate limited kind, got %v", err)
	}
	if len(blobs.released) != 1 || blobs.released[0] != "display-9" {
		t.Fatalf("expected exactly one release of display-9, got %v", blobs.released)
	}
}

func TestPrepareReleasesHandleOnEmptyDescription(t *testing.T) {
	blobs := &blobStoreFake{nextKey: "display-2"}
	p := NewPipeline(blobs, &describerFake{description: "   "}, 0)

	_, err := p.Prepare(context.Background(), "cat.jpg", "image/jpeg", []byte("jpeg bytes"))
	if err == nil || !strings.Contains(err.Error(), "no content") {
		t.Fatalf("expected no-content error, got %v", err)
	}
	if len(blobs.released) != 1 {
		t.Fatalf("expected handle release, got %v", blobs.released)
	}
}

func TestParseImageDataURI(t *testing.T) {
	uri := BuildImageDataURI("image/jpeg", []byte("jpeg bytes"))
	mimeType, payload, err := ParseImageDataURI(uri)
	if err != nil {
		t.Fatalf("ParseImageDataURI() error = %v", err)
	}
	if mimeType != "image/jpeg" || payload == "" {
		t.Fatalf("unexpected parse result: %q %q", mimeType, payload)
	}

	bad := []string{
		"data:text/plain;base64,aGk=",
		"data:image/png,notbase64marker",
		"data:image/png;base64,",
		"data:image/png;base64,!!!!",
		"plain string",
	}
	for _, candidate := range bad {
		if _, _, err := ParseImageDataURI(candidate); err == nil {
			t.Fatalf("expected %q to be rejected", candidate)
		}
	}
}
