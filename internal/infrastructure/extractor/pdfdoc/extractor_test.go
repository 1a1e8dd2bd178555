package pdfdoc

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

type fakeDocument struct {
	pages   []string
	pageErr error
}

func (d *fakeDocument) NumPages() int { return len(d.pages) }

func (d *fakeDocument) PageText(page int) (string, error) {
	if d.pageErr != nil {
		return "", d.pageErr
	}
	return d.pages[page-1], nil
}

func fakeOpen(doc document, err error) openFunc {
	return func([]byte) (document, error) {
		if err != nil {
			return nil, err
		}
		return doc, nil
	}
}

func TestExtractRendersPagesInDocumentOrder(t *testing.T) {
	e := &Extractor{open: fakeOpen(&fakeDocument{pages: []string{"A", "B"}}, nil)}

	got, err := e.Extract(context.Background(), []byte("%PDF"))
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	first := strings.Index(got, "Page 1:\nA")
	second := strings.Index(got, "Page 2:\nB")
	if first < 0 || second < 0 || second < first {
		t.Fatalf("pages out of order or missing: %q", got)
	}
	if strings.HasSuffix(got, "\n") {
		t.Fatalf("expected trimmed output, got %q", got)
	}
}

func TestExtractPasswordProtected(t *testing.T) {
	e := &Extractor{open: fakeOpen(nil, errors.New("encrypted PDF, password required"))}

	_, err := e.Extract(context.Background(), []byte("%PDF"))
	if err == nil || !strings.Contains(err.Error(), "password protected") {
		t.Fatalf("expected password protected error, got %v", err)
	}
}

func TestExtractCorruptedDocument(t *testing.T) {
	e := &Extractor{open: fakeOpen(nil, errors.New("malformed PDF: missing xref"))}

	_, err := e.Extract(context.Background(), []byte("junk"))
	if !domain.IsKind(err, domain.ErrCorruptFile) {
		t.Fatalf("expected corrupt file kind, got %v", err)
	}
}

func TestExtractNotInitialized(t *testing.T) {
	e := &Extractor{}

	_, err := e.Extract(context.Background(), []byte("%PDF"))
	if !domain.IsKind(err, domain.ErrNotInitialized) {
		t.Fatalf("expected not initialized kind, got %v", err)
	}
}

func TestExtractGenericFailure(t *testing.T) {
	e := &Extractor{open: fakeOpen(&fakeDocument{pages: []string{"A"}, pageErr: errors.New("font cache miss")}, nil)}

	_, err := e.Extract(context.Background(), []byte("%PDF"))
	if err == nil || !strings.Contains(err.Error(), "Failed to extract text from PDF") {
		t.Fatalf("expected generic extraction error, got %v", err)
	}
}
