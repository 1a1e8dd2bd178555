// Package pdfdoc extracts plain text from PDF attachments. The PDF format
// itself is the engine's problem (github.com/ledongthuc/pdf); this package
// owns page ordering, error translation, and panic containment around it.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

// document is the slice of the engine the extractor needs; injectable so
// the page walk is testable without crafting real PDFs.
type document interface {
	NumPages() int
	PageText(page int) (string, error)
}

type openFunc func(data []byte) (document, error)

type Extractor struct {
	open openFunc
}

func NewExtractor() *Extractor {
	return &Extractor{open: openEngine}
}

// Extract walks pages 1..N strictly in order and renders each as
// "Page <i>:\n<text>\n\n", trimmed at the end. Output page blocks always
// appear in ascending page order.
func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if e.open == nil {
		return "", domain.WrapError(domain.ErrNotInitialized, "open pdf", errors.New("pdf engine not configured"))
	}

	doc, err := e.open(data)
	if err != nil {
		return "", translateEngineError(err)
	}

	var full strings.Builder
	for i := 1; i <= doc.NumPages(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		pageText, err := doc.PageText(i)
		if err != nil {
			return "", translateEngineError(err)
		}
		fmt.Fprintf(&full, "Page %d:\n%s\n\n", i, pageText)
	}
	return strings.TrimSpace(full.String()), nil
}

func translateEngineError(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "password") || strings.Contains(msg, "encrypted"):
		return errors.New("Failed to extract text from PDF: document is password protected")
	case strings.Contains(msg, "malformed") || strings.Contains(msg, "panic"):
		return domain.WrapError(domain.ErrCorruptFile, "parse pdf", err)
	default:
		return fmt.Errorf("Failed to extract text from PDF: %v", err)
	}
}

type engineDocument struct {
	reader *pdf.Reader
}

// The engine panics on some malformed inputs, so both entry points trap
// panics and fold them into the corrupt-file path.
func openEngine(data []byte) (doc document, err error) {
	defer func() {
		if r := recover(); r != nil {
			doc, err = nil, fmt.Errorf("pdf engine panic: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, err
	}
	return &engineDocument{reader: reader}, nil
}

func (d *engineDocument) NumPages() int {
	return d.reader.NumPage()
}

func (d *engineDocument) PageText(page int) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("pdf engine panic: %v", r)
		}
	}()

	p := d.reader.Page(page)
	if p.V.IsNull() {
		return "", nil
	}

	content := p.Content()
	parts := make([]string, 0, len(content.Text))
	for _, item := range content.Text {
		if item.S != "" {
			parts = append(parts, item.S)
		}
	}
	return strings.Join(parts, " "), nil
}
