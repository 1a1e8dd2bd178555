// Package msword extracts raw text from Word attachments via
// github.com/fumiama/go-docx. The container format is not worth
// reimplementing; the library also does not expose a reliable failure
// taxonomy, so every failure collapses to one generic message.
package msword

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
)

var errProcess = errors.New("Failed to process DOCX file")

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text, err := extractRawText(data)
	if err != nil {
		return "", errProcess
	}
	return strings.TrimSpace(text), nil
}

func extractRawText(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("docx engine panic: %v", r)
		}
	}()

	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for _, item := range doc.Document.Body.Items {
		stringer, ok := item.(fmt.Stringer)
		if !ok {
			continue
		}
		line := strings.TrimSpace(stringer.String())
		if line == "" {
			continue
		}
		full.WriteString(line)
		full.WriteByte('\n')
	}
	return full.String(), nil
}
