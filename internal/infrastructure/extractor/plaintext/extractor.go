// Package plaintext is the pass-through reader for text/* and JSON
// attachments.
package plaintext

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/dmkuzmin/chat-assistant/internal/core/domain"
)

var errInvalidUTF8 = errors.New("content is not valid UTF-8")

type Extractor struct{}

func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) Extract(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", domain.WrapError(domain.ErrEncodingFailure, "decode text", errInvalidUTF8)
	}
	return strings.TrimSpace(string(data)), nil
}
