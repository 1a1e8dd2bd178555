package domain

import (
	"errors"
	"fmt"
)

// Ingestion failure kinds. Every extractor failure wraps exactly one of
// these so the orchestrator and the HTTP layer can map it to a user notice
// without parsing message text.
var (
	ErrUnsupportedType = errors.New("unsupported media type")
	ErrTooLarge        = errors.New("file too large")
	ErrEmptyFile       = errors.New("file is empty")
	ErrCorruptFile     = errors.New("corrupt file")
	ErrEncodingFailure = errors.New("encoding failure")
	ErrNotInitialized  = errors.New("extraction engine not initialized")

	ErrNetwork = errors.New("network failure")
	ErrTimeout = errors.New("request timed out")

	// Remote completion/vision service failures, subdivided for user
	// messaging.
	ErrRateLimited          = errors.New("rate limited")
	ErrQuotaExceeded        = errors.New("quota exceeded")
	ErrServiceMisconfigured = errors.New("service misconfigured")
	ErrServerError          = errors.New("server error")

	ErrChatNotFound = errors.New("chat not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrTemporary    = errors.New("temporary failure")
)

// WrapError preserves typed semantic errors with operation context.
func WrapError(kind error, operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", operation, kind, err)
}

func IsKind(err error, kind error) bool {
	return errors.Is(err, kind)
}
