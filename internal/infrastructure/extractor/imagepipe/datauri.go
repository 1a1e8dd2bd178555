package imagepipe

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

const (
	dataURIPrefix      = "data:"
	imageDataURIPrefix = "data:image/"
	base64Marker       = ";base64"

	// Spot-check length: validating a small prefix of the payload catches
	// mangled encodings without decoding the whole image a second time.
	spotCheckChars = 100
)

// BuildImageDataURI renders raw image bytes as a self-describing
// base64 data URI.
func BuildImageDataURI(mimeType string, data []byte) string {
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data))
}

// ParseImageDataURI checks a candidate against the canonical data-URI
// grammar and returns its (mimeType, payload) pair. The payload prefix must
// decode as base64; the full payload is deliberately not decoded.
func ParseImageDataURI(candidate string) (mimeType, payload string, err error) {
	if !strings.HasPrefix(candidate, imageDataURIPrefix) {
		return "", "", errors.New("not an image data URI")
	}

	header, payload, found := strings.Cut(candidate, ",")
	if !found || payload == "" {
		return "", "", errors.New("data URI has no payload")
	}
	if strings.Contains(payload, ",") {
		return "", "", errors.New("data URI has more than one payload separator")
	}
	if !strings.HasSuffix(header, base64Marker) {
		return "", "", errors.New("data URI is not base64 encoded")
	}

	mimeType = strings.TrimSuffix(strings.TrimPrefix(header, dataURIPrefix), base64Marker)
	if !strings.HasPrefix(mimeType, "image/") {
		return "", "", fmt.Errorf("mime type %q is not an image type", mimeType)
	}

	prefix := payload
	if len(prefix) > spotCheckChars {
		prefix = prefix[:spotCheckChars]
	}
	prefix = prefix[:len(prefix)-len(prefix)%4]
	if _, err := base64.StdEncoding.DecodeString(prefix); err != nil {
		return "", "", fmt.Errorf("payload prefix is not valid base64: %w", err)
	}

	return mimeType, payload, nil
}
