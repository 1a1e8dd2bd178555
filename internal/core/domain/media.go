package domain

import "strings"

// MediaFamily is the closed dispatch set for the ingestion pipeline.
// FamilyOf derives it once from the declared type; extractors and the
// orchestrator never re-test type prefixes.
type MediaFamily string

const (
	FamilyPDF         MediaFamily = "pdf"
	FamilyWord        MediaFamily = "word"
	FamilySpreadsheet MediaFamily = "spreadsheet"
	FamilyImage       MediaFamily = "image"
	FamilyVideo       MediaFamily = "video"
	FamilyText        MediaFamily = "text"
	FamilyUnsupported MediaFamily = "unsupported"
)

const (
	MimePDF        = "application/pdf"
	MimeWordLegacy = "application/msword"
	MimeWordOOXML  = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MimeXLSX       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	MimeJSON       = "application/json"
)

// FamilyOf classifies a declared MIME-like type string. Parameters after a
// semicolon (charset and friends) are ignored.
func FamilyOf(mediaType string) MediaFamily {
	mt := strings.ToLower(strings.TrimSpace(mediaType))
	if i := strings.IndexByte(mt, ';'); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}

	switch mt {
	case MimePDF:
		return FamilyPDF
	case MimeWordLegacy, MimeWordOOXML:
		return FamilyWord
	case MimeXLSX:
		return FamilySpreadsheet
	case MimeJSON:
		return FamilyText
	}

	switch {
	case strings.HasPrefix(mt, "image/"):
		return FamilyImage
	case strings.HasPrefix(mt, "video/"):
		return FamilyVideo
	case strings.HasPrefix(mt, "text/"):
		return FamilyText
	}
	return FamilyUnsupported
}
