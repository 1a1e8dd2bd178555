package domain

import "time"

// Attachment is the normalized result of ingesting one user file. On
// success it carries extracted text, a blob handle for rendering, or both.
// Blob handles referenced by DisplayKey/ThumbnailKey are owned by the
// attachment's holder and must be released when the attachment is
// discarded; the orchestrator only releases handles on failure paths, before
// an Attachment exists.
type Attachment struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	MediaType  string `json:"media_type"`
	SourceSize int64  `json:"source_size"`

	TextualContent string `json:"textual_content,omitempty"`
	DisplayKey     string `json:"display_key,omitempty"`

	VideoDuration float64 `json:"video_duration,omitempty"`
	ThumbnailKey  string  `json:"thumbnail_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// HasContent reports whether the attachment carries anything usable. Files
// that produce neither text nor a display handle are ingestion failures,
// never silent empty attachments.
func (a Attachment) HasContent() bool {
	return a.TextualContent != "" || a.DisplayKey != ""
}

// Record is the persistable shape of an attachment: a plain value with no
// live blob handles, safe to serialize across a process restart.
type Record struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	MediaType      string    `json:"media_type"`
	SourceSize     int64     `json:"source_size"`
	TextualContent string    `json:"textual_content,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ToRecord strips blob handles for persistence. Handles do not survive a
// restart; the chat layer regenerates or omits them on reload.
func (a Attachment) ToRecord() Record {
	return Record{
		ID:             a.ID,
		Name:           a.Name,
		MediaType:      a.MediaType,
		SourceSize:     a.SourceSize,
		TextualContent: a.TextualContent,
		CreatedAt:      a.CreatedAt,
	}
}

// PendingFile is a user-selected file that has not completed processing.
// Open defers reading the content so the size gate can run on SourceSize
// before any bytes are touched.
type PendingFile struct {
	Name       string
	MediaType  string
	SourceSize int64
	Open       func() ([]byte, error)
}

// Notice is the per-file, user-displayable outcome of a failed ingestion.
type Notice struct {
	FileName string `json:"file_name"`
	Reason   string `json:"reason"`
}

// ImageResult is the image pipeline output: a display handle plus the
// remote model's description of the visual content.
type ImageResult struct {
	DisplayKey  string
	Description string
	Width       int
	Height      int
}

// VideoResult is the video extractor output. Both keys are live handles
// whose ownership transfers to the caller.
type VideoResult struct {
	Duration     float64
	DisplayKey   string
	ThumbnailKey string
	Metadata     map[string]string
}
