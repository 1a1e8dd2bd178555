// Package sniff detects media types from raw content for uploads whose
// declared type is missing.
package sniff

import "github.com/gabriel-vasile/mimetype"

type Detector struct{}

func NewDetector() *Detector {
	return &Detector{}
}

func (Detector) Detect(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	return mimetype.Detect(data).String()
}
