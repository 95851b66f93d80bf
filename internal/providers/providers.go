package providers

import (
	"context"
)

// Part is one segment of a multimodal request: either text or inline image data
type Part struct {
	Text     string
	MIMEType string
	Data     []byte
}

// IsImage reports whether the part carries image bytes
func (p Part) IsImage() bool {
	return len(p.Data) > 0
}

// TextPart returns a text segment
func TextPart(text string) Part {
	return Part{Text: text}
}

// ImagePart returns an inline image segment
func ImagePart(mimeType string, data []byte) Part {
	return Part{MIMEType: mimeType, Data: data}
}

// Config represents the configuration for an LLM provider call
type Config struct {
	Model       string
	Temperature float64
	Parts       []Part
}

// Provider defines the interface for an LLM provider
type Provider interface {
	ExtractText(ctx context.Context, config Config) (string, error)
}
