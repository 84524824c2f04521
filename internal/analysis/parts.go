// Package analysis turns a résumé into a structured AnalysisResult by way of a
// single schema-constrained generation request.
package analysis

import "google.golang.org/genai"

// Source records which input shape a request was built from.
type Source string

const (
	SourceText       Source = "text"
	SourceAttachment Source = "attachment"
)

// ContentPart is one unit of an outbound generation request: a TextPart or an AttachmentPart.
type ContentPart interface {
	isContentPart()
	toGenAI() *genai.Part
}

// TextPart carries instruction or résumé text.
type TextPart struct {
	Text string
}

func (TextPart) isContentPart() {}

func (p TextPart) toGenAI() *genai.Part {
	return &genai.Part{Text: p.Text}
}

// AttachmentPart carries a binary document sent inline with its declared media type.
type AttachmentPart struct {
	Data      []byte
	MediaType string
	Name      string
}

func (AttachmentPart) isContentPart() {}

func (p AttachmentPart) toGenAI() *genai.Part {
	return &genai.Part{InlineData: &genai.Blob{Data: p.Data, MIMEType: p.MediaType}}
}

// Document is an uploaded résumé file as received from the caller.
type Document struct {
	Name      string
	MediaType string
	Data      []byte
}
