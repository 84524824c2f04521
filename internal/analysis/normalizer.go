package analysis

import (
	"fmt"
	"mime"
	"strings"

	"resumescope/internal/errors"

	"github.com/gabriel-vasile/mimetype"
	"github.com/samber/lo"
)

const (
	MediaTypePDF  = "application/pdf"
	MediaTypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MediaTypeDOC  = "application/msword"
)

// SupportedMediaTypes is the allow-list of document types forwarded to the model.
// Plain text never appears here; it goes through the text shape instead.
var SupportedMediaTypes = []string{MediaTypePDF, MediaTypeDOCX, MediaTypeDOC}

// signatureFamilies lists the sniffed types accepted for each declared type.
// Generic containers are accepted because detection of the specific format
// depends on how much of the archive is inspected.
var signatureFamilies = map[string][]string{
	MediaTypePDF:  {"application/pdf"},
	MediaTypeDOCX: {MediaTypeDOCX, "application/zip"},
	MediaTypeDOC:  {MediaTypeDOC, "application/x-ole-storage"},
}

const (
	msgInvalidText    = `Invalid JSON request: "resumeText" is missing, empty, or not a string.`
	msgMissingFile    = `Invalid FormData: "resumeFile" part is missing.`
	msgEmptyFile      = `Invalid FormData: "resumeFile" part is empty.`
	msgUnsupportedFmt = "Unsupported file type: %s. Only PDF, DOCX, DOC are supported for direct analysis."
	msgSignatureFmt   = "Unsupported file type: declared %s but content looks like %s."
)

// Normalizer turns the two accepted input shapes into content parts.
type Normalizer struct {
	// VerifySignature rejects documents whose content does not match the declared type.
	VerifySignature bool
}

// NormalizeText accepts non-blank résumé text and returns exactly one text part.
func (n *Normalizer) NormalizeText(text string) ([]ContentPart, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.NewInvalidInputError(msgInvalidText)
	}
	return []ContentPart{TextPart{Text: text}}, nil
}

// NormalizeDocument accepts an allow-listed document and returns exactly one attachment part.
// A nil document means the upload carried no file part.
func (n *Normalizer) NormalizeDocument(doc *Document) ([]ContentPart, error) {
	if doc == nil {
		return nil, errors.NewInvalidInputError(msgMissingFile)
	}

	mediaType := canonicalMediaType(doc.MediaType)
	if !IsSupportedMediaType(mediaType) {
		return nil, errors.NewUnsupportedMediaTypeError(fmt.Sprintf(msgUnsupportedFmt, doc.MediaType)).
			WithContext("declared_media_type", doc.MediaType)
	}

	if len(doc.Data) == 0 {
		return nil, errors.NewInvalidInputError(msgEmptyFile)
	}

	if n != nil && n.VerifySignature {
		if detected, ok := matchesSignature(mediaType, doc.Data); !ok {
			return nil, errors.NewUnsupportedMediaTypeError(fmt.Sprintf(msgSignatureFmt, mediaType, detected)).
				WithContext("declared_media_type", mediaType).
				WithContext("detected_media_type", detected)
		}
	}

	return []ContentPart{AttachmentPart{Data: doc.Data, MediaType: mediaType, Name: doc.Name}}, nil
}

// IsSupportedMediaType reports whether mediaType is on the document allow-list.
func IsSupportedMediaType(mediaType string) bool {
	return lo.Contains(SupportedMediaTypes, mediaType)
}

// canonicalMediaType drops parameters such as charset from a declared type.
func canonicalMediaType(declared string) string {
	mediaType, _, err := mime.ParseMediaType(declared)
	if err != nil {
		return strings.TrimSpace(declared)
	}
	return mediaType
}

// matchesSignature sniffs data and reports the detected type and whether it
// belongs to the family of the declared type.
func matchesSignature(declared string, data []byte) (string, bool) {
	detected := mimetype.Detect(data)
	for m := detected; m != nil; m = m.Parent() {
		for _, accepted := range signatureFamilies[declared] {
			if m.Is(accepted) {
				return detected.String(), true
			}
		}
	}
	return detected.String(), false
}
