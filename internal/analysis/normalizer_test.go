package analysis

import (
	"testing"

	"resumescope/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func TestNormalizeText(t *testing.T) {
	n := &Normalizer{}

	t.Run("accepts non-blank text", func(t *testing.T) {
		parts, err := n.NormalizeText("Jane Doe\nGo developer")
		require.NoError(t, err)
		require.Len(t, parts, 1)
		assert.Equal(t, TextPart{Text: "Jane Doe\nGo developer"}, parts[0])
	})

	for _, input := range []string{"", "   ", "\n\t "} {
		t.Run("rejects blank "+quote(input), func(t *testing.T) {
			parts, err := n.NormalizeText(input)
			require.Error(t, err)
			assert.Nil(t, parts)
			assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
		})
	}
}

func TestNormalizeDocument(t *testing.T) {
	tests := []struct {
		name     string
		verify   bool
		doc      *Document
		wantCode string
		wantType string
	}{
		{
			name:     "pdf accepted",
			doc:      &Document{Name: "cv.pdf", MediaType: MediaTypePDF, Data: pdfBytes},
			wantType: MediaTypePDF,
		},
		{
			name:     "docx accepted without verification",
			doc:      &Document{Name: "cv.docx", MediaType: MediaTypeDOCX, Data: []byte("not really a zip")},
			wantType: MediaTypeDOCX,
		},
		{
			name:     "doc accepted",
			doc:      &Document{Name: "cv.doc", MediaType: MediaTypeDOC, Data: []byte{0xD0, 0xCF, 0x11, 0xE0}},
			wantType: MediaTypeDOC,
		},
		{
			name:     "parameters are dropped",
			doc:      &Document{Name: "cv.pdf", MediaType: "application/pdf; name=cv.pdf", Data: pdfBytes},
			wantType: MediaTypePDF,
		},
		{
			name:     "missing file",
			doc:      nil,
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "plain text upload rejected",
			doc:      &Document{Name: "cv.txt", MediaType: "text/plain", Data: []byte("hello")},
			wantCode: errors.ErrCodeUnsupportedMediaType,
		},
		{
			name:     "image rejected",
			doc:      &Document{Name: "cv.png", MediaType: "image/png", Data: []byte{0x89, 'P', 'N', 'G'}},
			wantCode: errors.ErrCodeUnsupportedMediaType,
		},
		{
			name:     "empty pdf",
			doc:      &Document{Name: "cv.pdf", MediaType: MediaTypePDF},
			wantCode: errors.ErrCodeInvalidInput,
		},
		{
			name:     "signature mismatch with verification",
			verify:   true,
			doc:      &Document{Name: "cv.pdf", MediaType: MediaTypePDF, Data: []byte("just some text pretending")},
			wantCode: errors.ErrCodeUnsupportedMediaType,
		},
		{
			name:     "signature match with verification",
			verify:   true,
			doc:      &Document{Name: "cv.pdf", MediaType: MediaTypePDF, Data: pdfBytes},
			wantType: MediaTypePDF,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := &Normalizer{VerifySignature: tt.verify}
			parts, err := n.NormalizeDocument(tt.doc)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, errors.CodeOf(err))
				assert.Nil(t, parts)
				return
			}
			require.NoError(t, err)
			require.Len(t, parts, 1)
			att, ok := parts[0].(AttachmentPart)
			require.True(t, ok, "expected AttachmentPart, got %T", parts[0])
			assert.Equal(t, tt.wantType, att.MediaType)
			assert.Equal(t, tt.doc.Data, att.Data)
			assert.Equal(t, tt.doc.Name, att.Name)
		})
	}
}

func TestUnsupportedMediaTypeMessage(t *testing.T) {
	_, err := (&Normalizer{}).NormalizeDocument(&Document{MediaType: "image/png", Data: []byte{1}})
	appErr, ok := errors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, "Unsupported file type: image/png. Only PDF, DOCX, DOC are supported for direct analysis.", appErr.Message)
}

func TestIsSupportedMediaType(t *testing.T) {
	assert.True(t, IsSupportedMediaType(MediaTypePDF))
	assert.True(t, IsSupportedMediaType(MediaTypeDOCX))
	assert.True(t, IsSupportedMediaType(MediaTypeDOC))
	assert.False(t, IsSupportedMediaType("text/plain"))
	assert.False(t, IsSupportedMediaType(""))
}

func quote(s string) string {
	return "\"" + s + "\""
}
