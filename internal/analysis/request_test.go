package analysis

import (
	"strings"
	"testing"

	"resumescope/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildRequestText(t *testing.T) {
	resume := "Jane Doe\nGo developer with 8 years of experience"
	req, err := BuildRequest([]ContentPart{TextPart{Text: resume}}, DefaultTemplates, DefaultBuildOptions())
	require.NoError(t, err)

	assert.Equal(t, SourceText, req.Source)
	assert.Equal(t, DefaultModel, req.Model)
	assert.Equal(t, "application/json", req.ResponseMIMEType)
	require.Len(t, req.Parts, 1)
	assert.Equal(t, 0, req.AttachmentCount())

	text, ok := req.Parts[0].(TextPart)
	require.True(t, ok)
	assert.Contains(t, text.Text, "---\n"+resume+"\n---")
	assert.True(t, strings.HasPrefix(text.Text, "Please analyze the following resume text thoroughly."))
}

func TestBuildRequestAttachment(t *testing.T) {
	att := AttachmentPart{Data: pdfBytes, MediaType: MediaTypePDF, Name: "jane.pdf"}
	req, err := BuildRequest([]ContentPart{att}, DefaultTemplates, DefaultBuildOptions())
	require.NoError(t, err)

	assert.Equal(t, SourceAttachment, req.Source)
	require.Len(t, req.Parts, 2)
	assert.Equal(t, 1, req.AttachmentCount())
	assert.Equal(t, att, req.Parts[0])

	instruction, ok := req.Parts[1].(TextPart)
	require.True(t, ok)
	assert.Contains(t, instruction.Text, "(jane.pdf)")
	assert.NotContains(t, instruction.Text, string(pdfBytes))
}

func TestBuildRequestRejectsWrongPartCount(t *testing.T) {
	for _, parts := range [][]ContentPart{nil, {TextPart{Text: "a"}, TextPart{Text: "b"}}} {
		_, err := BuildRequest(parts, DefaultTemplates, DefaultBuildOptions())
		require.Error(t, err)
		assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidInput))
	}
}

func TestBuildRequestFillsDefaultModel(t *testing.T) {
	opts := DefaultBuildOptions()
	opts.Model = ""
	req, err := BuildRequest([]ContentPart{TextPart{Text: "x"}}, DefaultTemplates, opts)
	require.NoError(t, err)
	assert.Equal(t, DefaultModel, req.Model)
}

func TestGenerationRequestConfig(t *testing.T) {
	req, err := BuildRequest([]ContentPart{TextPart{Text: "x"}}, DefaultTemplates, DefaultBuildOptions())
	require.NoError(t, err)

	cfg := req.Config()
	require.NotNil(t, cfg.Temperature)
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-6)
	assert.InDelta(t, 0.95, *cfg.TopP, 1e-6)
	assert.InDelta(t, 40, *cfg.TopK, 1e-6)
	assert.Equal(t, int32(8192), cfg.MaxOutputTokens)
	assert.Equal(t, "application/json", cfg.ResponseMIMEType)
	assert.NotNil(t, cfg.ResponseSchema)
	assert.Nil(t, cfg.SystemInstruction)

	require.Len(t, cfg.SafetySettings, 4)
	for i, s := range cfg.SafetySettings {
		assert.Equal(t, SafetyCategories[i], s.Category)
		assert.Equal(t, genai.HarmBlockThresholdBlockMediumAndAbove, s.Threshold)
	}
}

func TestGenerationRequestSystemInstruction(t *testing.T) {
	tpl := DefaultTemplates
	tpl.System = "You are a recruiter."
	req, err := BuildRequest([]ContentPart{TextPart{Text: "x"}}, tpl, DefaultBuildOptions())
	require.NoError(t, err)

	cfg := req.Config()
	require.NotNil(t, cfg.SystemInstruction)
	require.Len(t, cfg.SystemInstruction.Parts, 1)
	assert.Equal(t, "You are a recruiter.", cfg.SystemInstruction.Parts[0].Text)
}

func TestGenerationRequestContents(t *testing.T) {
	att := AttachmentPart{Data: pdfBytes, MediaType: MediaTypePDF, Name: "jane.pdf"}
	req, err := BuildRequest([]ContentPart{att}, DefaultTemplates, DefaultBuildOptions())
	require.NoError(t, err)

	contents := req.Contents()
	require.Len(t, contents, 1)
	assert.Equal(t, genai.RoleUser, contents[0].Role)
	require.Len(t, contents[0].Parts, 2)
	require.NotNil(t, contents[0].Parts[0].InlineData)
	assert.Equal(t, MediaTypePDF, contents[0].Parts[0].InlineData.MIMEType)
	assert.Equal(t, pdfBytes, contents[0].Parts[0].InlineData.Data)
	assert.NotEmpty(t, contents[0].Parts[1].Text)
}

func TestTemplates(t *testing.T) {
	assert.NoError(t, DefaultTemplates.Validate())

	bad := Templates{Text: "no placeholder", Attachment: "%s"}
	assert.Error(t, bad.Validate())

	store := NewTemplateStore(bad)
	assert.Equal(t, DefaultTemplates, store.Load())

	custom := Templates{Text: "Review: %s", Attachment: "Review file %s"}
	require.NoError(t, store.Store(custom))
	assert.Equal(t, custom, store.Load())

	assert.Error(t, store.Store(bad))
	assert.Equal(t, custom, store.Load())

	var nilStore *TemplateStore
	assert.Equal(t, DefaultTemplates, nilStore.Load())

	assert.Equal(t, "Review file resume", custom.formatAttachment(""))
	assert.Equal(t, "Review: 100% done", custom.formatText("100% done"))
}

func TestTemplatesKeepLiteralPercentSigns(t *testing.T) {
	tpl := Templates{
		Text:       "Score 0-100%. Weigh keywords at 40%%.\n%s\nEnd.",
		Attachment: "File %s, score 0-100%.",
	}
	require.NoError(t, tpl.Validate())

	assert.Equal(t, "Score 0-100%. Weigh keywords at 40%%.\nJane Doe, 5% equity\nEnd.", tpl.formatText("Jane Doe, 5% equity"))
	assert.Equal(t, "File jane.pdf, score 0-100%.", tpl.formatAttachment("jane.pdf"))

	req, err := BuildRequest([]ContentPart{TextPart{Text: "Jane Doe"}}, tpl, DefaultBuildOptions())
	require.NoError(t, err)
	assert.Contains(t, req.Contents()[0].Parts[0].Text, "Jane Doe")
}
