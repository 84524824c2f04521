package analysis

import (
	"fmt"

	"resumescope/internal/errors"

	"google.golang.org/genai"
)

const (
	DefaultModel           = "gemini-1.5-flash-latest"
	DefaultTemperature     = float32(0.7)
	DefaultTopP            = float32(0.95)
	DefaultTopK            = float32(40)
	DefaultMaxOutputTokens = int32(8192)

	responseMIMEType = "application/json"
)

// SafetyCategories are the harm categories thresholded on every request.
var SafetyCategories = []genai.HarmCategory{
	genai.HarmCategoryHarassment,
	genai.HarmCategoryHateSpeech,
	genai.HarmCategorySexuallyExplicit,
	genai.HarmCategoryDangerousContent,
}

// SamplingConfig holds the generation parameters. They come from configuration, never from callers.
type SamplingConfig struct {
	Temperature     float32
	TopP            float32
	TopK            float32
	MaxOutputTokens int32
}

// BuildOptions configures the Request Builder.
type BuildOptions struct {
	Model           string
	Sampling        SamplingConfig
	SafetyThreshold genai.HarmBlockThreshold
}

// DefaultBuildOptions favours schema adherence over creativity and leaves room for a full analysis document.
func DefaultBuildOptions() BuildOptions {
	return BuildOptions{
		Model: DefaultModel,
		Sampling: SamplingConfig{
			Temperature:     DefaultTemperature,
			TopP:            DefaultTopP,
			TopK:            DefaultTopK,
			MaxOutputTokens: DefaultMaxOutputTokens,
		},
		SafetyThreshold: genai.HarmBlockThresholdBlockMediumAndAbove,
	}
}

// GenerationRequest is one fully-specified call to the model. It is built per
// incoming call and is not reused.
type GenerationRequest struct {
	Model             string
	Source            Source
	Parts             []ContentPart
	SystemInstruction string
	Schema            *genai.Schema
	Sampling          SamplingConfig
	Safety            []*genai.SafetySetting
	ResponseMIMEType  string
}

// BuildRequest wraps normalized parts with the instruction template for their
// shape. Text input yields a single text part embedding the résumé; a document
// yields the attachment followed by the instruction text.
func BuildRequest(parts []ContentPart, templates Templates, opts BuildOptions) (*GenerationRequest, error) {
	if len(parts) != 1 {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("Invalid request: expected exactly one resume part, got %d.", len(parts)))
	}

	req := &GenerationRequest{
		Model:             opts.Model,
		SystemInstruction: templates.System,
		Schema:            ResponseSchema(),
		Sampling:          opts.Sampling,
		Safety:            safetySettings(opts.SafetyThreshold),
		ResponseMIMEType:  responseMIMEType,
	}
	if req.Model == "" {
		req.Model = DefaultModel
	}

	switch p := parts[0].(type) {
	case TextPart:
		req.Source = SourceText
		req.Parts = []ContentPart{TextPart{Text: templates.formatText(p.Text)}}
	case AttachmentPart:
		req.Source = SourceAttachment
		req.Parts = []ContentPart{p, TextPart{Text: templates.formatAttachment(p.Name)}}
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("Invalid request: unsupported content part %T.", p))
	}

	return req, nil
}

func safetySettings(threshold genai.HarmBlockThreshold) []*genai.SafetySetting {
	if threshold == "" {
		threshold = genai.HarmBlockThresholdBlockMediumAndAbove
	}
	settings := make([]*genai.SafetySetting, 0, len(SafetyCategories))
	for _, category := range SafetyCategories {
		settings = append(settings, &genai.SafetySetting{Category: category, Threshold: threshold})
	}
	return settings
}

// Contents renders the parts as a single user turn.
func (r *GenerationRequest) Contents() []*genai.Content {
	parts := make([]*genai.Part, 0, len(r.Parts))
	for _, p := range r.Parts {
		parts = append(parts, p.toGenAI())
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
}

// Config renders the generation parameters with JSON output forced.
func (r *GenerationRequest) Config() *genai.GenerateContentConfig {
	temperature := r.Sampling.Temperature
	topP := r.Sampling.TopP
	topK := r.Sampling.TopK

	cfg := &genai.GenerateContentConfig{
		Temperature:      &temperature,
		TopP:             &topP,
		TopK:             &topK,
		MaxOutputTokens:  r.Sampling.MaxOutputTokens,
		ResponseMIMEType: r.ResponseMIMEType,
		ResponseSchema:   r.Schema,
		SafetySettings:   r.Safety,
	}
	if r.SystemInstruction != "" {
		cfg.SystemInstruction = genai.NewContentFromText(r.SystemInstruction, genai.RoleUser)
	}
	return cfg
}

// AttachmentCount returns how many attachment parts the request carries.
func (r *GenerationRequest) AttachmentCount() int {
	n := 0
	for _, p := range r.Parts {
		if _, ok := p.(AttachmentPart); ok {
			n++
		}
	}
	return n
}
