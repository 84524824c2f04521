package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"resumescope/internal/errors"
	"resumescope/internal/types"

	"github.com/xeipuuv/gojsonschema"
)

const (
	// PreviewLimit is the number of characters of raw output kept for diagnosis.
	PreviewLimit  = 500
	previewMarker = "..."

	msgMalformedOutput = "Failed to parse AI analysis result into valid JSON."
	msgSchemaViolation = "AI analysis result does not match the expected schema."
)

// SchemaViolation lists where a decoded result breaks the output contract.
type SchemaViolation struct {
	Errors []FieldError
}

// FieldError represents a single validation error at a specific field
type FieldError struct {
	Field   string
	Message string
}

func (v *SchemaViolation) Error() string {
	var sb strings.Builder
	sb.WriteString("schema validation failed:")
	for i, e := range v.Errors {
		fmt.Fprintf(&sb, "\n  %d. %s: %s", i+1, e.Field, e.Message)
	}
	return sb.String()
}

// Preview returns at most PreviewLimit characters of raw, marked with "..." when cut.
func Preview(raw string) string {
	runes := []rune(raw)
	if len(runes) <= PreviewLimit {
		return raw
	}
	return string(runes[:PreviewLimit]) + previewMarker
}

var (
	shapeValidator  = compileSchema(shapeJSONSchema)
	strictValidator = compileSchema(JSONSchema)
)

func compileSchema(doc func() string) func() (*gojsonschema.Schema, error) {
	return sync.OnceValues(func() (*gojsonschema.Schema, error) {
		return gojsonschema.NewSchema(gojsonschema.NewStringLoader(doc()))
	})
}

// Decode parses raw model output into an AnalysisResult. Output that is not a
// JSON object fails with MALFORMED_OUTPUT and a preview of the raw text, as
// does an object missing a required field or carrying one of the wrong type.
// With strict set, value enums such as issue severity are enforced as well.
// The accepted document is kept on the result so it encodes unchanged.
func Decode(raw string, strict bool) (*types.AnalysisResult, error) {
	trimmed := strings.TrimSpace(raw)
	if !json.Valid([]byte(trimmed)) || !strings.HasPrefix(trimmed, "{") {
		return nil, errors.NewMalformedOutputError(msgMalformedOutput, Preview(raw), nil)
	}

	validator := shapeValidator
	if strict {
		validator = strictValidator
	}
	if err := validateContract(validator, trimmed); err != nil {
		return nil, errors.NewMalformedOutputError(msgSchemaViolation, Preview(raw), err)
	}

	var result types.AnalysisResult
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, errors.NewMalformedOutputError(msgMalformedOutput, Preview(raw), err)
	}
	result.Raw = json.RawMessage(trimmed)

	return &result, nil
}

func validateContract(compiled func() (*gojsonschema.Schema, error), doc string) error {
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("schema validation could not run: %w", err)
	}
	result, err := schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("schema validation could not run: %w", err)
	}
	if result.Valid() {
		return nil
	}

	violation := &SchemaViolation{Errors: make([]FieldError, 0, len(result.Errors()))}
	for _, desc := range result.Errors() {
		violation.Errors = append(violation.Errors, FieldError{
			Field:   describePath(desc.Field()),
			Message: desc.Description(),
		})
	}
	return violation
}
