package analysis

import (
	"encoding/json"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"

	"resumescope/internal/types"

	"github.com/samber/lo"
	"google.golang.org/genai"
)

type fieldType string

const (
	typeObject fieldType = "object"
	typeArray  fieldType = "array"
	typeString fieldType = "string"
	typeNumber fieldType = "number"
)

// field is one node of the analysis output contract.
type field struct {
	Type        fieldType
	Description string
	Properties  map[string]*field
	Required    []string
	Items       *field
	Enum        []string
}

func str(description string) *field {
	return &field{Type: typeString, Description: description}
}

func num(description string) *field {
	return &field{Type: typeNumber, Description: description}
}

func strList(description string) *field {
	return &field{Type: typeArray, Description: description, Items: &field{Type: typeString}}
}

func issueList(description string) *field {
	return &field{
		Type:        typeArray,
		Description: description,
		Items: &field{
			Type: typeObject,
			Properties: map[string]*field{
				"issue": str("Description of the issue"),
				"severity": {
					Type:        typeString,
					Description: "How much the issue hurts the resume",
					Enum:        lo.Map(types.Severities, func(s types.Severity, _ int) string { return string(s) }),
				},
			},
			Required: []string{"issue", "severity"},
		},
	}
}

// analysisContract is the canonical output shape. It is never handed out
// directly; callers receive renderings or copies.
var analysisContract = &field{
	Type: typeObject,
	Properties: map[string]*field{
		"name":   str("Full name of the candidate"),
		"email":  str("Contact email address"),
		"phone":  str("Contact phone number"),
		"skills": strList("List of key technical and soft skills"),
		"experience": {
			Type:        typeArray,
			Description: "Professional work experience",
			Items: &field{
				Type: typeObject,
				Properties: map[string]*field{
					"title":       str("Job title or position held"),
					"company":     str("Name of the company"),
					"duration":    str("Employment dates or duration (e.g., 'Jan 2020 - Present', '3 years')"),
					"description": str("Brief description of responsibilities and achievements"),
				},
				Required: []string{"title", "company", "duration", "description"},
			},
		},
		"education": {
			Type:        typeArray,
			Description: "Educational background",
			Items: &field{
				Type: typeObject,
				Properties: map[string]*field{
					"degree":      str("Degree obtained (e.g., 'B.S. Computer Science')"),
					"institution": str("Name of the educational institution"),
					"year":        str("Year of graduation or expected graduation"),
				},
				Required: []string{"degree", "institution", "year"},
			},
		},
		"strengths":    strList("Key strengths identified in the resume"),
		"weaknesses":   strList("Potential areas for improvement or gaps"),
		"overallScore": num("An objective score from 0 to 100 evaluating the resume's quality and fit for a general software developer role"),
		"atsAnalysis": {
			Type:        typeObject,
			Description: "Applicant tracking system compatibility breakdown",
			Properties: map[string]*field{
				"atsScore":        num("Overall ATS compatibility score from 0 to 100"),
				"keywordMatch":    num("Percentage of expected keywords present"),
				"formatScore":     num("Score from 0 to 100 for ATS-friendly formatting"),
				"contentScore":    num("Score from 0 to 100 for content quality"),
				"matchedKeywords": strList("Relevant keywords found in the resume"),
				"missingKeywords": strList("Relevant keywords missing from the resume"),
				"formatIssues":    issueList("Formatting problems that affect ATS parsing"),
				"contentIssues":   issueList("Content problems that affect ATS ranking"),
			},
			// contentIssues is intentionally absent: it may be omitted by the model.
			Required: []string{"atsScore", "keywordMatch", "formatScore", "contentScore", "matchedKeywords", "missingKeywords", "formatIssues"},
		},
	},
	Required: []string{"name", "skills", "experience", "education", "strengths", "weaknesses", "overallScore", "atsAnalysis"},
}

var requiredIndex = sync.OnceValue(func() map[string][]string {
	index := make(map[string][]string)
	indexRequired(analysisContract, "", index)
	return index
})

func indexRequired(f *field, path string, index map[string][]string) {
	switch f.Type {
	case typeObject:
		if len(f.Required) > 0 {
			index[path] = f.Required
		}
		for name, child := range f.Properties {
			childPath := name
			if path != "" {
				childPath = path + "." + name
			}
			indexRequired(child, childPath, index)
		}
	case typeArray:
		if f.Items != nil {
			indexRequired(f.Items, path+"[]", index)
		}
	}
}

// RequiredFields returns a copy of the required key set for the object at path.
// The root is "", array elements are addressed with a "[]" suffix and nesting
// uses dots, e.g. "atsAnalysis.formatIssues[]". Unknown paths return nil.
func RequiredFields(path string) []string {
	return slices.Clone(requiredIndex()[path])
}

// RequiredPaths lists every path that has a required set, sorted.
func RequiredPaths() []string {
	paths := slices.Collect(maps.Keys(requiredIndex()))
	sort.Strings(paths)
	return paths
}

// ResponseSchema renders the contract as a fresh genai schema on every call.
func ResponseSchema() *genai.Schema {
	return toGenAISchema(analysisContract)
}

func toGenAISchema(f *field) *genai.Schema {
	s := &genai.Schema{
		Type:        genaiType(f.Type),
		Description: f.Description,
		Required:    slices.Clone(f.Required),
		Enum:        slices.Clone(f.Enum),
	}
	if len(f.Properties) > 0 {
		s.Properties = make(map[string]*genai.Schema, len(f.Properties))
		for name, child := range f.Properties {
			s.Properties[name] = toGenAISchema(child)
		}
	}
	if f.Items != nil {
		s.Items = toGenAISchema(f.Items)
	}
	return s
}

func genaiType(t fieldType) genai.Type {
	switch t {
	case typeObject:
		return genai.TypeObject
	case typeArray:
		return genai.TypeArray
	case typeNumber:
		return genai.TypeNumber
	default:
		return genai.TypeString
	}
}

// JSONSchema renders the full contract as a draft-07 JSON Schema document.
var JSONSchema = sync.OnceValue(func() string {
	return renderJSONSchema(true)
})

// shapeJSONSchema is the contract without value enums: required sets and
// types only. Every decode is held to at least this much.
var shapeJSONSchema = sync.OnceValue(func() string {
	return renderJSONSchema(false)
})

func renderJSONSchema(withEnums bool) string {
	doc := toJSONSchema(analysisContract, withEnums)
	doc["$schema"] = "http://json-schema.org/draft-07/schema#"
	out, err := json.Marshal(doc)
	if err != nil {
		panic("analysis: render json schema: " + err.Error())
	}
	return string(out)
}

func toJSONSchema(f *field, withEnums bool) map[string]any {
	s := map[string]any{"type": string(f.Type)}
	if f.Description != "" {
		s["description"] = f.Description
	}
	if len(f.Required) > 0 {
		s["required"] = f.Required
	}
	if withEnums && len(f.Enum) > 0 {
		s["enum"] = f.Enum
	}
	if len(f.Properties) > 0 {
		props := make(map[string]any, len(f.Properties))
		for name, child := range f.Properties {
			props[name] = toJSONSchema(child, withEnums)
		}
		s["properties"] = props
	}
	if f.Items != nil {
		s["items"] = toJSONSchema(f.Items, withEnums)
	}
	return s
}

// describePath formats a gojsonschema field path like "atsAnalysis.formatIssues.0.severity".
func describePath(p string) string {
	if p == "" || p == "(root)" {
		return "(root)"
	}
	return strings.TrimPrefix(p, "(root).")
}
