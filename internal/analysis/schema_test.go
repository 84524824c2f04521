package analysis

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestRequiredFields(t *testing.T) {
	tests := []struct {
		path string
		want []string
	}{
		{"", []string{"name", "skills", "experience", "education", "strengths", "weaknesses", "overallScore", "atsAnalysis"}},
		{"experience[]", []string{"title", "company", "duration", "description"}},
		{"education[]", []string{"degree", "institution", "year"}},
		{"atsAnalysis", []string{"atsScore", "keywordMatch", "formatScore", "contentScore", "matchedKeywords", "missingKeywords", "formatIssues"}},
		{"atsAnalysis.formatIssues[]", []string{"issue", "severity"}},
		{"atsAnalysis.contentIssues[]", []string{"issue", "severity"}},
	}

	for _, tt := range tests {
		t.Run("path "+quote(tt.path), func(t *testing.T) {
			assert.ElementsMatch(t, tt.want, RequiredFields(tt.path))
		})
	}

	t.Run("contact fields optional", func(t *testing.T) {
		root := RequiredFields("")
		assert.NotContains(t, root, "email")
		assert.NotContains(t, root, "phone")
	})

	t.Run("content issues optional", func(t *testing.T) {
		assert.NotContains(t, RequiredFields("atsAnalysis"), "contentIssues")
	})

	t.Run("unknown path", func(t *testing.T) {
		assert.Nil(t, RequiredFields("nope"))
	})

	t.Run("returns a copy", func(t *testing.T) {
		first := RequiredFields("")
		first[0] = "mutated"
		assert.Equal(t, "name", RequiredFields("")[0])
	})
}

func TestRequiredPaths(t *testing.T) {
	assert.Equal(t, []string{
		"",
		"atsAnalysis",
		"atsAnalysis.contentIssues[]",
		"atsAnalysis.formatIssues[]",
		"education[]",
		"experience[]",
	}, RequiredPaths())
}

func TestResponseSchema(t *testing.T) {
	s := ResponseSchema()
	require.NotNil(t, s)
	assert.Equal(t, genai.TypeObject, s.Type)
	assert.ElementsMatch(t, RequiredFields(""), s.Required)

	ats := s.Properties["atsAnalysis"]
	require.NotNil(t, ats)
	sev := ats.Properties["formatIssues"].Items.Properties["severity"]
	require.NotNil(t, sev)
	assert.Equal(t, []string{"high", "medium", "low"}, sev.Enum)
	assert.Equal(t, genai.TypeNumber, s.Properties["overallScore"].Type)
	assert.Equal(t, genai.TypeArray, s.Properties["skills"].Type)
	assert.Equal(t, genai.TypeString, s.Properties["skills"].Items.Type)

	t.Run("fresh per call", func(t *testing.T) {
		other := ResponseSchema()
		other.Required[0] = "mutated"
		other.Properties["name"].Description = "mutated"
		again := ResponseSchema()
		assert.Equal(t, "name", again.Required[0])
		assert.Equal(t, "Full name of the candidate", again.Properties["name"].Description)
	})
}

func TestJSONSchemaIsDraft07(t *testing.T) {
	var doc map[string]any
	require.NoError(t, json.Unmarshal([]byte(JSONSchema()), &doc))
	assert.Equal(t, "http://json-schema.org/draft-07/schema#", doc["$schema"])
	assert.Equal(t, "object", doc["type"])
	assert.Len(t, doc["required"], 8)
}
