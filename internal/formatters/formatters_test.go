package formatters

import (
	"encoding/json"
	"testing"

	"resumescope/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleResult() *types.AnalysisResult {
	return &types.AnalysisResult{
		Name:   "Jane Doe",
		Email:  "jane.doe@example.com",
		Skills: []string{"Go", "Kubernetes"},
		Experience: []types.Experience{
			{Title: "Backend Engineer", Company: "Acme", Duration: "2020 - now", Description: "Billing services"},
		},
		Education:    []types.Education{{Degree: "B.S. Computer Science", Institution: "State University", Year: "2015"}},
		Strengths:    []string{"Distributed systems"},
		Weaknesses:   []string{"Few public talks"},
		OverallScore: 82,
		ATSAnalysis: types.ATSAnalysis{
			ATSScore:        61,
			KeywordMatch:    45,
			FormatScore:     90,
			ContentScore:    80,
			MatchedKeywords: []string{"Go"},
			MissingKeywords: []string{"Terraform"},
			FormatIssues:    []types.Issue{{Issue: "Two-column layout", Severity: types.SeverityMedium}},
		},
	}
}

func TestScoreBand(t *testing.T) {
	tests := map[float64]string{
		100:  "strong",
		80:   "strong",
		79.9: "fair",
		60:   "fair",
		59:   "weak",
		0:    "weak",
	}
	for score, want := range tests {
		assert.Equal(t, want, ScoreBand(score), "score %v", score)
	}
}

func TestJSONFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "json")
	require.NoError(t, err)

	var decoded types.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, *sampleResult(), decoded)
	assert.Contains(t, out, "\n  \"name\": \"Jane Doe\"")
}

func TestTextFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(sampleResult(), "text")
	require.NoError(t, err)

	assert.Contains(t, out, "=== RESUME ANALYSIS ===")
	assert.Contains(t, out, "Name: Jane Doe")
	assert.Contains(t, out, "Overall score: 82/100 (strong)")
	assert.Contains(t, out, "ATS score:     61/100 (fair)")
	assert.Contains(t, out, "Keyword match: 45/100 (weak)")
	assert.Contains(t, out, "  - Terraform")
	assert.Contains(t, out, "1. [MEDIUM] Two-column layout")
	assert.NotContains(t, out, "Content issues")
	assert.NotContains(t, out, "Phone:")
}

func TestMarkdownFormatter(t *testing.T) {
	out, err := GlobalRegistry.Format(*sampleResult(), "markdown")
	require.NoError(t, err)

	assert.Contains(t, out, "# Resume Analysis: Jane Doe")
	assert.Contains(t, out, "jane.doe@example.com\n")
	assert.Contains(t, out, "**Overall score:** 82/100 (strong)")
	assert.Contains(t, out, "### Backend Engineer, Acme")
	assert.Contains(t, out, "| Keyword match | 45/100 (weak) |")
	assert.Contains(t, out, "- **medium**: Two-column layout")
}

func TestFormatErrors(t *testing.T) {
	_, err := GlobalRegistry.Format(sampleResult(), "yaml")
	assert.ErrorContains(t, err, "no formatter found for format 'yaml'")

	_, err = GlobalRegistry.Format(map[string]string{"a": "b"}, "text")
	assert.Error(t, err)

	_, err = (&AnalysisTextFormatter{}).Format((*types.AnalysisResult)(nil))
	assert.Error(t, err)
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "markdown", "text"}, GlobalRegistry.GetSupportedFormats())
}
