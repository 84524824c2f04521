package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"resumescope/internal/types"

	"github.com/samber/lo"
)

const analysisResultType = "AnalysisResult"

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// GlobalRegistry holds the default formatters.
var GlobalRegistry = NewFormatterRegistry()

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("text", analysisResultType, &AnalysisTextFormatter{})
	registry.RegisterFormatter("markdown", analysisResultType, &AnalysisMarkdownFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats in sorted order
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := lo.Keys(fr.formatters)
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case types.AnalysisResult, *types.AnalysisResult:
		return analysisResultType
	default:
		return "any"
	}
}

func asAnalysisResult(data any) (*types.AnalysisResult, error) {
	switch r := data.(type) {
	case *types.AnalysisResult:
		if r == nil {
			return nil, fmt.Errorf("expected AnalysisResult, got nil")
		}
		return r, nil
	case types.AnalysisResult:
		return &r, nil
	default:
		return nil, fmt.Errorf("expected AnalysisResult, got %T", data)
	}
}

// ScoreBand labels a 0-100 score as strong, fair or weak.
func ScoreBand(score float64) string {
	switch {
	case score >= 80:
		return "strong"
	case score >= 60:
		return "fair"
	default:
		return "weak"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// AnalysisTextFormatter renders an analysis as plain text
type AnalysisTextFormatter struct{}

func (f *AnalysisTextFormatter) Format(data any) (string, error) {
	result, err := asAnalysisResult(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder

	out.WriteString("=== RESUME ANALYSIS ===\n\n")
	fmt.Fprintf(&out, "Name: %s\n", result.Name)
	if result.Email != "" {
		fmt.Fprintf(&out, "Email: %s\n", result.Email)
	}
	if result.Phone != "" {
		fmt.Fprintf(&out, "Phone: %s\n", result.Phone)
	}
	fmt.Fprintf(&out, "Overall score: %s\n\n", scoreLine(result.OverallScore))

	writeTextList(&out, "Skills", result.Skills)

	if len(result.Experience) > 0 {
		out.WriteString("Experience:\n")
		for _, e := range result.Experience {
			fmt.Fprintf(&out, "  - %s, %s (%s)\n", e.Title, e.Company, e.Duration)
			if e.Description != "" {
				fmt.Fprintf(&out, "    %s\n", e.Description)
			}
		}
		out.WriteString("\n")
	}

	if len(result.Education) > 0 {
		out.WriteString("Education:\n")
		for _, e := range result.Education {
			fmt.Fprintf(&out, "  - %s, %s (%s)\n", e.Degree, e.Institution, e.Year)
		}
		out.WriteString("\n")
	}

	writeTextList(&out, "Strengths", result.Strengths)
	writeTextList(&out, "Weaknesses", result.Weaknesses)

	ats := result.ATSAnalysis
	out.WriteString("=== ATS ANALYSIS ===\n")
	fmt.Fprintf(&out, "ATS score:     %s\n", scoreLine(ats.ATSScore))
	fmt.Fprintf(&out, "Keyword match: %s\n", scoreLine(ats.KeywordMatch))
	fmt.Fprintf(&out, "Format:        %s\n", scoreLine(ats.FormatScore))
	fmt.Fprintf(&out, "Content:       %s\n\n", scoreLine(ats.ContentScore))

	writeTextList(&out, "Matched keywords", ats.MatchedKeywords)
	writeTextList(&out, "Missing keywords", ats.MissingKeywords)
	writeTextIssues(&out, "Format issues", ats.FormatIssues)
	writeTextIssues(&out, "Content issues", ats.ContentIssues)

	return out.String(), nil
}

func (f *AnalysisTextFormatter) SupportedType() string {
	return analysisResultType
}

// AnalysisMarkdownFormatter renders an analysis as markdown
type AnalysisMarkdownFormatter struct{}

func (f *AnalysisMarkdownFormatter) Format(data any) (string, error) {
	result, err := asAnalysisResult(data)
	if err != nil {
		return "", err
	}

	var out strings.Builder

	fmt.Fprintf(&out, "# Resume Analysis: %s\n\n", result.Name)
	contact := lo.Compact([]string{result.Email, result.Phone})
	if len(contact) > 0 {
		fmt.Fprintf(&out, "%s\n\n", strings.Join(contact, " | "))
	}
	fmt.Fprintf(&out, "**Overall score:** %s\n\n", scoreLine(result.OverallScore))

	writeMarkdownList(&out, "Skills", result.Skills)

	if len(result.Experience) > 0 {
		out.WriteString("## Experience\n\n")
		for _, e := range result.Experience {
			fmt.Fprintf(&out, "### %s, %s\n\n", e.Title, e.Company)
			fmt.Fprintf(&out, "*%s*\n\n", e.Duration)
			if e.Description != "" {
				fmt.Fprintf(&out, "%s\n\n", e.Description)
			}
		}
	}

	if len(result.Education) > 0 {
		out.WriteString("## Education\n\n")
		for _, e := range result.Education {
			fmt.Fprintf(&out, "- %s, %s (%s)\n", e.Degree, e.Institution, e.Year)
		}
		out.WriteString("\n")
	}

	writeMarkdownList(&out, "Strengths", result.Strengths)
	writeMarkdownList(&out, "Weaknesses", result.Weaknesses)

	ats := result.ATSAnalysis
	out.WriteString("## ATS Analysis\n\n")
	out.WriteString("| Metric | Score |\n|---|---|\n")
	fmt.Fprintf(&out, "| ATS score | %s |\n", scoreLine(ats.ATSScore))
	fmt.Fprintf(&out, "| Keyword match | %s |\n", scoreLine(ats.KeywordMatch))
	fmt.Fprintf(&out, "| Format | %s |\n", scoreLine(ats.FormatScore))
	fmt.Fprintf(&out, "| Content | %s |\n\n", scoreLine(ats.ContentScore))

	writeMarkdownList(&out, "Matched Keywords", ats.MatchedKeywords)
	writeMarkdownList(&out, "Missing Keywords", ats.MissingKeywords)
	writeMarkdownIssues(&out, "Format Issues", ats.FormatIssues)
	writeMarkdownIssues(&out, "Content Issues", ats.ContentIssues)

	return out.String(), nil
}

func (f *AnalysisMarkdownFormatter) SupportedType() string {
	return analysisResultType
}

func scoreLine(score float64) string {
	return fmt.Sprintf("%g/100 (%s)", score, ScoreBand(score))
}

func writeTextList(out *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "  - %s\n", item)
	}
	out.WriteString("\n")
}

func writeTextIssues(out *strings.Builder, title string, issues []types.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(out, "%s:\n", title)
	for i, issue := range issues {
		fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, strings.ToUpper(string(issue.Severity)), issue.Issue)
	}
	out.WriteString("\n")
}

func writeMarkdownList(out *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(out, "## %s\n\n", title)
	for _, item := range items {
		fmt.Fprintf(out, "- %s\n", item)
	}
	out.WriteString("\n")
}

func writeMarkdownIssues(out *strings.Builder, title string, issues []types.Issue) {
	if len(issues) == 0 {
		return
	}
	fmt.Fprintf(out, "### %s\n\n", title)
	for _, issue := range issues {
		fmt.Fprintf(out, "- **%s**: %s\n", issue.Severity, issue.Issue)
	}
	out.WriteString("\n")
}
