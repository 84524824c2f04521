package types

import "encoding/json"

// Severity qualifies how important a detected résumé issue is.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Severities lists the closed set of accepted severity values.
var Severities = []Severity{SeverityHigh, SeverityMedium, SeverityLow}

// IsValid reports whether s is one of high, medium or low.
func (s Severity) IsValid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Experience represents one professional work experience entry
type Experience struct {
	Title       string `json:"title"`
	Company     string `json:"company"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Education represents one educational background entry
type Education struct {
	Degree      string `json:"degree"`
	Institution string `json:"institution"`
	Year        string `json:"year"`
}

// Issue is a format or content problem found by the ATS analysis
type Issue struct {
	Issue    string   `json:"issue"`
	Severity Severity `json:"severity"`
}

// ATSAnalysis represents the applicant tracking system compatibility breakdown.
// ContentIssues is optional in the output contract while FormatIssues is required.
type ATSAnalysis struct {
	ATSScore        float64  `json:"atsScore"`
	KeywordMatch    float64  `json:"keywordMatch"`
	FormatScore     float64  `json:"formatScore"`
	ContentScore    float64  `json:"contentScore"`
	MatchedKeywords []string `json:"matchedKeywords"`
	MissingKeywords []string `json:"missingKeywords"`
	FormatIssues    []Issue  `json:"formatIssues"`
	ContentIssues   []Issue  `json:"contentIssues,omitempty"`
}

// MarshalJSON encodes required lists as [] rather than null.
func (a ATSAnalysis) MarshalJSON() ([]byte, error) {
	type plain ATSAnalysis
	p := plain(a)
	p.MatchedKeywords = orEmpty(p.MatchedKeywords)
	p.MissingKeywords = orEmpty(p.MissingKeywords)
	p.FormatIssues = orEmpty(p.FormatIssues)
	return json.Marshal(p)
}

// AnalysisResult is the structured analysis of a single résumé
type AnalysisResult struct {
	Name         string       `json:"name"`
	Email        string       `json:"email,omitempty"`
	Phone        string       `json:"phone,omitempty"`
	Skills       []string     `json:"skills"`
	Experience   []Experience `json:"experience"`
	Education    []Education  `json:"education"`
	Strengths    []string     `json:"strengths"`
	Weaknesses   []string     `json:"weaknesses"`
	OverallScore float64      `json:"overallScore"`
	ATSAnalysis  ATSAnalysis  `json:"atsAnalysis"`

	// Raw is the model document the result was decoded from. When set it is
	// encoded as is, unknown keys included.
	Raw json.RawMessage `json:"-"`
}

// MarshalJSON emits Raw when present. Otherwise required lists are encoded
// as [] rather than null.
func (r AnalysisResult) MarshalJSON() ([]byte, error) {
	if len(r.Raw) > 0 {
		return r.Raw, nil
	}
	type plain AnalysisResult
	p := plain(r)
	p.Skills = orEmpty(p.Skills)
	p.Experience = orEmpty(p.Experience)
	p.Education = orEmpty(p.Education)
	p.Strengths = orEmpty(p.Strengths)
	p.Weaknesses = orEmpty(p.Weaknesses)
	return json.Marshal(p)
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// ErrorResponse is the body returned for every failed analysis request
type ErrorResponse struct {
	Error              string `json:"error"`
	RawResponsePreview string `json:"rawResponsePreview,omitempty"`
	Details            string `json:"details,omitempty"`
	RequestID          string `json:"requestId,omitempty"`
}

// AnalyzeTextRequest is the JSON body accepted for plain-text résumés
type AnalyzeTextRequest struct {
	ResumeText string `json:"resumeText"`
}
