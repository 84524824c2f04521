package analysis_test

import (
	"context"
	stderrors "errors"
	"net/http"
	"testing"

	"resumescope/internal/analysis"
	"resumescope/internal/errors"
	"resumescope/internal/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

var pdfBytes = []byte("%PDF-1.4\n1 0 obj\n<< /Type /Catalog >>\nendobj\ntrailer\n<< /Root 1 0 R >>\n%%EOF\n")

func newAnalyzer(t *testing.T, oracle analysis.Oracle, strict bool) *analysis.Analyzer {
	t.Helper()
	a, err := analysis.NewAnalyzer(oracle, analysis.Settings{StrictValidation: strict}, nil)
	require.NoError(t, err)
	return a
}

func TestNewAnalyzerWithoutOracle(t *testing.T) {
	a, err := analysis.NewAnalyzer(nil, analysis.Settings{}, nil)
	require.Error(t, err)
	assert.Nil(t, a)

	c := analysis.Classify(err)
	assert.Equal(t, http.StatusInternalServerError, c.Status)
	assert.Equal(t, "Server configuration error: API key not found.", c.Message)
}

func TestAnalyzeTextPassesResultThrough(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)

	oracle.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *analysis.GenerationRequest) (*analysis.GenerationResult, error) {
			assert.Equal(t, analysis.SourceText, req.Source)
			require.Len(t, req.Parts, 1)
			assert.Equal(t, 0, req.AttachmentCount())
			text := req.Parts[0].(analysis.TextPart).Text
			assert.Contains(t, text, "Jane Doe, Senior Go Engineer")
			return &analysis.GenerationResult{
				Text:  analysis.FixtureResultJSON,
				Model: analysis.DefaultModel,
				Usage: &analysis.TokenUsage{InputTokens: 120, OutputTokens: 400, TotalTokens: 520},
			}, nil
		}).
		Times(1)

	result, usage, err := newAnalyzer(t, oracle, true).AnalyzeText(context.Background(), "Jane Doe, Senior Go Engineer")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", result.Name)
	assert.Equal(t, 82.0, result.OverallScore)
	assert.Equal(t, int64(520), usage.TotalTokens)
}

func TestAnalyzeDocumentSendsAttachment(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)

	oracle.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *analysis.GenerationRequest) (*analysis.GenerationResult, error) {
			assert.Equal(t, analysis.SourceAttachment, req.Source)
			assert.Equal(t, 1, req.AttachmentCount())
			att := req.Parts[0].(analysis.AttachmentPart)
			assert.Equal(t, analysis.MediaTypePDF, att.MediaType)
			assert.Equal(t, pdfBytes, att.Data)
			return &analysis.GenerationResult{Text: analysis.FixtureResultJSON}, nil
		}).
		Times(1)

	doc := &analysis.Document{Name: "jane.pdf", MediaType: analysis.MediaTypePDF, Data: pdfBytes}
	result, _, err := newAnalyzer(t, oracle, false).AnalyzeDocument(context.Background(), doc)
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", result.Name)
}

func TestRejectedInputNeverReachesModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	oracle.EXPECT().Generate(gomock.Any(), gomock.Any()).Times(0)

	a := newAnalyzer(t, oracle, false)
	ctx := context.Background()

	_, _, err := a.AnalyzeText(ctx, "   ")
	assert.Equal(t, http.StatusBadRequest, analysis.Classify(err).Status)

	_, _, err = a.AnalyzeDocument(ctx, nil)
	assert.Equal(t, http.StatusBadRequest, analysis.Classify(err).Status)

	_, _, err = a.AnalyzeDocument(ctx, &analysis.Document{Name: "cv.png", MediaType: "image/png", Data: []byte{1, 2}})
	c := analysis.Classify(err)
	assert.Equal(t, http.StatusBadRequest, c.Status)
	assert.Contains(t, c.Message, "image/png")

	_, _, err = a.AnalyzeDocument(ctx, &analysis.Document{Name: "cv.txt", MediaType: "text/plain", Data: []byte("hello")})
	assert.Equal(t, http.StatusBadRequest, analysis.Classify(err).Status)
}

func TestAnalyzeMalformedOutput(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)
	oracle.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		Return(&analysis.GenerationResult{Text: "Here is your analysis: great resume!"}, nil)

	result, _, err := newAnalyzer(t, oracle, false).AnalyzeText(context.Background(), "Jane Doe")
	require.Error(t, err)
	assert.Nil(t, result)

	c := analysis.Classify(err)
	assert.Equal(t, http.StatusInternalServerError, c.Status)
	assert.Equal(t, "Failed to parse AI analysis result into valid JSON.", c.Message)
	assert.Equal(t, "Here is your analysis: great resume!", c.Preview)
}

func TestAnalyzeOracleFailures(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantStatus  int
		wantMessage string
	}{
		{
			name:        "safety",
			err:         errors.NewSafetyBlockedError("prompt blocked", nil),
			wantStatus:  http.StatusBadRequest,
			wantMessage: analysis.SafetyBlockedMessage,
		},
		{
			name:        "quota",
			err:         errors.NewQuotaOrAuthError("AI service quota exceeded or API key rejected.", nil),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: "AI service quota exceeded or API key rejected.",
		},
		{
			name:        "transport",
			err:         errors.NewTransportError("request to model failed", stderrors.New("dial tcp: timeout")),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: analysis.GenericFailureMessage,
		},
		{
			name:        "untyped",
			err:         stderrors.New("unexpected EOF"),
			wantStatus:  http.StatusInternalServerError,
			wantMessage: analysis.GenericFailureMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			oracle := mocks.NewMockOracle(ctrl)
			oracle.EXPECT().Generate(gomock.Any(), gomock.Any()).Return(nil, tt.err).Times(1)

			_, _, err := newAnalyzer(t, oracle, false).AnalyzeText(context.Background(), "Jane Doe")
			require.Error(t, err)
			c := analysis.Classify(err)
			assert.Equal(t, tt.wantStatus, c.Status)
			assert.Equal(t, tt.wantMessage, c.Message)
		})
	}
}

func TestAnalyzerUsesStoredTemplates(t *testing.T) {
	ctrl := gomock.NewController(t)
	oracle := mocks.NewMockOracle(ctrl)

	store := analysis.NewTemplateStore(analysis.DefaultTemplates)
	a, err := analysis.NewAnalyzer(oracle, analysis.Settings{Templates: store}, nil)
	require.NoError(t, err)

	require.NoError(t, store.Store(analysis.Templates{Text: "REVIEW<%s>", Attachment: "FILE<%s>"}))

	oracle.EXPECT().
		Generate(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, req *analysis.GenerationRequest) (*analysis.GenerationResult, error) {
			assert.Equal(t, "REVIEW<Jane>", req.Parts[0].(analysis.TextPart).Text)
			return &analysis.GenerationResult{Text: analysis.FixtureResultJSON}, nil
		})

	_, _, err = a.AnalyzeText(context.Background(), "Jane")
	require.NoError(t, err)
}
