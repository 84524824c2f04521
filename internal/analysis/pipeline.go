package analysis

import (
	"context"
	"io"
	"log/slog"
	"time"

	"resumescope/internal/errors"
	"resumescope/internal/types"
)

// MissingCredentialMessage is reported when no model credential is configured.
const MissingCredentialMessage = "Server configuration error: API key not found."

// Settings configures an Analyzer.
type Settings struct {
	Templates        *TemplateStore
	Build            BuildOptions
	StrictValidation bool
	VerifySignature  bool
}

// Analyzer runs the full pipeline: normalize, build, generate, decode.
// It holds no per-call state and is safe for concurrent use.
type Analyzer struct {
	oracle     Oracle
	normalizer *Normalizer
	settings   Settings
	logger     *errors.Logger
}

// NewAnalyzer returns an Analyzer backed by oracle. A nil oracle means no
// credential was available and is reported as a configuration error.
func NewAnalyzer(oracle Oracle, settings Settings, logger *errors.Logger) (*Analyzer, error) {
	if oracle == nil {
		return nil, errors.NewConfigurationError(MissingCredentialMessage, nil)
	}
	if settings.Templates == nil {
		settings.Templates = NewTemplateStore(DefaultTemplates)
	}
	if settings.Build.Model == "" {
		settings.Build = DefaultBuildOptions()
	}
	if logger == nil {
		logger = errors.NewLoggerTo(io.Discard, slog.LevelError)
	}
	return &Analyzer{
		oracle:     oracle,
		normalizer: &Normalizer{VerifySignature: settings.VerifySignature},
		settings:   settings,
		logger:     logger,
	}, nil
}

// AnalyzeText analyzes plain résumé text.
func (a *Analyzer) AnalyzeText(ctx context.Context, text string) (*types.AnalysisResult, *TokenUsage, error) {
	parts, err := a.normalizer.NormalizeText(text)
	if err != nil {
		return nil, nil, err
	}
	return a.run(ctx, parts)
}

// AnalyzeDocument analyzes an uploaded résumé document.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, doc *Document) (*types.AnalysisResult, *TokenUsage, error) {
	parts, err := a.normalizer.NormalizeDocument(doc)
	if err != nil {
		return nil, nil, err
	}
	return a.run(ctx, parts)
}

func (a *Analyzer) run(ctx context.Context, parts []ContentPart) (*types.AnalysisResult, *TokenUsage, error) {
	req, err := BuildRequest(parts, a.settings.Templates.Load(), a.settings.Build)
	if err != nil {
		return nil, nil, err
	}

	start := time.Now()
	gen, err := a.oracle.Generate(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	if gen == nil {
		return nil, nil, errors.NewMalformedOutputError(msgMalformedOutput, "", nil)
	}

	result, err := Decode(gen.Text, a.settings.StrictValidation)
	if err != nil {
		a.logger.LogError(err, "Model output rejected", "source", req.Source, "model", gen.Model)
		return nil, gen.Usage, err
	}

	a.logger.Debug("Analysis completed",
		"source", req.Source,
		"model", gen.Model,
		"duration", time.Since(start))

	return result, gen.Usage, nil
}
