package ai

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"resumescope/internal/analysis"
	"resumescope/internal/config"
	"resumescope/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

const (
	defaultGenerateTimeout   = 60 * time.Second
	defaultModelCheckTimeout = 10 * time.Second

	msgAuthRejected   = "AI service rejected the API key."
	msgQuotaExceeded  = "AI service quota exceeded. Please try again later."
	msgBreakerOpen    = "AI service temporarily unavailable"
	msgRequestTimeout = "request to AI service timed out"
)

// modelsAPI is the part of *genai.Models the oracle calls.
type modelsAPI interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	Get(ctx context.Context, model string, config *genai.GetModelConfig) (*genai.Model, error)
}

// Breakers groups the circuit breakers shared by every oracle of a service.
type Breakers struct {
	Generate *AICircuitBreaker
	Model    *ModelCircuitBreaker
}

// GeminiOracle sends generation requests to Google Gemini.
type GeminiOracle struct {
	models   modelsAPI
	cfg      config.AIConfig
	breakers Breakers
	logger   *errors.Logger
}

var _ analysis.Oracle = (*GeminiOracle)(nil)

// NewGeminiOracle creates a Gemini client for cfg. A missing API key is a
// configuration error.
func NewGeminiOracle(ctx context.Context, cfg *config.AIConfig, breakers Breakers, logger *errors.Logger) (*GeminiOracle, error) {
	if cfg.APIKey == "" {
		return nil, errors.NewConfigurationError(analysis.MissingCredentialMessage, nil)
	}
	if logger == nil {
		logger = errors.NewLoggerTo(io.Discard, slog.LevelError)
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = cfg.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, errors.NewConfigurationError("Failed to create Gemini client", err)
	}

	return &GeminiOracle{
		models:   client.Models,
		cfg:      *cfg,
		breakers: breakers,
		logger:   logger,
	}, nil
}

// Generate makes exactly one model call for req.
func (g *GeminiOracle) Generate(ctx context.Context, req *analysis.GenerationRequest) (*analysis.GenerationResult, error) {
	tracer := otel.Tracer("resumescope.ai.gemini")
	ctx, span := tracer.Start(ctx, "gemini.generate")
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", "gemini"),
		attribute.String("ai.model", req.Model),
		attribute.Float64("ai.temperature", float64(req.Sampling.Temperature)),
		attribute.String("input.source", string(req.Source)),
		attribute.Int("input.attachments", req.AttachmentCount()),
	)

	timeout := g.cfg.Timeout
	if timeout <= 0 {
		timeout = defaultGenerateTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	resp, err := g.breakers.Generate.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.models.GenerateContent(callCtx, req.Model, req.Contents(), req.Config())
	})
	if err != nil {
		classified := classifyCallError(err)
		span.RecordError(classified)
		span.SetAttributes(attribute.Bool("success", false))
		g.logger.LogError(classified, "Gemini request failed", "model", req.Model, "source", req.Source)
		return nil, classified
	}

	usage := extractTokenUsage(resp)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if reason, blocked := safetyBlock(resp); blocked {
		blockedErr := errors.NewSafetyBlockedError(fmt.Sprintf("Response blocked by model: %s", reason), nil)
		span.RecordError(blockedErr)
		span.SetAttributes(attribute.Bool("success", false), attribute.String("ai.block_reason", reason))
		g.logger.Warn("Gemini response blocked", "model", req.Model, "reason", reason)
		return nil, blockedErr
	}

	text := resp.Text()
	span.SetAttributes(attribute.Bool("success", true), attribute.Int("output.length", len(text)))

	return &analysis.GenerationResult{
		Text:  text,
		Model: req.Model,
		Usage: usage,
	}, nil
}

// safetyBlock reports whether the prompt or the first candidate was stopped by safety filtering.
func safetyBlock(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil {
		return "", false
	}
	if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
		return string(fb.BlockReason), true
	}
	if len(resp.Candidates) > 0 && resp.Candidates[0] != nil {
		switch reason := resp.Candidates[0].FinishReason; reason {
		case genai.FinishReasonSafety,
			genai.FinishReasonBlocklist,
			genai.FinishReasonProhibitedContent,
			genai.FinishReasonSPII:
			return string(reason), true
		}
	}
	return "", false
}

// classifyCallError turns a client or breaker failure into a typed error.
// API errors the taxonomy has no code for are returned untyped so their
// message vocabulary decides the outcome.
func classifyCallError(err error) error {
	if isBreakerRejection(err) {
		return errors.NewTransportError(msgBreakerOpen, err)
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.NewTransportError(msgRequestTimeout, err)
	}
	if stderrors.Is(err, context.Canceled) {
		return errors.NewTransportError("request to AI service was cancelled", err)
	}

	code, message, ok := apiErrorDetails(err)
	if ok {
		switch {
		case code == http.StatusUnauthorized || code == http.StatusForbidden || strings.Contains(message, "API key"):
			return errors.NewQuotaOrAuthError(msgAuthRejected, err)
		case code == http.StatusTooManyRequests:
			return errors.NewQuotaOrAuthError(msgQuotaExceeded, err)
		case code >= http.StatusInternalServerError:
			return errors.NewTransportError("AI service returned an error", err)
		default:
			return fmt.Errorf("gemini request rejected: %s", message)
		}
	}

	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return errors.NewTransportError("could not reach AI service", err)
	}

	return errors.NewTransportError("request to AI service failed", err)
}

func apiErrorDetails(err error) (int, string, bool) {
	var apiErr genai.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var gErr *googleapi.Error
	if stderrors.As(err, &gErr) {
		return gErr.Code, gErr.Message, true
	}
	return 0, "", false
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// GetModelInfo checks the readiness and availability of the configured model
func (g *GeminiOracle) GetModelInfo(ctx context.Context) *ModelInfo {
	modelInfo := &ModelInfo{Name: g.cfg.Model}

	timeout := g.cfg.ModelCheckTimeout
	if timeout <= 0 {
		timeout = defaultModelCheckTimeout
	}
	checkCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model, err := g.breakers.Model.ExecuteModel(func() (*genai.Model, error) {
		return g.models.Get(checkCtx, g.cfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		modelInfo.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed",
			"model", g.cfg.Model,
			"error", err.Error())
		return modelInfo
	}

	modelInfo.Available = true
	modelInfo.DisplayName = model.DisplayName
	modelInfo.Version = model.Version

	g.logger.Debug("Model availability check successful",
		"model", g.cfg.Model,
		"display_name", modelInfo.DisplayName,
		"version", modelInfo.Version)

	return modelInfo
}

// extractTokenUsage extracts token usage information from Gemini API response
func extractTokenUsage(result *genai.GenerateContentResponse) *analysis.TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}

	usage := result.UsageMetadata
	return &analysis.TokenUsage{
		InputTokens:  int64(usage.PromptTokenCount),
		OutputTokens: int64(usage.CandidatesTokenCount),
		TotalTokens:  int64(usage.TotalTokenCount),
	}
}
