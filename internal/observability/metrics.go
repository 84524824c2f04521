package observability

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"resumescope/internal/analysis"
	"resumescope/internal/errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments recorded by the analysis service. A zero
// Metrics records nothing.
type Metrics struct {
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Counter
	Analyses         metric.Int64Counter
	RateLimitHits    metric.Int64Counter

	trackTokenUsage bool
	trackRateLimits bool
}

// AIOperationResult is what an instrumented model call reports back.
type AIOperationResult struct {
	Error      error
	TokenUsage *analysis.TokenUsage
}

func newMetrics(meter metric.Meter, settings Settings) (*Metrics, error) {
	m := &Metrics{
		trackTokenUsage: settings.TrackTokenUsage,
		trackRateLimits: settings.TrackRateLimits,
	}

	var err error
	m.AIProcessingTime, err = meter.Float64Histogram(
		"resumescope_ai_processing_duration_seconds",
		metric.WithDescription("Time spent waiting for the model to analyze a resume"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI processing time metric: %w", err)
	}

	m.AIRequestCount, err = meter.Int64Counter(
		"resumescope_ai_requests_total",
		metric.WithDescription("Total number of model requests"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI request count metric: %w", err)
	}

	m.AIErrorCount, err = meter.Int64Counter(
		"resumescope_ai_errors_total",
		metric.WithDescription("Total number of failed model requests by error kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI error count metric: %w", err)
	}

	m.AITokenUsage, err = meter.Int64Counter(
		"resumescope_ai_tokens_total",
		metric.WithDescription("Tokens consumed by model requests (input, output, total)"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create AI token usage metric: %w", err)
	}

	m.Analyses, err = meter.Int64Counter(
		"resumescope_analyses_total",
		metric.WithDescription("Total number of resume analysis requests by source and status"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create analyses metric: %w", err)
	}

	m.RateLimitHits, err = meter.Int64Counter(
		"resumescope_rate_limit_hits_total",
		metric.WithDescription("Total number of rejected requests due to rate limiting"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create rate limit hits metric: %w", err)
	}

	return m, nil
}

// TrackAIOperation runs fn inside an "ai.analyze" span and records its
// duration, outcome and token usage.
func (m *Metrics) TrackAIOperation(ctx context.Context, source string, fn func(context.Context) *AIOperationResult) error {
	ctx, span := otel.Tracer("resumescope.ai").Start(ctx, "ai.analyze")
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	duration := time.Since(start).Seconds()

	if result == nil {
		result = &AIOperationResult{}
	}

	attrs := []attribute.KeyValue{
		attribute.String("source", source),
		attribute.Bool("success", result.Error == nil),
	}
	span.SetAttributes(attrs...)

	if m.AIProcessingTime != nil {
		m.AIProcessingTime.Record(ctx, duration, metric.WithAttributes(attrs...))
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	if usage := result.TokenUsage; usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
		m.recordTokenUsage(ctx, source, usage)
	}

	if result.Error != nil {
		span.RecordError(result.Error)
		span.SetStatus(codes.Error, errorKind(result.Error))
		if m.AIErrorCount != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(
				attribute.String("source", source),
				attribute.String("kind", errorKind(result.Error)),
			))
		}
	}

	return result.Error
}

func (m *Metrics) recordTokenUsage(ctx context.Context, source string, usage *analysis.TokenUsage) {
	if m.AITokenUsage == nil || !m.trackTokenUsage {
		return
	}

	tokenTypes := []struct {
		tokenType string
		value     int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}

	for _, tt := range tokenTypes {
		m.AITokenUsage.Add(ctx, tt.value, metric.WithAttributes(
			attribute.String("source", source),
			attribute.String("token_type", tt.tokenType),
		))
	}
}

// RecordAnalysis counts one finished analysis request.
func (m *Metrics) RecordAnalysis(ctx context.Context, source string, status int) {
	if m.Analyses == nil {
		return
	}
	m.Analyses.Add(ctx, 1, metric.WithAttributes(
		attribute.String("source", source),
		attribute.String("status", strconv.Itoa(status)),
		attribute.Bool("success", status < 400),
	))
}

// RecordRateLimitHit counts one request rejected by the limiter keyed on limitedBy.
func (m *Metrics) RecordRateLimitHit(ctx context.Context, limitedBy string) {
	if m.RateLimitHits == nil || !m.trackRateLimits {
		return
	}
	m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attribute.String("limited_by", limitedBy)))
}

// errorKind labels a failure with its error code, or "unclassified".
func errorKind(err error) string {
	if code := errors.CodeOf(err); code != "" {
		return code
	}
	return "unclassified"
}
