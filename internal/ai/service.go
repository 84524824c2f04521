package ai

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"resumescope/internal/analysis"
	"resumescope/internal/config"
	"resumescope/internal/errors"
	"resumescope/internal/watch"

	"google.golang.org/genai"
)

const promptReloadDebounce = 500 * time.Millisecond

// Service owns what every analysis request shares: the oracle, its circuit
// breakers and the live prompt templates.
type Service struct {
	cfg       config.AIConfig
	breakers  Breakers
	templates *analysis.TemplateStore
	oracle    *GeminiOracle
	analyzer  *analysis.Analyzer
	watcher   *watch.FileWatcher
	logger    *errors.Logger
}

// NewService builds the analysis service. A missing API key is not an error
// here; it is reported by Analyzer on every request instead.
func NewService(ctx context.Context, cfg *config.AIConfig, logger *errors.Logger) (*Service, error) {
	if logger == nil {
		logger = errors.NewLoggerTo(io.Discard, slog.LevelError)
	}

	logger.Debug("Initializing AI service",
		"provider", cfg.Provider,
		"model", cfg.Model,
		"temperature", cfg.Temperature,
		"timeout", cfg.Timeout,
		"strict_validation", cfg.StrictValidation)

	if cfg.Provider != "gemini" {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}

	templates, err := LoadTemplates(cfg.Prompts)
	if err != nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "Invalid prompt templates", err)
	}

	s := &Service{
		cfg: *cfg,
		breakers: Breakers{
			Generate: NewAICircuitBreaker(cfg.CircuitBreaker, logger),
			Model:    NewModelCircuitBreaker(cfg.CircuitBreaker, logger),
		},
		templates: analysis.NewTemplateStore(templates),
		logger:    logger,
	}

	if cfg.APIKey == "" {
		logger.Warn("No Gemini API key configured; analysis requests will fail until one is provided")
		return s, nil
	}

	s.oracle, err = NewGeminiOracle(ctx, cfg, s.breakers, logger)
	if err != nil {
		return nil, err
	}

	s.analyzer, err = analysis.NewAnalyzer(s.oracle, s.settings(), logger)
	if err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) settings() analysis.Settings {
	return analysis.Settings{
		Templates: s.templates,
		Build: analysis.BuildOptions{
			Model: s.cfg.Model,
			Sampling: analysis.SamplingConfig{
				Temperature:     s.cfg.Temperature,
				TopP:            s.cfg.TopP,
				TopK:            s.cfg.TopK,
				MaxOutputTokens: s.cfg.MaxOutputTokens,
			},
			SafetyThreshold: genai.HarmBlockThreshold(s.cfg.SafetyThreshold),
		},
		StrictValidation: s.cfg.StrictValidation,
		VerifySignature:  s.cfg.VerifyContentSignature,
	}
}

// Analyzer returns the pipeline, or a configuration error when no credential is set.
func (s *Service) Analyzer() (*analysis.Analyzer, error) {
	if s == nil || s.analyzer == nil {
		return nil, errors.NewConfigurationError(analysis.MissingCredentialMessage, nil)
	}
	return s.analyzer, nil
}

// Templates returns the live template store.
func (s *Service) Templates() *analysis.TemplateStore {
	return s.templates
}

// GetModelInfo returns information about the AI model for health checks
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	if s.oracle == nil {
		return &ModelInfo{Name: s.cfg.Model, Error: analysis.MissingCredentialMessage}
	}
	return s.oracle.GetModelInfo(ctx)
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (s *Service) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    s.breakers.Generate.GetStats(),
		"model_operations": s.breakers.Model.GetModelStats(),
		"overall_healthy":  s.breakers.Generate.IsHealthy() && s.breakers.Model.IsModelHealthy(),
	}
}

// WatchTemplates reloads prompt files when they change. It is a no-op unless
// prompts.watch is set and at least one prompt comes from a file.
func (s *Service) WatchTemplates() error {
	files := s.cfg.Prompts.Files()
	if !s.cfg.Prompts.Watch || len(files) == 0 {
		return nil
	}

	s.watcher = watch.NewFileWatcher("prompts", files, promptReloadDebounce, s.reloadTemplates, s.logger)
	return s.watcher.Start()
}

func (s *Service) reloadTemplates() {
	templates, err := LoadTemplates(s.cfg.Prompts)
	if err == nil {
		err = s.templates.Store(templates)
	}
	if err != nil {
		s.logger.LogError(err, "Prompt reload failed, keeping previous templates")
		return
	}
	s.logger.Info("Prompt templates reloaded")
}

// Close stops the template watcher, if any.
func (s *Service) Close() error {
	if s.watcher != nil {
		return s.watcher.Stop()
	}
	return nil
}

// LoadTemplates resolves the configured templates against the built-in defaults.
func LoadTemplates(prompts config.PromptConfig) (analysis.Templates, error) {
	loaded, err := prompts.Load()
	if err != nil {
		return analysis.Templates{}, err
	}

	templates := analysis.Templates{
		System:     resolvePrompt(loaded.System, analysis.DefaultTemplates.System),
		Text:       resolvePrompt(loaded.Text, analysis.DefaultTemplates.Text),
		Attachment: resolvePrompt(loaded.Attachment, analysis.DefaultTemplates.Attachment),
	}
	if err := templates.Validate(); err != nil {
		return analysis.Templates{}, err
	}
	return templates, nil
}

// resolvePrompt prefers the configured prompt, which already has file
// overrides applied, over the built-in one.
func resolvePrompt(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}
