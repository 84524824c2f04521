package ai

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"resumescope/internal/analysis"
	"resumescope/internal/config"
	"resumescope/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serviceConfig(baseURL string) *config.AIConfig {
	return &config.AIConfig{
		Provider:          "gemini",
		Model:             testModel,
		APIKey:            "test-key",
		BaseURL:           baseURL,
		Timeout:           5 * time.Second,
		Temperature:       0.7,
		TopP:              0.95,
		TopK:              40,
		MaxOutputTokens:   8192,
		SafetyThreshold:   "BLOCK_MEDIUM_AND_ABOVE",
		ModelCheckTimeout: 5 * time.Second,
		CircuitBreaker:    breakerConfig(),
	}
}

func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewServiceRejectsUnknownProvider(t *testing.T) {
	cfg := serviceConfig("")
	cfg.Provider = "openai"

	_, err := NewService(context.Background(), cfg, testLogger)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfig))
	assert.Contains(t, err.Error(), "Unsupported AI provider: openai")
}

func TestServiceWithoutKeyFailsPerRequest(t *testing.T) {
	cfg := serviceConfig("")
	cfg.APIKey = ""

	svc, err := NewService(context.Background(), cfg, nil)
	require.NoError(t, err)

	_, err = svc.Analyzer()
	require.Error(t, err)
	c := analysis.Classify(err)
	assert.Equal(t, 500, c.Status)
	assert.Equal(t, "Server configuration error: API key not found.", c.Message)

	info := svc.GetModelInfo(context.Background())
	assert.False(t, info.Available)
	assert.Equal(t, analysis.MissingCredentialMessage, info.Error)
}

func TestServiceAnalyzesThroughGemini(t *testing.T) {
	fake := &fakeGemini{t: t, body: textResponse(resultJSON, "STOP")}
	srv := httptest.NewServer(fake)
	defer srv.Close()

	svc, err := NewService(context.Background(), serviceConfig(srv.URL+"/"), testLogger)
	require.NoError(t, err)
	defer svc.Close()

	analyzer, err := svc.Analyzer()
	require.NoError(t, err)

	result, usage, err := analyzer.AnalyzeText(context.Background(), "Jane Doe\nSenior Backend Engineer")
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", result.Name)
	assert.Equal(t, float64(82), result.OverallScore)
	assert.Equal(t, []string{"Terraform"}, result.ATSAnalysis.MissingKeywords)
	require.NotNil(t, usage)
	assert.Equal(t, int64(520), usage.TotalTokens)
	assert.Equal(t, int32(1), fake.calls.Load())
}

func TestServiceModelInfoAndStats(t *testing.T) {
	srv := httptest.NewServer(&fakeGemini{t: t})
	defer srv.Close()

	svc, err := NewService(context.Background(), serviceConfig(srv.URL+"/"), testLogger)
	require.NoError(t, err)

	info := svc.GetModelInfo(context.Background())
	assert.True(t, info.Available)
	assert.Equal(t, "Gemini Test", info.DisplayName)

	stats := svc.GetCircuitBreakerStats()
	assert.Equal(t, true, stats["overall_healthy"])
	assert.Equal(t, "AI-Generate", stats["ai_operations"].(map[string]any)["name"])
	assert.Equal(t, "AI-Model", stats["model_operations"].(map[string]any)["name"])
}

func TestLoadTemplates(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		templates, err := LoadTemplates(config.PromptConfig{})
		require.NoError(t, err)
		assert.Equal(t, analysis.DefaultTemplates, templates)
	})

	t.Run("inline and file overrides", func(t *testing.T) {
		dir := t.TempDir()
		prompts := config.PromptConfig{
			System:   "You review resumes.",
			Text:     "inline %s",
			TextFile: writePrompt(t, dir, "text.txt", "from file: %s\n"),
		}

		templates, err := LoadTemplates(prompts)
		require.NoError(t, err)
		assert.Equal(t, "You review resumes.", templates.System)
		assert.Equal(t, "from file: %s", templates.Text)
		assert.Equal(t, analysis.DefaultTemplates.Attachment, templates.Attachment)
	})

	t.Run("invalid placeholder count", func(t *testing.T) {
		_, err := LoadTemplates(config.PromptConfig{Text: "no placeholder"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exactly one %s placeholder")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTemplates(config.PromptConfig{AttachmentFile: "/nonexistent/attachment.txt"})
		require.Error(t, err)
		assert.True(t, strings.HasPrefix(err.Error(), "attachment prompt: "))
	})
}

func TestNewServiceRejectsInvalidTemplates(t *testing.T) {
	cfg := serviceConfig("")
	cfg.Prompts.Attachment = "%s and %s"

	_, err := NewService(context.Background(), cfg, testLogger)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid prompt templates")
}

func TestWatchTemplatesIsNoopWithoutFiles(t *testing.T) {
	cfg := serviceConfig("")
	cfg.APIKey = ""
	cfg.Prompts.Watch = true

	svc, err := NewService(context.Background(), cfg, testLogger)
	require.NoError(t, err)
	require.NoError(t, svc.WatchTemplates())
	assert.Nil(t, svc.watcher)
	assert.NoError(t, svc.Close())
}

func TestReloadTemplates(t *testing.T) {
	dir := t.TempDir()
	textFile := writePrompt(t, dir, "text.txt", "first %s")

	cfg := serviceConfig("")
	cfg.APIKey = ""
	cfg.Prompts.TextFile = textFile

	svc, err := NewService(context.Background(), cfg, testLogger)
	require.NoError(t, err)
	assert.Equal(t, "first %s", svc.Templates().Load().Text)

	writePrompt(t, dir, "text.txt", "second %s")
	svc.reloadTemplates()
	assert.Equal(t, "second %s", svc.Templates().Load().Text)

	// A broken edit keeps the previous templates live.
	writePrompt(t, dir, "text.txt", "no placeholder")
	svc.reloadTemplates()
	assert.Equal(t, "second %s", svc.Templates().Load().Text)
}

func TestWatchTemplatesReloadsOnChange(t *testing.T) {
	dir := t.TempDir()
	textFile := writePrompt(t, dir, "text.txt", "first %s")

	cfg := serviceConfig("")
	cfg.APIKey = ""
	cfg.Prompts.TextFile = textFile
	cfg.Prompts.Watch = true

	svc, err := NewService(context.Background(), cfg, testLogger)
	require.NoError(t, err)
	require.NoError(t, svc.WatchTemplates())
	defer svc.Close()

	writePrompt(t, dir, "text.txt", "second %s")

	assert.Eventually(t, func() bool {
		return svc.Templates().Load().Text == "second %s"
	}, 5*time.Second, 50*time.Millisecond)
}
