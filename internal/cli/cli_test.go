package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"resumescope/internal/analysis"
	"resumescope/internal/common"
	"resumescope/internal/config"
	"resumescope/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const resultJSON = `{
  "name": "Jane Doe",
  "skills": ["Go"],
  "experience": [],
  "education": [],
  "strengths": ["Distributed systems"],
  "weaknesses": [],
  "overallScore": 64,
  "atsAnalysis": {
    "atsScore": 78,
    "keywordMatch": 65,
    "formatScore": 90,
    "contentScore": 80,
    "matchedKeywords": ["Go"],
    "missingKeywords": ["Terraform"],
    "formatIssues": []
  }
}`

var testLogger = errors.NewLoggerTo(io.Discard, slog.LevelError)

// fakeGemini answers generateContent with resultJSON.
func fakeGemini(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || !strings.HasSuffix(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"candidates": []any{map[string]any{
				"content": map[string]any{
					"role":  "model",
					"parts": []any{map[string]any{"text": resultJSON}},
				},
				"finishReason": "STOP",
			}},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func testConfig(apiKey, baseURL string) *config.Config {
	return &config.Config{
		AI: config.AIConfig{
			Provider:          "gemini",
			Model:             "gemini-test",
			APIKey:            apiKey,
			BaseURL:           baseURL,
			Timeout:           5 * time.Second,
			MaxOutputTokens:   8192,
			SafetyThreshold:   "BLOCK_MEDIUM_AND_ABOVE",
			ModelCheckTimeout: 5 * time.Second,
		},
		App: config.AppConfig{
			LogLevel:         "error",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      1 << 20,
		},
	}
}

func execute(t *testing.T, cfg *config.Config, args ...string) (string, error) {
	t.Helper()
	analyzeConfig = common.CommandConfig{}
	configFile = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	err := Execute(context.Background(), cfg, testLogger)
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, testConfig("", ""), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "resumescope version dev")
	assert.Contains(t, out, "Git commit: unknown")
}

func TestAnalyzeCommandWritesReport(t *testing.T) {
	srv := fakeGemini(t)
	dir := t.TempDir()
	resume := filepath.Join(dir, "jane.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Jane Doe, Go engineer"), 0600))
	report := filepath.Join(dir, "out", "jane.md")

	_, err := execute(t, testConfig("test-key", srv.URL+"/"),
		"analyze", resume, "--format", "markdown", "--output", report)
	require.NoError(t, err)

	written, err := os.ReadFile(report)
	require.NoError(t, err)
	assert.Contains(t, string(written), "# Resume Analysis: Jane Doe")
	assert.Contains(t, string(written), "64/100 (fair)")
}

func TestAnalyzeCommandWithoutAPIKey(t *testing.T) {
	resume := filepath.Join(t.TempDir(), "jane.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Jane Doe"), 0600))

	_, err := execute(t, testConfig("", ""), "analyze", resume)
	require.Error(t, err)
	assert.Contains(t, err.Error(), analysis.MissingCredentialMessage)
}

func TestAnalyzeCommandRejectsUnknownFormat(t *testing.T) {
	resume := filepath.Join(t.TempDir(), "jane.txt")
	require.NoError(t, os.WriteFile(resume, []byte("Jane Doe"), 0600))

	_, err := execute(t, testConfig("test-key", ""), "analyze", resume, "--format", "yaml")
	assert.ErrorContains(t, err, "unsupported output format 'yaml'")
}

func TestAnalyzeCommandRequiresOneFile(t *testing.T) {
	_, err := execute(t, testConfig("test-key", ""), "analyze")
	assert.Error(t, err)
}
