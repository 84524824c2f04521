package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func validConfig() *Config {
	return &Config{
		AI: AIConfig{
			Provider:          "gemini",
			Model:             "gemini-1.5-flash-latest",
			Timeout:           60 * time.Second,
			Temperature:       0.7,
			TopP:              0.95,
			TopK:              40,
			MaxOutputTokens:   8192,
			SafetyThreshold:   "BLOCK_MEDIUM_AND_ABOVE",
			ModelCheckTimeout: 10 * time.Second,
			CircuitBreaker:    CircuitBreakerConfig{Enabled: true, MinRequests: 3, FailureThreshold: 0.6},
		},
		Server: ServerConfig{
			Port:           "8080",
			MaxRequestSize: 10 << 20,
			TLS:            TLSConfig{Mode: "disabled"},
		},
		App: AppConfig{
			LogLevel:         "info",
			DefaultFormat:    "json",
			SupportedFormats: []string{"json", "text", "markdown"},
			MaxFileSize:      10 << 20,
		},
		Observability: ObservabilityConfig{SampleRate: 1},
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("RESUMESCOPE_AI_APIKEY", "")

	cfg, err := LoadConfigFile(writeConfigFile(t, "app:\n  logLevel: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "gemini", cfg.AI.Provider)
	assert.Equal(t, "gemini-1.5-flash-latest", cfg.AI.Model)
	assert.Equal(t, 60*time.Second, cfg.AI.Timeout)
	assert.InDelta(t, 0.7, cfg.AI.Temperature, 1e-6)
	assert.InDelta(t, 0.95, cfg.AI.TopP, 1e-6)
	assert.InDelta(t, 40, cfg.AI.TopK, 1e-6)
	assert.Equal(t, int32(8192), cfg.AI.MaxOutputTokens)
	assert.Equal(t, "BLOCK_MEDIUM_AND_ABOVE", cfg.AI.SafetyThreshold)
	assert.False(t, cfg.AI.StrictValidation)
	assert.Empty(t, cfg.AI.APIKey)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, int64(10<<20), cfg.Server.MaxRequestSize)
	assert.Equal(t, "disabled", cfg.Server.TLS.Mode)
	assert.Equal(t, "debug", cfg.App.LogLevel)
	assert.Equal(t, "resumescope", cfg.Observability.ServiceName)
	assert.NotEmpty(t, cfg.Observability.ServiceInstance)
}

func TestLoadConfigEnvironmentOverrides(t *testing.T) {
	t.Setenv("RESUMESCOPE_AI_MODEL", "gemini-2.0-flash")
	t.Setenv("RESUMESCOPE_AI_TIMEOUT", "45s")
	t.Setenv("RESUMESCOPE_AI_STRICTVALIDATION", "true")
	t.Setenv("RESUMESCOPE_SERVER_PORT", "9999")
	t.Setenv("RESUMESCOPE_SERVER_APIKEYS", "one, two")
	t.Setenv("RESUMESCOPE_AI_APIKEY", "")
	t.Setenv("GEMINI_API_KEY", "gemini-env-key")

	cfg, err := LoadConfigFile(writeConfigFile(t, "ai:\n  model: from-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "gemini-2.0-flash", cfg.AI.Model)
	assert.Equal(t, 45*time.Second, cfg.AI.Timeout)
	assert.True(t, cfg.AI.StrictValidation)
	assert.Equal(t, "9999", cfg.Server.Port)
	assert.Equal(t, []string{"one", "two"}, cfg.Server.APIKeys)
	assert.Equal(t, "gemini-env-key", cfg.AI.APIKey)
}

func TestLoadConfigPrefixedKeyWins(t *testing.T) {
	t.Setenv("RESUMESCOPE_AI_APIKEY", "prefixed")
	t.Setenv("GEMINI_API_KEY", "plain")

	cfg, err := LoadConfigFile(writeConfigFile(t, "ai:\n  apiKey: from-file\n"))
	require.NoError(t, err)
	assert.Equal(t, "prefixed", cfg.AI.APIKey)
}

func TestLoadConfigMissingPromptFile(t *testing.T) {
	path := writeConfigFile(t, "ai:\n  prompts:\n    textFile: /nonexistent/text.md\n")

	_, err := LoadConfigFile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "text prompt file not found")
}

func TestLoadConfigExplicitFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "failed to read config file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*Config)
		errorMsg string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "missing api key is allowed", mutate: func(c *Config) { c.AI.APIKey = "" }},
		{
			name:     "unknown provider",
			mutate:   func(c *Config) { c.AI.Provider = "openai" },
			errorMsg: "Config.AI.Provider failed oneof",
		},
		{
			name:     "zero timeout",
			mutate:   func(c *Config) { c.AI.Timeout = 0 },
			errorMsg: "Config.AI.Timeout failed gt",
		},
		{
			name:     "bad safety threshold",
			mutate:   func(c *Config) { c.AI.SafetyThreshold = "BLOCK_EVERYTHING" },
			errorMsg: "Config.AI.SafetyThreshold failed oneof",
		},
		{
			name:     "bad log level",
			mutate:   func(c *Config) { c.App.LogLevel = "verbose" },
			errorMsg: "Config.App.LogLevel failed oneof",
		},
		{
			name:     "default format not supported",
			mutate:   func(c *Config) { c.App.DefaultFormat = "yaml" },
			errorMsg: "invalid default format: yaml",
		},
		{
			name:     "breaker without min requests",
			mutate:   func(c *Config) { c.AI.CircuitBreaker.MinRequests = 0 },
			errorMsg: "circuit breaker minRequests must be at least 1",
		},
		{
			name:     "vault enabled without address",
			mutate:   func(c *Config) { c.Vault.Enabled = true },
			errorMsg: "Config.Vault.Address failed required_if",
		},
		{
			name:     "bad tls",
			mutate:   func(c *Config) { c.Server.TLS.Mode = "server" },
			errorMsg: "TLS configuration error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errorMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errorMsg)
		})
	}
}

func TestApplyFallbacks(t *testing.T) {
	t.Setenv("RESUMESCOPE_SERVER_APIKEYS", "")

	cfg := validConfig()
	cfg.Server.APIKeys = []string{" a ", "", "b,c"}
	cfg.Server.TLS = TLSConfig{Mode: "server"}
	cfg.Observability.ServiceName = "resumescope"

	cfg.applyFallbacks()

	assert.Equal(t, []string{"a", "b", "c"}, cfg.Server.APIKeys)
	assert.Equal(t, "1.2", cfg.Server.TLS.MinVersion)
	assert.Contains(t, cfg.Observability.ServiceInstance, "resumescope-")
}
