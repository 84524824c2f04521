package cli

import (
	"fmt"

	"resumescope/internal/ai"
	"resumescope/internal/server"

	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the résumé analysis HTTP server",
	Long: `Start an HTTP server that analyzes résumés.

Available endpoints:
- POST /api/analyze-resume: JSON {"resumeText": "..."} or multipart/form-data with a "resumeFile" part
- GET /health: Health check (?deep=true also probes the model)
- GET /stats: Circuit breaker and rate limiting statistics

A missing Gemini API key does not prevent startup; every analysis request
reports the configuration error instead.

TLS Configuration:
- Use --tls-mode to set TLS mode: disabled, server
- Use --cert-file and --key-file for TLS certificates`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (default from config)")
	serveCmd.Flags().String("host", "", "Host to bind to (default from config)")
	serveCmd.Flags().String("tls-mode", "", "TLS mode: disabled, server (overrides config)")
	serveCmd.Flags().String("cert-file", "", "Server certificate file (PEM, overrides config)")
	serveCmd.Flags().String("key-file", "", "Server private key file (PEM, overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	overrides := map[string]*string{
		"port":      &cfg.Server.Port,
		"host":      &cfg.Server.Host,
		"tls-mode":  &cfg.Server.TLS.Mode,
		"cert-file": &cfg.Server.TLS.CertFile,
		"key-file":  &cfg.Server.TLS.KeyFile,
	}
	for flag, target := range overrides {
		if cmd.Flags().Changed(flag) {
			value, _ := cmd.Flags().GetString(flag)
			*target = value
		}
	}

	// Validate TLS configuration after applying overrides
	if err := cfg.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS configuration: %w", err)
	}

	svc, err := ai.NewService(cmd.Context(), &cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() { _ = svc.Close() }()

	if err := svc.WatchTemplates(); err != nil {
		logger.LogError(err, "Failed to watch prompt files, continuing without reload")
	}

	return server.NewServer(cfg, server.ServerConfigFrom(cfg, Version), svc, logger).Start()
}
