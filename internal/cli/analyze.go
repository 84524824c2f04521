package cli

import (
	"context"
	"fmt"
	"os"

	"resumescope/internal/ai"
	"resumescope/internal/analysis"
	"resumescope/internal/common"
	"resumescope/internal/formatters"
	"resumescope/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file]",
	Short: "Analyze a résumé and print the structured result",
	Long: `Analyze a résumé with the configured Gemini model.

Text files (.txt, .md) are sent as résumé text. PDF, DOC and DOCX files are
sent to the model as documents; their media type comes from the extension.

The result includes:
- Contact details, skills, experience and education
- Strengths, weaknesses and an overall score
- An ATS breakdown with matched and missing keywords and format issues`,
	Args: cobra.ExactArgs(1),
	PreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := getConfigFromContext(cmd.Context())
		// Apply default format if not specified
		if analyzeConfig.OutputFormat == "" {
			analyzeConfig.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(analyzeConfig.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeConfig common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeConfig.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeConfig.OutputFormat, "format", "", "Output format: json, text, or markdown")
	analyzeCmd.Flags().BoolVar(&analyzeConfig.Progress, "progress", false, "Show a progress indicator on stderr")

	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatters.GlobalRegistry.GetSupportedFormats(), cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := getConfigFromContext(cmd.Context())
	logger := getLoggerFromContext(cmd.Context())

	svc, err := ai.NewService(cmd.Context(), &cfg.AI, logger)
	if err != nil {
		return fmt.Errorf("failed to create AI service: %w", err)
	}
	defer func() { _ = svc.Close() }()

	analyzer, err := svc.Analyzer()
	if err != nil {
		return err
	}

	analyze := common.AnalyzeWith(analyzer)
	if analyzeConfig.Progress {
		analyze = withProgress(analyze)
	}

	if err := common.RunAnalyzeCommand(cmd.Context(), logger, analyzeConfig, args[0], analyze); err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}

// withProgress shows the progress indicator for the duration of analyze.
func withProgress(analyze common.AnalyzeFunc) common.AnalyzeFunc {
	return func(ctx context.Context, in common.ResumeInput) (*types.AnalysisResult, *analysis.TokenUsage, error) {
		progress := startProgress(ctx, os.Stderr, "Analyzing "+in.Path)
		result, usage, err := analyze(ctx, in)
		progress.Finish(err == nil)
		return result, usage, err
	}
}
