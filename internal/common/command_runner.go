package common

import (
	"context"
	"fmt"
	"os"

	"resumescope/internal/analysis"
	"resumescope/internal/errors"
	"resumescope/internal/types"
)

// AnalyzeFunc runs one résumé through the analysis pipeline.
type AnalyzeFunc func(context.Context, ResumeInput) (*types.AnalysisResult, *analysis.TokenUsage, error)

// AnalyzeWith adapts an Analyzer to an AnalyzeFunc, choosing the text or
// document shape from the input.
func AnalyzeWith(a *analysis.Analyzer) AnalyzeFunc {
	return func(ctx context.Context, in ResumeInput) (*types.AnalysisResult, *analysis.TokenUsage, error) {
		if in.Document != nil {
			return a.AnalyzeDocument(ctx, in.Document)
		}
		return a.AnalyzeText(ctx, in.Text)
	}
}

// RunAnalyzeCommand reads the résumé at path, analyzes it and writes the
// formatted result.
func RunAnalyzeCommand(
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	path string,
	analyze AnalyzeFunc,
) error {
	return runAnalyzeCommand(ctx, logger, cmdConfig, path, analyze, NewOutputHandler(logger))
}

func runAnalyzeCommand(
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	path string,
	analyze AnalyzeFunc,
	outputHandler *OutputHandler,
) error {
	fileProcessor := NewFileProcessor(logger)

	input, err := fileProcessor.ReadResume(path)
	if err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Starting resume analysis",
			"file", path,
			"source", input.Source(),
			"size_bytes", input.Size(),
			"output_format", cmdConfig.OutputFormat)
	}

	result, tokenUsage, err := analyze(ctx, input)
	if err != nil {
		return err
	}

	if tokenUsage != nil {
		if logger != nil {
			logger.Info("AI token usage", "input_tokens", tokenUsage.InputTokens, "output_tokens", tokenUsage.OutputTokens, "total_tokens", tokenUsage.TotalTokens)
		} else {
			fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n", tokenUsage.InputTokens, tokenUsage.OutputTokens, tokenUsage.TotalTokens)
		}
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
