//go:generate go run go.uber.org/mock/mockgen -source=oracle.go -destination=../mocks/mock_oracle.go -package=mocks

package analysis

import "context"

// Oracle sends one generation request to the model and returns its raw text.
// Implementations make a single attempt and return classified *errors.AppError
// values for credential, safety, quota and transport failures.
type Oracle interface {
	Generate(ctx context.Context, req *GenerationRequest) (*GenerationResult, error)
}

// TokenUsage represents token usage information from model responses
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// GenerationResult is the raw model output for one request.
type GenerationResult struct {
	Text  string
	Model string
	Usage *TokenUsage
}
