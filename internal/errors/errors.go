package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// ErrorType represents different categories of errors
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
)

// AppError represents a structured application error
type AppError struct {
	Type    ErrorType      `json:"type"`
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Cause   error          `json:"cause,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

func newAppError(typ ErrorType, code, message string, cause error) *AppError {
	return &AppError{
		Type:    typ,
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// Error constructors for different types
func NewValidationError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeValidation, code, message, cause)
}

func NewIOError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeIO, code, message, cause)
}

func NewAIError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeAI, code, message, cause)
}

func NewNetworkError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeNetwork, code, message, cause)
}

func NewConfigError(code, message string, cause error) *AppError {
	return newAppError(ErrorTypeConfig, code, message, cause)
}

// WithContext adds context to an error
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ContextString returns a string context value, or "" when absent.
func (e *AppError) ContextString(key string) string {
	if e == nil || e.Context == nil {
		return ""
	}
	s, _ := e.Context[key].(string)
	return s
}

// AsAppError unwraps err to the first *AppError in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the first *AppError in err's chain.
func CodeOf(err error) string {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// HasCode reports whether err carries the given code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

// Logger wraps slog with application-specific methods
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a structured JSON logger writing to stderr.
// Stdout is left to command output.
func NewLogger(level slog.Level) *Logger {
	return NewLoggerTo(os.Stderr, level)
}

// NewLoggerTo creates a structured JSON logger writing to w.
func NewLoggerTo(w io.Writer, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)
	return &Logger{logger: slog.New(handler)}
}

// LogError logs an application error with appropriate level and context
func (l *Logger) LogError(err error, message string, args ...any) {
	if appErr, ok := AsAppError(err); ok {
		logArgs := []any{
			"error_type", appErr.Type,
			"error_code", appErr.Code,
			"error_message", appErr.Message,
		}
		if appErr.Cause != nil {
			logArgs = append(logArgs, "error_cause", appErr.Cause.Error())
		}

		for key, value := range appErr.Context {
			logArgs = append(logArgs, key, value)
		}

		logArgs = append(logArgs, args...)

		l.logger.Error(message, logArgs...)
		return
	}

	logArgs := append([]any{"error", err.Error()}, args...)
	l.logger.Error(message, logArgs...)
}

func (l *Logger) Info(message string, args ...any) {
	l.logger.Info(message, args...)
}

func (l *Logger) Debug(message string, args ...any) {
	l.logger.Debug(message, args...)
}

func (l *Logger) Warn(message string, args ...any) {
	l.logger.Warn(message, args...)
}

// With returns a logger that always includes the given attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{logger: l.logger.With(args...)}
}

// New creates a new logger instance
func New(level string) (*Logger, error) {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "info":
		slogLevel = slog.LevelInfo
	case "warn":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		return nil, fmt.Errorf("invalid log level: %s", level)
	}

	return NewLogger(slogLevel), nil
}

// Common error codes
const (
	ErrCodeFileNotFound    = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable = "FILE_NOT_READABLE"
	ErrCodeInvalidFormat   = "INVALID_FORMAT"
	ErrCodeInvalidConfig   = "INVALID_CONFIG"
)

// Analysis pipeline error codes. Each maps to exactly one status in the classifier.
const (
	ErrCodeInvalidInput           = "INVALID_INPUT"
	ErrCodeUnsupportedMediaType   = "UNSUPPORTED_MEDIA_TYPE"
	ErrCodeUnsupportedContentType = "UNSUPPORTED_CONTENT_TYPE"
	ErrCodeConfiguration          = "CONFIGURATION_ERROR"
	ErrCodeSafetyBlocked          = "SAFETY_BLOCKED"
	ErrCodeQuotaOrAuth            = "QUOTA_OR_AUTH_FAILURE"
	ErrCodeMalformedOutput        = "MALFORMED_OUTPUT"
	ErrCodeTransportFailure       = "TRANSPORT_FAILURE"
)

// ContextKeyRawPreview holds the bounded raw-output preview on MALFORMED_OUTPUT errors.
const ContextKeyRawPreview = "rawResponsePreview"

func NewInvalidInputError(message string) *AppError {
	return NewValidationError(ErrCodeInvalidInput, message, nil)
}

func NewUnsupportedMediaTypeError(message string) *AppError {
	return NewValidationError(ErrCodeUnsupportedMediaType, message, nil)
}

func NewUnsupportedContentTypeError(message string) *AppError {
	return NewValidationError(ErrCodeUnsupportedContentType, message, nil)
}

func NewConfigurationError(message string, cause error) *AppError {
	return NewConfigError(ErrCodeConfiguration, message, cause)
}

func NewSafetyBlockedError(message string, cause error) *AppError {
	return NewAIError(ErrCodeSafetyBlocked, message, cause)
}

func NewQuotaOrAuthError(message string, cause error) *AppError {
	return NewAIError(ErrCodeQuotaOrAuth, message, cause)
}

// NewMalformedOutputError attaches the bounded preview of the raw model output.
func NewMalformedOutputError(message, preview string, cause error) *AppError {
	return NewAIError(ErrCodeMalformedOutput, message, cause).WithContext(ContextKeyRawPreview, preview)
}

func NewTransportError(message string, cause error) *AppError {
	return NewNetworkError(ErrCodeTransportFailure, message, cause)
}
