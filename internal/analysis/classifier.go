package analysis

import (
	"net/http"
	"strings"

	"resumescope/internal/errors"
)

const (
	// SafetyBlockedMessage replaces whatever the model said when it refused on safety grounds.
	SafetyBlockedMessage = "Analysis blocked due to safety settings. The content may violate policies."
	// GenericFailureMessage is shown for failures the caller cannot act on.
	GenericFailureMessage = "An error occurred during resume processing."
)

// Classification is the caller-facing rendering of a pipeline failure.
type Classification struct {
	Status  int
	Code    string
	Message string
	Details string
	Preview string
}

// Classify maps any pipeline failure to exactly one status and message.
// Typed errors are classified by code; anything else falls back to the
// vocabulary of its message.
func Classify(err error) Classification {
	if err == nil {
		return Classification{Status: http.StatusInternalServerError, Code: errors.ErrCodeTransportFailure, Message: GenericFailureMessage}
	}

	appErr, ok := errors.AsAppError(err)
	if !ok {
		return classifyMessage(err)
	}

	switch appErr.Code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeUnsupportedMediaType:
		return Classification{Status: http.StatusBadRequest, Code: appErr.Code, Message: appErr.Message}
	case errors.ErrCodeUnsupportedContentType:
		return Classification{Status: http.StatusUnsupportedMediaType, Code: appErr.Code, Message: appErr.Message}
	case errors.ErrCodeSafetyBlocked:
		return Classification{Status: http.StatusBadRequest, Code: appErr.Code, Message: SafetyBlockedMessage}
	case errors.ErrCodeConfiguration, errors.ErrCodeQuotaOrAuth:
		return Classification{Status: http.StatusInternalServerError, Code: appErr.Code, Message: appErr.Message}
	case errors.ErrCodeMalformedOutput:
		return Classification{
			Status:  http.StatusInternalServerError,
			Code:    appErr.Code,
			Message: appErr.Message,
			Preview: appErr.ContextString(errors.ContextKeyRawPreview),
		}
	case errors.ErrCodeTransportFailure:
		return Classification{
			Status:  http.StatusInternalServerError,
			Code:    appErr.Code,
			Message: GenericFailureMessage,
			Details: err.Error(),
		}
	default:
		return classifyMessage(err)
	}
}

// classifyMessage applies the keyword rules in priority order:
// bad input, then safety, then credentials or quota, then everything else.
func classifyMessage(err error) Classification {
	msg := err.Error()
	switch {
	case containsAny(msg, "Invalid", "Unsupported", "missing"):
		return Classification{Status: http.StatusBadRequest, Code: errors.ErrCodeInvalidInput, Message: msg}
	case containsAny(msg, "SAFETY", "blocked"):
		return Classification{Status: http.StatusBadRequest, Code: errors.ErrCodeSafetyBlocked, Message: SafetyBlockedMessage}
	case containsAny(msg, "API key", "quota"):
		return Classification{Status: http.StatusInternalServerError, Code: errors.ErrCodeQuotaOrAuth, Message: msg}
	default:
		return Classification{
			Status:  http.StatusInternalServerError,
			Code:    errors.ErrCodeTransportFailure,
			Message: GenericFailureMessage,
			Details: msg,
		}
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
