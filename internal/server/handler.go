package server

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"resumescope/internal/analysis"
	"resumescope/internal/errors"
	"resumescope/internal/observability"
	"resumescope/internal/types"

	"go.opentelemetry.io/otel/attribute"
)

const (
	resumeFileField = "resumeFile"

	multipartMemory = 32 << 20

	msgUnsupportedContentType = "Unsupported request format. Use application/json (for text) or multipart/form-data (for files)."
)

// createAnalyzeResumeHandler serves POST /api/analyze-resume. JSON bodies
// carry résumé text, multipart bodies carry a résumé document.
func (s *Server) createAnalyzeResumeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("resumescope.api").Start(r.Context(), "api.analyze_resume")
		defer span.End()

		// The credential check precedes content-type dispatch.
		analyzer, err := s.Service.Analyzer()
		if err != nil {
			span.RecordError(err)
			s.writeAnalysisError(w, r, "", err)
			return
		}

		contentType := r.Header.Get("Content-Type")
		span.SetAttributes(attribute.String("request.content_type", contentType))

		var (
			source analysis.Source
			run    func(context.Context) (*types.AnalysisResult, *analysis.TokenUsage, error)
		)

		switch {
		case strings.Contains(contentType, "application/json"):
			source = analysis.SourceText
			text := s.readResumeText(r)
			span.SetAttributes(attribute.Int("request.text_length", len(text)))
			run = func(ctx context.Context) (*types.AnalysisResult, *analysis.TokenUsage, error) {
				return analyzer.AnalyzeText(ctx, text)
			}

		case strings.Contains(contentType, "multipart/form-data"):
			source = analysis.SourceAttachment
			doc, err := s.readResumeFile(r)
			if err != nil {
				span.RecordError(err)
				s.writeAnalysisError(w, r, source, err)
				return
			}
			if doc != nil {
				span.SetAttributes(
					attribute.String("request.media_type", doc.MediaType),
					attribute.Int("request.file_size", len(doc.Data)),
				)
			}
			run = func(ctx context.Context) (*types.AnalysisResult, *analysis.TokenUsage, error) {
				return analyzer.AnalyzeDocument(ctx, doc)
			}

		default:
			err := errors.NewUnsupportedContentTypeError(msgUnsupportedContentType).
				WithContext("content_type", contentType)
			span.RecordError(err)
			s.writeAnalysisError(w, r, "", err)
			return
		}

		var result *types.AnalysisResult
		err = s.metrics.TrackAIOperation(ctx, string(source), func(ctx context.Context) *observability.AIOperationResult {
			res, usage, aiErr := run(ctx)
			result = res
			return &observability.AIOperationResult{Error: aiErr, TokenUsage: usage}
		})
		if err != nil {
			span.RecordError(err)
			s.writeAnalysisError(w, r, source, err)
			return
		}

		span.SetAttributes(
			attribute.Bool("success", true),
			attribute.Float64("result.overall_score", result.OverallScore),
			attribute.Float64("result.ats_score", result.ATSAnalysis.ATSScore),
		)
		s.metrics.RecordAnalysis(ctx, string(source), http.StatusOK)

		s.requestLogger(r).Info("Resume analyzed",
			"source", source,
			"overall_score", result.OverallScore)

		writeJSON(w, http.StatusOK, result)
	}
}

// readResumeText extracts resumeText from a JSON body. Anything that is not a
// JSON string yields "", which the normalizer rejects as invalid input.
func (s *Server) readResumeText(r *http.Request) string {
	var body struct {
		ResumeText json.RawMessage `json:"resumeText"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.requestLogger(r).Debug("Failed to decode JSON request body", "error", err.Error())
		return ""
	}

	var text string
	if err := json.Unmarshal(body.ResumeText, &text); err != nil {
		return ""
	}
	return text
}

// readResumeFile extracts the resumeFile part. A missing part yields a nil
// document, which the normalizer rejects as invalid input.
func (s *Server) readResumeFile(r *http.Request) (*analysis.Document, error) {
	file, header, err := r.FormFile(resumeFileField)
	if stderrors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, formReadError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, formReadError(err)
	}

	return &analysis.Document{
		Name:      header.Filename,
		MediaType: header.Header.Get("Content-Type"),
		Data:      data,
	}, nil
}

func formReadError(err error) error {
	var maxBytesErr *http.MaxBytesError
	if stderrors.As(err, &maxBytesErr) {
		return errors.NewInvalidInputError(fmt.Sprintf("Invalid FormData: request body too large (limit is %d bytes).", maxBytesErr.Limit))
	}
	return errors.NewInvalidInputError(fmt.Sprintf("Invalid FormData: %v", err))
}

// writeAnalysisError classifies err and writes the caller-facing error body.
func (s *Server) writeAnalysisError(w http.ResponseWriter, r *http.Request, source analysis.Source, err error) {
	c := analysis.Classify(err)

	logger := s.requestLogger(r)
	logArgs := []any{"status", c.Status, "code", c.Code}
	if source != "" {
		logArgs = append(logArgs, "source", source)
		s.metrics.RecordAnalysis(r.Context(), string(source), c.Status)
	}
	if c.Status >= http.StatusInternalServerError {
		logger.LogError(err, "Resume analysis failed", logArgs...)
	} else {
		logger.Info("Resume analysis rejected", append(logArgs, "reason", c.Message)...)
	}

	writeJSON(w, c.Status, types.ErrorResponse{
		Error:              c.Message,
		RawResponsePreview: c.Preview,
		Details:            c.Details,
		RequestID:          requestIDFrom(r.Context()),
	})
}

// requestLogger tags every entry with the request ID.
func (s *Server) requestLogger(r *http.Request) *errors.Logger {
	return s.Logger.With("request_id", requestIDFrom(r.Context()))
}

// writeError writes an error body for failures outside the analysis pipeline.
func writeError(w http.ResponseWriter, r *http.Request, status int, message, details string) {
	writeJSON(w, status, types.ErrorResponse{
		Error:     message,
		Details:   details,
		RequestID: requestIDFrom(r.Context()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure can only be a broken connection.
	_ = json.NewEncoder(w).Encode(body)
}
