package common

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"resumescope/internal/analysis"
	"resumescope/internal/errors"
	"resumescope/internal/utils"
)

// ResumeInput is a résumé read from disk in one of the two accepted shapes.
// Exactly one of Text and Document is set.
type ResumeInput struct {
	Path     string
	Text     string
	Document *analysis.Document
}

// Source reports which pipeline shape the input takes.
func (in ResumeInput) Source() analysis.Source {
	if in.Document != nil {
		return analysis.SourceAttachment
	}
	return analysis.SourceText
}

// Size returns the input size in bytes.
func (in ResumeInput) Size() int {
	if in.Document != nil {
		return len(in.Document.Data)
	}
	return len(in.Text)
}

// FileProcessor handles common file operations
type FileProcessor struct {
	logger *errors.Logger
}

// NewFileProcessor creates a new file processor instance
func NewFileProcessor(logger *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: logger}
}

// ReadFile reads content from a file with proper error handling
func (fp *FileProcessor) ReadFile(filename string) ([]byte, error) {
	file, err := os.Open(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewIOError(errors.ErrCodeFileNotFound,
				fmt.Sprintf("File not found: %s", filename), err)
		}
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", filename), err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			// Log the error but don't override the main operation result
			if fp.logger != nil {
				fp.logger.Warn("Failed to close file", "filename", filename, "error", err)
			}
		}
	}()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Failed to read file content: %s", filename), err)
	}

	return content, nil
}

// WriteFile writes content to a file with directory creation
func (fp *FileProcessor) WriteFile(filename, content string) error {
	dir := filepath.Dir(filename)
	if dir != "." {
		err := os.MkdirAll(dir, 0750)
		if err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED",
				fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}

	err := os.WriteFile(filename, []byte(content), 0600)
	if err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED",
			fmt.Sprintf("Cannot write file: %s", filename), err)
	}

	return nil
}

// ReadResume validates and reads a résumé. Text files (.txt, .md) become
// text input; everything else is read as a document whose media type comes
// from the extension, so the normalizer decides whether it is supported.
func (fp *FileProcessor) ReadResume(filename string) (ResumeInput, error) {
	if err := utils.ValidateInputFile(filename); err != nil {
		return ResumeInput{}, errors.NewValidationError("INVALID_INPUT_FILE",
			fmt.Sprintf("Invalid file %s", filename), err)
	}

	content, err := fp.ReadFile(filename)
	if err != nil {
		return ResumeInput{}, err
	}

	if utils.IsTextFile(filename) {
		return ResumeInput{Path: filename, Text: string(content)}, nil
	}

	mediaType, err := utils.DocumentMediaType(filename)
	if err != nil {
		return ResumeInput{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot determine file type: %s", filename), err)
	}

	if fp.logger != nil {
		fp.logger.Debug("Read resume document",
			"filename", filename,
			"media_type", mediaType,
			"size", utils.FormatFileSize(int64(len(content))))
	}

	return ResumeInput{
		Path: filename,
		Document: &analysis.Document{
			Name:      filepath.Base(filename),
			MediaType: mediaType,
			Data:      content,
		},
	}, nil
}

// ValidateOutputFile validates output file path
func (fp *FileProcessor) ValidateOutputFile(filename string) error {
	if filename == "" {
		return nil // stdout is valid
	}

	if err := utils.ValidateOutputFile(filename); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE",
			fmt.Sprintf("Invalid output file: %s", filename), err)
	}

	return nil
}
