package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// LoadedPrompts holds prompt text after file overrides have been applied.
// Empty fields mean the built-in template should be used.
type LoadedPrompts struct {
	System     string
	Text       string
	Attachment string
}

// LoadPromptFile reads a prompt file and returns its trimmed content.
func LoadPromptFile(filePath string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for prompt file '%s': %w", filePath, err)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("prompt file not found: %s", absPath)
		}
		return "", fmt.Errorf("failed to read prompt file '%s': %w", absPath, err)
	}

	trimmed := strings.TrimSpace(string(content))
	if trimmed == "" {
		return "", fmt.Errorf("prompt file '%s' is empty", absPath)
	}

	log.Printf("[CONFIG] Successfully loaded prompt from file: %s (%d characters)", absPath, len(trimmed))
	return trimmed, nil
}

// Load resolves each prompt. A file path wins over the inline value.
func (p PromptConfig) Load() (LoadedPrompts, error) {
	var loaded LoadedPrompts
	var err error

	if loaded.System, err = resolvePromptSource(p.SystemFile, p.System); err != nil {
		return LoadedPrompts{}, fmt.Errorf("system prompt: %w", err)
	}
	if loaded.Text, err = resolvePromptSource(p.TextFile, p.Text); err != nil {
		return LoadedPrompts{}, fmt.Errorf("text prompt: %w", err)
	}
	if loaded.Attachment, err = resolvePromptSource(p.AttachmentFile, p.Attachment); err != nil {
		return LoadedPrompts{}, fmt.Errorf("attachment prompt: %w", err)
	}

	return loaded, nil
}

// Files returns the configured prompt file paths.
func (p PromptConfig) Files() []string {
	var files []string
	for _, f := range []string{p.SystemFile, p.TextFile, p.AttachmentFile} {
		if f != "" {
			files = append(files, f)
		}
	}
	return files
}

func resolvePromptSource(file, inline string) (string, error) {
	if file != "" {
		return LoadPromptFile(file)
	}
	return strings.TrimSpace(inline), nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	validateFile := func(filePath, promptType string) {
		if filePath == "" {
			return
		}

		absPath, err := filepath.Abs(filePath)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s prompt: %s", promptType, filePath))
			return
		}

		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s prompt file not found: %s", promptType, absPath))
		}
	}

	validateFile(c.AI.Prompts.SystemFile, "system")
	validateFile(c.AI.Prompts.TextFile, "text")
	validateFile(c.AI.Prompts.AttachmentFile, "attachment")

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}
