package common

import (
	"fmt"

	"github.com/samber/lo"
)

// ValidateOutputFormat checks format against the configured formats. An
// empty list accepts any format.
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 || lo.Contains(supportedFormats, format) {
		return nil
	}

	return fmt.Errorf("unsupported output format '%s'. Supported formats: %v",
		format, supportedFormats)
}
