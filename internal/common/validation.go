package common

import (
	"fmt"
	"slices"

	"jobpilot/internal/errors"
	"jobpilot/internal/formatters"
	"jobpilot/internal/types"
)

// ValidateOutputFormat validates format against configured supported formats
func ValidateOutputFormat(format string, supportedFormats []string) error {
	if len(supportedFormats) == 0 {
		return nil // No restrictions configured
	}

	if slices.Contains(supportedFormats, format) {
		return nil
	}

	return errors.NewValidationError(errors.ErrCodeInvalidFormat,
		fmt.Sprintf("unsupported output format '%s'. Supported formats: %v", format, supportedFormats), nil)
}

// ResolveTemplate parses the template flag, falling back to the configured default
func ResolveTemplate(flag, fallback string) (types.Template, error) {
	name := flag
	if name == "" {
		name = fallback
	}
	t, err := types.ParseTemplate(name)
	if err != nil {
		return "", errors.NewValidationError(errors.ErrCodeInvalidRequest, err.Error(), nil)
	}
	return t, nil
}

// ValidateMinScore checks a score threshold is within 0..100
func ValidateMinScore(score float64) error {
	if score < 0 || score > 100 {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest,
			fmt.Sprintf("min score must be between 0 and 100, got %v", score), nil)
	}
	return nil
}

// GetSupportedFormats returns the configured formats the formatter registry
// can render, or every registered format when none are configured
func GetSupportedFormats(configured []string) []string {
	registered := formatters.GlobalRegistry.GetSupportedFormats()
	if len(configured) == 0 {
		return registered
	}
	var out []string
	for _, f := range configured {
		if slices.Contains(registered, f) {
			out = append(out, f)
		}
	}
	return out
}
