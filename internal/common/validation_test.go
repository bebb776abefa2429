package common

import (
	"testing"

	"jobpilot/internal/errors"
	"jobpilot/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateOutputFormat(t *testing.T) {
	supported := []string{"json", "yaml", "text", "markdown"}

	tests := []struct {
		name             string
		format           string
		supportedFormats []string
		expectedError    string
	}{
		{name: "valid format - json", format: "json", supportedFormats: supported},
		{name: "valid format - yaml", format: "yaml", supportedFormats: supported},
		{name: "valid format - markdown", format: "markdown", supportedFormats: supported},
		{
			name:             "invalid format - xml",
			format:           "xml",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'xml'. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "case sensitive - JSON uppercase",
			format:           "JSON",
			supportedFormats: supported,
			expectedError:    "unsupported output format 'JSON'. Supported formats: [json yaml text markdown]",
		},
		{
			name:             "empty format string",
			format:           "",
			supportedFormats: []string{"json"},
			expectedError:    "unsupported output format ''. Supported formats: [json]",
		},
		{name: "empty supported formats - should allow all", format: "xml", supportedFormats: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOutputFormat(tt.format, tt.supportedFormats)
			if tt.expectedError == "" {
				assert.NoError(t, err)
				return
			}
			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.ErrCodeInvalidFormat, appErr.Code)
			assert.Equal(t, tt.expectedError, appErr.Message)
		})
	}
}

func TestResolveTemplate(t *testing.T) {
	tests := []struct {
		flag, fallback string
		want           types.Template
		wantErr        bool
	}{
		{flag: "", fallback: "modern", want: types.TemplateModern},
		{flag: "Academic", fallback: "modern", want: types.TemplateAcademic},
		{flag: "fancy", fallback: "modern", wantErr: true},
		{flag: "", fallback: "", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ResolveTemplate(tt.flag, tt.fallback)
		if tt.wantErr {
			assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestValidateMinScore(t *testing.T) {
	assert.NoError(t, ValidateMinScore(0))
	assert.NoError(t, ValidateMinScore(100))
	assert.Error(t, ValidateMinScore(-1))
	assert.Error(t, ValidateMinScore(100.5))
}

// Benchmark tests to ensure validation is fast
func BenchmarkValidateOutputFormat(b *testing.B) {
	supportedFormats := []string{"json", "yaml", "text", "markdown"}

	b.Run("valid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("json", supportedFormats)
		}
	})

	b.Run("invalid format", func(b *testing.B) {
		for b.Loop() {
			_ = ValidateOutputFormat("xml", supportedFormats)
		}
	})
}

func TestGetSupportedFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "text"}, GetSupportedFormats([]string{"json", "xml", "text"}))
	assert.Equal(t, []string{"json", "markdown", "text", "yaml"}, GetSupportedFormats(nil))
}
