package formatters

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"jobpilot/internal/matching"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/recovery"
	"jobpilot/internal/store"
	"jobpilot/internal/types"

	"gopkg.in/yaml.v3"
)

// Formatter interface for different output formats
type Formatter interface {
	Format(data any) (string, error)
	SupportedType() string
}

// MatchReport is a filtered match list ready for display
type MatchReport struct {
	MinScore float64            `json:"min_score" yaml:"min_score"`
	Summary  matching.Summary   `json:"summary" yaml:"summary"`
	Matches  []types.MatchedJob `json:"matches" yaml:"matches"`
	Resumed  bool               `json:"resumed,omitempty" yaml:"resumed,omitempty"`
}

// NewMatchReport filters matches and summarizes what is left
func NewMatchReport(matches []types.MatchedJob, minScore float64) MatchReport {
	kept := matching.Filter(matches, minScore)
	if kept == nil {
		kept = []types.MatchedJob{}
	}
	return MatchReport{MinScore: minScore, Summary: matching.Summarize(kept), Matches: kept}
}

// PreviewReport is a preview with its documents rendered to text
type PreviewReport struct {
	Request         types.ApplyRequest `json:"request" yaml:"request"`
	CVText          string             `json:"cv_text" yaml:"cv_text"`
	CoverLetterText string             `json:"cover_letter_text" yaml:"cover_letter_text"`
	ATS             *types.ATSFeedback `json:"ats,omitempty" yaml:"ats,omitempty"`
}

// StatusReport is a single status check of a generation job
type StatusReport struct {
	JobID  string                `json:"job_id" yaml:"job_id"`
	Status *types.StatusResponse `json:"status" yaml:"status"`
	Links  map[string]string     `json:"links,omitempty" yaml:"links,omitempty"`
}

// FormatterRegistry manages all available formatters
type FormatterRegistry struct {
	formatters map[string]map[string]Formatter // format -> type -> formatter
}

// NewFormatterRegistry creates a new formatter registry with default formatters
func NewFormatterRegistry() *FormatterRegistry {
	registry := &FormatterRegistry{
		formatters: make(map[string]map[string]Formatter),
	}

	registry.RegisterFormatter("json", "any", &JSONFormatter{})
	registry.RegisterFormatter("yaml", "any", &YAMLFormatter{})
	registry.RegisterFormatter("text", "any", &YAMLFormatter{})
	registry.RegisterFormatter("markdown", "any", &FencedYAMLFormatter{})

	registry.RegisterFormatter("text", "Profile", &ProfileTextFormatter{})
	registry.RegisterFormatter("markdown", "Profile", &ProfileMarkdownFormatter{})
	registry.RegisterFormatter("text", "MatchReport", &MatchTextFormatter{})
	registry.RegisterFormatter("markdown", "MatchReport", &MatchMarkdownFormatter{})
	registry.RegisterFormatter("text", "PreviewReport", &PreviewTextFormatter{})
	registry.RegisterFormatter("markdown", "PreviewReport", &PreviewMarkdownFormatter{})
	registry.RegisterFormatter("text", "Outcome", &OutcomeTextFormatter{})
	registry.RegisterFormatter("markdown", "Outcome", &OutcomeMarkdownFormatter{})
	registry.RegisterFormatter("text", "History", &HistoryTextFormatter{})
	registry.RegisterFormatter("markdown", "History", &HistoryMarkdownFormatter{})
	registry.RegisterFormatter("text", "StatusReport", &StatusTextFormatter{})
	registry.RegisterFormatter("text", "Recovery", &RecoveryTextFormatter{})

	return registry
}

// RegisterFormatter registers a new formatter for a specific format and data type
func (fr *FormatterRegistry) RegisterFormatter(format, dataType string, formatter Formatter) {
	if fr.formatters[format] == nil {
		fr.formatters[format] = make(map[string]Formatter)
	}
	fr.formatters[format][dataType] = formatter
}

// Format formats data using the appropriate formatter
func (fr *FormatterRegistry) Format(data any, format string) (string, error) {
	dataType := getDataType(data)

	// Try specific formatter first
	if formatters, exists := fr.formatters[format]; exists {
		if formatter, exists := formatters[dataType]; exists {
			return formatter.Format(data)
		}
		// Fall back to generic formatter
		if formatter, exists := formatters["any"]; exists {
			return formatter.Format(data)
		}
	}

	return "", fmt.Errorf("no formatter found for format '%s' and type '%s'", format, dataType)
}

// GetSupportedFormats returns all supported formats, sorted
func (fr *FormatterRegistry) GetSupportedFormats() []string {
	formats := make([]string, 0, len(fr.formatters))
	for format := range fr.formatters {
		formats = append(formats, format)
	}
	slices.Sort(formats)
	return formats
}

func getDataType(data any) string {
	switch data.(type) {
	case *types.Profile:
		return "Profile"
	case MatchReport:
		return "MatchReport"
	case PreviewReport:
		return "PreviewReport"
	case orchestrator.Outcome:
		return "Outcome"
	case []store.Entry:
		return "History"
	case StatusReport:
		return "StatusReport"
	case *recovery.Result:
		return "Recovery"
	default:
		return "any"
	}
}

// JSONFormatter handles JSON formatting for any data type
type JSONFormatter struct{}

func (jf *JSONFormatter) Format(data any) (string, error) {
	jsonData, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(jsonData) + "\n", nil
}

func (jf *JSONFormatter) SupportedType() string {
	return "any"
}

// YAMLFormatter handles YAML formatting for any data type
type YAMLFormatter struct{}

func (yf *YAMLFormatter) Format(data any) (string, error) {
	out, err := yaml.Marshal(data)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func (yf *YAMLFormatter) SupportedType() string {
	return "any"
}

// FencedYAMLFormatter wraps YAML output in a markdown code block
type FencedYAMLFormatter struct{}

func (ff *FencedYAMLFormatter) Format(data any) (string, error) {
	body, err := (&YAMLFormatter{}).Format(data)
	if err != nil {
		return "", err
	}
	return "```yaml\n" + strings.TrimRight(body, "\n") + "\n```\n", nil
}

func (ff *FencedYAMLFormatter) SupportedType() string {
	return "any"
}

// Global formatter registry
var GlobalRegistry = NewFormatterRegistry()
