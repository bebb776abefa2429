package types

import (
	"fmt"
	"net/url"
	"strings"
)

// JobDescriptor identifies a job posting as returned by search and matching
type JobDescriptor struct {
	ID          string `json:"id" yaml:"id"`
	Title       string `json:"title" yaml:"title"`
	Company     string `json:"company" yaml:"company"`
	Location    string `json:"location" yaml:"location"`
	Description string `json:"description" yaml:"description"`
	URL         string `json:"url" yaml:"url"`
}

// Template selects the document layout used for generation
type Template string

const (
	TemplateModern       Template = "modern"
	TemplateProfessional Template = "professional"
	TemplateAcademic     Template = "academic"
)

// Templates lists the supported templates in display order
var Templates = []Template{TemplateModern, TemplateProfessional, TemplateAcademic}

// ParseTemplate parses a template name case-insensitively
func ParseTemplate(s string) (Template, error) {
	t := Template(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Templates {
		if t == known {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown template '%s' (must be one of %v)", s, Templates)
}

// ApplyRequest is the payload of both the preview and the start calls
type ApplyRequest struct {
	Job      JobDescriptor `json:"job"`
	Template Template      `json:"template"`
}

// JobStatus is the server-reported status of a generation job
type JobStatus string

const (
	StatusNotFound   JobStatus = "not_found"
	StatusProcessing JobStatus = "processing"
	StatusDone       JobStatus = "done"
	StatusError      JobStatus = "error"
)

// GeneratedArtifacts holds the relative paths of the generated documents
type GeneratedArtifacts struct {
	CV            string `json:"cv" yaml:"cv"`
	CoverLetter   string `json:"cover_letter" yaml:"cover_letter"`
	InterviewPrep string `json:"interview_prep,omitempty" yaml:"interview_prep,omitempty"`
}

// Paths returns the non-empty artifact paths keyed by document kind
func (a GeneratedArtifacts) Paths() map[string]string {
	paths := make(map[string]string, 3)
	if a.CV != "" {
		paths["cv"] = a.CV
	}
	if a.CoverLetter != "" {
		paths["cover_letter"] = a.CoverLetter
	}
	if a.InterviewPrep != "" {
		paths["interview_prep"] = a.InterviewPrep
	}
	return paths
}

// URL composes a download link from the files origin and a returned relative path
func URL(origin, rel string) (string, error) {
	base, err := url.Parse(origin)
	if err != nil {
		return "", fmt.Errorf("invalid files origin %q: %w", origin, err)
	}
	ref, err := url.Parse(strings.TrimPrefix(rel, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid artifact path %q: %w", rel, err)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}
	return base.ResolveReference(ref).String(), nil
}

// ATSFeedback is the applicant tracking system score returned with documents
type ATSFeedback struct {
	Score    int    `json:"score" yaml:"score"`
	Analysis string `json:"analysis,omitempty" yaml:"analysis,omitempty"`
}

// StatusResponse is the body of an apply-status poll
type StatusResponse struct {
	Status JobStatus           `json:"status"`
	Files  *GeneratedArtifacts `json:"files,omitempty"`
	ATS    *ATSFeedback        `json:"ats,omitempty"`
	Error  string              `json:"error,omitempty"`
}

// PreviewResult is the synchronously rendered preview of an application
type PreviewResult struct {
	CVHTML          string       `json:"cv_html" yaml:"cv_html"`
	CoverLetterHTML string       `json:"cover_letter_html" yaml:"cover_letter_html"`
	ATS             *ATSFeedback `json:"ats,omitempty" yaml:"ats,omitempty"`
}

// MatchedJob is a job scored against the candidate profile
type MatchedJob struct {
	Job          JobDescriptor `json:"job" yaml:"job"`
	MatchScore   float64       `json:"match_score" yaml:"match_score"`
	MatchReasons []string      `json:"match_reasons" yaml:"match_reasons"`
}

// MatchRequest is the payload of the match-jobs call
type MatchRequest struct {
	Location   string `json:"location"`
	MaxResults int    `json:"max_results"`
	UseDemo    bool   `json:"use_demo,omitempty"`
}

// CVMetadata describes the CV currently held by the server
type CVMetadata struct {
	CVFilename string `json:"cv_filename" yaml:"cv_filename"`
	UploadedAt string `json:"uploaded_at" yaml:"uploaded_at"`
}

// Present reports whether the server holds a CV
func (m *CVMetadata) Present() bool {
	return m != nil && strings.TrimSpace(m.CVFilename) != ""
}
