package types

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// DefaultNotificationThreshold applies when a profile carries no threshold
const DefaultNotificationThreshold = 70

// Profile holds the attributes extracted from a CV
type Profile struct {
	Skills                []string `json:"skills" yaml:"skills"`
	ExperienceLevel       string   `json:"experience_level" yaml:"experience_level"`
	Education             string   `json:"education" yaml:"education"`
	Strengths             []string `json:"strengths" yaml:"strengths"`
	CareerGoals           string   `json:"career_goals" yaml:"career_goals"`
	NotificationEnabled   *bool    `json:"notification_enabled,omitempty" yaml:"notification_enabled,omitempty"`
	NotificationThreshold *int     `json:"notification_threshold,omitempty" yaml:"notification_threshold,omitempty"`
}

// Threshold returns the notification threshold, defaulted when absent
func (p *Profile) Threshold() int {
	if p == nil || p.NotificationThreshold == nil {
		return DefaultNotificationThreshold
	}
	return *p.NotificationThreshold
}

// Normalize fills in defaults for optional fields
func (p *Profile) Normalize() {
	if p.NotificationThreshold == nil {
		threshold := DefaultNotificationThreshold
		p.NotificationThreshold = &threshold
	}
	if p.Skills == nil {
		p.Skills = []string{}
	}
	if p.Strengths == nil {
		p.Strengths = []string{}
	}
}

// Empty reports whether the profile carries no extracted data
func (p *Profile) Empty() bool {
	return p == nil || (len(p.Skills) == 0 && p.ExperienceLevel == "" &&
		p.Education == "" && len(p.Strengths) == 0 && p.CareerGoals == "")
}

const profileSchema = `{
  "type": "object",
  "properties": {
    "skills": {"type": "array", "items": {"type": "string"}},
    "experience_level": {"type": "string"},
    "education": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "career_goals": {"type": "string"},
    "notification_enabled": {"type": "boolean"},
    "notification_threshold": {"type": "integer", "minimum": 0, "maximum": 100}
  }
}`

var profileSchemaLoader = gojsonschema.NewStringLoader(profileSchema)

// ValidateProfile checks a profile against the profile schema
func ValidateProfile(p *Profile) error {
	if p == nil {
		return fmt.Errorf("profile is required")
	}
	// absent lists marshal as null; check the profile as it would be stored
	normalized := *p
	normalized.Normalize()
	result, err := gojsonschema.Validate(profileSchemaLoader, gojsonschema.NewGoLoader(&normalized))
	if err != nil {
		return fmt.Errorf("failed to validate profile: %w", err)
	}
	if result.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		msgs = append(msgs, e.String())
	}
	return fmt.Errorf("invalid profile: %s", strings.Join(msgs, "; "))
}
