package formatters

import (
	"fmt"
	"sort"
	"strings"

	"jobpilot/internal/orchestrator"
	"jobpilot/internal/store"
	"jobpilot/internal/types"
)

// ProfileMarkdownFormatter handles markdown formatting for analyzed profiles
type ProfileMarkdownFormatter struct{}

func (f *ProfileMarkdownFormatter) Format(data any) (string, error) {
	p, ok := data.(*types.Profile)
	if !ok {
		return "", fmt.Errorf("expected *types.Profile, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Profile\n\n")
	if p == nil || p.Empty() {
		output.WriteString("_No profile data._\n")
		return output.String(), nil
	}

	if p.ExperienceLevel != "" {
		fmt.Fprintf(&output, "**Experience:** %s\n\n", p.ExperienceLevel)
	}
	if p.Education != "" {
		fmt.Fprintf(&output, "**Education:** %s\n\n", p.Education)
	}
	if len(p.Skills) > 0 {
		output.WriteString("## Skills\n\n")
		for _, s := range p.Skills {
			fmt.Fprintf(&output, "- %s\n", s)
		}
		output.WriteString("\n")
	}
	if len(p.Strengths) > 0 {
		output.WriteString("## Strengths\n\n")
		for _, s := range p.Strengths {
			fmt.Fprintf(&output, "- %s\n", s)
		}
		output.WriteString("\n")
	}
	if p.CareerGoals != "" {
		output.WriteString("## Career Goals\n\n")
		output.WriteString(p.CareerGoals)
		output.WriteString("\n\n")
	}
	fmt.Fprintf(&output, "Notification threshold: **%d**\n", p.Threshold())

	return output.String(), nil
}

func (f *ProfileMarkdownFormatter) SupportedType() string {
	return "Profile"
}

// MatchMarkdownFormatter handles markdown formatting for match lists
type MatchMarkdownFormatter struct{}

func (f *MatchMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(MatchReport)
	if !ok {
		return "", fmt.Errorf("expected MatchReport, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Job Matches\n\n")
	if len(report.Matches) == 0 {
		output.WriteString("_No matches._\n")
		return output.String(), nil
	}

	output.WriteString("| # | Score | Job | Company | Location | ID |\n")
	output.WriteString("|---|------:|-----|---------|----------|----|\n")
	for i, m := range report.Matches {
		title := escapeCell(m.Job.Title)
		if m.Job.URL != "" {
			title = fmt.Sprintf("[%s](%s)", title, m.Job.URL)
		}
		fmt.Fprintf(&output, "| %d | %.1f | %s | %s | %s | `%s` |\n",
			i+1, m.MatchScore, title, escapeCell(m.Job.Company), escapeCell(m.Job.Location), m.Job.ID)
	}
	fmt.Fprintf(&output, "\nBest score **%.1f**, average **%.1f**\n", report.Summary.Best, report.Summary.Average)

	return output.String(), nil
}

func (f *MatchMarkdownFormatter) SupportedType() string {
	return "MatchReport"
}

// PreviewMarkdownFormatter handles markdown formatting for previews
type PreviewMarkdownFormatter struct{}

func (f *PreviewMarkdownFormatter) Format(data any) (string, error) {
	report, ok := data.(PreviewReport)
	if !ok {
		return "", fmt.Errorf("expected PreviewReport, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Preview: %s\n\n", jobLine(report.Request.Job))
	fmt.Fprintf(&output, "Template: `%s`\n\n", report.Request.Template)
	output.WriteString("## CV\n\n")
	output.WriteString(report.CVText)
	output.WriteString("\n\n## Cover Letter\n\n")
	output.WriteString(report.CoverLetterText)
	output.WriteString("\n")
	if report.ATS != nil {
		fmt.Fprintf(&output, "\n## ATS Score: %d/100\n", report.ATS.Score)
		if report.ATS.Analysis != "" {
			output.WriteString("\n" + report.ATS.Analysis + "\n")
		}
	}
	return output.String(), nil
}

func (f *PreviewMarkdownFormatter) SupportedType() string {
	return "PreviewReport"
}

// OutcomeMarkdownFormatter handles markdown formatting for generation outcomes
type OutcomeMarkdownFormatter struct{}

func (f *OutcomeMarkdownFormatter) Format(data any) (string, error) {
	out, ok := data.(orchestrator.Outcome)
	if !ok {
		return "", fmt.Errorf("expected orchestrator.Outcome, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "# Application %s\n\n", out.Kind)
	output.WriteString(OutcomeLine(out) + "\n")
	if out.Files != nil {
		output.WriteString("\n## Documents\n\n")
		paths := out.Files.Paths()
		kinds := make([]string, 0, len(paths))
		for k := range paths {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(&output, "- **%s:** `%s`\n", k, paths[k])
		}
	}
	if out.ATS != nil {
		fmt.Fprintf(&output, "\n## ATS Score: %d/100\n", out.ATS.Score)
	}
	return output.String(), nil
}

func (f *OutcomeMarkdownFormatter) SupportedType() string {
	return "Outcome"
}

// HistoryMarkdownFormatter handles markdown formatting for the outcome history
type HistoryMarkdownFormatter struct{}

func (f *HistoryMarkdownFormatter) Format(data any) (string, error) {
	entries, ok := data.([]store.Entry)
	if !ok {
		return "", fmt.Errorf("expected []store.Entry, got %T", data)
	}

	var output strings.Builder
	output.WriteString("# Application History\n\n")
	if len(entries) == 0 {
		output.WriteString("_Nothing recorded yet._\n")
		return output.String(), nil
	}
	output.WriteString("| Finished | Outcome | Job ID | Position | ATS |\n")
	output.WriteString("|----------|---------|--------|----------|----:|\n")
	for _, e := range entries {
		ats := "-"
		if e.ATSScore != nil {
			ats = fmt.Sprint(*e.ATSScore)
		}
		fmt.Fprintf(&output, "| %s | %s | `%s` | %s | %s |\n",
			e.At.Local().Format("2006-01-02 15:04"), e.Outcome, orDash(e.JobID),
			escapeCell(jobLine(types.JobDescriptor{Title: e.Title, Company: e.Company})), ats)
	}
	return output.String(), nil
}

func (f *HistoryMarkdownFormatter) SupportedType() string {
	return "History"
}

func escapeCell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
