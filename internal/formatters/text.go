package formatters

import (
	"fmt"
	"sort"
	"strings"

	"jobpilot/internal/orchestrator"
	"jobpilot/internal/recovery"
	"jobpilot/internal/store"
	"jobpilot/internal/types"
)

// ProfileTextFormatter handles text formatting for analyzed profiles
type ProfileTextFormatter struct{}

func (f *ProfileTextFormatter) Format(data any) (string, error) {
	p, ok := data.(*types.Profile)
	if !ok {
		return "", fmt.Errorf("expected *types.Profile, got %T", data)
	}

	var output strings.Builder
	output.WriteString("=== PROFILE ===\n\n")
	if p == nil || p.Empty() {
		output.WriteString("No profile data.\n")
		return output.String(), nil
	}

	writeField(&output, "Experience", p.ExperienceLevel)
	writeField(&output, "Education", p.Education)
	writeField(&output, "Career goals", p.CareerGoals)
	writeList(&output, "Skills", p.Skills)
	writeList(&output, "Strengths", p.Strengths)
	fmt.Fprintf(&output, "Notification threshold: %d\n", p.Threshold())
	if p.NotificationEnabled != nil {
		fmt.Fprintf(&output, "Notifications: %s\n", onOff(*p.NotificationEnabled))
	}

	return output.String(), nil
}

func (f *ProfileTextFormatter) SupportedType() string {
	return "Profile"
}

// MatchTextFormatter handles text formatting for match lists
type MatchTextFormatter struct{}

func (f *MatchTextFormatter) Format(data any) (string, error) {
	report, ok := data.(MatchReport)
	if !ok {
		return "", fmt.Errorf("expected MatchReport, got %T", data)
	}

	var output strings.Builder
	title := "=== JOB MATCHES ==="
	if report.Resumed {
		title = "=== JOB MATCHES (previous session) ==="
	}
	output.WriteString(title + "\n")
	fmt.Fprintf(&output, "%d match(es)", report.Summary.Count)
	if report.MinScore > 0 {
		fmt.Fprintf(&output, " scoring %.0f or more", report.MinScore)
	}
	if report.Summary.Count > 0 {
		fmt.Fprintf(&output, ", best %.1f, average %.1f", report.Summary.Best, report.Summary.Average)
	}
	output.WriteString("\n\n")

	for i, m := range report.Matches {
		fmt.Fprintf(&output, "%2d. [%5.1f] %s\n", i+1, m.MatchScore, jobLine(m.Job))
		fmt.Fprintf(&output, "    id: %s\n", m.Job.ID)
		if m.Job.URL != "" {
			fmt.Fprintf(&output, "    %s\n", m.Job.URL)
		}
		for _, reason := range m.MatchReasons {
			fmt.Fprintf(&output, "    + %s\n", reason)
		}
	}

	return output.String(), nil
}

func (f *MatchTextFormatter) SupportedType() string {
	return "MatchReport"
}

// PreviewTextFormatter handles text formatting for previews
type PreviewTextFormatter struct{}

func (f *PreviewTextFormatter) Format(data any) (string, error) {
	report, ok := data.(PreviewReport)
	if !ok {
		return "", fmt.Errorf("expected PreviewReport, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "=== PREVIEW: %s (%s template) ===\n\n", jobLine(report.Request.Job), report.Request.Template)
	output.WriteString("--- CV ---\n")
	output.WriteString(report.CVText)
	output.WriteString("\n\n--- COVER LETTER ---\n")
	output.WriteString(report.CoverLetterText)
	output.WriteString("\n")
	if report.ATS != nil {
		output.WriteString("\n")
		writeATS(&output, report.ATS)
	}

	return output.String(), nil
}

func (f *PreviewTextFormatter) SupportedType() string {
	return "PreviewReport"
}

// OutcomeTextFormatter handles text formatting for generation outcomes
type OutcomeTextFormatter struct{}

func (f *OutcomeTextFormatter) Format(data any) (string, error) {
	out, ok := data.(orchestrator.Outcome)
	if !ok {
		return "", fmt.Errorf("expected orchestrator.Outcome, got %T", data)
	}

	var output strings.Builder
	output.WriteString(OutcomeLine(out) + "\n")
	if out.Files != nil {
		writePaths(&output, out.Files.Paths())
	}
	if out.ATS != nil {
		writeATS(&output, out.ATS)
	}
	return output.String(), nil
}

func (f *OutcomeTextFormatter) SupportedType() string {
	return "Outcome"
}

// OutcomeLine is the one-line summary shown for a terminal outcome
func OutcomeLine(out orchestrator.Outcome) string {
	job := out.JobID
	if job == "" {
		job = "-"
	}
	switch out.Kind {
	case orchestrator.KindDone:
		return fmt.Sprintf("Documents ready (job %s, %d poll(s))", job, out.Attempts+1)
	case orchestrator.KindCancelled:
		return fmt.Sprintf("Application cancelled (job %s)", job)
	case orchestrator.KindTimeout:
		return fmt.Sprintf("Still running after %d poll(s); check later with 'jobpilot status %s'", out.Attempts, job)
	default:
		return fmt.Sprintf("Application failed (job %s): %s", job, out.Message())
	}
}

// HistoryTextFormatter handles text formatting for the outcome history
type HistoryTextFormatter struct{}

func (f *HistoryTextFormatter) Format(data any) (string, error) {
	entries, ok := data.([]store.Entry)
	if !ok {
		return "", fmt.Errorf("expected []store.Entry, got %T", data)
	}
	if len(entries) == 0 {
		return "No applications recorded yet.\n", nil
	}

	var output strings.Builder
	for _, e := range entries {
		fmt.Fprintf(&output, "%s  %-9s  %-12s  %s\n",
			e.At.Local().Format("2006-01-02 15:04"), e.Outcome, orDash(e.JobID),
			jobLine(types.JobDescriptor{Title: e.Title, Company: e.Company}))
		if e.Message != "" {
			fmt.Fprintf(&output, "    %s\n", e.Message)
		}
		if e.Outcome == string(orchestrator.KindDone) {
			writePaths(&output, e.Files.Paths())
		}
	}
	return output.String(), nil
}

func (f *HistoryTextFormatter) SupportedType() string {
	return "History"
}

// StatusTextFormatter handles text formatting for a single status check
type StatusTextFormatter struct{}

func (f *StatusTextFormatter) Format(data any) (string, error) {
	report, ok := data.(StatusReport)
	if !ok {
		return "", fmt.Errorf("expected StatusReport, got %T", data)
	}

	var output strings.Builder
	fmt.Fprintf(&output, "Job %s: %s\n", report.JobID, report.Status.Status)
	if report.Status.Error != "" {
		fmt.Fprintf(&output, "  error: %s\n", report.Status.Error)
	}
	if len(report.Links) > 0 {
		writePaths(&output, report.Links)
	} else if report.Status.Files != nil {
		writePaths(&output, report.Status.Files.Paths())
	}
	if report.Status.ATS != nil {
		writeATS(&output, report.Status.ATS)
	}
	return output.String(), nil
}

func (f *StatusTextFormatter) SupportedType() string {
	return "StatusReport"
}

// RecoveryTextFormatter handles text formatting for session recovery
type RecoveryTextFormatter struct{}

func (f *RecoveryTextFormatter) Format(data any) (string, error) {
	res, ok := data.(*recovery.Result)
	if !ok {
		return "", fmt.Errorf("expected *recovery.Result, got %T", data)
	}

	var output strings.Builder
	switch {
	case !res.Hydrated:
		output.WriteString("No previous session found. Upload a CV with 'jobpilot analyze'.\n")
	case len(res.Resumable) > 0:
		fmt.Fprintf(&output, "Restored profile from %s.\n", res.CV.CVFilename)
		fmt.Fprintf(&output, "%d match(es) from your last search are available; use --accept to resume them.\n", len(res.Resumable))
	case res.AutoSearched:
		fmt.Fprintf(&output, "Restored profile from %s and started a new search.\n", res.CV.CVFilename)
	}
	return output.String(), nil
}

func (f *RecoveryTextFormatter) SupportedType() string {
	return "Recovery"
}

func writeField(b *strings.Builder, label, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", label, value)
	}
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n", label)
	for _, item := range items {
		fmt.Fprintf(b, "  - %s\n", item)
	}
}

func writeATS(b *strings.Builder, ats *types.ATSFeedback) {
	fmt.Fprintf(b, "ATS score: %d/100\n", ats.Score)
	if ats.Analysis != "" {
		b.WriteString(ats.Analysis)
		b.WriteString("\n")
	}
}

// writePaths prints artifact paths in a stable order
func writePaths(b *strings.Builder, paths map[string]string) {
	kinds := make([]string, 0, len(paths))
	for k := range paths {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		fmt.Fprintf(b, "  %-15s %s\n", k+":", paths[k])
	}
}

func jobLine(j types.JobDescriptor) string {
	parts := []string{orDash(j.Title)}
	if j.Company != "" {
		parts = append(parts, "at "+j.Company)
	}
	if j.Location != "" {
		parts = append(parts, "("+j.Location+")")
	}
	return strings.Join(parts, " ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
