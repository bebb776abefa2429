package cli

import (
	"context"
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/errors"
	"jobpilot/internal/events"
	"jobpilot/internal/formatters"
	"jobpilot/internal/matching"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/types"

	"github.com/spf13/cobra"
)

// jobSelector picks the job to apply for, either from a file or from the
// previous search results
type jobSelector struct {
	jobFile  string
	matchID  string
	template string
	location string
}

func (s *jobSelector) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&s.jobFile, "job-file", "", "JSON or YAML file describing the job posting")
	cmd.Flags().StringVar(&s.matchID, "match-id", "", "Job id from the previous search results")
	cmd.Flags().StringVar(&s.template, "template", "", "Document template: modern, professional, academic (default from config)")
	cmd.Flags().StringVar(&s.location, "location", "", "Location of the previous search (default from config)")
	cmd.MarkFlagsMutuallyExclusive("job-file", "match-id")
	cmd.MarkFlagsOneRequired("job-file", "match-id")
}

// request builds the apply request the selector describes
func (s *jobSelector) request(ctx context.Context, a *app) (types.ApplyRequest, error) {
	tmpl, err := common.ResolveTemplate(s.template, a.cfg.Apply.DefaultTemplate)
	if err != nil {
		return types.ApplyRequest{}, err
	}

	if s.jobFile != "" {
		job, err := common.NewFileProcessor(a.logger).LoadJobFile(s.jobFile)
		if err != nil {
			return types.ApplyRequest{}, err
		}
		return types.ApplyRequest{Job: job, Template: tmpl}, nil
	}

	matches, err := a.client.LastMatches(ctx, firstNonEmpty(s.location, a.cfg.Pipeline.Location))
	if err != nil {
		return types.ApplyRequest{}, err
	}
	m, ok := matching.Find(matches, s.matchID)
	if !ok {
		return types.ApplyRequest{}, errors.NewNotFoundError(errors.ErrCodeNotFound,
			fmt.Sprintf("job %s is not among the previous search results", s.matchID), nil)
	}
	return types.ApplyRequest{Job: m.Job, Template: tmpl}, nil
}

// followSession starts a session, reports progress until it ends, prints one
// line for the outcome, downloads the documents when asked and writes the
// outcome. Interrupts reach the session through the command context.
func followSession(cmd *cobra.Command, a *app, start func() (*orchestrator.Session, error), downloadDir string, out common.CommandConfig) error {
	status := cmd.ErrOrStderr()

	var line string
	announced := make(chan struct{})
	sub := a.hub.Subscribe()
	go func() {
		defer close(announced)
		line = outcomeLine(sub)
	}()

	sess, err := start()
	if err != nil {
		a.hub.Unsubscribe(sub)
		<-announced
		return err
	}

	for u := range sess.Updates() {
		if u.Outcome == nil {
			fmt.Fprintf(status, "Generating documents... %d%% (poll %d, %s)\n", u.Progress, u.Attempt, u.Status)
		}
	}

	// Updates is closed only after the outcome has been published. Wait
	// reports the outcome's own error too; the switch below decides which
	// outcomes fail the command.
	<-sess.Done()
	result, _ := sess.Wait(context.WithoutCancel(cmd.Context()))
	a.hub.Unsubscribe(sub)
	<-announced
	if line != "" {
		fmt.Fprintln(status, line)
	}

	if result.Kind == orchestrator.KindDone && downloadDir != "" && result.Files != nil {
		saved, err := common.DownloadArtifacts(context.WithoutCancel(cmd.Context()), a.gateway,
			a.cfg.Backend.FilesOrigin, downloadDir, result.JobID, *result.Files)
		if err != nil {
			return fmt.Errorf("documents are ready but downloading them failed: %w", err)
		}
		for _, f := range saved {
			fmt.Fprintf(status, "Saved %s to %s\n", f.Kind, f.Path)
		}
	}

	if err := emit(cmd, a, out, result); err != nil {
		return err
	}

	switch result.Kind {
	case orchestrator.KindError, orchestrator.KindTimeout:
		return result.Err
	default:
		return nil
	}
}

var terminalEvents = map[string]bool{
	events.ApplyDone:      true,
	events.ApplyError:     true,
	events.ApplyCancelled: true,
	events.ApplyTimeout:   true,
}

// outcomeLine renders the first terminal event on sub
func outcomeLine(sub <-chan events.Event) string {
	for evt := range sub {
		if !terminalEvents[evt.Type] {
			continue
		}
		if outcome, ok := evt.Data.(orchestrator.Outcome); ok {
			return formatters.OutcomeLine(outcome)
		}
	}
	return ""
}
