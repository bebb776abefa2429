package cli

import (
	"context"
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/formatters"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/types"

	"github.com/spf13/cobra"
)

type statusOptions struct {
	out         common.CommandConfig
	wait        bool
	downloadDir string
}

func newStatusCmd() *cobra.Command {
	var opts statusOptions
	cmd := &cobra.Command{
		Use:   "status [job-id]",
		Short: "Check a document generation job",
		Long: `Check the status of a generation job once, or with --wait keep polling it
until it ends, the same way 'jobpilot apply' does.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd, args[0], opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	cmd.Flags().BoolVar(&opts.wait, "wait", false, "Keep polling until the job ends")
	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "", "Save generated documents here when --wait ends with documents")
	return cmd
}

func runStatus(cmd *cobra.Command, jobID string, opts statusOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	if opts.wait {
		start := func() (*orchestrator.Session, error) { return a.orch.Track(cmd.Context(), jobID), nil }
		return followSession(cmd, a, start, opts.downloadDir, opts.out)
	}

	return common.RunCommand(cmd.Context(), a.logger, opts.out, a.cfg.App.SupportedFormats, cmd.OutOrStdout(),
		func(ctx context.Context) (formatters.StatusReport, error) {
			st, err := a.client.ApplicationStatus(ctx, jobID)
			if err != nil {
				return formatters.StatusReport{}, err
			}
			report := formatters.StatusReport{JobID: jobID, Status: st}
			if st.Status == types.StatusDone && st.Files != nil {
				report.Links = make(map[string]string)
				for kind, rel := range st.Files.Paths() {
					link, err := types.URL(a.cfg.Backend.FilesOrigin, rel)
					if err != nil {
						return formatters.StatusReport{}, fmt.Errorf("cannot build link for %s: %w", kind, err)
					}
					report.Links[kind] = link
				}
			}
			return report, nil
		})
}

func newCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel [job-id]",
		Short: "Ask the server to stop a generation job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.client.CancelApplication(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to cancel job %s: %w", args[0], err)
			}
			a.logger.Info("Cancellation requested", "job_id", args[0])
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Cancellation requested for job %s\n", args[0])
			return err
		},
	}
}
