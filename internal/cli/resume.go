package cli

import (
	"jobpilot/internal/common"
	"jobpilot/internal/formatters"
	"jobpilot/internal/recovery"

	"github.com/spf13/cobra"
)

type resumeOptions struct {
	out      common.CommandConfig
	accept   bool
	location string
}

func newResumeCmd() *cobra.Command {
	var opts resumeOptions
	cmd := &cobra.Command{
		Use:   "resume",
		Short: "Restore the previous session from the server",
		Long: `Restore the CV and profile stored on the server. If the previous search
left results, they are offered; pass --accept to show them. Without previous
results a new search is started automatically.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runResume(cmd, opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	cmd.Flags().BoolVar(&opts.accept, "accept", false, "Jump straight to the previous results when available")
	cmd.Flags().StringVar(&opts.location, "location", "", "Location used for the job search (default from config)")
	return cmd
}

func runResume(cmd *cobra.Command, opts resumeOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctrl := a.controller()
	rec := recovery.New(a.client, ctrl, a.logger)

	res, err := rec.Run(cmd.Context(), firstNonEmpty(opts.location, a.cfg.Pipeline.Location))
	if err != nil {
		return err
	}

	if opts.accept && len(res.Resumable) > 0 {
		if err := rec.ResumeLastSession(res); err != nil {
			return err
		}
		report := formatters.NewMatchReport(ctrl.Matches(), a.cfg.Pipeline.MinScore)
		report.Resumed = true
		return emit(cmd, a, opts.out, report)
	}
	if res.AutoSearched {
		return emit(cmd, a, opts.out, formatters.NewMatchReport(ctrl.Matches(), a.cfg.Pipeline.MinScore))
	}
	return emit(cmd, a, opts.out, res)
}
