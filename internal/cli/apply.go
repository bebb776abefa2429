package cli

import (
	"jobpilot/internal/common"
	"jobpilot/internal/orchestrator"

	"github.com/spf13/cobra"
)

type applyOptions struct {
	out         common.CommandConfig
	job         jobSelector
	downloadDir string
}

func newApplyCmd() *cobra.Command {
	var opts applyOptions
	cmd := &cobra.Command{
		Use:   "apply",
		Short: "Generate application documents for a job",
		Long: `Start document generation for a job and follow it until the documents are
ready, generation fails, or polling gives up. Press Ctrl-C to cancel; the server
is told to stop the job.

Only one generation can run at a time from the same data directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runApply(cmd, opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	opts.job.register(cmd)
	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "", "Save generated documents here (default from config)")
	return cmd
}

func runApply(cmd *cobra.Command, opts applyOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	lock, err := common.AcquireApplyLock(a.cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	req, err := opts.job.request(cmd.Context(), a)
	if err != nil {
		return err
	}

	a.logger.Info("Starting application",
		"job", req.Job.ID, "title", req.Job.Title, "template", string(req.Template))

	start := func() (*orchestrator.Session, error) { return a.orch.Apply(cmd.Context(), req), nil }
	return followSession(cmd, a, start, firstNonEmpty(opts.downloadDir, a.cfg.Apply.DownloadDir), opts.out)
}
