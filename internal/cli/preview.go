package cli

import (
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/formatters"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/preview"

	"github.com/spf13/cobra"
)

type previewOptions struct {
	out         common.CommandConfig
	job         jobSelector
	confirm     bool
	downloadDir string
}

func newPreviewCmd() *cobra.Command {
	var opts previewOptions
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the tailored CV and cover letter for a job",
		Long: `Render the tailored CV and cover letter for a job without starting document
generation. With --confirm, generation starts for exactly the previewed request
and is followed to the end, as with 'jobpilot apply'.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPreview(cmd, opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	opts.job.register(cmd)
	cmd.Flags().BoolVar(&opts.confirm, "confirm", false, "Start generation for the previewed request")
	cmd.Flags().StringVar(&opts.downloadDir, "download-dir", "", "Save generated documents here after --confirm (default from config)")
	return cmd
}

func runPreview(cmd *cobra.Command, opts previewOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	req, err := opts.job.request(ctx, a)
	if err != nil {
		return err
	}

	coord := preview.NewCoordinator(a.client, a.orch, a.logger)
	defer coord.Close()

	pending, err := coord.Preview(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to preview application: %w", err)
	}

	report := formatters.PreviewReport{Request: pending.Request, ATS: pending.Result.ATS}
	if report.CVText, err = preview.RenderText(pending.Result.CVHTML); err != nil {
		return err
	}
	if report.CoverLetterText, err = preview.RenderText(pending.Result.CoverLetterHTML); err != nil {
		return err
	}
	if err := emit(cmd, a, opts.out, report); err != nil {
		return err
	}

	if !opts.confirm {
		return nil
	}

	lock, err := common.AcquireApplyLock(a.cfg.LockPath())
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	start := func() (*orchestrator.Session, error) { return coord.Confirm(ctx) }
	return followSession(cmd, a, start, firstNonEmpty(opts.downloadDir, a.cfg.Apply.DownloadDir), opts.out)
}
