package cli

import (
	"context"

	"jobpilot/internal/common"
	"jobpilot/internal/formatters"
	"jobpilot/internal/pipeline"
	"jobpilot/internal/watcher"

	"github.com/spf13/cobra"
)

type watchOptions struct {
	out      common.CommandConfig
	location string
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch [dir]",
		Short: "Analyze every CV dropped into a folder",
		Long: `Watch a folder and submit each PDF, DOC or DOCX file written to it for
analysis, followed by a job search. Runs until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd, args[0], opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	cmd.Flags().StringVar(&opts.location, "location", "", "Location used for the job search (default from config)")
	return cmd
}

func runWatch(cmd *cobra.Command, dir string, opts watchOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	handler := func(ctx context.Context, path string) error {
		cv, err := pipeline.ReadCVFile(path, a.cfg.Pipeline.MaxFileSize)
		if err != nil {
			return err
		}

		// Each file starts a fresh pipeline
		ctrl := a.controller()
		ctrl.SetLocation(firstNonEmpty(opts.location, a.cfg.Pipeline.Location))
		if err := ctrl.Submit(ctx, cv); err != nil {
			return err
		}
		if ctrl.Step() == pipeline.StepResults {
			return emit(cmd, a, opts.out, formatters.NewMatchReport(ctrl.Matches(), a.cfg.Pipeline.MinScore))
		}
		return emit(cmd, a, opts.out, ctrl.Profile())
	}

	fw, err := watcher.NewFolderWatcher(dir, a.cfg.Pipeline.WatchDebounce, pipeline.IsCVCandidate, handler, a.logger)
	if err != nil {
		return err
	}

	a.logger.Info("Watching folder for CVs", "dir", dir)
	return fw.Run(cmd.Context())
}
