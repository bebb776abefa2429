package cli

import (
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/formatters"
	"jobpilot/internal/pipeline"

	"github.com/spf13/cobra"
)

type analyzeOptions struct {
	out      common.CommandConfig
	noMatch  bool
	location string
}

func newAnalyzeCmd() *cobra.Command {
	var opts analyzeOptions
	cmd := &cobra.Command{
		Use:   "analyze [cv-file]",
		Short: "Upload a CV and extract a candidate profile",
		Long: `Upload a CV (PDF, DOC or DOCX, up to 10 MiB) for analysis. The extracted
profile is shown, and unless --no-match is given a job search runs right after
the analysis and its matches are shown instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args[0], opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	cmd.Flags().BoolVar(&opts.noMatch, "no-match", false, "Stop after analysis without searching for jobs")
	cmd.Flags().StringVar(&opts.location, "location", "", "Location used for the job search (default from config)")
	return cmd
}

func runAnalyze(cmd *cobra.Command, path string, opts analyzeOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	cv, err := pipeline.ReadCVFile(path, a.cfg.Pipeline.MaxFileSize)
	if err != nil {
		return err
	}

	pcfg := a.cfg.Pipeline
	if opts.noMatch {
		pcfg.AutoMatch = false
	}
	ctrl := pipeline.NewController(a.client, pcfg,
		pipeline.WithHub(a.hub),
		pipeline.WithMetrics(a.obs.Metrics()),
		pipeline.WithLogger(a.logger),
	)
	if opts.location != "" {
		ctrl.SetLocation(opts.location)
	}

	a.logger.Info("Starting CV analysis",
		"file", cv.Name, "size", pipeline.FormatFileSize(cv.Size()), "output_format", opts.out.OutputFormat)

	if err := ctrl.Submit(cmd.Context(), cv); err != nil {
		return fmt.Errorf("failed to analyze CV: %w", err)
	}

	if ctrl.Step() == pipeline.StepResults {
		return emit(cmd, a, opts.out, formatters.NewMatchReport(ctrl.Matches(), a.cfg.Pipeline.MinScore))
	}
	if err := ctrl.LastError(); err != nil {
		a.logger.LogError(err, "Job search after analysis failed")
	}
	return emit(cmd, a, opts.out, ctrl.Profile())
}
