package cli

import (
	"context"
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/errors"
	"jobpilot/internal/formatters"
	"jobpilot/internal/types"

	"github.com/spf13/cobra"
)

type matchesOptions struct {
	out      common.CommandConfig
	last     bool
	minScore float64
	location string
}

func newMatchesCmd() *cobra.Command {
	var opts matchesOptions
	cmd := &cobra.Command{
		Use:   "matches",
		Short: "Search for jobs matching the stored profile",
		Long: `Search for job postings matching the profile held by the server.
With --last the previous search results are shown without searching again.
--min-score hides matches scoring below the threshold (0-100).`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMatches(cmd, opts)
		},
	}
	addOutputFlags(cmd, &opts.out)
	cmd.Flags().BoolVar(&opts.last, "last", false, "Show the results of the previous search")
	cmd.Flags().Float64Var(&opts.minScore, "min-score", -1, "Only show matches scoring at least this much (default from config)")
	cmd.Flags().StringVar(&opts.location, "location", "", "Location used for the job search (default from config)")
	return cmd
}

func runMatches(cmd *cobra.Command, opts matchesOptions) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	minScore := opts.minScore
	if minScore < 0 {
		minScore = a.cfg.Pipeline.MinScore
	}
	if err := common.ValidateMinScore(minScore); err != nil {
		return err
	}
	location := firstNonEmpty(opts.location, a.cfg.Pipeline.Location)

	return common.RunCommand(cmd.Context(), a.logger, opts.out, a.cfg.App.SupportedFormats, cmd.OutOrStdout(),
		func(ctx context.Context) (formatters.MatchReport, error) {
			matches, err := searchMatches(ctx, a, location, opts.last)
			if err != nil {
				return formatters.MatchReport{}, err
			}
			report := formatters.NewMatchReport(matches, minScore)
			report.Resumed = opts.last
			return report, nil
		})
}

// searchMatches returns the previous results, or runs a new search from the
// profile the server holds
func searchMatches(ctx context.Context, a *app, location string, last bool) ([]types.MatchedJob, error) {
	if last {
		return a.client.LastMatches(ctx, location)
	}

	profile, err := a.client.StructuredProfile(ctx)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.NewNotFoundError(errors.ErrCodeNotFound,
			"no profile on the server; run 'jobpilot analyze <cv>' first", nil)
	}

	ctrl := a.controller()
	if err := ctrl.Hydrate(profile); err != nil {
		return nil, err
	}
	ctrl.SetLocation(location)
	if err := ctrl.FindMatches(ctx); err != nil {
		return nil, fmt.Errorf("job search failed: %w", err)
	}
	return ctrl.Matches(), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
