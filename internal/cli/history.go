package cli

import (
	"context"
	"fmt"
	"slices"

	"jobpilot/internal/common"
	"jobpilot/internal/errors"
	"jobpilot/internal/orchestrator"
	"jobpilot/internal/store"

	"github.com/spf13/cobra"
)

type historyOptions struct {
	out     common.CommandConfig
	outcome string
	limit   int
}

var outcomeKinds = []string{
	string(orchestrator.KindDone),
	string(orchestrator.KindError),
	string(orchestrator.KindCancelled),
	string(orchestrator.KindTimeout),
}

func newHistoryCmd() *cobra.Command {
	var opts historyOptions
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List past applications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.outcome != "" && !slices.Contains(outcomeKinds, opts.outcome) {
				return errors.NewValidationError(errors.ErrCodeInvalidRequest,
					fmt.Sprintf("unknown outcome '%s' (must be one of %v)", opts.outcome, outcomeKinds), nil)
			}

			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return common.RunCommand(cmd.Context(), a.logger, opts.out, a.cfg.App.SupportedFormats, cmd.OutOrStdout(),
				func(ctx context.Context) ([]store.Entry, error) {
					return a.history.List(ctx, store.ListOpts{Outcome: opts.outcome, Limit: opts.limit})
				})
		},
	}
	addOutputFlags(cmd, &opts.out)
	cmd.Flags().StringVar(&opts.outcome, "outcome", "", "Only show done, error, cancelled or timeout entries")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Maximum number of entries")
	_ = cmd.RegisterFlagCompletionFunc("outcome", cobra.FixedCompletions(outcomeKinds, cobra.ShellCompDirectiveNoFileComp))
	return cmd
}
