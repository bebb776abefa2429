package cli

import (
	"context"
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/errors"
	"jobpilot/internal/types"

	"github.com/spf13/cobra"
)

func newProfileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Show or replace the candidate profile",
	}
	cmd.AddCommand(newProfileShowCmd(), newProfileSaveCmd())
	return cmd
}

func newProfileShowCmd() *cobra.Command {
	var out common.CommandConfig
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile held by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			return common.RunCommand(cmd.Context(), a.logger, out, a.cfg.App.SupportedFormats, cmd.OutOrStdout(),
				func(ctx context.Context) (*types.Profile, error) {
					p, err := a.client.StructuredProfile(ctx)
					if err != nil {
						return nil, err
					}
					if p == nil {
						return nil, errors.NewNotFoundError(errors.ErrCodeNotFound,
							"no profile on the server; run 'jobpilot analyze <cv>' first", nil)
					}
					return p, nil
				})
		},
	}
	addOutputFlags(cmd, &out)
	return cmd
}

func newProfileSaveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "save [profile-file]",
		Short: "Replace the profile with the contents of a JSON or YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			p, err := common.NewFileProcessor(a.logger).LoadProfileFile(args[0])
			if err != nil {
				return err
			}
			if err := a.client.SaveProfile(cmd.Context(), p); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
			a.logger.Info("Profile saved", "skills", len(p.Skills))
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Profile saved.")
			return err
		},
	}
	return cmd
}
