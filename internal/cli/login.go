package cli

import (
	"bufio"
	"fmt"
	"strings"

	"jobpilot/internal/auth"
	"jobpilot/internal/errors"

	"github.com/spf13/cobra"
)

func newLoginCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Store the API token in the OS keyring",
		Long: `Store the API token in the OS keyring so that auth.source=keyring can use it.
The token is read from --token or, when omitted, from the first line of stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			logger, err := getLoggerFromContext(cmd.Context())
			if err != nil {
				return err
			}

			if token == "" {
				fmt.Fprint(cmd.ErrOrStderr(), "API token: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.NewValidationError(errors.ErrCodeMissingCredential, "no token given", err)
				}
				token = line
			}
			token = strings.TrimSpace(token)
			if token == "" {
				return errors.NewValidationError(errors.ErrCodeMissingCredential, "no token given", nil)
			}

			kr := auth.KeyringFor(cfg.Auth)
			if err := kr.Store(token); err != nil {
				return err
			}
			logger.Info("Token stored in keyring", "service", kr.Service, "account", kr.Account)
			if cfg.Auth.Source != "keyring" {
				fmt.Fprintln(cmd.ErrOrStderr(), "Note: set auth.source to keyring to use the stored token.")
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return err
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "API token (read from stdin when omitted)")
	return cmd
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Remove the API token from the OS keyring",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := auth.KeyringFor(cfg.Auth).Remove(); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return err
		},
	}
}
