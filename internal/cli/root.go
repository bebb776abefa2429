package cli

import (
	"context"
	"fmt"

	"jobpilot/internal/common"
	"jobpilot/internal/config"
	"jobpilot/internal/errors"

	"github.com/spf13/cobra"
)

// Define custom private types for context keys.
type configKeyType struct{}
type loggerKeyType struct{}

// Use variables of these types as the keys.
var configKey = configKeyType{}
var loggerKey = loggerKeyType{}

// NewRootCommand builds the full command tree
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "jobpilot",
		Short: "A CLI client for CV analysis, job matching and application generation",
		Long: `jobpilot uploads your CV for analysis, finds matching job postings,
previews tailored applications and follows document generation to the end.

A typical session:
  jobpilot analyze cv.pdf
  jobpilot matches --min-score 70
  jobpilot preview --match-id 42
  jobpilot apply --match-id 42 --download-dir ./out`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(
		newAnalyzeCmd(),
		newMatchesCmd(),
		newResumeCmd(),
		newProfileCmd(),
		newPreviewCmd(),
		newApplyCmd(),
		newStatusCmd(),
		newCancelCmd(),
		newHistoryCmd(),
		newWatchCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// Execute runs the command line with cfg and logger available to every command
func Execute(ctx context.Context, cfg *config.Config, logger *errors.Logger, args []string) error {
	// Attach the config and logger to the context, making them available to all subcommands
	ctx = context.WithValue(ctx, configKey, cfg)
	ctx = context.WithValue(ctx, loggerKey, logger)

	rootCmd := NewRootCommand()
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(ctx)
}

// getConfigFromContext is a helper function to get config from context
func getConfigFromContext(ctx context.Context) (*config.Config, error) {
	if cfg, ok := ctx.Value(configKey).(*config.Config); ok && cfg != nil {
		return cfg, nil
	}
	return nil, errors.NewInternalError("NO_CONFIG", "config not found in context", nil)
}

// getLoggerFromContext is a helper function to get logger from context
func getLoggerFromContext(ctx context.Context) (*errors.Logger, error) {
	if logger, ok := ctx.Value(loggerKey).(*errors.Logger); ok {
		return logger, nil
	}
	return nil, errors.NewInternalError("NO_LOGGER", "logger not found in context", nil)
}

// addOutputFlags registers --output and --format and resolves the default
// format before the command runs
func addOutputFlags(cmd *cobra.Command, out *common.CommandConfig) {
	cmd.Flags().StringVarP(&out.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&out.OutputFormat, "format", "", "Output format: json, yaml, text, or markdown")

	// Add completion for format flag
	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return []string{}, cobra.ShellCompDirectiveError
		}
		return common.GetSupportedFormats(cfg.App.SupportedFormats), cobra.ShellCompDirectiveNoFileComp
	})

	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := getConfigFromContext(cmd.Context())
		if err != nil {
			return err
		}
		// Apply default format if not specified
		if out.OutputFormat == "" {
			out.OutputFormat = cfg.App.DefaultFormat
		}
		// Validate format against supported formats
		return common.ValidateOutputFormat(out.OutputFormat, cfg.App.SupportedFormats)
	}
}

// emit formats data through the registry to the command's output
func emit(cmd *cobra.Command, a *app, out common.CommandConfig, data any) error {
	if err := common.NewOutputHandler(a.logger, cmd.OutOrStdout()).HandleOutput(data, out); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
