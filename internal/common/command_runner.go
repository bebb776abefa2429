package common

import (
	"context"
	"io"

	"jobpilot/internal/errors"
)

// OperationFunc performs a backend operation and returns something to print.
type OperationFunc[Output any] func(context.Context) (Output, error)

// RunCommand runs op after validating the output settings, then formats the
// result the same way for every command.
func RunCommand[Output any](
	ctx context.Context,
	logger *errors.Logger,
	cmdConfig CommandConfig,
	supportedFormats []string,
	w io.Writer,
	op OperationFunc[Output],
) error {
	if err := ValidateOutputFormat(cmdConfig.OutputFormat, supportedFormats); err != nil {
		return err
	}

	outputHandler := NewOutputHandler(logger, w)
	if err := outputHandler.fileProcessor.ValidateOutputFile(cmdConfig.OutputFile); err != nil {
		return err
	}

	result, err := op(ctx)
	if err != nil {
		return err
	}

	return outputHandler.HandleOutput(result, cmdConfig)
}
