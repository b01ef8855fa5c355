package common

import (
	"context"
	"fmt"
	"os"

	"github.com/sreekeshm77/ATS-project/internal/ai"
	"github.com/sreekeshm77/ATS-project/internal/errors"
)

// CreateInputFunc builds an operation input from the file contents read off
// the command line, in argument order.
type CreateInputFunc[In any] func(contents []string) (In, error)

// LogDetailsFunc announces the operation before it runs.
type LogDetailsFunc[In any] func(input In, cfg CommandConfig)

// AIOperationFunc runs the AI call itself and reports token usage.
type AIOperationFunc[In, Out any] func(context.Context, In) (Out, *ai.TokenUsage, error)

// RunAICommand drives a file-based AI command end to end: read and validate
// the input files, build the operation input, run the AI operation and write
// the result in the requested format.
func RunAICommand[In, Out any](
	ctx context.Context,
	logger *errors.Logger,
	cfg CommandConfig,
	args []string,
	buildInput CreateInputFunc[In],
	run AIOperationFunc[In, Out],
	announce LogDetailsFunc[In],
) error {
	contents, err := NewFileProcessor(logger).ValidateAndReadFiles(args...)
	if err != nil {
		return err
	}

	input, err := buildInput(contents)
	if err != nil {
		return fmt.Errorf("failed to build input from file contents: %w", err)
	}
	announce(input, cfg)

	result, tokenUsage, err := run(ctx, input)
	if err != nil {
		return err
	}
	reportTokenUsage(logger, tokenUsage)

	return NewOutputHandler(logger).HandleOutput(result, cfg)
}

func reportTokenUsage(logger *errors.Logger, usage *ai.TokenUsage) {
	if usage == nil {
		return
	}
	if logger == nil {
		fmt.Fprintf(os.Stderr, "AI token usage: input=%d, output=%d, total=%d\n",
			usage.InputTokens, usage.OutputTokens, usage.TotalTokens)
		return
	}
	logger.Info("AI token usage",
		"input_tokens", usage.InputTokens,
		"output_tokens", usage.OutputTokens,
		"total_tokens", usage.TotalTokens)
}
