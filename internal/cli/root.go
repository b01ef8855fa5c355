package cli

import (
	"context"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"

	"github.com/spf13/cobra"
)

// Context keys for the values Execute threads through to every subcommand.
type ctxKey int

const (
	ctxKeyConfig ctxKey = iota
	ctxKeyLogger
)

var rootCmd = &cobra.Command{
	Use:   "ats",
	Short: "AI-powered ATS resume analysis",
	Long: `ATS scores resumes the way applicant tracking systems do. It extracts
text from PDF, DOCX or TXT resumes, sends it to an AI model and reports an
overall 0-100 score with keyword, formatting and content breakdowns.

Run it as an HTTP analysis server (serve), submit a resume to a running
server from an interactive terminal UI (submit), or analyze a resume file
directly without a server (analyze).`,
}

// Execute attaches cfg and log to the command context and runs the CLI.
func Execute(ctx context.Context, cfg *config.Config, log *errors.Logger) error {
	ctx = context.WithValue(ctx, ctxKeyConfig, cfg)
	ctx = context.WithValue(ctx, ctxKeyLogger, log)
	return rootCmd.ExecuteContext(ctx)
}

func configFromContext(ctx context.Context) *config.Config {
	cfg, ok := ctx.Value(ctxKeyConfig).(*config.Config)
	if !ok {
		panic("config not found in context")
	}
	return cfg
}

func loggerFromContext(ctx context.Context) *errors.Logger {
	logger, ok := ctx.Value(ctxKeyLogger).(*errors.Logger)
	if !ok {
		panic("logger not found in context")
	}
	return logger
}

func init() {
	rootCmd.AddCommand(analyzeCmd, submitCmd, serveCmd, versionCmd)
}
