package cli

import (
	"context"
	"fmt"

	"github.com/sreekeshm77/ATS-project/internal/ai"
	"github.com/sreekeshm77/ATS-project/internal/common"
	"github.com/sreekeshm77/ATS-project/internal/types"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [resume-file] [job-description-file]",
	Short: "Analyze a resume for ATS compatibility",
	Long: `Analyze a resume the way an applicant tracking system would. The command
takes the path to a resume file (PDF, DOCX or plain text) and optionally the
path to a job description file to match keywords against.

The analysis includes:
- Overall ATS score (0-100) with narrative feedback
- Keyword coverage, with present and missing keywords
- Formatting and content quality scoring
- Strengths, areas for improvement and recommendations`,
	Args: cobra.RangeArgs(1, 2),
	PreRunE: func(cmd *cobra.Command, _ []string) error {
		cfg := configFromContext(cmd.Context())
		if analyzeOpts.OutputFormat == "" {
			analyzeOpts.OutputFormat = cfg.App.DefaultFormat
		}
		return common.ValidateOutputFormat(analyzeOpts.OutputFormat, cfg.App.SupportedFormats)
	},
	RunE: runAnalyze,
}

var analyzeOpts common.CommandConfig

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeOpts.OutputFile, "output", "o", "", "Output file path (default: stdout)")
	analyzeCmd.Flags().StringVar(&analyzeOpts.OutputFormat, "format", "", "Output format: json, text, or markdown")

	// Complete --format from the configured format list
	_ = analyzeCmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		cfg := configFromContext(cmd.Context())
		return cfg.App.SupportedFormats, cobra.ShellCompDirectiveNoFileComp
	})
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg := configFromContext(cmd.Context())
	logger := loggerFromContext(cmd.Context())

	aiCfg := cfg.GetAnalyzeConfig()
	svc, err := ai.NewService(&aiCfg, "analyze", logger)
	if err != nil {
		return fmt.Errorf("failed to initialize AI service: %w", err)
	}

	buildInput := func(contents []string) (types.AnalyzeResumeInput, error) {
		if len(contents) < 1 || len(contents) > 2 {
			return types.AnalyzeResumeInput{}, fmt.Errorf("expected 1 or 2 file paths, got %d", len(contents))
		}
		input := types.AnalyzeResumeInput{ResumeText: contents[0]}
		if len(contents) == 2 {
			input.JobDescription = contents[1]
		}
		return input, nil
	}

	announce := func(input types.AnalyzeResumeInput, opts common.CommandConfig) {
		logger.Info("Starting resume analysis", "resume_chars", len(input.ResumeText), "job_chars", len(input.JobDescription), "output_format", opts.OutputFormat)
	}

	runOp := func(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *ai.TokenUsage, error) {
		result, usage, err := svc.Provider.AnalyzeResume(ctx, input)
		if err != nil {
			return types.AnalysisResult{}, usage, err
		}
		return result.Sanitized(), usage, nil
	}

	if err := common.RunAICommand(cmd.Context(), logger, analyzeOpts, args, buildInput, runOp, announce); err != nil {
		return fmt.Errorf("failed to analyze resume: %w", err)
	}
	logger.Info("Resume analysis completed successfully")
	return nil
}
