package common

import (
	"fmt"

	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/formatters"
)

// CommandConfig carries the output options shared by the file-based
// commands.
type CommandConfig struct {
	OutputFile   string
	OutputFormat string
}

// OutputHandler renders command results and delivers them to stdout or a
// file.
type OutputHandler struct {
	files    *FileProcessor
	registry *formatters.Registry
	logger   *errors.Logger
}

func NewOutputHandler(log *errors.Logger) *OutputHandler {
	return &OutputHandler{files: NewFileProcessor(log), registry: formatters.Default, logger: log}
}

// HandleOutput formats data and writes it to the destination named in
// cfg. An empty OutputFile means stdout.
func (oh *OutputHandler) HandleOutput(data any, cfg CommandConfig) error {
	if err := oh.files.ValidateOutputFile(cfg.OutputFile); err != nil {
		return err
	}

	output, err := oh.registry.Format(data, cfg.OutputFormat)
	if err != nil {
		return errors.NewValidationError(errors.ErrCodeInvalidFormat, fmt.Sprintf("Failed to format output as %s", cfg.OutputFormat), err)
	}

	if cfg.OutputFile == "" {
		fmt.Print(output)
		return nil
	}

	if err := oh.files.WriteFile(cfg.OutputFile, output); err != nil {
		return err
	}
	if oh.logger != nil {
		oh.logger.Info("Wrote formatted output", "file", cfg.OutputFile, "format", cfg.OutputFormat)
	}
	return nil
}
