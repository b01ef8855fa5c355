package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/extract"
	"github.com/sreekeshm77/ATS-project/internal/utils"
)

// FileProcessor reads and writes the files a CLI command touches, with
// application-level error wrapping.
type FileProcessor struct {
	logger *errors.Logger
}

func NewFileProcessor(log *errors.Logger) *FileProcessor {
	return &FileProcessor{logger: log}
}

// ReadFile returns the file content as a string.
func (p *FileProcessor) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(name)
	switch {
	case os.IsNotExist(err):
		return "", errors.NewIOError(errors.ErrCodeFileNotFound, fmt.Sprintf("File not found: %s", name), err)
	case err != nil:
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable, fmt.Sprintf("Cannot read file: %s", name), err)
	}
	return string(data), nil
}

// ReadDocument reads a file, running PDF and DOCX documents through text
// extraction. Anything else is read verbatim.
func (p *FileProcessor) ReadDocument(name string) (string, error) {
	switch extract.KindFor(name, "") {
	case extract.KindPDF, extract.KindDOCX:
		text, err := extract.FromFile(name, extract.DefaultMaxTextChars)
		if err != nil {
			return "", err // Error already wrapped by extract
		}
		if p.logger != nil {
			p.logger.Debug("Extracted document text",
				"filename", name, "characters", len(text))
		}
		return text, nil
	default:
		return p.ReadFile(name)
	}
}

// WriteFile writes content to name, creating parent directories as
// needed.
func (p *FileProcessor) WriteFile(name, content string) error {
	if dir := filepath.Dir(name); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return errors.NewIOError("DIRECTORY_CREATE_FAILED", fmt.Sprintf("Cannot create directory: %s", dir), err)
		}
	}
	if err := os.WriteFile(name, []byte(content), 0600); err != nil {
		return errors.NewIOError("FILE_WRITE_FAILED", fmt.Sprintf("Cannot write file: %s", name), err)
	}
	return nil
}

// ValidateAndReadFiles checks each path against the input-file rules and
// returns the contents in argument order.
func (p *FileProcessor) ValidateAndReadFiles(paths ...string) ([]string, error) {
	contents := make([]string, 0, len(paths))
	for _, name := range paths {
		if err := utils.ValidateInputFile(name); err != nil {
			return nil, errors.NewValidationError("INVALID_INPUT_FILE", fmt.Sprintf("Invalid file %s", name), err)
		}
		content, err := p.ReadDocument(name)
		if err != nil {
			return nil, err
		}
		contents = append(contents, content)
	}
	return contents, nil
}

// ValidateOutputFile checks the output path. Empty means stdout and is
// always accepted.
func (p *FileProcessor) ValidateOutputFile(name string) error {
	if name == "" {
		return nil
	}
	if err := utils.ValidateOutputFile(name); err != nil {
		return errors.NewValidationError("INVALID_OUTPUT_FILE", fmt.Sprintf("Invalid output file: %s", name), err)
	}
	return nil
}
