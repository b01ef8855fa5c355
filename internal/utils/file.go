package utils

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ValidateInputFile checks that name names an existing, readable
// regular file.
func ValidateInputFile(name string) error {
	if name == "" {
		return fmt.Errorf("no name given")
	}

	fi, err := os.Stat(name)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("file does not exist: %s", name)
	case err != nil:
		return fmt.Errorf("stat %s: %w", name, err)
	case fi.IsDir():
		return fmt.Errorf("%s is a directory, expected a file", name)
	}

	// Probe readability before handing the path to a reader.
	f, err := os.Open(name)
	if err != nil {
		return fmt.Errorf("file %s is not readable: %w", name, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", name, err)
	}
	return nil
}

// ValidateOutputFile prepares the output path, creating the parent
// directory when it does not exist yet. Empty means stdout.
func ValidateOutputFile(name string) error {
	if name == "" {
		return nil
	}
	parent := filepath.Dir(name)
	if parent == "." {
		return nil
	}
	if _, err := os.Stat(parent); os.IsNotExist(err) {
		if err := os.MkdirAll(parent, 0750); err != nil {
			return fmt.Errorf("cannot create directory %s: %w", parent, err)
		}
	}
	return nil
}

// FileExtension returns the extension of name lowercased.
func FileExtension(name string) string {
	return strings.ToLower(filepath.Ext(name))
}

var sizeUnits = []string{"Bytes", "KB", "MB", "GB", "TB"}

// FormatSize returns a human-readable byte count in binary units
// (1024 scale). Values are rounded to two decimals with trailing zeros
// trimmed, so 1536 bytes renders as "1.5 KB" and 1024 as "1 KB".
func FormatSize(size int64) string {
	if size <= 0 {
		return "0 Bytes"
	}

	value := float64(size)
	exp := 0
	for value >= 1024 && exp < len(sizeUnits)-1 {
		value /= 1024
		exp++
	}

	rounded := math.Round(value*100) / 100
	return strconv.FormatFloat(rounded, 'f', -1, 64) + " " + sizeUnits[exp]
}
