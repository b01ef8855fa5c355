// Package intake validates candidate resume uploads before any bytes
// are submitted or parsed. The same rules run in the terminal client and
// again in the server handler, so a non-conforming client cannot push an
// unsupported document into the extraction pipeline.
package intake

import (
	"fmt"
	"slices"
	"strings"

	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/utils"
)

// MaxFileSize is the upload ceiling: 10 MiB.
const MaxFileSize int64 = 10 << 20

const (
	MIMETypePDF  = "application/pdf"
	MIMETypeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	MIMETypeText = "text/plain"
)

var allowedMIMETypes = []string{MIMETypePDF, MIMETypeDOCX, MIMETypeText}

var allowedExtensions = []string{".pdf", ".docx", ".txt"}

// FileMeta describes a candidate upload before any content is read
type FileMeta struct {
	Name string // Original filename
	MIME string // Declared content type, may be empty or carry parameters
	Size int64  // Size in bytes
}

// DisplaySize returns the size formatted for humans ("1.5 KB")
func (f FileMeta) DisplaySize() string {
	return utils.FormatSize(f.Size)
}

// normalizeMIME strips content-type parameters such as "; charset=utf-8"
func normalizeMIME(mime string) string {
	base, _, _ := strings.Cut(mime, ";")
	return strings.ToLower(strings.TrimSpace(base))
}

// MIMEForName maps a filename to the declared content type a conforming
// client would send for it. Unknown extensions map to empty.
func MIMEForName(name string) string {
	switch utils.FileExtension(name) {
	case ".pdf":
		return MIMETypePDF
	case ".docx":
		return MIMETypeDOCX
	case ".txt":
		return MIMETypeText
	default:
		return ""
	}
}

// Validate accepts a file only if its declared MIME type or its filename
// extension is on the allow-list AND it is non-empty and at most
// MaxFileSize bytes. The returned error carries a user-facing message.
func Validate(f FileMeta) error {
	if !typeAllowed(f) {
		return errors.NewValidationError(errors.ErrCodeUnsupportedType,
			"Unsupported file type. Please upload a PDF, DOCX, or TXT file.", nil)
	}

	if f.Size <= 0 {
		return errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"The selected file is empty.", nil).
			WithContext("file_name", f.Name)
	}

	if f.Size > MaxFileSize {
		return errors.NewValidationError(errors.ErrCodeFileTooLarge,
			fmt.Sprintf("File is too large (%s). Maximum size is %s.",
				f.DisplaySize(), utils.FormatSize(MaxFileSize)), nil).
			WithContext("file_name", f.Name).
			WithContext("file_size", f.Size)
	}

	return nil
}

func typeAllowed(f FileMeta) bool {
	if slices.Contains(allowedMIMETypes, normalizeMIME(f.MIME)) {
		return true
	}
	return slices.Contains(allowedExtensions, utils.FileExtension(f.Name))
}

// Selection holds the single pending upload slot. A failed Select leaves
// the previous selection in place, so a rejected pick never clobbers a
// valid one.
type Selection struct {
	pending *FileMeta
}

// Select validates the candidate and, on success, makes it the pending
// upload. On failure the prior selection is untouched.
func (s *Selection) Select(f FileMeta) error {
	if err := Validate(f); err != nil {
		return err
	}
	s.pending = &f
	return nil
}

// Clear removes the pending upload
func (s *Selection) Clear() {
	s.pending = nil
}

// Pending returns the current selection, if any
func (s *Selection) Pending() (FileMeta, bool) {
	if s.pending == nil {
		return FileMeta{}, false
	}
	return *s.pending, true
}
