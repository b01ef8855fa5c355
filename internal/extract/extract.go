// Package extract turns uploaded resume documents into plain UTF-8 text.
// Supported formats are PDF, DOCX and plain text; detection prefers the
// declared MIME type and falls back to the filename extension.
package extract

import (
	"bytes"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"

	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/intake"
	"github.com/sreekeshm77/ATS-project/internal/utils"
)

// DefaultMaxTextChars caps how much extracted text is forwarded to the
// model. Resumes are short; anything beyond this is almost always
// embedded junk from the source document.
const DefaultMaxTextChars = 15000

// Kind identifies a supported document format
type Kind string

const (
	KindPDF     Kind = "pdf"
	KindDOCX    Kind = "docx"
	KindText    Kind = "txt"
	KindUnknown Kind = ""
)

// KindFor resolves the document format from the declared MIME type,
// falling back to the filename extension
func KindFor(name, mime string) Kind {
	base, _, _ := strings.Cut(mime, ";")
	switch strings.ToLower(strings.TrimSpace(base)) {
	case intake.MIMETypePDF:
		return KindPDF
	case intake.MIMETypeDOCX:
		return KindDOCX
	case intake.MIMETypeText:
		return KindText
	}

	switch utils.FileExtension(name) {
	case ".pdf":
		return KindPDF
	case ".docx":
		return KindDOCX
	case ".txt":
		return KindText
	}
	return KindUnknown
}

// Text extracts plain text from an in-memory document. The result is
// sanitized to valid UTF-8, whitespace-normalized and capped at maxChars
// (DefaultMaxTextChars when maxChars <= 0).
func Text(name, mime string, data []byte, maxChars int) (string, error) {
	if maxChars <= 0 {
		maxChars = DefaultMaxTextChars
	}

	var (
		text string
		err  error
	)
	switch kind := KindFor(name, mime); kind {
	case KindPDF:
		text, err = pdfText(data)
	case KindDOCX:
		text, err = docxText(data)
	case KindText:
		text = string(data)
	default:
		return "", errors.NewValidationError(errors.ErrCodeUnsupportedType,
			"Unsupported file type. Please upload a PDF, DOCX, or TXT file.", nil).
			WithContext("file_name", name)
	}
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeExtractionFailed,
			fmt.Sprintf("Could not extract text from %s", name), err)
	}

	text = truncate(sanitize(text), maxChars)
	if text == "" {
		return "", errors.NewValidationError(errors.ErrCodeEmptyDocument,
			"Could not extract text from the file. The document appears to be empty.", nil).
			WithContext("file_name", name)
	}
	return text, nil
}

// FromFile extracts text from a document on disk, enforcing the intake
// size ceiling before any bytes are read
func FromFile(path string, maxChars int) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("Cannot access file: %s", path), err)
	}

	meta := intake.FileMeta{
		Name: filepath.Base(path),
		MIME: intake.MIMEForName(path),
		Size: info.Size(),
	}
	if err := intake.Validate(meta); err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}

	return Text(meta.Name, meta.MIME, data, maxChars)
}

func pdfText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var b strings.Builder
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			// A single unreadable page should not sink the document
			continue
		}
		b.WriteString(text)
		b.WriteString("\n\n")
	}
	return b.String(), nil
}

func docxText(data []byte) (string, error) {
	doc, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to parse docx: %w", err)
	}
	defer func() { _ = doc.Close() }()

	return stripXMLTags(doc.Editable().GetContent()), nil
}

// stripXMLTags removes markup from raw document.xml content, inserting
// newlines at paragraph boundaries so section structure survives
func stripXMLTags(content string) string {
	content = strings.ReplaceAll(content, "</w:p>", "\n")
	var b strings.Builder
	inTag := false
	for _, r := range content {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			b.WriteRune(r)
		}
	}
	return html.UnescapeString(b.String())
}

// sanitize makes extracted text safe for downstream JSON payloads:
// invalid UTF-8 and NUL bytes are dropped, blank lines collapsed
func sanitize(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", "")

	var lines []string
	for line := range strings.SplitSeq(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

// truncate cuts text at maxChars bytes without splitting a rune
func truncate(text string, maxChars int) string {
	if len(text) <= maxChars {
		return text
	}
	cut := text[:maxChars]
	for len(cut) > 0 && !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
