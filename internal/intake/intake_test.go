package intake

import (
	"strings"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		file        FileMeta
		expectError bool
		errContains string
	}{
		{
			name: "pdf by mime type",
			file: FileMeta{Name: "resume.bin", MIME: "application/pdf", Size: 2048},
		},
		{
			name: "docx by mime type",
			file: FileMeta{Name: "resume", MIME: MIMETypeDOCX, Size: 2048},
		},
		{
			name: "plain text with charset parameter",
			file: FileMeta{Name: "resume", MIME: "text/plain; charset=utf-8", Size: 100},
		},
		{
			name: "extension fallback when mime missing",
			file: FileMeta{Name: "resume.docx", MIME: "", Size: 4096},
		},
		{
			name: "extension fallback when mime generic",
			file: FileMeta{Name: "resume.pdf", MIME: "application/octet-stream", Size: 4096},
		},
		{
			name: "uppercase extension accepted",
			file: FileMeta{Name: "RESUME.TXT", MIME: "", Size: 10},
		},
		{
			name:        "disallowed type rejected",
			file:        FileMeta{Name: "resume.png", MIME: "image/png", Size: 2048},
			expectError: true,
			errContains: "Unsupported file type",
		},
		{
			name:        "doc is not docx",
			file:        FileMeta{Name: "resume.doc", MIME: "application/msword", Size: 2048},
			expectError: true,
			errContains: "Unsupported file type",
		},
		{
			name: "exactly at the size ceiling",
			file: FileMeta{Name: "resume.pdf", MIME: MIMETypePDF, Size: MaxFileSize},
		},
		{
			name:        "one byte over the ceiling",
			file:        FileMeta{Name: "resume.pdf", MIME: MIMETypePDF, Size: MaxFileSize + 1},
			expectError: true,
			errContains: "too large",
		},
		{
			name:        "empty file rejected",
			file:        FileMeta{Name: "resume.txt", MIME: MIMETypeText, Size: 0},
			expectError: true,
			errContains: "empty",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.file)
			if tt.expectError {
				if err == nil {
					t.Fatal("Expected error but got none")
				}
				if !strings.Contains(err.Error(), tt.errContains) {
					t.Errorf("Expected error containing %q, got %q", tt.errContains, err.Error())
				}
				return
			}
			if err != nil {
				t.Errorf("Expected no error but got: %v", err)
			}
		})
	}
}

func TestSelectionKeepsPriorOnRejection(t *testing.T) {
	var sel Selection

	good := FileMeta{Name: "resume.pdf", MIME: MIMETypePDF, Size: 2048}
	if err := sel.Select(good); err != nil {
		t.Fatalf("Select(valid) failed: %v", err)
	}

	bad := FileMeta{Name: "photo.png", MIME: "image/png", Size: 1024}
	if err := sel.Select(bad); err == nil {
		t.Fatal("Expected rejection for disallowed type")
	}

	pending, ok := sel.Pending()
	if !ok {
		t.Fatal("Pending selection lost after rejected pick")
	}
	if pending.Name != good.Name {
		t.Errorf("Pending selection changed: got %q, want %q", pending.Name, good.Name)
	}
}

func TestSelectionReplaceAndClear(t *testing.T) {
	var sel Selection

	if _, ok := sel.Pending(); ok {
		t.Fatal("New selection should start empty")
	}

	first := FileMeta{Name: "first.txt", MIME: MIMETypeText, Size: 10}
	second := FileMeta{Name: "second.txt", MIME: MIMETypeText, Size: 20}

	if err := sel.Select(first); err != nil {
		t.Fatalf("Select(first) failed: %v", err)
	}
	if err := sel.Select(second); err != nil {
		t.Fatalf("Select(second) failed: %v", err)
	}

	pending, _ := sel.Pending()
	if pending.Name != "second.txt" {
		t.Errorf("Expected replacement selection, got %q", pending.Name)
	}

	sel.Clear()
	if _, ok := sel.Pending(); ok {
		t.Error("Selection should be empty after Clear")
	}
}

func TestMIMEForName(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{name: "pdf", filename: "cv.pdf", expected: MIMETypePDF},
		{name: "docx", filename: "cv.docx", expected: MIMETypeDOCX},
		{name: "txt", filename: "cv.txt", expected: MIMETypeText},
		{name: "unknown", filename: "cv.odt", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MIMEForName(tt.filename); got != tt.expected {
				t.Errorf("MIMEForName(%q) = %q, want %q", tt.filename, got, tt.expected)
			}
		})
	}
}
