package common

import (
	"os"
	"path/filepath"
	"testing"
)

func TestReadDocumentPlainText(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "resume.txt")
	content := "John Doe\nSoftware Engineer\n"

	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	fp := NewFileProcessor(nil)
	got, err := fp.ReadDocument(path)
	if err != nil {
		t.Fatalf("ReadDocument failed: %v", err)
	}
	if got != content {
		t.Errorf("Expected content %q, got %q", content, got)
	}
}

func TestReadDocumentMissingFile(t *testing.T) {
	fp := NewFileProcessor(nil)
	_, err := fp.ReadDocument(filepath.Join(t.TempDir(), "nope.txt"))
	if err == nil {
		t.Error("Expected error for missing file")
	}
}

func TestReadDocumentCorruptPDF(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "resume.pdf")

	if err := os.WriteFile(path, []byte("not a real pdf"), 0600); err != nil {
		t.Fatalf("Failed to write test file: %v", err)
	}

	fp := NewFileProcessor(nil)
	if _, err := fp.ReadDocument(path); err == nil {
		t.Error("Expected extraction error for corrupt PDF")
	}
}

func TestWriteFileCreatesDirectories(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "out", "report.json")

	fp := NewFileProcessor(nil)
	if err := fp.WriteFile(path, `{"ats_score":90}`); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read written file: %v", err)
	}
	if string(data) != `{"ats_score":90}` {
		t.Errorf("Unexpected file content: %s", data)
	}
}
