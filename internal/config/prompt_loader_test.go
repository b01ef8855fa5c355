package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writePrompt drops a prompt file into dir and returns its path.
func writePrompt(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func analyzePromptConfig(systemFile, userFile string) *Config {
	return &Config{
		AI: AIConfig{
			Analyze: OperationAIConfig{
				CustomPrompts: PromptConfig{
					SystemPrompts: SystemPrompts{AnalyzeResumeFile: systemFile},
					UserPrompts:   UserPrompts{AnalyzeResumeFile: userFile},
				},
			},
		},
	}
}

func TestLoadPromptsFromFiles(t *testing.T) {
	dir := t.TempDir()
	systemFile := writePrompt(t, dir, "system.analyze.md", "You grade resumes against ATS rules.")
	userFile := writePrompt(t, dir, "user.analyze.md", "Resume:\n%s\nJob description:\n%s")

	cfg := analyzePromptConfig(systemFile, userFile)
	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles: %v", err)
	}

	got := PromptsForOperation("analyze")
	if got.System != "You grade resumes against ATS rules." {
		t.Errorf("system prompt = %q, want file content", got.System)
	}
	if got.User != "Resume:\n%s\nJob description:\n%s" {
		t.Errorf("user prompt = %q, want file content", got.User)
	}

	// The config tree keeps the paths; only the prompt store holds text.
	if cfg.AI.Analyze.CustomPrompts.SystemPrompts.AnalyzeResumeFile != systemFile {
		t.Error("system prompt path should stay on the config")
	}
	if cfg.AI.Analyze.CustomPrompts.UserPrompts.AnalyzeResumeFile != userFile {
		t.Error("user prompt path should stay on the config")
	}
}

func TestGlobalPromptFallback(t *testing.T) {
	dir := t.TempDir()
	systemFile := writePrompt(t, dir, "system.md", "Global system prompt")

	cfg := &Config{}
	cfg.AI.CustomPrompts.SystemPrompts.AnalyzeResumeFile = systemFile
	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles: %v", err)
	}

	// Operations without their own scope read the global one.
	got := PromptsForOperation("submit")
	if got.System != "Global system prompt" {
		t.Errorf("global fallback = %q, want %q", got.System, "Global system prompt")
	}
}

func TestValidatePromptFiles(t *testing.T) {
	dir := t.TempDir()
	valid := writePrompt(t, dir, "valid.md", "usable prompt")

	cfg := analyzePromptConfig(valid, "")
	if err := cfg.validatePromptFiles(); err != nil {
		t.Errorf("existing file should validate: %v", err)
	}

	cfg.AI.Analyze.CustomPrompts.SystemPrompts.AnalyzeResumeFile = filepath.Join(dir, "missing.md")
	if err := cfg.validatePromptFiles(); err == nil {
		t.Error("missing file should fail validation")
	}
}

func TestLoadPromptFromFile(t *testing.T) {
	dir := t.TempDir()
	cfg := &Config{}

	t.Run("reads and trims content", func(t *testing.T) {
		path := writePrompt(t, dir, "prompt.md", "  Score the resume.  \n")
		got, err := cfg.loadPromptFromFile(path, "system", "analyze")
		if err != nil {
			t.Fatalf("loadPromptFromFile: %v", err)
		}
		if got != "Score the resume." {
			t.Errorf("content = %q, want trimmed text", got)
		}
	})

	t.Run("rejects an empty file", func(t *testing.T) {
		path := writePrompt(t, dir, "empty.md", "")
		if _, err := cfg.loadPromptFromFile(path, "system", "analyze"); err == nil {
			t.Error("expected error for empty file")
		}
	})

	t.Run("rejects whitespace-only content", func(t *testing.T) {
		path := writePrompt(t, dir, "blank.md", "   \n\t\n")
		if _, err := cfg.loadPromptFromFile(path, "system", "analyze"); err == nil {
			t.Error("expected error for whitespace-only file")
		}
	})

	t.Run("rejects a missing file", func(t *testing.T) {
		if _, err := cfg.loadPromptFromFile(filepath.Join(dir, "missing.md"), "system", "analyze"); err == nil {
			t.Error("expected error for missing file")
		}
	})
}

func TestPromptFileIntegration(t *testing.T) {
	dir := t.TempDir()
	systemFile := writePrompt(t, dir, "system.md", "Focus on keyword coverage.")
	userFile := writePrompt(t, dir, "user.md", "Analyze:\n%s\nAgainst:\n%s")

	cfg := analyzePromptConfig(systemFile, userFile)
	cfg.AI.Provider = "gemini"
	cfg.AI.Model = "test-model"
	cfg.AI.Timeout = 60 * time.Second
	cfg.AI.APIKey = "test-key"
	cfg.AI.MaxRetries = 3
	cfg.AI.Temperature = 0.7
	cfg.App = AppConfig{
		LogLevel:         "info",
		DefaultFormat:    "json",
		SupportedFormats: []string{"json", "text", "markdown"},
		MaxFileSize:      1024 * 1024,
	}
	cfg.Server = ServerConfig{Host: "localhost", Port: "8080"}

	cfg.applyFallbacks()

	if err := cfg.validatePromptFiles(); err != nil {
		t.Fatalf("validatePromptFiles: %v", err)
	}
	if err := cfg.loadPromptsFromFiles(); err != nil {
		t.Fatalf("loadPromptsFromFiles: %v", err)
	}

	got := PromptsForOperation("analyze")
	if got.System != "Focus on keyword coverage." {
		t.Errorf("system prompt = %q", got.System)
	}
	if got.User != "Analyze:\n%s\nAgainst:\n%s" {
		t.Errorf("user prompt = %q", got.User)
	}
}
