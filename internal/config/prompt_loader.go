package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
)

// promptFileRef names one file-backed prompt slot: where the path comes
// from and where the resolved text goes.
type promptFileRef struct {
	path      string
	target    *string
	kind      string // "system" or "user", prefixed for operation scopes
	operation string
}

func (c *Config) promptFileRefs() []promptFileRef {
	return []promptFileRef{
		{c.AI.CustomPrompts.SystemPrompts.AnalyzeResumeFile, &promptStore.Global.System, "system", "analyzeResume"},
		{c.AI.CustomPrompts.UserPrompts.AnalyzeResumeFile, &promptStore.Global.User, "user", "analyzeResume"},
		{c.AI.Analyze.CustomPrompts.SystemPrompts.AnalyzeResumeFile, &promptStore.Analyze.System, "analyze system", "analyzeResume"},
		{c.AI.Analyze.CustomPrompts.UserPrompts.AnalyzeResumeFile, &promptStore.Analyze.User, "analyze user", "analyzeResume"},
	}
}

// validatePromptFiles checks every configured prompt file reference up
// front so a bad path fails startup instead of the first request.
func (c *Config) validatePromptFiles() error {
	var problems []string

	for _, ref := range c.promptFileRefs() {
		if ref.path == "" {
			continue
		}
		abs, err := filepath.Abs(ref.path)
		if err != nil {
			problems = append(problems, fmt.Sprintf("invalid path for %s %s prompt: %s", ref.kind, ref.operation, ref.path))
			continue
		}
		if _, err := os.Stat(abs); os.IsNotExist(err) {
			problems = append(problems, fmt.Sprintf("%s %s prompt file missing: %s", ref.kind, ref.operation, abs))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(problems, "\n"))
	}
	return nil
}

// loadPromptsFromFiles reads every configured prompt file into the
// package-level prompt store.
func (c *Config) loadPromptsFromFiles() error {
	log.Println("[CONFIG] Loading custom prompts from files")

	promptStoreOnce.Do(func() { promptStore = resolvedPrompts{} })

	for _, ref := range c.promptFileRefs() {
		if ref.path == "" {
			continue
		}
		text, err := c.loadPromptFromFile(ref.path, ref.kind, ref.operation)
		if err != nil {
			return fmt.Errorf("failed to load %s %s prompt: %w", ref.kind, ref.operation, err)
		}
		*ref.target = text
	}

	c.logPromptSummary()
	return nil
}

// loadPromptFromFile reads one prompt file and rejects empty content.
func (c *Config) loadPromptFromFile(filePath, kind, operation string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path for %s %s prompt file '%s': %w", kind, operation, filePath, err)
	}

	if _, err := os.Stat(abs); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file missing: %s", kind, operation, abs)
	}

	raw, err := os.ReadFile(abs)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", kind, operation, abs, err)
	}

	text := strings.TrimSpace(string(raw))
	if text == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", kind, operation, abs)
	}

	log.Printf("[CONFIG] Loaded %s %s prompt from %s (%d characters)", kind, operation, abs, len(text))
	return text, nil
}

func (c *Config) logPromptSummary() {
	log.Println("[CONFIG] === Prompt Loading Summary ===")

	loaded := 0
	report := func(content, label string) {
		if content != "" {
			log.Printf("[CONFIG] %s: loaded from config/file", label)
			loaded++
		}
	}
	report(promptStore.Global.System, "Global system analyze prompt")
	report(promptStore.Global.User, "Global user analyze prompt")
	report(promptStore.Analyze.System, "Analyze-specific system prompt")
	report(promptStore.Analyze.User, "Analyze-specific user prompt")

	if loaded == 0 {
		log.Println("[CONFIG] No custom prompts configured, using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", loaded)
	}
	log.Println("[CONFIG] ==============================")
}
