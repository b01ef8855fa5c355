package config

import (
	"sync"
)

// Prompt content resolved from file: references lives here rather than in
// the Config tree, so the tree keeps the paths and this keeps the text.
var (
	promptStore     resolvedPrompts
	promptStoreOnce sync.Once
)

// PromptPair is the resolved system and user prompt text for one scope.
// Empty strings mean the scope has no file-loaded content and the caller
// should fall through to inline configuration or the built-in defaults.
type PromptPair struct {
	System string
	User   string
}

// resolvedPrompts collects the global scope plus every operation.
type resolvedPrompts struct {
	Global  PromptPair
	Analyze PromptPair
}

// PromptsForOperation returns the resolved prompts for the named
// operation, falling back to the global scope for unknown names.
func PromptsForOperation(op string) PromptPair {
	if op == "analyze" {
		return promptStore.Analyze
	}
	return promptStore.Global
}
