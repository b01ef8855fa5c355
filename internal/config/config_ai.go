package config

// pick returns override unless it is empty.
func pick(override, global string) string {
	if override == "" {
		return global
	}
	return override
}

// pickPtr returns override unless it is nil.
func pickPtr[T any](override, global *T) *T {
	if override == nil {
		return global
	}
	return override
}

// applyOperationDefaults fills unset operation fields from the global AI
// block. Pointer fields stay untouched when the operation set them, even
// to a zero value.
func (c *Config) applyOperationDefaults(op *OperationAIConfig) {
	op.Provider = pick(op.Provider, c.AI.Provider)
	op.Model = pick(op.Model, c.AI.Model)
	op.APIKey = pick(op.APIKey, c.AI.APIKey)
	op.Timeout = pickPtr(op.Timeout, &c.AI.Timeout)
	op.MaxRetries = pickPtr(op.MaxRetries, &c.AI.MaxRetries)
	op.Temperature = pickPtr(op.Temperature, &c.AI.Temperature)
	op.UseSystemPrompts = pickPtr(op.UseSystemPrompts, &c.AI.UseSystemPrompts)
}

// GetAnalyzeConfig resolves the effective AI settings for the analyze
// operation, inheriting anything unset from the global AI block. Prompt
// file references inherit too so late loading still finds them.
func (c *Config) GetAnalyzeConfig() OperationAIConfig {
	op := c.AI.Analyze
	c.applyOperationDefaults(&op)

	sys := &op.CustomPrompts.SystemPrompts
	sys.AnalyzeResume = pick(sys.AnalyzeResume, c.AI.CustomPrompts.SystemPrompts.AnalyzeResume)
	sys.AnalyzeResumeFile = pick(sys.AnalyzeResumeFile, c.AI.CustomPrompts.SystemPrompts.AnalyzeResumeFile)

	usr := &op.CustomPrompts.UserPrompts
	usr.AnalyzeResume = pick(usr.AnalyzeResume, c.AI.CustomPrompts.UserPrompts.AnalyzeResume)
	usr.AnalyzeResumeFile = pick(usr.AnalyzeResumeFile, c.AI.CustomPrompts.UserPrompts.AnalyzeResumeFile)

	return op
}
