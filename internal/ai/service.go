package ai

import (
	"context"
	"fmt"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
)

// Service owns the AI provider for one operation.
type Service struct {
	// Provider is exported so the HTTP layer can reach provider-specific
	// surfaces like breaker stats.
	Provider AIProvider
	cfg      *config.OperationAIConfig
	log      *errors.Logger
}

// NewService builds the provider named by the operation's configuration.
// The config must already have fallbacks applied, so every pointer field
// is set.
func NewService(cfg *config.OperationAIConfig, op string, log *errors.Logger) (*Service, error) {
	if log != nil {
		log.Debug("Initializing AI service",
			"provider", cfg.Provider, "operation_type", op, "model", cfg.Model,
			"temperature", *cfg.Temperature, "timeout", *cfg.Timeout,
			"max_retries", *cfg.MaxRetries, "use_system_prompts", *cfg.UseSystemPrompts)
	}

	if cfg.Provider != "gemini" {
		msg := fmt.Sprintf("Unknown AI provider: %s", cfg.Provider)
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, msg, nil)
	}

	provider, err := NewGeminiProvider(cfg, op, log)
	if err != nil {
		return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to create AI provider", err)
	}

	return &Service{Provider: provider, cfg: cfg, log: log}, nil
}

// GetModelInfo surfaces the provider's model check for health endpoints.
func (s *Service) GetModelInfo(ctx context.Context) any {
	return s.Provider.GetModelInfo(ctx)
}
