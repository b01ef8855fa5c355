package ai

import (
	"log/slog"
	"testing"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
)

func ptr[T any](v T) *T { return &v }

var testLogger = errors.NewLogger(slog.LevelWarn)

// globalAIBlock is the baseline configuration the analyze operation
// inherits from in these tests.
func globalAIBlock() config.AIConfig {
	return config.AIConfig{
		Provider:         "gemini",
		Model:            "global-model",
		Timeout:          60 * time.Second,
		APIKey:           "global-api-key",
		MaxRetries:       5,
		Temperature:      0.9,
		UseSystemPrompts: true,
	}
}

// buildService checks that a derived operation config is consumable by
// the service factory. A placeholder API key may be rejected by the
// client; what matters here is no panic on the derived pointers.
func buildService(t *testing.T, op config.OperationAIConfig) {
	t.Helper()
	if _, err := NewService(&op, "analyze", testLogger); err != nil {
		t.Logf("NewService returned %v", err)
	}
}

func TestAnalyzeConfigDerivation(t *testing.T) {
	t.Run("operation overrides win", func(t *testing.T) {
		cfg := &config.Config{AI: globalAIBlock()}
		cfg.AI.Analyze = config.OperationAIConfig{
			Model:       "analyze-specific-model",
			Timeout:     ptr(90 * time.Second),
			Temperature: ptr[float32](0.3),
		}

		op := cfg.GetAnalyzeConfig()

		if op.Model != "analyze-specific-model" {
			t.Errorf("Model = %q, want the analyze override", op.Model)
		}
		if *op.Timeout != 90*time.Second {
			t.Errorf("Timeout = %v, want the analyze override", *op.Timeout)
		}
		if *op.Temperature != float32(0.3) {
			t.Errorf("Temperature = %v, want the analyze override", *op.Temperature)
		}

		// Fields the operation left unset inherit the global block.
		if op.APIKey != "global-api-key" {
			t.Errorf("APIKey = %q, want the global fallback", op.APIKey)
		}
		if *op.MaxRetries != 5 {
			t.Errorf("MaxRetries = %d, want the global fallback", *op.MaxRetries)
		}

		buildService(t, op)
	})

	t.Run("empty operation inherits everything", func(t *testing.T) {
		cfg := &config.Config{AI: globalAIBlock()}

		op := cfg.GetAnalyzeConfig()

		if op.Model != "global-model" {
			t.Errorf("Model = %q, want the global value", op.Model)
		}
		if *op.Timeout != 60*time.Second {
			t.Errorf("Timeout = %v, want the global value", *op.Timeout)
		}
		if op.APIKey != "global-api-key" {
			t.Errorf("APIKey = %q, want the global value", op.APIKey)
		}
		if *op.Temperature != float32(0.9) {
			t.Errorf("Temperature = %v, want the global value", *op.Temperature)
		}

		buildService(t, op)
	})
}

func TestServiceWiresCircuitBreakers(t *testing.T) {
	cb := config.CircuitBreakerConfig{
		Enabled:          true,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          45 * time.Second,
		MinRequests:      2,
		FailureThreshold: 0.8,
	}
	op := &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "wired-model",
		APIKey:   "wired-key",

		Timeout:          ptr(30 * time.Second),
		MaxRetries:       ptr(1),
		Temperature:      ptr[float32](0.5),
		UseSystemPrompts: ptr(true),
		CircuitBreaker:   cb,
	}

	service, err := NewService(op, "test-op", testLogger)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	wired := service.cfg.CircuitBreaker
	if wired.MaxRequests != 5 {
		t.Errorf("breaker max requests = %d, want 5", wired.MaxRequests)
	}
	if wired.FailureThreshold != 0.8 {
		t.Errorf("breaker failure threshold = %f, want 0.8", wired.FailureThreshold)
	}

	provider, ok := service.Provider.(*GeminiProvider)
	if !ok {
		t.Fatalf("Provider is %T, want *GeminiProvider", service.Provider)
	}

	stats := provider.GetCircuitBreakerStats()

	aiStats, ok := stats["ai_operations"].(map[string]any)
	if !ok {
		t.Fatal("ai_operations stats missing")
	}
	if name, _ := aiStats["name"].(string); name != "AI-test-op" {
		t.Errorf("generation breaker name = %q, want AI-test-op", name)
	}

	modelStats, ok := stats["model_operations"].(map[string]any)
	if !ok {
		t.Fatal("model_operations stats missing")
	}
	if name, _ := modelStats["name"].(string); name != "AI-Model-test-op" {
		t.Errorf("metadata breaker name = %q, want AI-Model-test-op", name)
	}

	if healthy, _ := stats["overall_healthy"].(bool); !healthy {
		t.Error("breakers should report healthy before any traffic")
	}
}
