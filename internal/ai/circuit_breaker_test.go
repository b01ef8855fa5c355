package ai

import (
	"errors"
	"testing"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// breakerSettings returns an operation config whose breaker trips after
// three straight failures.
func breakerSettings(enabled bool) *config.OperationAIConfig {
	return &config.OperationAIConfig{
		Provider: "gemini",
		Model:    "gemini-2.5-flash",
		CircuitBreaker: config.CircuitBreakerConfig{
			Enabled:          enabled,
			MaxRequests:      3,
			MinRequests:      3,
			Interval:         45 * time.Second,
			Timeout:          30 * time.Second,
			FailureThreshold: 0.5,
		},
	}
}

func statString(t *testing.T, stats map[string]any, key string) string {
	t.Helper()
	value, ok := stats[key].(string)
	if !ok {
		t.Fatalf("stats[%q] missing or not a string: %v", key, stats[key])
	}
	return value
}

func TestBreakerStartsClosedWithOperationName(t *testing.T) {
	cb := NewAICircuitBreaker("Analyze", breakerSettings(true), nil)

	stats := cb.GetStats()
	if got := statString(t, stats, "name"); got != "AI-Analyze" {
		t.Errorf("name = %q, want AI-Analyze", got)
	}
	if got := statString(t, stats, "state"); got != "closed" {
		t.Errorf("state = %q, want closed", got)
	}
	if enabled, _ := stats["enabled"].(bool); !enabled {
		t.Error("stats should report enabled=true")
	}
	if !cb.IsHealthy() {
		t.Error("a fresh breaker should be healthy")
	}
}

func TestModelBreakerName(t *testing.T) {
	mcb := NewModelCircuitBreaker("Analyze", breakerSettings(true), nil)

	if got := statString(t, mcb.GetModelStats(), "name"); got != "AI-Model-Analyze" {
		t.Errorf("name = %q, want AI-Model-Analyze", got)
	}
	if !mcb.IsModelHealthy() {
		t.Error("a fresh model breaker should be healthy")
	}
}

func TestBreakerTripsAfterRepeatedFailures(t *testing.T) {
	cb := NewAICircuitBreaker("Trip", breakerSettings(true), nil)

	boom := errors.New("model unavailable")
	for i := 0; i < 3; i++ {
		if _, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
			return nil, boom
		}); !errors.Is(err, boom) {
			t.Fatalf("call %d: expected provider error, got %v", i, err)
		}
	}

	if cb.IsHealthy() {
		t.Error("breaker should be open after the failure threshold")
	}
	if got := statString(t, cb.GetStats(), "state"); got != "open" {
		t.Errorf("state = %q, want open", got)
	}

	called := false
	_, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	})
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("expected ErrOpenState while open, got %v", err)
	}
	if called {
		t.Error("open breaker must not invoke the wrapped call")
	}
}

func TestDisabledBreakerIsNil(t *testing.T) {
	cfg := breakerSettings(false)

	if cb := NewAICircuitBreaker("Disabled", cfg, nil); cb != nil {
		t.Error("disabled config should produce a nil generation breaker")
	}
	if mcb := NewModelCircuitBreaker("Disabled", cfg, nil); mcb != nil {
		t.Error("disabled config should produce a nil model breaker")
	}
}

func TestNilBreakerPassesThrough(t *testing.T) {
	var cb *AICircuitBreaker

	wantErr := errors.New("provider failure")
	if _, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		return nil, wantErr
	}); !errors.Is(err, wantErr) {
		t.Errorf("expected passthrough error %v, got %v", wantErr, err)
	}

	called := false
	if _, err := cb.Execute(func() (*genai.GenerateContentResponse, error) {
		called = true
		return &genai.GenerateContentResponse{}, nil
	}); err != nil {
		t.Errorf("expected no error from passthrough, got %v", err)
	}
	if !called {
		t.Error("expected wrapped function to run")
	}

	if !cb.IsHealthy() {
		t.Error("nil breaker should report healthy")
	}
	if enabled, ok := cb.GetStats()["enabled"].(bool); !ok || enabled {
		t.Error("nil breaker stats should report enabled=false")
	}
}
