package ai

import (
	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"

	"github.com/sony/gobreaker/v2"
	"google.golang.org/genai"
)

// AICircuitBreaker guards content-generation calls. A nil breaker means
// the feature is disabled and calls pass straight through.
type AICircuitBreaker struct {
	br *gobreaker.CircuitBreaker[*genai.GenerateContentResponse]
}

// ModelCircuitBreaker guards model-metadata lookups.
type ModelCircuitBreaker struct {
	br *gobreaker.CircuitBreaker[*genai.Model]
}

// newBreaker assembles a gobreaker instance from the operation's breaker
// settings, with state transitions logged when a logger is present.
func newBreaker[T any](name string, bc config.CircuitBreakerConfig, trip func(gobreaker.Counts) bool, logger *errors.Logger) *gobreaker.CircuitBreaker[T] {
	return gobreaker.NewCircuitBreaker[T](gobreaker.Settings{
		Name:        name,
		MaxRequests: bc.MaxRequests,
		Interval:    bc.Interval,
		Timeout:     bc.Timeout,
		ReadyToTrip: trip,
		OnStateChange: func(name string, from, to gobreaker.State) {
			if logger != nil {
				logger.Info("Circuit breaker state changed",
					"name", name,
					"from", from.String(),
					"to", to.String())
			}
		},
	})
}

// NewAICircuitBreaker builds the generation breaker for one operation,
// or nil when the configuration disables it.
func NewAICircuitBreaker(op string, cfg *config.OperationAIConfig, logger *errors.Logger) *AICircuitBreaker {
	bc := cfg.CircuitBreaker
	if !bc.Enabled {
		return nil
	}

	trip := func(counts gobreaker.Counts) bool {
		ratio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= bc.MinRequests && ratio >= bc.FailureThreshold
	}
	b := &AICircuitBreaker{}
	b.br = newBreaker[*genai.GenerateContentResponse]("AI-"+op, bc, trip, logger)
	return b
}

// NewModelCircuitBreaker builds the metadata breaker for one operation,
// or nil when the configuration disables it. Metadata lookups are
// advisory, so this breaker trips later than the generation one.
func NewModelCircuitBreaker(op string, cfg *config.OperationAIConfig, logger *errors.Logger) *ModelCircuitBreaker {
	bc := cfg.CircuitBreaker
	if !bc.Enabled {
		return nil
	}

	trip := func(counts gobreaker.Counts) bool {
		ratio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 5 && ratio >= 0.8
	}
	b := &ModelCircuitBreaker{}
	b.br = newBreaker[*genai.Model]("AI-Model-"+op, bc, trip, logger)
	return b
}

// Execute runs fn under the breaker, or directly when the breaker is nil.
func (b *AICircuitBreaker) Execute(fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	if b == nil || b.br == nil {
		return fn()
	}
	return b.br.Execute(fn)
}

// ExecuteModel runs fn under the breaker, or directly when the breaker
// is nil.
func (b *ModelCircuitBreaker) ExecuteModel(fn func() (*genai.Model, error)) (*genai.Model, error) {
	if b == nil || b.br == nil {
		return fn()
	}
	return b.br.Execute(fn)
}

func breakerStats[T any](br *gobreaker.CircuitBreaker[T]) map[string]any {
	if br == nil {
		return map[string]any{"enabled": false}
	}
	return map[string]any{
		"name":    br.Name(),
		"state":   br.State().String(),
		"counts":  br.Counts(),
		"enabled": true,
	}
}

// GetStats reports the breaker's name, state and counters for the stats
// endpoint.
func (b *AICircuitBreaker) GetStats() map[string]any {
	if b == nil {
		return breakerStats[*genai.GenerateContentResponse](nil)
	}
	return breakerStats(b.br)
}

// GetModelStats reports the metadata breaker's name, state and counters.
func (b *ModelCircuitBreaker) GetModelStats() map[string]any {
	if b == nil {
		return breakerStats[*genai.Model](nil)
	}
	return breakerStats(b.br)
}

// IsHealthy reports whether the breaker is closed. A nil breaker counts
// as healthy.
func (b *AICircuitBreaker) IsHealthy() bool {
	return b == nil || b.br == nil || b.br.State() == gobreaker.StateClosed
}

// IsModelHealthy reports whether the metadata breaker is closed. A nil
// breaker counts as healthy.
func (b *ModelCircuitBreaker) IsModelHealthy() bool {
	return b == nil || b.br == nil || b.br.State() == gobreaker.StateClosed
}
