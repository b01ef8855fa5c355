package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	oteltrace "go.opentelemetry.io/otel/trace"
)

// Metrics bundles the service's custom instruments. The zero value is safe:
// every recording method checks its instrument before use.
type Metrics struct {
	// Model calls
	AIProcessingTime metric.Float64Histogram
	AIRequestCount   metric.Int64Counter
	AIErrorCount     metric.Int64Counter
	AITokenUsage     metric.Int64Histogram

	// Analysis outcomes
	ResumesAnalyzed metric.Int64Counter
	AnalysisScores  metric.Int64Histogram
	UploadsRejected metric.Int64Counter

	// TLS certificate lifecycle
	CertReloadCount metric.Int64Counter
	CertExpiryTime  metric.Float64Gauge

	// Request throttling
	RateLimitHits metric.Int64Counter
}

// newInstruments registers every custom instrument on the meter. The first
// registration error aborts the whole set.
func newInstruments(meter metric.Meter) (*Metrics, error) {
	var firstErr error
	fail := func(name string, err error) {
		if err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to create %s: %w", name, err)
		}
	}
	counter := func(name, desc string) metric.Int64Counter {
		c, err := meter.Int64Counter(name, metric.WithDescription(desc))
		fail(name, err)
		return c
	}
	histogram := func(name, desc, unit string) metric.Int64Histogram {
		opts := []metric.Int64HistogramOption{metric.WithDescription(desc)}
		if unit != "" {
			opts = append(opts, metric.WithUnit(unit))
		}
		h, err := meter.Int64Histogram(name, opts...)
		fail(name, err)
		return h
	}

	m := &Metrics{
		AIRequestCount:  counter("ats_ai_requests_total", "Model calls issued"),
		AIErrorCount:    counter("ats_ai_errors_total", "Model calls that returned an error"),
		AITokenUsage:    histogram("ats_ai_token_usage_total", "Prompt and completion tokens per model call", "tokens"),
		ResumesAnalyzed: counter("ats_resumes_analyzed_total", "Resumes that completed analysis"),
		AnalysisScores:  histogram("ats_analysis_score", "Distribution of ATS compatibility scores", ""),
		UploadsRejected: counter("ats_uploads_rejected_total", "Resume uploads rejected before analysis"),
		CertReloadCount: counter("ats_cert_reloads_total", "TLS certificate reloads"),
		RateLimitHits:   counter("ats_rate_limit_hits_total", "Requests refused by the rate limiter"),
	}

	duration, err := meter.Float64Histogram(
		"ats_ai_processing_duration_seconds",
		metric.WithDescription("Wall-clock time per model call"),
		metric.WithUnit("s"),
	)
	fail("ats_ai_processing_duration_seconds", err)
	m.AIProcessingTime = duration

	expiry, err := meter.Float64Gauge(
		"ats_cert_expiry_seconds",
		metric.WithDescription("Seconds until the active certificate expires"),
		metric.WithUnit("s"),
	)
	fail("ats_cert_expiry_seconds", err)
	m.CertExpiryTime = expiry

	if firstErr != nil {
		return nil, firstErr
	}
	return m, nil
}

// AIOperationResult carries the outcome of one model call, including the
// token counts reported by the provider.
type AIOperationResult struct {
	Error      error
	TokenUsage *TokenUsage
}

// TokenUsage mirrors the provider's token accounting for one call.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

// TrackAIOperationWithTokens runs fn inside an ai.<operation> span and
// records duration, call count, errors and token usage. The error inside
// the returned AIOperationResult is passed back to the caller.
func (m *Metrics) TrackAIOperationWithTokens(ctx context.Context, operation string, fn func(context.Context) *AIOperationResult, om *ObservabilityManager) error {
	if m.AIProcessingTime == nil {
		// Instruments were never registered, run the operation bare.
		if result := fn(ctx); result != nil {
			return result.Error
		}
		return nil
	}

	ctx, span := otel.Tracer("ats.ai").Start(ctx, "ai."+operation)
	defer span.End()

	start := time.Now()
	result := fn(ctx)
	elapsed := time.Since(start).Seconds()

	var err error
	if result != nil {
		err = result.Error
	}

	if aiMetricsEnabled(om) {
		attrs := []attribute.KeyValue{
			attribute.String("operation", operation),
			attribute.Bool("success", err == nil),
		}
		span.SetAttributes(attrs...)

		if trackAIDuration(om) {
			m.AIProcessingTime.Record(ctx, elapsed, metric.WithAttributes(attrs...))
		}
		m.AIRequestCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		if err != nil {
			m.AIErrorCount.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		m.recordTokens(ctx, operation, result, om, span)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("error", true))
	}
	return err
}

// recordTokens attaches token counts to the span and, when enabled, records
// one histogram sample per token type.
func (m *Metrics) recordTokens(ctx context.Context, operation string, result *AIOperationResult, om *ObservabilityManager, span oteltrace.Span) {
	if result == nil || result.TokenUsage == nil || m.AITokenUsage == nil {
		return
	}
	usage := result.TokenUsage

	span.SetAttributes(
		attribute.Int64("ai.tokens.input", usage.InputTokens),
		attribute.Int64("ai.tokens.output", usage.OutputTokens),
		attribute.Int64("ai.tokens.total", usage.TotalTokens),
	)

	if !trackTokenUsage(om) {
		return
	}
	samples := []struct {
		kind  string
		value int64
	}{
		{"input", usage.InputTokens},
		{"output", usage.OutputTokens},
		{"total", usage.TotalTokens},
	}
	for _, s := range samples {
		m.AITokenUsage.Record(ctx, s.value, metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("token_type", s.kind),
		))
	}
}

// RecordBusinessMetric bumps the counter behind metricType with a success
// attribute. Unknown metric types are ignored.
func (m *Metrics) RecordBusinessMetric(ctx context.Context, metricType string, success bool, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if !businessMetricsEnabled(om) {
		return
	}
	attrs := append([]attribute.KeyValue{attribute.Bool("success", success)}, attributes...)

	switch metricType {
	case "resume_analyzed":
		if m.ResumesAnalyzed != nil {
			m.ResumesAnalyzed.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	case "upload_rejected":
		if m.UploadsRejected != nil {
			m.UploadsRejected.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	case "rate_limit_hit":
		if trackRateLimits(om) && m.RateLimitHits != nil {
			m.RateLimitHits.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
	}
}

// RecordAnalysisScore feeds the ATS score of a completed analysis into the
// score distribution.
func (m *Metrics) RecordAnalysisScore(ctx context.Context, score int, om *ObservabilityManager, attributes ...attribute.KeyValue) {
	if m.AnalysisScores == nil || !businessMetricsEnabled(om) {
		return
	}
	m.AnalysisScores.Record(ctx, int64(score), metric.WithAttributes(attributes...))
}

// Per-metric toggles live in the full config; a missing config enables
// everything.

func aiMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.full == nil {
		return true
	}
	return om.full.Observability.CustomMetrics.AIOperations.Enabled
}

func trackAIDuration(om *ObservabilityManager) bool {
	if om == nil || om.full == nil {
		return true
	}
	return om.full.Observability.CustomMetrics.AIOperations.TrackDuration
}

func trackTokenUsage(om *ObservabilityManager) bool {
	if om == nil || om.full == nil {
		return true
	}
	return om.full.Observability.CustomMetrics.AIOperations.TrackTokenUsage
}

func businessMetricsEnabled(om *ObservabilityManager) bool {
	if om == nil || om.full == nil {
		return true
	}
	return om.full.Observability.CustomMetrics.BusinessMetrics.Enabled
}

func trackRateLimits(om *ObservabilityManager) bool {
	if om == nil || om.full == nil {
		return true
	}
	return om.full.Observability.CustomMetrics.Infrastructure.TrackRateLimits
}
