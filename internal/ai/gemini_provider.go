package ai

import (
	"cmp"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"math/big"
	"net"
	"net/http"
	"slices"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	atsErrors "github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

// GeminiProvider implements AIProvider against the Google Gemini API.
type GeminiProvider struct {
	client       *genai.Client
	cfg          *config.OperationAIConfig
	aiBreaker    *AICircuitBreaker
	modelBreaker *ModelCircuitBreaker
	logger       *atsErrors.Logger
}

var _ AIProvider = (*GeminiProvider)(nil)

// NewGeminiProvider builds a provider for one operation. The operation's
// timeout bounds each HTTP round trip to the API.
func NewGeminiProvider(cfg *config.OperationAIConfig, op string, log *atsErrors.Logger) (*GeminiProvider, error) {
	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		HTTPClient: &http.Client{Timeout: *cfg.Timeout},
	})
	if err != nil {
		return nil, atsErrors.NewAIError(atsErrors.ErrCodeAIServiceFailed, "Failed to create Gemini client", err)
	}

	return &GeminiProvider{
		client:       client,
		cfg:          cfg,
		aiBreaker:    NewAICircuitBreaker(op, cfg, log),
		modelBreaker: NewModelCircuitBreaker(op, cfg, log),
		logger:       log,
	}, nil
}

// ModelInfo describes the configured model for health reporting.
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// Ceiling on the metadata lookup. Health handlers usually pass a context
// with a tighter deadline already.
const modelCheckTimeout = 10 * time.Second

// GetModelInfo asks the API whether the configured model is reachable.
func (g *GeminiProvider) GetModelInfo(ctx context.Context) *ModelInfo {
	info := &ModelInfo{Name: g.cfg.Model}

	checkCtx, cancel := context.WithTimeout(ctx, modelCheckTimeout)
	defer cancel()

	meta, err := g.modelBreaker.ExecuteModel(func() (*genai.Model, error) {
		return g.client.Models.Get(checkCtx, g.cfg.Model, &genai.GetModelConfig{})
	})
	if err != nil {
		info.Error = fmt.Sprintf("Failed to get model info: %v", err)
		g.logger.Warn("Model availability check failed", "model", g.cfg.Model, "provider", g.cfg.Provider, "error", err.Error())
		return info
	}

	info.Available = true
	info.DisplayName = meta.DisplayName
	info.Version = meta.Version

	g.logger.Debug("Model availability check succeeded", "model", g.cfg.Model, "display_name", info.DisplayName, "version", info.Version)
	return info
}

// generateWithRetry retries fn on transient failures, backing off between
// attempts. Non-retryable errors stop the loop immediately.
func (g *GeminiProvider) generateWithRetry(ctx context.Context, operation string, fn func() (*genai.GenerateContentResponse, error)) (*genai.GenerateContentResponse, error) {
	maxRetries := *g.cfg.MaxRetries

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			g.logger.Warn("Retrying AI operation", "operation", operation, "attempt", attempt, "max_retries", maxRetries, "error", lastErr.Error())
			if err := waitBeforeRetry(ctx, attempt); err != nil {
				return nil, err
			}
		}

		result, err := fn()
		if err == nil {
			if attempt > 0 {
				g.logger.Info("AI operation succeeded after retry", "operation", operation, "attempts", attempt+1)
			}
			return result, nil
		}
		lastErr = err

		if !isRetryable(err) {
			g.logger.Debug("Error is not retryable, stopping retry attempts", "operation", operation, "error", err.Error())
			break
		}
	}

	g.logger.LogError(lastErr, "AI operation failed after all retry attempts", "operation", operation, "total_attempts", maxRetries+1)
	return nil, fmt.Errorf("operation '%s' failed after %d retries: %w", operation, maxRetries, lastErr)
}

func waitBeforeRetry(ctx context.Context, attempt int) error {
	select {
	case <-time.After(retryDelay(attempt)):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// retryDelay doubles per attempt and adds up to 10% random jitter so
// concurrent retries spread out. Capped at 30 seconds.
func retryDelay(attempt int) time.Duration {
	base := min(time.Duration(math.Pow(2, float64(attempt-1)))*time.Second, 30*time.Second)
	jitter, _ := rand.Int(rand.Reader, big.NewInt(int64(base/10)))
	return min(base+time.Duration(jitter.Int64()), 30*time.Second)
}

var retryableStatus = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

// isRetryable reports whether another attempt could plausibly succeed:
// network-level failures and transient Google API statuses.
func isRetryable(err error) bool {
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return slices.Contains(retryableStatus, apiErr.Code)
	}
	return false
}

func spanFailure(span trace.Span, err error) {
	span.RecordError(err)
	span.SetAttributes(attribute.Bool("success", false))
}

// runGeneration issues one structured-output generation call under the
// operation's breaker and retry policy, decoding the JSON reply into Out.
func runGeneration[Out any](g *GeminiProvider, ctx context.Context, operation string,
	systemPrompt, userPrompt string, genCfg *genai.GenerateContentConfig,
	extraAttrs ...attribute.KeyValue) (Out, *TokenUsage, error) {
	var out Out

	ctx, span := otel.Tracer("ats.ai.gemini").Start(ctx, "gemini."+operation)
	defer span.End()

	span.SetAttributes(attribute.String("ai.provider", "gemini"), attribute.String("ai.model", g.cfg.Model), attribute.Float64("ai.temperature", float64(*g.cfg.Temperature)))
	span.SetAttributes(extraAttrs...)

	if *g.cfg.UseSystemPrompts && systemPrompt != "" {
		genCfg.SystemInstruction = genai.NewContentFromText(systemPrompt, genai.RoleUser)
	}

	result, err := g.aiBreaker.Execute(func() (*genai.GenerateContentResponse, error) {
		return g.generateWithRetry(ctx, operation, func() (*genai.GenerateContentResponse, error) {
			return g.client.Models.GenerateContent(ctx, g.cfg.Model, genai.Text(userPrompt), genCfg)
		})
	})
	if err != nil {
		spanFailure(span, err)
		return out, nil, atsErrors.NewAIError(atsErrors.ErrCodeAIServiceFailed, "Failed to generate content for "+operation, err)
	}

	if err := json.Unmarshal([]byte(result.Text()), &out); err != nil {
		spanFailure(span, err)
		return out, nil, atsErrors.NewAIError("AI_RESPONSE_PARSE_FAILED", "Failed to parse AI response for "+operation, err)
	}

	usage := tokenUsageFrom(result)
	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}
	span.SetAttributes(attribute.Bool("success", true))
	return out, usage, nil
}

// AnalyzeResume scores a resume against a job description and returns the
// structured analysis.
func (g *GeminiProvider) AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *TokenUsage, error) {
	systemPrompt, userPrompt := g.analyzePrompts(input.ResumeText, input.JobDescription)

	output, tokenUsage, err := runGeneration[types.AnalysisResult](g, ctx, "analyze_resume",
		systemPrompt, userPrompt, g.analyzeGenerationConfig(),
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.job_length", len(input.JobDescription)))
	if err != nil {
		return types.AnalysisResult{}, nil, err
	}

	// Model output is untrusted: clamp scores and normalize nil lists
	output = output.Sanitized()

	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		span.SetAttributes(
			attribute.Int("ats.score", output.ATSScore),
			attribute.Int("ats.keyword_score", output.KeywordAnalysis.KeywordScore),
			attribute.Int("ats.missing_keywords", len(output.KeywordAnalysis.MissingKeywords)),
		)
	}
	return output, tokenUsage, nil
}

// GetCircuitBreakerStats reports both breakers plus an overall health bit
// for the stats endpoint.
func (g *GeminiProvider) GetCircuitBreakerStats() map[string]any {
	stats := make(map[string]any, 3)
	stats["ai_operations"] = g.aiBreaker.GetStats()
	stats["model_operations"] = g.modelBreaker.GetModelStats()
	stats["overall_healthy"] = g.aiBreaker.IsHealthy() && g.modelBreaker.IsModelHealthy()
	return stats
}

// Close implements AIProvider.
func (g *GeminiProvider) Close() error {
	// The genai client holds no resources needing release in single-shot
	// usage. Streaming would change that.
	return nil
}

func intField() *genai.Schema {
	return &genai.Schema{Type: genai.TypeInteger}
}

func stringListField() *genai.Schema {
	return &genai.Schema{Type: genai.TypeArray, Items: &genai.Schema{Type: genai.TypeString}}
}

// analysisResponseSchema declares the strict JSON shape the analysis must
// come back in. Field names line up with types.AnalysisResult.
func analysisResponseSchema() *genai.Schema {
	keywords := &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"keyword_score":    intField(),
			"present_keywords": stringListField(),
			"missing_keywords": stringListField(),
		},
		Required: []string{"keyword_score", "present_keywords", "missing_keywords"},
	}

	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"ats_score":             intField(),
			"overall_feedback":      {Type: genai.TypeString},
			"keyword_analysis":      keywords,
			"formatting_score":      intField(),
			"content_quality_score": intField(),
			"impact_score":          intField(),
			"strengths":             stringListField(),
			"areas_for_improvement": stringListField(),
			"recommendations":       stringListField(),
		},
		Required: []string{
			"ats_score", "overall_feedback", "keyword_analysis",
			"formatting_score", "content_quality_score",
			"strengths", "areas_for_improvement", "recommendations",
		},
	}
}

func (g *GeminiProvider) analyzeGenerationConfig() *genai.GenerateContentConfig {
	genCfg := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   analysisResponseSchema(),
	}
	if *g.cfg.Temperature > 0 {
		genCfg.Temperature = g.cfg.Temperature
	}
	return genCfg
}

// analyzePrompts resolves the system prompt and fills the user template
// with the resume and job description. File-loaded content wins over
// inline configuration, which wins over the built-in defaults.
func (g *GeminiProvider) analyzePrompts(resumeText, jobDescription string) (string, string) {
	loaded := config.PromptsForOperation("analyze")
	custom := g.cfg.CustomPrompts

	systemPrompt := cmp.Or(loaded.System, custom.SystemPrompts.AnalyzeResume, DefaultSystemPrompts.AnalyzeResume)
	userTemplate := cmp.Or(loaded.User, custom.UserPrompts.AnalyzeResume, DefaultUserPrompts.AnalyzeResume)

	if jobDescription == "" {
		jobDescription = "(none provided - assess keyword alignment against common expectations for the role implied by the resume)"
	}
	return systemPrompt, fmt.Sprintf(userTemplate, resumeText, jobDescription)
}

// TokenUsage carries the token counts reported with a model response.
type TokenUsage struct {
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
}

func tokenUsageFrom(result *genai.GenerateContentResponse) *TokenUsage {
	if result == nil || result.UsageMetadata == nil {
		return nil
	}
	meta := result.UsageMetadata
	return &TokenUsage{
		InputTokens:  int64(meta.PromptTokenCount),
		OutputTokens: int64(meta.CandidatesTokenCount),
		TotalTokens:  int64(meta.TotalTokenCount),
	}
}
