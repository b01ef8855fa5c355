package ai

import (
	"context"

	"github.com/sreekeshm77/ATS-project/internal/types"
)

// AIProvider is the surface a model backend must offer. Generation
// methods report token usage alongside the result; callers that do not
// meter consumption can discard it.
type AIProvider interface {
	AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.AnalysisResult, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}
