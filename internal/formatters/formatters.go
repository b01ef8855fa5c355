package formatters

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sreekeshm77/ATS-project/internal/types"
)

// renderFunc turns one payload into output text.
type renderFunc func(data any) (string, error)

// Registry maps output format names to renderers. Text and markdown
// only accept analysis results; JSON takes anything.
type Registry struct {
	renderers map[string]renderFunc
}

// Default serves the CLI commands and the HTTP output path.
var Default = NewRegistry()

// NewRegistry builds a registry with the built-in formats.
func NewRegistry() *Registry {
	return &Registry{renderers: map[string]renderFunc{
		"json":     renderJSON,
		"text":     analysisOnly(renderAnalysisText),
		"markdown": analysisOnly(renderAnalysisMarkdown),
	}}
}

// Format renders data in the named format.
func (r *Registry) Format(data any, format string) (string, error) {
	render, ok := r.renderers[format]
	if !ok {
		return "", fmt.Errorf("unknown output format %q", format)
	}
	return render(data)
}

// analysisOnly adapts a typed renderer, rejecting other payloads.
func analysisOnly(render func(types.AnalysisResult) string) renderFunc {
	return func(data any) (string, error) {
		result, ok := toAnalysisResult(data)
		if !ok {
			return "", fmt.Errorf("expected AnalysisResult, got %T", data)
		}
		return render(result), nil
	}
}

func toAnalysisResult(data any) (types.AnalysisResult, bool) {
	switch v := data.(type) {
	case types.AnalysisResult:
		return v, true
	case *types.AnalysisResult:
		if v != nil {
			return *v, true
		}
	}
	return types.AnalysisResult{}, false
}

func renderJSON(data any) (string, error) {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func renderAnalysisText(res types.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("=== ATS ANALYSIS REPORT ===\n\n")
	fmt.Fprintf(&b, "Overall Score: %d/100 (%s)\n\n", res.ATSScore, types.Grade(res.ATSScore))
	fmt.Fprintf(&b, "Feedback:\n%s\n\n", res.OverallFeedback)

	b.WriteString("=== KEYWORD ANALYSIS ===\n")
	fmt.Fprintf(&b, "Keyword Score: %d/100\n\n", res.KeywordAnalysis.KeywordScore)
	b.WriteString("Present Keywords:\n")
	bulletList(&b, res.KeywordAnalysis.PresentKeywords, "None identified.")
	b.WriteString("\nMissing Keywords:\n")
	bulletList(&b, res.KeywordAnalysis.MissingKeywords, "None. Great keyword coverage!")
	b.WriteString("\n")

	b.WriteString("=== CATEGORY SCORES ===\n")
	fmt.Fprintf(&b, "Formatting: %d/100\n", res.FormattingScore)
	fmt.Fprintf(&b, "Content Quality: %d/100\n", res.ContentQualityScore)
	if res.ImpactScore > 0 {
		fmt.Fprintf(&b, "Impact: %d/100\n", res.ImpactScore)
	}
	b.WriteString("\n")

	if len(res.Strengths) > 0 {
		b.WriteString("=== STRENGTHS ===\n")
		bulletList(&b, res.Strengths, "")
		b.WriteString("\n")
	}
	if len(res.AreasForImprovement) > 0 {
		b.WriteString("=== AREAS FOR IMPROVEMENT ===\n")
		bulletList(&b, res.AreasForImprovement, "")
		b.WriteString("\n")
	}
	if len(res.Recommendations) > 0 {
		b.WriteString("=== RECOMMENDATIONS ===\n")
		numberedList(&b, res.Recommendations)
	}

	return b.String()
}

func renderAnalysisMarkdown(res types.AnalysisResult) string {
	var b strings.Builder

	b.WriteString("# ATS Analysis Report\n\n")
	fmt.Fprintf(&b, "**Overall Score:** %d/100 (%s)\n\n", res.ATSScore, types.Grade(res.ATSScore))
	fmt.Fprintf(&b, "## Feedback\n\n%s\n\n", res.OverallFeedback)

	b.WriteString("## Keyword Analysis\n\n")
	fmt.Fprintf(&b, "**Keyword Score:** %d/100\n\n", res.KeywordAnalysis.KeywordScore)
	b.WriteString("### Present Keywords\n")
	bulletList(&b, res.KeywordAnalysis.PresentKeywords, "None identified.")
	b.WriteString("\n### Missing Keywords\n")
	bulletList(&b, res.KeywordAnalysis.MissingKeywords, "None. Great keyword coverage!")
	b.WriteString("\n")

	b.WriteString("## Category Scores\n\n")
	fmt.Fprintf(&b, "- **Formatting:** %d/100\n", res.FormattingScore)
	fmt.Fprintf(&b, "- **Content Quality:** %d/100\n", res.ContentQualityScore)
	if res.ImpactScore > 0 {
		fmt.Fprintf(&b, "- **Impact:** %d/100\n", res.ImpactScore)
	}
	b.WriteString("\n")

	if len(res.Strengths) > 0 {
		b.WriteString("## Strengths\n")
		bulletList(&b, res.Strengths, "")
		b.WriteString("\n")
	}
	if len(res.AreasForImprovement) > 0 {
		b.WriteString("## Areas for Improvement\n")
		bulletList(&b, res.AreasForImprovement, "")
		b.WriteString("\n")
	}
	if len(res.Recommendations) > 0 {
		b.WriteString("## Recommendations\n\n")
		numberedList(&b, res.Recommendations)
	}

	return b.String()
}

// bulletList writes items as dashed lines, or the placeholder when the
// list is empty and one is given.
func bulletList(b *strings.Builder, items []string, placeholder string) {
	if len(items) == 0 {
		if placeholder != "" {
			b.WriteString(placeholder)
			b.WriteString("\n")
		}
		return
	}
	for _, item := range items {
		fmt.Fprintf(b, "- %s\n", item)
	}
}

func numberedList(b *strings.Builder, items []string) {
	for i, item := range items {
		fmt.Fprintf(b, "%d. %s\n", i+1, item)
	}
}
