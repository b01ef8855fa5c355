package types

// AnalyzeResumeInput represents the input for an ATS analysis
type AnalyzeResumeInput struct {
	ResumeText     string `json:"resumeText"`     // Extracted plain text of the resume
	JobDescription string `json:"jobDescription"` // Optional job description to match against
}

// KeywordAnalysis represents the keyword portion of an analysis
type KeywordAnalysis struct {
	KeywordScore    int      `json:"keyword_score"`    // 0-100 score
	PresentKeywords []string `json:"present_keywords"` // Relevant keywords found in the resume
	MissingKeywords []string `json:"missing_keywords"` // Expected keywords that were not found
}

// AnalysisResult is the canonical analysis response shape.
// Earlier iterations of this project shipped several ad-hoc variants
// (pros/cons, matched_keywords); this is the only schema served now.
type AnalysisResult struct {
	ATSScore            int             `json:"ats_score"`             // Overall 0-100 score
	OverallFeedback     string          `json:"overall_feedback"`      // Narrative summary
	KeywordAnalysis     KeywordAnalysis `json:"keyword_analysis"`      // Keyword breakdown
	FormattingScore     int             `json:"formatting_score"`      // 0-100 score
	ContentQualityScore int             `json:"content_quality_score"` // 0-100 score
	ImpactScore         int             `json:"impact_score,omitempty"`
	Strengths           []string        `json:"strengths,omitempty"`
	AreasForImprovement []string        `json:"areas_for_improvement,omitempty"`
	Recommendations     []string        `json:"recommendations,omitempty"`
}

// ClampScore confines a score to the displayable 0-100 range
func ClampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

// Grade maps a 0-100 ATS score to its display tier
func Grade(score int) string {
	switch {
	case score >= 90:
		return "Exceptional"
	case score >= 80:
		return "Excellent"
	case score >= 70:
		return "Very Good"
	case score >= 60:
		return "Good"
	case score >= 50:
		return "Fair"
	case score >= 40:
		return "Needs Work"
	default:
		return "Critical"
	}
}

// Sanitized returns a copy safe for rendering: all scores clamped to
// 0-100 and nil lists replaced with empty slices so consumers never
// touch a null field
func (r AnalysisResult) Sanitized() AnalysisResult {
	r.ATSScore = ClampScore(r.ATSScore)
	r.KeywordAnalysis.KeywordScore = ClampScore(r.KeywordAnalysis.KeywordScore)
	r.FormattingScore = ClampScore(r.FormattingScore)
	r.ContentQualityScore = ClampScore(r.ContentQualityScore)
	r.ImpactScore = ClampScore(r.ImpactScore)

	if r.KeywordAnalysis.PresentKeywords == nil {
		r.KeywordAnalysis.PresentKeywords = []string{}
	}
	if r.KeywordAnalysis.MissingKeywords == nil {
		r.KeywordAnalysis.MissingKeywords = []string{}
	}
	if r.Strengths == nil {
		r.Strengths = []string{}
	}
	if r.AreasForImprovement == nil {
		r.AreasForImprovement = []string{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	return r
}
