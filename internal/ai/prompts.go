package ai

// SystemPrompts holds the model instructions per operation.
type SystemPrompts struct {
	AnalyzeResume string
}

// UserPrompts holds the per-request templates per operation.
type UserPrompts struct {
	AnalyzeResume string
}

// DefaultSystemPrompts is used when neither a prompt file nor inline
// configuration overrides the instructions.
var DefaultSystemPrompts = SystemPrompts{
	AnalyzeResume: `You are an expert ATS (Applicant Tracking System) analyst and career coach with a strict commitment to honest, evidence-based assessment. Your core principles are:

- Every score must be justified by the actual resume content
- NEVER invent achievements or skills the candidate does not have
- Feedback must be specific and actionable, not generic filler
- Scores are calibrated: 90+ is rare and reserved for truly exceptional resumes

Your expertise includes:
- ATS parsing behavior and keyword matching
- Resume structure, formatting, and readability
- Quantified impact and achievement framing
- Hiring manager expectations across industries`,
}

// DefaultUserPrompts carries the built-in request templates. The analyze
// template takes the resume text and job description, in that order.
var DefaultUserPrompts = UserPrompts{
	AnalyzeResume: `Please perform a comprehensive ATS analysis of the provided resume.

**Scoring Areas (each 0-100):**

1. **Overall ATS Score**:
   How well this resume would perform in an applicant tracking system overall, considering keywords, structure, content quality, and measurable impact.

2. **Keyword Analysis**:
   Score the keyword alignment between the resume and the job description. List the relevant keywords that are present in the resume and the important keywords that are missing. If no job description is provided, assess against common expectations for the role implied by the resume.

3. **Formatting Score**:
   How cleanly an ATS could parse this resume: section headings, bullet structure, dates, contact details, absence of parsing hazards.

4. **Content Quality Score**:
   Strength of the writing: action verbs, specificity, relevance, absence of filler.

5. **Impact Score**:
   Presence of quantified, outcome-oriented achievements.

**Narrative Output:**

- Overall feedback: a concise paragraph summarizing the resume's ATS readiness
- Strengths: specific things this resume does well
- Areas for improvement: concrete weaknesses, each tied to resume content
- Recommendations: 3-5 high-impact, actionable changes the candidate should make

**Resume:**
-----
%s
-----

**Job Description:**
-----
%s
-----`,
}
