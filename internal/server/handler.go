package server

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/sreekeshm77/ATS-project/internal/ai"
	"github.com/sreekeshm77/ATS-project/internal/extract"
	"github.com/sreekeshm77/ATS-project/internal/intake"
	"github.com/sreekeshm77/ATS-project/internal/observability"
	"github.com/sreekeshm77/ATS-project/internal/types"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// markSpanError records err on the span and tags the failure category.
func markSpanError(span trace.Span, err error, kind string) {
	span.RecordError(err)
	span.SetAttributes(attribute.String("error.type", kind))
}

// analyzeHandler serves POST /analyze. The request is
// multipart/form-data: a "file" part carrying the resume (PDF, DOCX or TXT)
// and an optional "job_description" text field.
func (s *Server) analyzeHandler(om *observability.ObservabilityManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := om.Tracer("ats.api").Start(r.Context(), "api.analyze")
		defer span.End()

		m := om.GetMetrics()

		// The size middleware has already wrapped the body in a
		// MaxBytesReader, so an oversized upload surfaces here.
		if err := r.ParseMultipartForm(s.MaxRequestBytes); err != nil {
			markSpanError(span, err, "validation")
			if isRequestTooLarge(err) {
				writeErrorResponse(w, "Request body too large", http.StatusRequestEntityTooLarge)
			} else {
				writeErrorResponse(w, "Invalid multipart form data", http.StatusBadRequest)
			}
			return
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			markSpanError(span, err, "validation")
			writeErrorResponse(w, "Missing resume file. Upload it as the \"file\" form field.", http.StatusBadRequest)
			return
		}
		defer file.Close()

		meta := intake.FileMeta{
			Name: header.Filename,
			MIME: header.Header.Get("Content-Type"),
			Size: header.Size,
		}
		if meta.MIME == "" {
			meta.MIME = intake.MIMEForName(meta.Name)
		}

		// The terminal client runs the same upload rules, but a hand-rolled
		// client may not.
		if err := intake.Validate(meta); err != nil {
			markSpanError(span, err, "validation")
			m.RecordBusinessMetric(ctx, "upload_rejected", false, om,
				attribute.String("reason", "validation"))
			writeErrorResponse(w, userMessage(err), http.StatusBadRequest)
			return
		}

		data, err := io.ReadAll(file)
		if err != nil {
			span.RecordError(err)
			writeErrorResponse(w, "Failed to read uploaded file", http.StatusInternalServerError)
			return
		}

		resumeText, err := extract.Text(meta.Name, meta.MIME, data, s.AppConfig.App.MaxTextChars)
		if err != nil {
			markSpanError(span, err, "extraction")
			m.RecordBusinessMetric(ctx, "upload_rejected", false, om,
				attribute.String("reason", "extraction"))
			writeErrorResponse(w, userMessage(err), http.StatusBadRequest)
			return
		}

		jobDescription := strings.TrimSpace(r.FormValue("job_description"))

		span.SetAttributes(attribute.String("operation", "analyze"),
			attribute.Int64("request.file_size", meta.Size),
			attribute.Int("request.resume_length", len(resumeText)),
			attribute.Int("request.job_length", len(jobDescription)))

		svcCfg := s.AppConfig.GetAnalyzeConfig()
		svc, err := ai.NewService(&svcCfg, "analyze", s.Logger)
		if err != nil {
			markSpanError(span, err, "service_creation")
			writeErrorResponse(w, "Failed to create AI service", http.StatusInternalServerError)
			return
		}

		input := types.AnalyzeResumeInput{
			ResumeText:     resumeText,
			JobDescription: jobDescription,
		}

		var result types.AnalysisResult
		track := func(ctx context.Context) *observability.AIOperationResult {
			output, usage, aiErr := svc.Provider.AnalyzeResume(ctx, input)
			result = output
			ar := observability.AIOperationResult{
				TokenUsage: (*observability.TokenUsage)(usage),
				Error:      aiErr,
			}
			return &ar
		}
		err = m.TrackAIOperationWithTokens(ctx, "analyze", track, om)
		if err != nil {
			markSpanError(span, err, "ai_processing")
			m.RecordBusinessMetric(ctx, "resume_analyzed", false, om)
			writeErrorResponse(w, userMessage(err), http.StatusInternalServerError)
			return
		}

		result = result.Sanitized()

		m.RecordBusinessMetric(ctx, "resume_analyzed", true, om,
			attribute.Int("ats.score", result.ATSScore),
			attribute.Int("keyword.score", result.KeywordAnalysis.KeywordScore))
		m.RecordAnalysisScore(ctx, result.ATSScore, om)

		span.SetAttributes(attribute.Bool("success", true),
			attribute.Int("ats.score", result.ATSScore),
			attribute.Int("keyword.score", result.KeywordAnalysis.KeywordScore),
			attribute.Int("formatting.score", result.FormattingScore))

		writeJSON(w, http.StatusOK, result)
	}
}

// rateLimitWithMetrics layers a rate-limit-hit metric on top of the
// plain limiter. The recorder wraps the ResponseWriter outside the limiter
// so the 429 the limiter writes stays visible afterwards.
func (s *Server) rateLimitWithMetrics(om *observability.ObservabilityManager) func(http.HandlerFunc) http.HandlerFunc {
	base := s.rateLimit()

	return func(next http.HandlerFunc) http.HandlerFunc {
		limited := base(next)

		return func(w http.ResponseWriter, r *http.Request) {
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			limited(rec, r)

			if rec.status == http.StatusTooManyRequests {
				om.GetMetrics().RecordBusinessMetric(r.Context(), "rate_limit_hit", true, om,
					attribute.String("endpoint", r.URL.Path), attribute.String("method", r.Method))
			}
		}
	}
}

// statusRecorder remembers the status code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}
