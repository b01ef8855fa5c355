package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/observability"
)

// newTestServer builds a server with observability disabled and no AI
// provider configured. Requests that make it past upload validation stop
// at AI service creation, so no test ever talks to an external model.
func newTestServer(t *testing.T, apiKeys []string, rateLimit *config.RateLimitConfig) (*Server, *http.ServeMux) {
	t.Helper()

	appCfg := &config.Config{}
	appCfg.App.MaxFileSize = 10 << 20
	appCfg.App.MaxTextChars = 15000
	appCfg.Observability.HealthCheck.Timeout = 2 * time.Second

	srv := NewServer(appCfg, ServerConfig{
		Host:            "127.0.0.1",
		Port:            "0",
		Version:         "test",
		APIKeys:         apiKeys,
		MaxRequestBytes: 1 << 20,
		RateLimit:       rateLimit,
	}, errors.NewLogger(slog.LevelError))
	t.Cleanup(func() {
		if srv.RateLimiter != nil {
			srv.RateLimiter.Close()
		}
	})

	om, err := observability.NewObservabilityManager(
		observability.ObservabilityConfig{Enabled: false}, appCfg)
	if err != nil {
		t.Fatalf("Failed to create observability manager: %v", err)
	}

	return srv, srv.routes(om)
}

// multipartBody builds a multipart request body with an optional file part
// and any number of plain fields. An empty fileName skips the file part.
func multipartBody(t *testing.T, fileName, contentType string, fileData []byte, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if fileName != "" {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
		if contentType != "" {
			h.Set("Content-Type", contentType)
		}
		part, err := w.CreatePart(h)
		if err != nil {
			t.Fatalf("Failed to create file part: %v", err)
		}
		if _, err := part.Write(fileData); err != nil {
			t.Fatalf("Failed to write file part: %v", err)
		}
	}

	for name, value := range fields {
		if err := w.WriteField(name, value); err != nil {
			t.Fatalf("Failed to write field %s: %v", name, err)
		}
	}

	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close multipart writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func postAnalyze(t *testing.T, mux *http.ServeMux, body *bytes.Buffer, contentType string, setup func(*http.Request)) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", contentType)
	if setup != nil {
		setup(req)
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.NewDecoder(rec.Body).Decode(&payload); err != nil {
		t.Fatalf("Failed to decode response body: %v", err)
	}
	return payload
}

func TestAnalyzeRejectsNonMultipart(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	body := bytes.NewBufferString(`{"resume_text":"plain json"}`)
	rec := postAnalyze(t, mux, body, "application/json", nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "Invalid multipart form data" {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
}

func TestAnalyzeRejectsMissingFile(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	body, contentType := multipartBody(t, "", "", nil, map[string]string{
		"job_description": "Backend engineer role",
	})
	rec := postAnalyze(t, mux, body, contentType, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	msg, _ := payload["error"].(string)
	if !strings.Contains(msg, "Missing resume file") {
		t.Errorf("Unexpected error message: %q", msg)
	}
}

func TestAnalyzeRejectsInvalidUploads(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	tests := []struct {
		name        string
		fileName    string
		contentType string
		data        []byte
		wantError   string
	}{
		{
			name:        "unsupported type",
			fileName:    "resume.exe",
			contentType: "application/octet-stream",
			data:        []byte("MZ\x90\x00"),
			wantError:   "Unsupported file type. Please upload a PDF, DOCX, or TXT file.",
		},
		{
			name:        "empty file",
			fileName:    "resume.txt",
			contentType: "text/plain",
			data:        nil,
			wantError:   "The selected file is empty.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body, contentType := multipartBody(t, tt.fileName, tt.contentType, tt.data, nil)
			rec := postAnalyze(t, mux, body, contentType, nil)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("Expected status 400, got %d", rec.Code)
			}
			payload := decodeBody(t, rec)
			if payload["error"] != tt.wantError {
				t.Errorf("Expected error %q, got %v", tt.wantError, payload["error"])
			}
		})
	}
}

func TestAnalyzeRejectsCorruptPDF(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	body, contentType := multipartBody(t, "resume.pdf", "application/pdf",
		[]byte("this is not a pdf document"), nil)
	rec := postAnalyze(t, mux, body, contentType, nil)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", rec.Code)
	}

	payload := decodeBody(t, rec)
	if len(payload) != 1 {
		t.Errorf("Error body should carry a single error field, got %v", payload)
	}
	if payload["error"] != "Could not extract text from resume.pdf" {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
}

func TestAnalyzeValidUploadStopsAtAIService(t *testing.T) {
	// No AI provider is configured, so a clean upload must pass intake and
	// extraction and then fail at service creation with a 5xx.
	_, mux := newTestServer(t, nil, nil)

	resume := "Jane Doe\nSoftware Engineer\n5 years building Go services."
	body, contentType := multipartBody(t, "resume.txt", "text/plain",
		[]byte(resume), map[string]string{"job_description": "Senior Go developer"})
	rec := postAnalyze(t, mux, body, contentType, nil)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("Expected status 500, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "Failed to create AI service" {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
}

func TestAnalyzeOversizedBodyReturns413(t *testing.T) {
	srv, mux := newTestServer(t, nil, nil)
	srv.MaxRequestBytes = 1024

	body, contentType := multipartBody(t, "resume.txt", "text/plain",
		bytes.Repeat([]byte("a"), 4096), nil)
	rec := postAnalyze(t, mux, body, contentType, nil)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", rec.Code)
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "Request body too large" {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
}

func TestAnalyzeAuthentication(t *testing.T) {
	_, mux := newTestServer(t, []string{"test-key-0123456789"}, nil)

	emptyForm := func() (*bytes.Buffer, string) {
		return multipartBody(t, "", "", nil, map[string]string{"job_description": "x"})
	}

	t.Run("missing key", func(t *testing.T) {
		body, contentType := emptyForm()
		rec := postAnalyze(t, mux, body, contentType, nil)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rec.Code)
		}
		payload := decodeBody(t, rec)
		msg, _ := payload["error"].(string)
		if !strings.Contains(msg, "Missing API key") {
			t.Errorf("Unexpected error message: %q", msg)
		}
	})

	t.Run("invalid key", func(t *testing.T) {
		body, contentType := emptyForm()
		rec := postAnalyze(t, mux, body, contentType, func(r *http.Request) {
			r.Header.Set("X-API-Key", "wrong-key")
		})

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("Expected status 401, got %d", rec.Code)
		}
		payload := decodeBody(t, rec)
		if payload["error"] != "Invalid API key" {
			t.Errorf("Unexpected error message: %v", payload["error"])
		}
	})

	t.Run("valid key in header", func(t *testing.T) {
		body, contentType := emptyForm()
		rec := postAnalyze(t, mux, body, contentType, func(r *http.Request) {
			r.Header.Set("X-API-Key", "test-key-0123456789")
		})

		// Past authentication; fails later on the missing file part
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})

	t.Run("valid key as bearer token", func(t *testing.T) {
		body, contentType := emptyForm()
		rec := postAnalyze(t, mux, body, contentType, func(r *http.Request) {
			r.Header.Set("Authorization", "Bearer test-key-0123456789")
		})

		if rec.Code != http.StatusBadRequest {
			t.Errorf("Expected status 400, got %d", rec.Code)
		}
	})
}

func TestRateLimitReturnsRetryAfter(t *testing.T) {
	_, mux := newTestServer(t, nil, &config.RateLimitConfig{
		Enabled:        true,
		RequestsPerMin: 1,
		BurstCapacity:  1,
		ByIP:           true,
	})

	send := func() *httptest.ResponseRecorder {
		body, contentType := multipartBody(t, "", "", nil, map[string]string{"job_description": "x"})
		return postAnalyze(t, mux, body, contentType, nil)
	}

	if rec := send(); rec.Code == http.StatusTooManyRequests {
		t.Fatalf("First request should not be rate limited, got %d", rec.Code)
	}

	rec := send()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("Expected status 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "60" {
		t.Errorf("Expected Retry-After 60, got %q", got)
	}
	payload := decodeBody(t, rec)
	if payload["error"] != "Rate limit exceeded. Please try again shortly." {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
}

func TestHealthDegradedWithoutProvider(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", rec.Code)
	}
	if rec.Header().Get(requestIDHeader) == "" {
		t.Error("Expected a generated X-Request-ID header")
	}

	payload := decodeBody(t, rec)
	if payload["status"] != "degraded" {
		t.Errorf("Expected status degraded, got %v", payload["status"])
	}
	if payload["service"] != "ats" {
		t.Errorf("Expected service ats, got %v", payload["service"])
	}
	if _, ok := payload["ai_models"]; !ok {
		t.Error("Expected ai_models in health response")
	}
}

func TestRequestIDEchoed(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(requestIDHeader, "ats-test-7f3a")
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if got := rec.Header().Get(requestIDHeader); got != "ats-test-7f3a" {
		t.Errorf("Expected client request ID to be echoed, got %q", got)
	}
}

func TestStatsReportsServerShape(t *testing.T) {
	_, mux := newTestServer(t, []string{"test-key-0123456789"}, nil)

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rec.Code)
	}

	payload := decodeBody(t, rec)
	if payload["service"] != "ats" {
		t.Errorf("Expected service ats, got %v", payload["service"])
	}
	if payload["version"] != "test" {
		t.Errorf("Expected version test, got %v", payload["version"])
	}

	uptime, ok := payload["uptime_seconds"].(float64)
	if !ok || uptime < 0 {
		t.Errorf("Expected non-negative uptime_seconds, got %v", payload["uptime_seconds"])
	}

	endpoints, _ := payload["endpoints"].([]any)
	found := false
	for _, e := range endpoints {
		if e == "/analyze" {
			found = true
		}
	}
	if !found {
		t.Errorf("Expected /analyze in endpoints, got %v", payload["endpoints"])
	}

	serverInfo, _ := payload["server"].(map[string]any)
	if serverInfo["auth_enabled"] != true {
		t.Errorf("Expected auth_enabled true, got %v", serverInfo["auth_enabled"])
	}
	if serverInfo["max_request_size_bytes"] != float64(1<<20) {
		t.Errorf("Unexpected max_request_size_bytes: %v", serverInfo["max_request_size_bytes"])
	}

	rateLimiting, _ := payload["rate_limiting"].(map[string]any)
	if rateLimiting["enabled"] != false {
		t.Errorf("Expected rate limiting disabled, got %v", payload["rate_limiting"])
	}
}

func TestReadOnlyEndpointsRejectPost(t *testing.T) {
	_, mux := newTestServer(t, nil, nil)

	for _, path := range []string{"/health", "/stats"} {
		req := httptest.NewRequest(http.MethodPost, path, nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("POST %s: expected status 405, got %d", path, rec.Code)
		}
	}
}

func TestWriteErrorResponseShape(t *testing.T) {
	rec := httptest.NewRecorder()
	writeErrorResponse(rec, "something went wrong", http.StatusTeapot)

	if rec.Code != http.StatusTeapot {
		t.Errorf("Expected status 418, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected application/json, got %q", ct)
	}

	payload := decodeBody(t, rec)
	if len(payload) != 1 {
		t.Errorf("Error body should carry a single error field, got %v", payload)
	}
	if payload["error"] != "something went wrong" {
		t.Errorf("Unexpected error message: %v", payload["error"])
	}
}

func TestUserMessage(t *testing.T) {
	appErr := errors.NewValidationError(errors.ErrCodeUnsupportedType,
		"Unsupported file type.", nil)

	tests := []struct {
		name string
		err  error
		want string
	}{
		{"app error", appErr, "Unsupported file type."},
		{"wrapped app error", fmt.Errorf("handling upload: %w", appErr), "Unsupported file type."},
		{"plain error", fmt.Errorf("dial tcp: connection refused"), "The request could not be processed. Please try again."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := userMessage(tt.err); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestIsRequestTooLarge(t *testing.T) {
	maxBytesErr := &http.MaxBytesError{Limit: 1024}

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"max bytes error", maxBytesErr, true},
		{"wrapped max bytes error", fmt.Errorf("multipart: NextPart: %w", maxBytesErr), true},
		{"message only", fmt.Errorf("reading body: %v", maxBytesErr), true},
		{"unrelated error", fmt.Errorf("unexpected EOF"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isRequestTooLarge(tt.err); got != tt.want {
				t.Errorf("Expected %v, got %v", tt.want, got)
			}
		})
	}
}

func TestMaskAPIKey(t *testing.T) {
	tests := []struct {
		apiKey string
		want   string
	}{
		{"", "****"},
		{"short", "****"},
		{"12345678", "****"},
		{"123456789", "12345678****"},
		{"sk-live-abcdef123456", "sk-live-****"},
	}

	for _, tt := range tests {
		if got := maskAPIKey(tt.apiKey); got != tt.want {
			t.Errorf("maskAPIKey(%q): expected %q, got %q", tt.apiKey, tt.want, got)
		}
	}
}

func TestClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{
			name:       "forwarded for single",
			remoteAddr: "10.0.0.8:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9"},
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded for list",
			remoteAddr: "10.0.0.8:1234",
			headers:    map[string]string{"X-Forwarded-For": "203.0.113.9, 70.41.3.18"},
			want:       "203.0.113.9",
		},
		{
			name:       "forwarded for invalid first entry",
			remoteAddr: "10.0.0.8:1234",
			headers:    map[string]string{"X-Forwarded-For": "unknown, 70.41.3.18"},
			want:       "70.41.3.18",
		},
		{
			name:       "real ip fallback",
			remoteAddr: "10.0.0.8:1234",
			headers:    map[string]string{"X-Forwarded-For": "unknown", "X-Real-IP": "198.51.100.2"},
			want:       "198.51.100.2",
		},
		{
			name:       "remote addr fallback",
			remoteAddr: "10.0.0.8:1234",
			want:       "10.0.0.8",
		},
		{
			name:       "remote addr without port",
			remoteAddr: "192.0.2.44",
			want:       "192.0.2.44",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remoteAddr
			for name, value := range tt.headers {
				req.Header.Set(name, value)
			}

			if got := clientIP(req); got != tt.want {
				t.Errorf("Expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestFirstForwardedIP(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"203.0.113.7", "203.0.113.7"},
		{" 203.0.113.7 , 10.0.0.1", "203.0.113.7"},
		{"garbage, 10.0.0.1", "10.0.0.1"},
		{"garbage", ""},
		{"", ""},
	}

	for _, tt := range tests {
		if got := firstForwardedIP(tt.input); got != tt.want {
			t.Errorf("firstForwardedIP(%q): expected %q, got %q", tt.input, tt.want, got)
		}
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	tests := []struct {
		requestsPerMin int
		want           int
	}{
		{60, 1},
		{120, 1},
		{30, 2},
		{1, 60},
		{0, 1},
	}

	for _, tt := range tests {
		m := NewRateLimiter(tt.requestsPerMin, 1, nil)
		if got := m.RetryAfter(); got != tt.want {
			t.Errorf("RetryAfter with %d rpm: expected %d, got %d", tt.requestsPerMin, tt.want, got)
		}
		m.Close()
	}
}

func TestRateLimiterBurst(t *testing.T) {
	m := NewRateLimiter(1, 2, nil)
	defer m.Close()

	if !m.Allow("client-a") {
		t.Error("First request within burst should be allowed")
	}
	if !m.Allow("client-a") {
		t.Error("Second request within burst should be allowed")
	}
	if m.Allow("client-a") {
		t.Error("Third request should exceed burst capacity")
	}

	// Other keys keep their own bucket
	if !m.Allow("client-b") {
		t.Error("Fresh key should have a full bucket")
	}

	stats := m.GetStats()
	if stats["active_limiters"] != 2 {
		t.Errorf("Expected 2 active limiters, got %v", stats["active_limiters"])
	}
}
