package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	atsErrors "github.com/sreekeshm77/ATS-project/internal/errors"
)

func TestNewTrimsTrailingSlash(t *testing.T) {
	c := New(config.ClientConfig{ServerURL: "http://localhost:8080/"})
	if c.baseURL != "http://localhost:8080" {
		t.Errorf("Expected trimmed base URL, got %q", c.baseURL)
	}
}

func TestAnalyzeSubmitsMultipart(t *testing.T) {
	var gotAPIKey, gotRequestID, gotFilename, gotContent, gotJob string

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			t.Errorf("Unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAPIKey = r.Header.Get("X-API-Key")
		gotRequestID = r.Header.Get("X-Request-ID")

		if err := r.ParseMultipartForm(10 << 20); err != nil {
			t.Errorf("Failed to parse multipart form: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Missing file part: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()

		data, _ := io.ReadAll(file)
		gotFilename = header.Filename
		gotContent = string(data)
		gotJob = r.FormValue("job_description")

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{
			"ats_score": 120,
			"overall_feedback": "Strong resume",
			"keyword_analysis": {"keyword_score": 70, "present_keywords": ["Go"]},
			"formatting_score": 80,
			"content_quality_score": 75
		}`)
	}))
	defer ts.Close()

	c := New(config.ClientConfig{ServerURL: ts.URL, APIKey: "key-123"})
	upload := Upload{Name: "resume.txt", MIME: "text/plain", Data: []byte("Jane Doe, Engineer")}

	result, err := c.Analyze(context.Background(), upload, "Senior Go developer")
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if gotAPIKey != "key-123" {
		t.Errorf("Expected API key header, got %q", gotAPIKey)
	}
	if gotRequestID == "" {
		t.Error("Expected a request ID header")
	}
	if gotFilename != "resume.txt" || gotContent != "Jane Doe, Engineer" {
		t.Errorf("Unexpected file part: %q %q", gotFilename, gotContent)
	}
	if gotJob != "Senior Go developer" {
		t.Errorf("Unexpected job description: %q", gotJob)
	}

	// Out-of-range scores are clamped and nil lists materialized
	if result.ATSScore != 100 {
		t.Errorf("Expected clamped score 100, got %d", result.ATSScore)
	}
	if result.KeywordAnalysis.KeywordScore != 70 {
		t.Errorf("Expected keyword score 70, got %d", result.KeywordAnalysis.KeywordScore)
	}
	if result.KeywordAnalysis.MissingKeywords == nil || result.Strengths == nil {
		t.Error("Expected sanitized result to materialize empty lists")
	}
}

func TestAnalyzeServerErrorVerbatim(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"bad file"}`)
	}))
	defer ts.Close()

	c := New(config.ClientConfig{ServerURL: ts.URL})
	_, err := c.Analyze(context.Background(), Upload{Name: "r.txt", MIME: "text/plain", Data: []byte("x")}, "")
	if err == nil {
		t.Fatal("Expected an error for a 400 response")
	}

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("Expected *ServerError, got %T", err)
	}
	if serverErr.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", serverErr.StatusCode)
	}
	if serverErr.Message != "bad file" {
		t.Errorf("Expected the server message verbatim, got %q", serverErr.Message)
	}
	if err.Error() != "bad file" {
		t.Errorf("Error() should surface the server message, got %q", err.Error())
	}
	if serverErr.RequestID == "" {
		t.Error("Expected the request ID to be carried on the error")
	}
}

func TestAnalyzeRetryAfter(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":"Rate limit exceeded. Please try again shortly."}`)
	}))
	defer ts.Close()

	c := New(config.ClientConfig{ServerURL: ts.URL})
	_, err := c.Analyze(context.Background(), Upload{Name: "r.txt", MIME: "text/plain", Data: []byte("x")}, "")

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("Expected *ServerError, got %v", err)
	}
	if serverErr.RetryAfter != 60*time.Second {
		t.Errorf("Expected RetryAfter 60s, got %v", serverErr.RetryAfter)
	}
}

func TestAnalyzeMalformedErrorBody(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "<html>upstream exploded</html>")
	}))
	defer ts.Close()

	c := New(config.ClientConfig{ServerURL: ts.URL})
	_, err := c.Analyze(context.Background(), Upload{Name: "r.txt", MIME: "text/plain", Data: []byte("x")}, "")

	var serverErr *ServerError
	if !errors.As(err, &serverErr) {
		t.Fatalf("Expected *ServerError, got %v", err)
	}
	if serverErr.Message != "The server returned 500 Internal Server Error" {
		t.Errorf("Unexpected fallback message: %q", serverErr.Message)
	}
}

func TestAnalyzeTransportFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	serverURL := ts.URL
	ts.Close()

	c := New(config.ClientConfig{ServerURL: serverURL})
	_, err := c.Analyze(context.Background(), Upload{Name: "r.txt", MIME: "text/plain", Data: []byte("x")}, "")
	if err == nil {
		t.Fatal("Expected an error when the server is unreachable")
	}

	var appErr *atsErrors.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("Expected *AppError, got %T", err)
	}
	if appErr.Type != atsErrors.ErrorTypeNetwork {
		t.Errorf("Expected a network error, got %s", appErr.Type)
	}
	if appErr.Message != "Could not reach the analysis server. Is it running?" {
		t.Errorf("Unexpected message: %q", appErr.Message)
	}
}

func TestLoadUpload(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid text file", func(t *testing.T) {
		path := filepath.Join(dir, "resume.txt")
		if err := os.WriteFile(path, []byte("Jane Doe\nEngineer"), 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		upload, err := LoadUpload(path)
		if err != nil {
			t.Fatalf("LoadUpload failed: %v", err)
		}
		if upload.Name != "resume.txt" || upload.MIME != "text/plain" {
			t.Errorf("Unexpected upload metadata: %+v", upload.Meta())
		}
		if upload.Meta().Size != int64(len("Jane Doe\nEngineer")) {
			t.Errorf("Unexpected size: %d", upload.Meta().Size)
		}
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := filepath.Join(dir, "notes.exe")
		if err := os.WriteFile(path, []byte("MZ"), 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		_, err := LoadUpload(path)
		if err == nil {
			t.Fatal("Expected an error for an unsupported extension")
		}

		var appErr *atsErrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != atsErrors.ErrCodeUnsupportedType {
			t.Errorf("Expected %s, got %v", atsErrors.ErrCodeUnsupportedType, err)
		}
	})

	t.Run("empty file", func(t *testing.T) {
		path := filepath.Join(dir, "empty.txt")
		if err := os.WriteFile(path, nil, 0o644); err != nil {
			t.Fatalf("Failed to write fixture: %v", err)
		}

		_, err := LoadUpload(path)
		var appErr *atsErrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != atsErrors.ErrCodeEmptyDocument {
			t.Errorf("Expected %s, got %v", atsErrors.ErrCodeEmptyDocument, err)
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadUpload(filepath.Join(dir, "nope.pdf"))
		var appErr *atsErrors.AppError
		if !errors.As(err, &appErr) || appErr.Code != atsErrors.ErrCodeFileNotFound {
			t.Errorf("Expected %s, got %v", atsErrors.ErrCodeFileNotFound, err)
		}
	})
}

func TestAnalyzeFileValidatesBeforeUpload(t *testing.T) {
	requests := 0
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
	}))
	defer ts.Close()

	dir := t.TempDir()
	path := filepath.Join(dir, "resume.exe")
	if err := os.WriteFile(path, []byte("MZ"), 0o644); err != nil {
		t.Fatalf("Failed to write fixture: %v", err)
	}

	c := New(config.ClientConfig{ServerURL: ts.URL})
	if _, err := c.AnalyzeFile(context.Background(), path, ""); err == nil {
		t.Fatal("Expected a validation error")
	}
	if requests != 0 {
		t.Errorf("Validation failure must not reach the network, saw %d requests", requests)
	}
}
