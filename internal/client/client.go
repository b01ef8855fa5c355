// Package client submits resumes to the analysis server and decodes the
// canonical result. The terminal front end drives it, so it stays quiet:
// no logging, no retries and no timeout of its own. The server owns
// request deadlines and the user owns resubmission.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/intake"
	"github.com/sreekeshm77/ATS-project/internal/types"
)

// Upload is an in-memory document ready for submission
type Upload struct {
	Name string // Original filename
	MIME string // Declared content type
	Data []byte
}

// Meta returns the intake view of the upload
func (u Upload) Meta() intake.FileMeta {
	return intake.FileMeta{Name: u.Name, MIME: u.MIME, Size: int64(len(u.Data))}
}

// ServerError is a non-2xx response from the analysis server. Message
// carries the server's error string verbatim so the UI shows exactly
// what the server said.
type ServerError struct {
	StatusCode int
	Message    string
	RequestID  string
	RetryAfter time.Duration // populated from the Retry-After header on 429
}

func (e *ServerError) Error() string {
	return e.Message
}

// Client talks to the analysis server
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a client for the configured server. The API key, when set,
// is sent as X-API-Key on every request.
func New(cfg config.ClientConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.ServerURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{},
	}
}

// Analyze submits the upload with an optional job description and returns
// the decoded analysis. Non-2xx responses come back as *ServerError.
func (c *Client) Analyze(ctx context.Context, upload Upload, jobDescription string) (*types.AnalysisResult, error) {
	body, contentType, err := encodeMultipart(upload, jobDescription)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Failed to encode the upload", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return nil, errors.NewInternalError(errors.ErrCodeInvalidRequest,
			"Failed to build the request", err)
	}

	requestID := uuid.NewString()
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Request-ID", requestID)
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeConnectionFailed,
			"Could not reach the analysis server. Is it running?", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeServerError(resp, requestID)
	}

	var result types.AnalysisResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.NewNetworkError(errors.ErrCodeInvalidFormat,
			"The server response could not be decoded", err)
	}

	// Clamp scores and materialize lists even if the server is an older
	// build that skips sanitization.
	result = result.Sanitized()
	return &result, nil
}

// AnalyzeFile reads a document from disk and submits it. Intake rule
// violations fail before any bytes are sent.
func (c *Client) AnalyzeFile(ctx context.Context, path, jobDescription string) (*types.AnalysisResult, error) {
	upload, err := LoadUpload(path)
	if err != nil {
		return nil, err
	}
	return c.Analyze(ctx, upload, jobDescription)
}

// LoadUpload reads a document from disk after checking it against the
// intake rules
func LoadUpload(path string) (Upload, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Upload{}, errors.NewIOError(errors.ErrCodeFileNotFound,
			fmt.Sprintf("Cannot access file: %s", path), err)
	}

	meta := intake.FileMeta{
		Name: filepath.Base(path),
		MIME: intake.MIMEForName(path),
		Size: info.Size(),
	}
	if err := intake.Validate(meta); err != nil {
		return Upload{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Upload{}, errors.NewIOError(errors.ErrCodeFileNotReadable,
			fmt.Sprintf("Cannot read file: %s", path), err)
	}

	return Upload{Name: meta.Name, MIME: meta.MIME, Data: data}, nil
}

func encodeMultipart(upload Upload, jobDescription string) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition",
		fmt.Sprintf(`form-data; name="file"; filename="%s"`, escapeQuotes(upload.Name)))
	if upload.MIME != "" {
		h.Set("Content-Type", upload.MIME)
	}
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := part.Write(upload.Data); err != nil {
		return nil, "", err
	}

	if jobDescription != "" {
		if err := w.WriteField("job_description", jobDescription); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return &buf, w.FormDataContentType(), nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func escapeQuotes(s string) string {
	return quoteEscaper.Replace(s)
}

// decodeServerError builds a ServerError from a non-2xx response. When
// the body does not conform to the {"error": string} contract the status
// line stands in for the message.
func decodeServerError(resp *http.Response, requestID string) *ServerError {
	serverErr := &ServerError{
		StatusCode: resp.StatusCode,
		RequestID:  requestID,
		Message:    fmt.Sprintf("The server returned %s", resp.Status),
	}

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&payload); err == nil && payload.Error != "" {
		serverErr.Message = payload.Error
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
			serverErr.RetryAfter = time.Duration(secs) * time.Second
		}
	}
	return serverErr
}
