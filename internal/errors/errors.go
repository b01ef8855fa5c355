package errors

import (
	"fmt"
	"log/slog"
	"os"
)

// ErrorType groups errors by failure domain. Handlers map these to HTTP
// status codes and exit behavior.
type ErrorType string

const (
	ErrorTypeValidation ErrorType = "validation"
	ErrorTypeIO         ErrorType = "io"
	ErrorTypeAI         ErrorType = "ai"
	ErrorTypeNetwork    ErrorType = "network"
	ErrorTypeConfig     ErrorType = "config"
	ErrorTypeInternal   ErrorType = "internal"
)

// AppError is the structured error carried across package boundaries: a
// stable machine-readable code plus a human-readable message, with the
// underlying cause preserved for errors.Is/As.
type AppError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"cause,omitempty"`

	Context map[string]any `json:"context,omitempty"`
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair that LogError will emit alongside
// the error fields.
func (e *AppError) WithContext(key string, value any) *AppError {
	if e.Context == nil {
		e.Context = map[string]any{}
	}
	e.Context[key] = value
	return e
}

func NewValidationError(code, msg string, cause error) *AppError {
	return &AppError{Type: ErrorTypeValidation, Code: code, Message: msg, Cause: cause}
}

func NewIOError(code, msg string, cause error) *AppError {
	return &AppError{Type: ErrorTypeIO, Code: code, Message: msg, Cause: cause}
}

func NewAIError(code, msg string, cause error) *AppError {
	return &AppError{Type: ErrorTypeAI, Code: code, Message: msg, Cause: cause}
}

func NewNetworkError(code, msg string, cause error) *AppError {
	return &AppError{Type: ErrorTypeNetwork, Code: code, Message: msg, Cause: cause}
}

func NewConfigError(code, msg string, cause error) *AppError {
	return &AppError{Type: ErrorTypeConfig, Code: code, Message: msg, Cause: cause}
}

func NewInternalError(code, msg string, cause error) *AppError {
	return &AppError{Type: ErrorTypeInternal, Code: code, Message: msg, Cause: cause}
}

// Logger is a thin wrapper over slog that knows how to unpack AppError
// fields into log attributes.
type Logger struct {
	base *slog.Logger
}

// NewLogger builds a JSON logger writing to stdout at the given level.
func NewLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	return &Logger{base: slog.New(handler)}
}

var logLevels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// New builds a logger from a level name as it appears in configuration.
func New(level string) (*Logger, error) {
	lvl, ok := logLevels[level]
	if !ok {
		return nil, fmt.Errorf("unknown log level %q", level)
	}
	return NewLogger(lvl), nil
}

// LogError emits err at error level. An AppError contributes its type,
// code, message and attached context as separate attributes.
func (l *Logger) LogError(err error, msg string, args ...any) {
	appErr, ok := err.(*AppError)
	if !ok {
		l.base.Error(msg, append([]any{"error", err.Error()}, args...)...)
		return
	}

	attrs := []any{
		"error_type", appErr.Type,
		"error_code", appErr.Code,
		"error_message", appErr.Message,
	}
	for key, value := range appErr.Context {
		attrs = append(attrs, key, value)
	}
	attrs = append(attrs, args...)
	l.base.Error(msg, attrs...)
}

func (l *Logger) Info(msg string, args ...any) {
	l.base.Info(msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.base.Debug(msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.base.Warn(msg, args...)
}

// Error codes shared across packages.
const (
	ErrCodeFileNotFound     = "FILE_NOT_FOUND"
	ErrCodeFileNotReadable  = "FILE_NOT_READABLE"
	ErrCodeFileTooLarge     = "FILE_TOO_LARGE"
	ErrCodeUnsupportedType  = "UNSUPPORTED_FILE_TYPE"
	ErrCodeEmptyDocument    = "EMPTY_DOCUMENT"
	ErrCodeExtractionFailed = "EXTRACTION_FAILED"
	ErrCodeInvalidFormat    = "INVALID_FORMAT"
	ErrCodeAIServiceFailed  = "AI_SERVICE_FAILED"
	ErrCodeInvalidRequest   = "INVALID_REQUEST"
	ErrCodeConnectionFailed = "CONNECTION_FAILED"
	ErrCodeInvalidConfig    = "INVALID_CONFIG"
)
