package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/sreekeshm77/ATS-project/internal/observability"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type requestIDKey struct{}

// RequestIDFromContext returns the request ID attached by the middleware,
// or empty if the request never passed through it.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

// routes wires the endpoint handlers with their middleware chains. Every
// route carries a request ID; only /analyze goes through rate limiting,
// authentication and the body size cap. Method matching is left to the mux
// patterns.
func (s *Server) routes(om *observability.ObservabilityManager) *http.ServeMux {
	rateLimited := s.rateLimitWithMetrics(om)

	m := http.NewServeMux()
	m.HandleFunc("GET /health", s.requestIDMiddleware(s.healthHandler))
	m.HandleFunc("GET /stats", s.requestIDMiddleware(s.statsHandler))
	m.HandleFunc("POST /analyze", s.requestIDMiddleware(
		rateLimited(s.requireAPIKey(s.limitRequestSize(s.analyzeHandler(om)))),
	))
	return m
}

// requestIDMiddleware assigns each request a correlation ID. A client-sent
// X-Request-ID is honored so the terminal client and server logs line up;
// otherwise a fresh UUID is generated. The ID is echoed in the response.
func (s *Server) requestIDMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDKey{}, requestID)
		next(w, r.WithContext(ctx))
	}
}

// apiKeyFromRequest pulls the client key from the X-API-Key header, falling
// back to an Authorization Bearer token.
func apiKeyFromRequest(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return token
	}
	return ""
}

// requireAPIKey enforces API key authentication. With no keys configured
// the server is open and the middleware passes everything through.
func (s *Server) requireAPIKey(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		keys := s.APIKeys
		if len(keys) == 0 {
			next(w, r)
			return
		}

		key := apiKeyFromRequest(r)
		if key == "" {
			s.Logger.Info("Rejected request without API key", "endpoint", r.URL.Path, "client_ip", r.RemoteAddr, "request_id", RequestIDFromContext(r.Context()))
			writeErrorResponse(w, "Missing API key. Send it in the X-API-Key header or as a Bearer token.", http.StatusUnauthorized)
			return
		}
		if !keys[key] {
			s.Logger.Info("Rejected request with unknown API key", "endpoint", r.URL.Path, "client_ip", r.RemoteAddr, "api_key_prefix", maskAPIKey(key))
			writeErrorResponse(w, "Invalid API key", http.StatusUnauthorized)
			return
		}

		s.Logger.Debug("API key accepted", "endpoint", r.URL.Path, "client_ip", r.RemoteAddr, "api_key_prefix", maskAPIKey(key))
		next(w, r)
	}
}

// limitRequestSize caps the request body with MaxBytesReader so oversized
// uploads surface as a typed error instead of reading without bound.
func (s *Server) limitRequestSize(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.MaxRequestBytes > 0 {
			r.Body = http.MaxBytesReader(w, r.Body, s.MaxRequestBytes)
		}
		next(w, r)
	}
}

// maskAPIKey keeps at most the first 8 characters for log lines.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:8] + "****"
}
