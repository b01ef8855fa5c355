package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/ai"
	atsErrors "github.com/sreekeshm77/ATS-project/internal/errors"
)

// Certificate expiry thresholds for health reporting.
const (
	certExpiryCritical = 24 * time.Hour
	certExpiryWarning  = 7 * 24 * time.Hour
)

// healthHandler reports service health: AI model reachability, circuit
// breaker state and, when TLS is active, certificate status. A degraded
// service answers 503 so load balancer probes take it out of rotation.
func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{
		"status":  "healthy",
		"service": "ats",
		"version": s.Version,
	}

	aiStatus, aiHealthy := s.aiModelHealth()
	resp["ai_models"] = aiStatus

	breakerStatus, breakerHealthy := s.circuitBreakerHealth()
	resp["circuit_breakers"] = breakerStatus

	healthy := aiHealthy && breakerHealthy
	if certStatus := s.certificateHealth(); certStatus != nil {
		resp["certificates"] = certStatus
		if ok, isBool := certStatus["healthy"].(bool); isBool && !ok {
			healthy = false
		}
	}

	status := http.StatusOK
	if !healthy {
		resp["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

// analyzeAIService builds a fresh AI service for health probes. Creation is
// cheap and keeps the probe honest about configuration problems.
func (s *Server) analyzeAIService() (*ai.Service, error) {
	cfg := s.AppConfig.GetAnalyzeConfig()
	return ai.NewService(&cfg, "analyze", s.Logger)
}

// analyzeUnavailable is the health payload when the analyze service cannot
// even be constructed.
func analyzeUnavailable(err error) map[string]any {
	return map[string]any{"analyze": map[string]any{
		"available": false,
		"error":     fmt.Sprintf("analyze service unavailable: %v", err),
	}}
}

// aiModelHealth probes the model configured for the analyze operation.
func (s *Server) aiModelHealth() (map[string]any, bool) {
	ctx, cancel := context.WithTimeout(context.Background(),
		s.AppConfig.Observability.HealthCheck.Timeout)
	defer cancel()

	service, err := s.analyzeAIService()
	if err != nil {
		return analyzeUnavailable(err), false
	}

	info := service.Provider.GetModelInfo(ctx)
	return map[string]any{"analyze": info}, info.Available
}

// circuitBreakerHealth reports breaker state for the analyze operation. An
// open breaker marks the service degraded even while the model itself still
// answers health probes.
func (s *Server) circuitBreakerHealth() (map[string]any, bool) {
	service, err := s.analyzeAIService()
	if err != nil {
		return analyzeUnavailable(err), false
	}

	provider, ok := service.Provider.(*ai.GeminiProvider)
	if !ok {
		return map[string]any{"analyze": map[string]any{
			"available": true,
			"message":   "Provider does not expose circuit breaker stats",
		}}, true
	}

	stats := provider.GetCircuitBreakerStats()
	healthy := true
	if overall, ok := stats["overall_healthy"].(bool); ok {
		healthy = overall
	}
	return map[string]any{"analyze": stats}, healthy
}

// certExpiryCondition grades the remaining certificate lifetime.
func certExpiryCondition(remaining time.Duration) (healthy bool, status, message string) {
	switch {
	case remaining <= 0:
		return false, "expired", "Certificate has expired"
	case remaining <= certExpiryCritical:
		return false, "critical", "Certificate expires within 24 hours"
	case remaining <= certExpiryWarning:
		return true, "warning", "Certificate expires within 7 days"
	default:
		return true, "ok", "Certificate is valid"
	}
}

// certificateHealth describes the TLS certificate state, or nil when the
// server runs without a certificate manager.
func (s *Server) certificateHealth() map[string]any {
	cm := s.CertManager
	if cm == nil {
		return nil
	}

	remaining, err := cm.CheckExpiry()
	if err != nil {
		return map[string]any{
			"healthy": false,
			"error":   fmt.Sprintf("Failed to check certificate expiry: %v", err),
		}
	}

	healthy, status, message := certExpiryCondition(remaining)
	certStatus := map[string]any{
		"healthy":              healthy,
		"status":               status,
		"message":              message,
		"time_to_expiry":       remaining.String(),
		"time_to_expiry_hours": int(remaining.Hours()),
	}

	ar := s.TLSConfig.AutoReload
	reload := map[string]any{"enabled": ar.Enabled}
	if ar.Enabled {
		reload["file_watcher_enabled"] = ar.FileWatcher.Enabled
		reload["vault_watcher_enabled"] = ar.VaultWatcher.Enabled
		if cm.diskWatcher != nil {
			reload["file_watcher_running"] = cm.diskWatcher.IsRunning()
			reload["watched_files"] = cm.diskWatcher.GetWatchedFiles()
		}
		if cm.vaultPoller != nil {
			reload["vault_watcher_status"] = cm.vaultPoller.Status()
		}
	}
	certStatus["auto_reload"] = reload

	if m := cm.GetMetrics(); m != nil {
		rm := make(map[string]any, 6)
		rm["reload_count"] = m.Reloads
		rm["reload_success_count"] = m.ReloadSuccesses
		rm["reload_failure_count"] = m.ReloadFailures
		rm["last_reload_time"] = m.LastReloadTime
		rm["last_reload_success"] = m.LastReloadSuccess
		rm["last_reload_error"] = m.LastReloadError
		certStatus["metrics"] = rm
	}
	return certStatus
}

// statsHandler reports uptime, endpoint inventory and rate limit state.
func (s *Server) statsHandler(w http.ResponseWriter, _ *http.Request) {
	rlStats := map[string]any{"enabled": false}
	if lim := s.RateLimiter; lim != nil {
		rlStats = lim.GetStats()
	}

	srv := map[string]any{
		"max_request_size_bytes": s.MaxRequestBytes,
		"max_file_size_bytes":    s.AppConfig.App.MaxFileSize,
		"auth_enabled":           len(s.APIKeys) > 0,
	}

	resp := map[string]any{
		"service":        "ats",
		"version":        s.Version,
		"uptime_seconds": int64(time.Since(s.StartTime).Seconds()),
		"endpoints":      []string{"/analyze", "/health", "/stats"},
		"server":         srv,
		"rate_limiting":  rlStats,
	}

	if rl := s.RateLimit; rl != nil {
		resp["rate_limit_config"] = map[string]any{
			"enabled":          rl.Enabled,
			"requests_per_min": rl.RequestsPerMin,
			"burst_capacity":   rl.BurstCapacity,
			"by_ip":            rl.ByIP,
			"by_api_key":       rl.ByAPIKey,
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// userMessage extracts the display message from an error. Structured
// application errors carry a user-facing Message; anything else falls
// back to a generic line so internal detail never reaches clients.
func userMessage(err error) string {
	var appErr *atsErrors.AppError
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return "The request could not be processed. Please try again."
}

// isRequestTooLarge reports whether err came from the MaxBytesReader limit.
// The multipart reader does not always wrap the limit error, so the message
// is checked as a fallback.
func isRequestTooLarge(err error) bool {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "request body too large")
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Failed to encode response: %v", err)
	}
}

// writeErrorResponse sends the single-field error body every endpoint uses.
func writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ErrorResponse{Error: message})
}
