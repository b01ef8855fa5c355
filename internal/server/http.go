package server

import (
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	atsErrors "github.com/sreekeshm77/ATS-project/internal/errors"
)

// ErrorResponse is the body of every non-2xx response. Clients surface
// the error string verbatim, so it must stay human-readable.
type ErrorResponse struct {
	Error string `json:"error"`
}

// Server carries everything the HTTP layer needs: listener settings, TLS
// material, authentication keys, limits and the shared logger.
type Server struct {
	Host    string
	Port    string
	Version string

	AppConfig   *config.Config
	Logger      *atsErrors.Logger
	TLSConfig   config.TLSConfig
	CertManager *CertificateManager

	// API keys as a set for O(1) lookup
	APIKeys map[string]bool

	// Cap on the request body, multipart overhead included
	MaxRequestBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	RateLimit       *config.RateLimitConfig
	RateLimiter     *RateLimiter

	// For uptime reporting
	StartTime time.Time
}

// ServerConfig bundles the per-listener settings passed to NewServer.
type ServerConfig struct {
	Host    string
	Port    string
	Version string

	APIKeys         []string
	TLSConfig       config.TLSConfig
	RateLimit       *config.RateLimitConfig
	MaxRequestBytes int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
}

// NewServer builds a Server. The rate limiter is only constructed when
// rate limiting is enabled; a nil limiter disables the middleware.
func NewServer(appCfg *config.Config, cfg ServerConfig, logger *atsErrors.Logger) *Server {
	s := &Server{
		AppConfig: appCfg,
		Logger:    logger,
		APIKeys:   make(map[string]bool, len(cfg.APIKeys)),
		StartTime: time.Now(),
	}
	s.Host, s.Port, s.Version = cfg.Host, cfg.Port, cfg.Version
	s.TLSConfig = cfg.TLSConfig
	s.MaxRequestBytes = cfg.MaxRequestBytes
	s.ReadTimeout, s.WriteTimeout, s.IdleTimeout = cfg.ReadTimeout, cfg.WriteTimeout, cfg.IdleTimeout
	s.RateLimit = cfg.RateLimit

	for _, k := range cfg.APIKeys {
		if k != "" {
			s.APIKeys[k] = true
		}
	}
	if rl := cfg.RateLimit; rl != nil && rl.Enabled {
		s.RateLimiter = NewRateLimiter(rl.RequestsPerMin, rl.BurstCapacity, logger)
	}
	return s
}
