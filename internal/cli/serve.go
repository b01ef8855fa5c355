package cli

import (
	"fmt"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// multipartOverhead is headroom on top of the file size limit for the
// multipart boundaries, part headers and the job description field.
const multipartOverhead = 256 << 10

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP resume analysis server",
	Long: `Start an HTTP server that analyzes uploaded resumes for ATS compatibility.

Endpoints:
- POST /analyze  Upload a resume (multipart "file" field, optional "job_description") and receive the analysis
- GET /health    Liveness plus AI model, circuit breaker and certificate status
- GET /stats     Uptime, endpoint list and rate limiter occupancy

TLS:
- --tls-mode selects disabled, server or mutual
- --cert-file and --key-file supply the server keypair
- --ca-file supplies the CA bundle that client certificates are checked against in mutual mode`,
	RunE: runServe,
}

func init() {
	flags := serveCmd.Flags()
	flags.StringP("port", "p", "", "Port to listen on (default from config)")
	flags.String("host", "", "Host to bind to (default from config)")
	flags.String("tls-mode", "", "TLS mode: disabled, server, mutual (overrides config)")
	flags.String("cert-file", "", "Server certificate file (PEM, overrides config)")
	flags.String("key-file", "", "Server private key file (PEM, overrides config)")
	flags.String("ca-file", "", "CA certificate file for client cert verification (PEM, overrides config)")

	// Let the flags override their viper config keys
	bindings := map[string]string{
		"server.port":         "port",
		"server.host":         "host",
		"server.tls.mode":     "tls-mode",
		"server.tls.certfile": "cert-file",
		"server.tls.keyfile":  "key-file",
		"server.tls.cafile":   "ca-file",
	}
	for key, name := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(err)
		}
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg := configFromContext(cmd.Context())
	logger := loggerFromContext(cmd.Context())

	// Refuse to start a server that cannot reach the model
	if err := cfg.RequireAIKey(); err != nil {
		return err
	}

	// TLS settings may have been overridden by flags, so validate them again
	probe := &config.Config{Server: cfg.Server}
	if err := probe.ValidateTLSConfig(); err != nil {
		return fmt.Errorf("invalid TLS settings: %w", err)
	}

	srv := &cfg.Server
	sc := server.ServerConfig{
		Host:            srv.Host,
		Port:            srv.Port,
		Version:         Version,
		APIKeys:         srv.APIKeys,
		TLSConfig:       srv.TLS,
		RateLimit:       &srv.RateLimit,
		MaxRequestBytes: cfg.App.MaxFileSize + multipartOverhead,
		ReadTimeout:     srv.ReadTimeout,
		WriteTimeout:    srv.WriteTimeout,
		IdleTimeout:     srv.IdleTimeout,
	}
	return server.NewServer(cfg, sc, logger).Start()
}
