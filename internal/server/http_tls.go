package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/observability"
)

// configureTLS applies the configured TLS mode to the HTTP server. In
// "disabled" mode the server stays plain HTTP; "server" and "mutual" share
// the setup path and differ only in client authentication.
func (s *Server) configureTLS(srv *http.Server, vc VaultClientInterface, om *observability.ObservabilityManager) error {
	mode := s.TLSConfig.Mode
	announceTLSMode(mode, srv.Addr)

	switch mode {
	case "disabled":
		return nil
	case "server", "mutual":
	default:
		return fmt.Errorf("invalid TLS mode %q (expected disabled, server, or mutual)", mode)
	}

	if s.TLSConfig.AutoReload.Enabled {
		if err := s.startCertificateManager(vc, om); err != nil {
			return err
		}
	}

	built, err := s.newTLSConfig()
	if err != nil {
		return fmt.Errorf("failed to build TLS config: %w", err)
	}
	srv.TLSConfig = built
	return nil
}

func announceTLSMode(mode, addr string) {
	switch mode {
	case "mutual":
		fmt.Printf("Starting HTTPS server on https://%s\n", addr)
		fmt.Println("TLS: mutual, client certificates required")
	case "server":
		fmt.Printf("Starting HTTPS server on https://%s\n", addr)
		fmt.Println("TLS: server-only, no client certificates")
	case "disabled":
		fmt.Printf("Starting HTTP server on http://%s\n", addr)
		fmt.Println("TLS: disabled")
	}
}

// startCertificateManager brings up live certificate management for
// auto-reload.
func (s *Server) startCertificateManager(vc VaultClientInterface, om *observability.ObservabilityManager) error {
	cm := NewCertificateManager(&s.TLSConfig, &s.TLSConfig.AutoReload, vc, om, s.Logger)
	if err := cm.Start(); err != nil {
		return fmt.Errorf("could not start certificate manager: %w", err)
	}
	s.CertManager = cm

	cm.AddReloadCallback(func(ok bool, err error) {
		if ok {
			s.Logger.Info("TLS certificate reload succeeded")
		} else {
			s.Logger.LogError(err, "TLS certificate reload failed")
		}
	})

	ar := s.TLSConfig.AutoReload
	fmt.Println("Certificate auto-reload: ENABLED")
	if ar.FileWatcher.Enabled {
		fmt.Println("  - watching certificate files")
	}
	if ar.VaultWatcher.Enabled {
		fmt.Println("  - polling Vault for new material")
	}
	return nil
}

// vaultClientForReload creates a Vault client when the Vault watcher needs
// one.
func (s *Server) vaultClientForReload() (VaultClientInterface, error) {
	if ar := s.TLSConfig.AutoReload; !ar.VaultWatcher.Enabled {
		return nil, nil
	}

	client, err := config.NewVaultClient(s.AppConfig.Vault, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	if client == nil {
		// Vault disabled in config; avoid handing a typed nil to callers
		return nil, nil
	}
	return client, nil
}

// newTLSConfig assembles the tls.Config for the selected mode. With a
// certificate manager the handshake pulls live certificates; without one
// the startup material is pinned for the life of the process.
func (s *Server) newTLSConfig() (*tls.Config, error) {
	tc := &s.TLSConfig
	cfg := &tls.Config{
		MinVersion: minTLSVersion(tc.MinVersion),
		ClientAuth: tls.NoClientCert,
	}

	if cm := s.CertManager; cm != nil {
		cfg.GetCertificate = cm.GetServerCertificate
		if tc.Mode == "mutual" {
			cfg.VerifyPeerCertificate = cm.VerifyPeerCertificate
		}
	} else {
		cert, err := s.staticKeypair()
		if err != nil {
			return nil, err
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	if len(tc.CipherSuites) > 0 {
		cfg.CipherSuites = cipherSuiteIDs(tc.CipherSuites)
	}

	if tc.Mode == "mutual" {
		// ClientCAs holds the pool from startup; with auto-reload on,
		// VerifyPeerCertificate re-checks against the live pool.
		pool, err := s.clientCAPool()
		if err != nil {
			return nil, err
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = clientAuthPolicy(tc.ClientAuthPolicy)
	}

	if tc.InsecureSkipVerify {
		cfg.InsecureSkipVerify = true
		fmt.Println("WARNING: TLS certificate verification is turned off (insecureSkipVerify)")
	}
	if tc.ServerName != "" {
		cfg.ServerName = tc.ServerName
	}

	return cfg, nil
}

// staticKeypair loads the server certificate once, preferring inline PEM
// content (Vault) over file paths.
func (s *Server) staticKeypair() (tls.Certificate, error) {
	tc := &s.TLSConfig
	switch {
	case tc.CertContent != "" && tc.KeyContent != "":
		cert, err := tls.X509KeyPair([]byte(tc.CertContent), []byte(tc.KeyContent))
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to parse server keypair from inline content: %w", err)
		}
		return cert, nil
	case tc.CertFile != "" && tc.KeyFile != "":
		cert, err := tls.LoadX509KeyPair(tc.CertFile, tc.KeyFile)
		if err != nil {
			return tls.Certificate{}, fmt.Errorf("failed to load server keypair from files: %w", err)
		}
		return cert, nil
	default:
		return tls.Certificate{}, fmt.Errorf("TLS certificate and key are required (set the file paths or inline PEM content)")
	}
}

// clientCAPool builds the CA pool that client certificates are verified
// against in mutual mode.
func (s *Server) clientCAPool() (*x509.CertPool, error) {
	tc := &s.TLSConfig

	var pemData []byte
	switch {
	case tc.CAContent != "":
		pemData = []byte(tc.CAContent)
	case tc.CAFile != "":
		data, err := os.ReadFile(tc.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read client CA file: %w", err)
		}
		pemData = data
	default:
		return nil, fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(pemData); !ok {
		return nil, fmt.Errorf("failed to parse client CA certificate")
	}
	return pool, nil
}

func minTLSVersion(version string) uint16 {
	switch version {
	case "1.3":
		return tls.VersionTLS13
	default:
		return tls.VersionTLS12
	}
}

// clientAuthPolicies maps the relaxed policy names. Anything else gets the
// strict mutual-mode default.
var clientAuthPolicies = map[string]tls.ClientAuthType{
	"request": tls.RequestClientCert,
	"verify":  tls.VerifyClientCertIfGiven,
}

func clientAuthPolicy(policy string) tls.ClientAuthType {
	if t, ok := clientAuthPolicies[policy]; ok {
		return t
	}
	return tls.RequireAndVerifyClientCert
}

// cipherSuiteIDs resolves configured cipher suite names against the suites
// crypto/tls considers secure, dropping unknown names.
func cipherSuiteIDs(names []string) []uint16 {
	known := make(map[string]uint16)
	for _, cs := range tls.CipherSuites() {
		known[cs.Name] = cs.ID
	}

	ids := make([]uint16, 0, len(names))
	for _, name := range names {
		if id, ok := known[name]; ok {
			ids = append(ids, id)
		}
	}
	return ids
}
