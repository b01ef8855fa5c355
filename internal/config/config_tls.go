package config

import "fmt"

// ValidateTLSConfig checks the TLS block for a usable combination of
// mode, certificate sources and protocol settings.
func (c *Config) ValidateTLSConfig() error {
	tls := c.Server.TLS

	switch tls.Mode {
	case "disabled":
		// Nothing else to check
	case "server":
		if err := validateCertAndKey(tls, "server mode"); err != nil {
			return err
		}
	case "mutual":
		if err := validateCertAndKey(tls, "mutual mode"); err != nil {
			return err
		}
		if tls.CAFile == "" && tls.CAContent == "" {
			return fmt.Errorf("CA certificate is required for mutual TLS mode (provide either caFile or caContent)")
		}
		if err := validateSingleSource("ca", tls.CAFile, tls.CAContent); err != nil {
			return err
		}
		if err := validateClientAuthPolicy(tls.ClientAuthPolicy); err != nil {
			return err
		}
	default:
		return fmt.Errorf("invalid TLS mode: %s (choose 'disabled', 'server' or 'mutual')", tls.Mode)
	}

	return validateTLSVersion(tls.MinVersion)
}

// validateCertAndKey requires both halves of the keypair, each from
// exactly one source.
func validateCertAndKey(tls TLSConfig, mode string) error {
	haveCert := tls.CertFile != "" || tls.CertContent != ""
	haveKey := tls.KeyFile != "" || tls.KeyContent != ""
	if !haveCert || !haveKey {
		return fmt.Errorf("TLS certificate and key are required for %s (set the file paths or inline PEM content)", mode)
	}
	if err := validateSingleSource("cert", tls.CertFile, tls.CertContent); err != nil {
		return err
	}
	return validateSingleSource("key", tls.KeyFile, tls.KeyContent)
}

// validateSingleSource rejects a part configured as both a file path and
// inline content.
func validateSingleSource(name, file, content string) error {
	if file != "" && content != "" {
		return fmt.Errorf("cannot specify both %sFile and %sContent - choose one", name, name)
	}
	return nil
}

// An empty policy means require.
func validateClientAuthPolicy(policy string) error {
	switch policy {
	case "require", "request", "verify", "":
		return nil
	default:
		return fmt.Errorf("invalid clientAuthPolicy: %s (must be 'require', 'request', or 'verify')", policy)
	}
}

// An empty version means 1.2.
func validateTLSVersion(minVersion string) error {
	switch minVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", minVersion)
	}
}
