package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/errors"

	"github.com/hashicorp/vault/api"
)

// VaultConfig holds the Vault connection settings.
type VaultConfig struct {
	Enabled bool `mapstructure:"enabled"`

	Address   string `mapstructure:"address"`
	Token     string `mapstructure:"token"`
	TokenFile string `mapstructure:"tokenFile"`
	Namespace string `mapstructure:"namespace"`

	Secrets VaultSecretPaths `mapstructure:"secrets"`
}

// VaultSecretPaths names the KVv2 paths the application reads. The apiKeys
// secret stores one comma-separated string under its "keys" field; the
// first entry acts as the primary key.
type VaultSecretPaths struct {
	APIKeys   string `mapstructure:"apiKeys"`
	GeminiKey string `mapstructure:"geminiKey"`
	TLSCerts  string `mapstructure:"tlsCerts"`
}

// VaultClient wraps the Vault API client with the read patterns the
// application needs.
type VaultClient struct {
	client *api.Client
	cfg    VaultConfig
	logger *errors.Logger
}

// NewVaultClient builds a connected Vault client, or (nil, nil) when
// Vault is disabled in the configuration.
func NewVaultClient(cfg VaultConfig, logger *errors.Logger) (*VaultClient, error) {
	if !cfg.Enabled {
		if logger != nil {
			logger.Debug("Vault disabled in configuration")
		}
		return nil, nil
	}

	if logger != nil {
		logger.Debug("Constructing Vault client",
			"address", cfg.Address,
			"namespace", cfg.Namespace,
			"token_file", cfg.TokenFile,
			"has_token", cfg.Token != "")
	}

	client, err := newVaultAPIClient(cfg, logger)
	if err != nil {
		return nil, err
	}

	token, err := resolveToken(cfg, logger)
	if err != nil {
		return nil, err
	}
	client.SetToken(token)

	if logger != nil {
		prefix := token
		if len(prefix) > 8 {
			prefix = prefix[:8]
		}
		logger.Debug("Vault token configured", "token_prefix", prefix+"...")
	}

	if err := checkVaultHealth(client, cfg.Address, logger); err != nil {
		return nil, err
	}

	return &VaultClient{client: client, cfg: cfg, logger: logger}, nil
}

func newVaultAPIClient(cfg VaultConfig, logger *errors.Logger) (*api.Client, error) {
	apiCfg := api.DefaultConfig()
	if cfg.Address != "" {
		apiCfg.Address = cfg.Address
	}

	client, err := api.NewClient(apiCfg)
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Could not construct Vault API client")
		}
		return nil, fmt.Errorf("failed to construct vault client: %w", err)
	}

	if cfg.Namespace != "" {
		client.SetNamespace(cfg.Namespace)
		if logger != nil {
			logger.Debug("Set Vault namespace", "namespace", cfg.Namespace)
		}
	}
	return client, nil
}

// resolveToken picks the inline token, falling back to the token
// file. An enabled Vault block with neither is a configuration error.
func resolveToken(cfg VaultConfig, logger *errors.Logger) (string, error) {
	token := cfg.Token

	if token == "" && cfg.TokenFile != "" {
		if logger != nil {
			logger.Debug("Reading Vault token from file", "file", cfg.TokenFile)
		}
		raw, err := os.ReadFile(cfg.TokenFile)
		if err != nil {
			if logger != nil {
				logger.LogError(err, "Failed to read Vault token file", "file", cfg.TokenFile)
			}
			return "", fmt.Errorf("failed to read vault token file %s: %w", cfg.TokenFile, err)
		}
		token = strings.TrimSpace(string(raw))
	}

	if token == "" {
		err := fmt.Errorf("vault token is required when vault is enabled")
		if logger != nil {
			logger.LogError(err, "Vault token is required when Vault is enabled")
		}
		return "", err
	}
	return token, nil
}

func checkVaultHealth(client *api.Client, address string, logger *errors.Logger) error {
	if logger != nil {
		logger.Debug("Checking Vault health", "address", address)
	}

	h, err := client.Sys().Health()
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Vault health check failed", "address", address)
		}
		return fmt.Errorf("vault health check failed: %w", err)
	}

	if logger != nil {
		logger.Info("Connected to Vault", "address", address, "version", h.Version, "sealed", h.Sealed, "cluster", h.ClusterName)
	}
	return nil
}

// VaultSecret carries the decoded payload and version of one KVv2 read.
type VaultSecret struct {
	Data    map[string]any
	Version int64
}

// GetSecretV2 reads one secret through Vault's KVv2 engine.
func (vc *VaultClient) GetSecretV2(path string) (*VaultSecret, error) {
	if vc == nil {
		return nil, fmt.Errorf("vault client not configured")
	}

	if vc.logger != nil {
		vc.logger.Debug("Fetching Vault secret", "path", path)
	}

	raw, err := vc.client.Logical().Read(path)
	if err != nil {
		if vc.logger != nil {
			vc.logger.LogError(err, "Vault read failed", "path", path)
		}
		return nil, fmt.Errorf("failed to read vault secret %s: %w", path, err)
	}
	if raw == nil || raw.Data == nil {
		if vc.logger != nil {
			vc.logger.Warn("No secret at Vault path", "path", path)
		}
		return nil, fmt.Errorf("no secret at vault path %s", path)
	}

	data, err := kvDataField(raw, path)
	if err != nil {
		return nil, err
	}
	version, err := kvVersionField(raw, path)
	if err != nil {
		return nil, err
	}
	return &VaultSecret{Data: data, Version: version}, nil
}

// kvDataField unwraps the KVv2 "data" envelope.
func kvDataField(s *api.Secret, path string) (map[string]any, error) {
	payload, ok := s.Data["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("secret at %s lacks a KVv2 data envelope", path)
	}
	return payload, nil
}

// kvVersionField pulls the secret version out of the KVv2 metadata.
func kvVersionField(s *api.Secret, path string) (int64, error) {
	meta, ok := s.Data["metadata"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("secret at %s lacks KVv2 metadata", path)
	}
	raw, ok := meta["version"]
	if !ok {
		return 0, fmt.Errorf("secret metadata at %s carries no version", path)
	}
	return coerceVersion(raw, path)
}

// coerceVersion accepts the numeric shapes Vault clients produce for
// the version: JSON numbers decode as float64, some transports hand back
// strings.
func coerceVersion(raw any, path string) (int64, error) {
	switch v := raw.(type) {
	case int64:
		return v, nil
	case float64:
		return int64(v), nil
	case string:
		version, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid secret version at %s: %w", path, err)
		}
		return version, nil
	default:
		return 0, fmt.Errorf("unexpected type for version at %s: %T", path, raw)
	}
}

// GetStringSecret retrieves one string field from a KVv2 secret.
func (vc *VaultClient) GetStringSecret(path, key string) (string, error) {
	sec, err := vc.GetSecretV2(path)
	if err != nil {
		return "", err
	}

	v, ok := sec.Data[key]
	if !ok {
		return "", fmt.Errorf("secret %s has no key '%s'", path, key)
	}
	text, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("secret %s key '%s' is not a string", path, key)
	}

	if vc.logger != nil {
		vc.logger.Debug("Vault string secret read",
			"path", path,
			"key", key,
			"masked_value", maskSecret(text))
	}
	return text, nil
}

// maskSecret keeps at most the first and last four characters visible.
func maskSecret(value string) string {
	if len(value) > 8 {
		return value[:4] + "****" + value[len(value)-4:]
	}
	if value != "" {
		return "****"
	}
	return value
}

// GetStringSliceSecret reads a comma-separated string field and splits it
// into trimmed entries.
func (vc *VaultClient) GetStringSliceSecret(path, key string) ([]string, error) {
	raw, err := vc.GetStringSecret(path, key)
	if err != nil {
		return nil, err
	}
	if raw == "" {
		return []string{}, nil
	}

	var entries []string
	for part := range strings.SplitSeq(raw, ",") {
		entries = append(entries, strings.TrimSpace(part))
	}
	return entries, nil
}

// TokenTTL reports the remaining lifetime of the client's own token.
// A zero TTL means the token does not expire.
func (vc *VaultClient) TokenTTL() (time.Duration, error) {
	if vc == nil {
		return 0, fmt.Errorf("vault client not configured")
	}

	secret, err := vc.client.Auth().Token().LookupSelf()
	if err != nil {
		return 0, fmt.Errorf("failed to look up vault token: %w", err)
	}
	ttl, err := secret.TokenTTL()
	if err != nil {
		return 0, fmt.Errorf("failed to read vault token ttl: %w", err)
	}
	return ttl, nil
}

// RenewToken renews the client's own token lease for its default period.
func (vc *VaultClient) RenewToken() error {
	if vc == nil {
		return fmt.Errorf("vault client not configured")
	}

	secret, err := vc.client.Auth().Token().RenewSelf(0)
	if err != nil {
		return fmt.Errorf("failed to renew vault token: %w", err)
	}
	if vc.logger != nil {
		ttl, _ := secret.TokenTTL()
		vc.logger.Info("Vault token renewed", "new_ttl", ttl.String())
	}
	return nil
}

// OverlayVaultSecrets overlays Vault-sourced secrets onto the loaded
// configuration: server API keys, the model API key and TLS material.
func OverlayVaultSecrets(cfg *Config, logger *errors.Logger) error {
	if !cfg.Vault.Enabled {
		if logger != nil {
			logger.Debug("Vault disabled, skipping secret overlay")
		}
		return nil
	}

	if logger != nil {
		logger.Info("Applying Vault secrets",
			"api_keys_path", cfg.Vault.Secrets.APIKeys,
			"gemini_key_path", cfg.Vault.Secrets.GeminiKey,
			"tls_certs_path", cfg.Vault.Secrets.TLSCerts)
	}

	client, err := NewVaultClient(cfg.Vault, logger)
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Vault client initialization failed")
		}
		return fmt.Errorf("failed to initialize vault client: %w", err)
	}
	if client == nil {
		return nil
	}

	if err := overlayAPIKeys(client, cfg, logger); err != nil {
		return err
	}
	if err := overlayGeminiKey(client, cfg, logger); err != nil {
		return err
	}
	if err := overlayTLSMaterial(client, cfg, logger); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("Vault secrets applied to configuration")
	}
	return nil
}

func overlayAPIKeys(client *VaultClient, cfg *Config, logger *errors.Logger) error {
	path := cfg.Vault.Secrets.APIKeys
	if path == "" {
		return nil
	}

	if logger != nil {
		logger.Debug("Loading API keys from Vault", "path", path)
	}

	keys, err := client.GetStringSliceSecret(path, "keys")
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Could not read API keys from Vault", "path", path)
		}
		return fmt.Errorf("failed to read API keys from vault: %w", err)
	}

	if len(keys) == 0 {
		if logger != nil {
			logger.Warn("No API keys found in Vault", "path", path)
		}
		return nil
	}

	cfg.Server.APIKeys = keys
	if logger != nil {
		logger.Info("API keys loaded from Vault", "count", len(keys))
	}
	return nil
}

func overlayGeminiKey(client *VaultClient, cfg *Config, logger *errors.Logger) error {
	path := cfg.Vault.Secrets.GeminiKey
	if path == "" {
		return nil
	}

	if logger != nil {
		logger.Debug("Loading Gemini API key from Vault", "path", path)
	}

	key, err := client.GetStringSecret(path, "api_key")
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Could not read Gemini API key from Vault", "path", path)
		}
		return fmt.Errorf("failed to read Gemini API key from vault: %w", err)
	}

	if key == "" {
		if logger != nil {
			logger.Warn("Empty Gemini API key found in Vault", "path", path)
		}
		return nil
	}

	seedGeminiKey(cfg, key)
	if logger != nil {
		logger.Info("Gemini API key loaded from Vault and applied to AI configuration")
	}
	return nil
}

// seedGeminiKey sets the global model key and seeds the analyze
// operation when it has no key of its own.
func seedGeminiKey(cfg *Config, key string) {
	cfg.AI.APIKey = key
	if cfg.AI.Analyze.APIKey == "" {
		cfg.AI.Analyze.APIKey = key
	}
}

func overlayTLSMaterial(client *VaultClient, cfg *Config, logger *errors.Logger) error {
	path := cfg.Vault.Secrets.TLSCerts
	if path == "" {
		return nil
	}

	if logger != nil {
		logger.Debug("Loading TLS certificates from Vault", "path", path)
	}

	sec, err := client.GetSecretV2(path)
	if err != nil {
		if logger != nil {
			logger.LogError(err, "Could not read TLS material from Vault", "path", path)
		}
		return fmt.Errorf("failed to read TLS material from vault: %w", err)
	}

	loaded := copyTLSContent(cfg, sec, logger)

	if err := rejectTLSFileFields(sec, logger); err != nil {
		return err
	}

	if logger != nil {
		logger.Info("TLS certificates loaded from Vault", "certificates_loaded", loaded)
	}
	return nil
}

// copyTLSContent moves PEM content out of the secret into the TLS config,
// returning how many fields were present.
func copyTLSContent(cfg *Config, secret *VaultSecret, logger *errors.Logger) int {
	slots := []struct {
		key    string
		target *string
		what   string
	}{
		{"cert", &cfg.Server.TLS.CertContent, "TLS certificate content"},
		{"key", &cfg.Server.TLS.KeyContent, "TLS private key content"},
		{"ca", &cfg.Server.TLS.CAContent, "TLS CA certificate content"},
	}

	loaded := 0
	for _, slot := range slots {
		content, ok := secret.Data[slot.key].(string)
		if !ok || content == "" {
			continue
		}
		*slot.target = content
		loaded++
		if logger != nil {
			logger.Debug(slot.what+" loaded from Vault", "content_length", len(content))
		}
	}
	return loaded
}

// rejectTLSFileFields fails on the retired path-based secret layout.
// Vault secrets must carry certificate content, not file paths.
func rejectTLSFileFields(secret *VaultSecret, logger *errors.Logger) error {
	for _, field := range []string{"cert_file", "key_file", "ca_file"} {
		if _, present := secret.Data[field]; !present {
			continue
		}
		contentField := strings.TrimSuffix(field, "_file")
		if logger != nil {
			logger.LogError(fmt.Errorf("deprecated field detected"),
				fmt.Sprintf("%s field is no longer supported in Vault. Use '%s' field with certificate content instead.", field, contentField))
		}
		return fmt.Errorf("vault TLS configuration error: '%s' field is no longer supported. Store certificate content in '%s' field instead",
			field, contentField)
	}
	return nil
}
