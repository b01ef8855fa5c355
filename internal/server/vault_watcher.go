package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
)

// VaultClientInterface is the slice of the Vault client the watcher needs.
type VaultClientInterface interface {
	GetSecretV2(path string) (*config.VaultSecret, error)
	GetStringSecret(path, key string) (string, error)
	GetStringSliceSecret(path, key string) ([]string, error)
	TokenTTL() (time.Duration, error)
	RenewToken() error
}

// CertificateData is the TLS material read from a Vault secret.
type CertificateData struct {
	CertContent string
	KeyContent  string
	CAContent   string
}

// VaultReloadCallback receives fresh certificate material, or the error
// that prevented fetching it.
type VaultReloadCallback func(cd *CertificateData, err error)

// VaultWatcher polls a Vault KVv2 secret and fires the reload callback
// whenever the secret version advances. With autoRenew set it also renews
// the client token lease once the remaining TTL drops below renewThreshold.
type VaultWatcher struct {
	client   VaultClientInterface
	logger   *errors.Logger
	onReload VaultReloadCallback

	secretPath     string
	interval       time.Duration
	autoRenew      bool
	renewThreshold time.Duration

	mu          sync.RWMutex
	running     bool
	lastVersion int64
	done        chan struct{}
}

func NewVaultWatcher(client VaultClientInterface, cfg config.VaultWatcherConfig, onReload VaultReloadCallback, logger *errors.Logger) *VaultWatcher {
	return &VaultWatcher{
		client:   client,
		logger:   logger,
		onReload: onReload,

		secretPath:     cfg.SecretPath,
		interval:       cfg.PollInterval,
		autoRenew:      cfg.AutoRenew,
		renewThreshold: cfg.RenewThreshold,

		done: make(chan struct{}),
	}
}

// Start launches the polling goroutine.
func (w *VaultWatcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("vault watcher already running")
	}
	w.running = true
	go w.pollLoop()
	if w.logger != nil {
		w.logger.Info("Vault watcher started", "secret_path", w.secretPath, "poll_interval", w.interval, "auto_renew", w.autoRenew)
	}
	return nil
}

// Stop terminates the polling goroutine. Safe to call on a stopped watcher.
func (w *VaultWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.running {
		return nil
	}
	close(w.done)
	w.running = false
	if w.logger != nil {
		w.logger.Info("Vault watcher stopped", "secret_path", w.secretPath)
	}
	return nil
}

func (w *VaultWatcher) pollLoop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.pollOnce()
			if w.autoRenew {
				w.renewTokenIfNeeded()
			}
		case <-w.done:
			return
		}
	}
}

// pollOnce performs a single version check and, when the secret moved,
// hands the new material to the reload callback.
func (w *VaultWatcher) pollOnce() {
	changed, err := w.secretChanged()
	if err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to check Vault for updates")
		}
		return
	}
	if !changed {
		return
	}

	if w.logger != nil {
		w.logger.Info("Vault secret changed, fetching new certificate data...")
	}

	newData, err := w.fetchCertificateData()
	if err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to fetch new certificate data from Vault")
		}
		w.onReload(nil, err)
		return
	}

	if w.logger != nil {
		w.logger.Info("New certificate data fetched from Vault, triggering reload")
	}
	w.onReload(newData, nil)
}

// renewTokenIfNeeded renews the Vault token lease when its remaining TTL
// falls below the configured threshold. Tokens without an expiry (TTL 0)
// are left alone.
func (w *VaultWatcher) renewTokenIfNeeded() {
	ttl, err := w.client.TokenTTL()
	if err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to check Vault token TTL")
		}
		return
	}
	if ttl <= 0 || ttl >= w.renewThreshold {
		return
	}

	if w.logger != nil {
		w.logger.Info("Vault token approaching expiry, renewing", "remaining_ttl", ttl.String(), "renew_threshold", w.renewThreshold.String())
	}
	if err := w.client.RenewToken(); err != nil {
		if w.logger != nil {
			w.logger.LogError(err, "Failed to renew Vault token")
		}
	}
}

// secretChanged reports whether the KVv2 secret version moved past the last
// one seen, remembering the newest version.
func (w *VaultWatcher) secretChanged() (bool, error) {
	sec, err := w.client.GetSecretV2(w.secretPath)
	if err != nil {
		return false, fmt.Errorf("failed to read Vault secret: %w", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if sec.Version <= w.lastVersion {
		return false, nil
	}
	w.lastVersion = sec.Version
	return true, nil
}

// fetchCertificateData pulls the current TLS material from the secret.
func (w *VaultWatcher) fetchCertificateData() (*CertificateData, error) {
	sec, err := w.client.GetSecretV2(w.secretPath)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch TLS material from Vault: %w", err)
	}
	str := func(key string) string {
		value, _ := sec.Data[key].(string)
		return value
	}
	return &CertificateData{
		CertContent: str("cert"),
		KeyContent:  str("key"),
		CAContent:   str("ca"),
	}, nil
}

// Status reports watcher state for the health endpoint.
func (w *VaultWatcher) Status() map[string]any {
	w.mu.RLock()
	defer w.mu.RUnlock()
	st := make(map[string]any, 5)
	st["running"] = w.running
	st["poll_interval"] = w.interval.String()
	st["secret_path"] = w.secretPath
	st["auto_renew"] = w.autoRenew
	st["last_version"] = w.lastVersion
	return st
}
