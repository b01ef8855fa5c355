package server

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/sreekeshm77/ATS-project/internal/config"
	"github.com/sreekeshm77/ATS-project/internal/errors"
	"github.com/sreekeshm77/ATS-project/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ReloadCallback is invoked after every certificate reload attempt.
type ReloadCallback func(ok bool, err error)

// CertificateMetrics is a snapshot of reload bookkeeping for the stats
// endpoint.
type CertificateMetrics struct {
	Reloads         int64
	ReloadSuccesses int64
	ReloadFailures  int64

	LastReloadTime    time.Time
	LastReloadSuccess bool
	LastReloadError   string
}

// CertificateManager owns the server's TLS material. It loads the keypair
// and CA bundle from files or inline PEM content, swaps them atomically on
// reload, and keeps them fresh through file and Vault watchers.
type CertificateManager struct {
	tlsCfg    *config.TLSConfig
	reloadCfg *config.AutoReloadConfig

	vaultClient VaultClientInterface
	om          *observability.ObservabilityManager
	logger      *errors.Logger

	diskWatcher *CertWatcher
	vaultPoller *VaultWatcher

	monitorOnce sync.Once
	monitorStop chan struct{}

	mu         sync.RWMutex
	activeCert *tls.Certificate
	certExpiry time.Time
	caPool     *x509.CertPool
	callbacks  []ReloadCallback
	stats      CertificateMetrics
}

// NewCertificateManager builds a manager around the given TLS settings.
// Watchers are not started until Start.
func NewCertificateManager(tlsCfg *config.TLSConfig, reloadCfg *config.AutoReloadConfig, vaultClient VaultClientInterface, om *observability.ObservabilityManager, logger *errors.Logger) *CertificateManager {
	c := &CertificateManager{
		tlsCfg:      tlsCfg,
		reloadCfg:   reloadCfg,
		vaultClient: vaultClient,
		om:          om,
		logger:      logger,
	}
	c.monitorStop = make(chan struct{})
	return c
}

// Start performs the initial certificate load and brings up expiry
// monitoring plus any configured watchers.
func (c *CertificateManager) Start() error {
	if err := c.reload(); err != nil {
		return fmt.Errorf("initial certificate load failed: %w", err)
	}

	c.startExpiryMonitor()

	if err := c.watchDiskCerts(); err != nil {
		return err
	}
	return c.watchVaultCerts()
}

// Stop shuts down the watchers and the expiry monitor.
func (c *CertificateManager) Stop() error {
	for _, watcher := range []interface{ Stop() error }{c.diskWatcher, c.vaultPoller} {
		if watcher == nil {
			continue
		}
		if err := watcher.Stop(); err != nil {
			if c.logger != nil {
				c.logger.LogError(err, "Failed to stop certificate watcher")
			}
			return err
		}
	}
	c.monitorOnce.Do(func() { close(c.monitorStop) })

	if c.logger != nil {
		c.logger.Info("Certificate manager shut down")
	}
	return nil
}

func (c *CertificateManager) watchDiskCerts() error {
	if c.reloadCfg == nil || !c.reloadCfg.FileWatcher.Enabled {
		return nil
	}
	if c.tlsCfg.CertFile == "" && c.tlsCfg.KeyFile == "" && c.tlsCfg.CAFile == "" {
		return nil
	}

	w := NewCertWatcher(
		c.tlsCfg.CertFile,
		c.tlsCfg.KeyFile,
		c.tlsCfg.CAFile,
		c.reloadCfg.FileWatcher.DebounceDelay,
		c.requestReload,
		c.logger,
	)
	if err := w.Start(); err != nil {
		return fmt.Errorf("could not start certificate file watcher: %w", err)
	}
	c.diskWatcher = w
	return nil
}

func (c *CertificateManager) watchVaultCerts() error {
	switch {
	case c.reloadCfg == nil || !c.reloadCfg.VaultWatcher.Enabled:
		return nil
	case c.tlsCfg.CertContent == "" && c.tlsCfg.KeyContent == "" && c.tlsCfg.CAContent == "":
		return nil
	case c.vaultClient == nil:
		if c.logger != nil {
			c.logger.Warn("Vault watcher enabled without a Vault client")
		}
		return nil
	}

	vw := NewVaultWatcher(c.vaultClient, c.reloadCfg.VaultWatcher, c.applyVaultCertificates, c.logger)
	if err := vw.Start(); err != nil {
		return fmt.Errorf("could not start Vault watcher: %w", err)
	}
	c.vaultPoller = vw
	return nil
}

// applyVaultCertificates installs fresh PEM content fetched from Vault and
// reloads.
func (c *CertificateManager) applyVaultCertificates(data *CertificateData, err error) {
	if err != nil {
		if c.logger != nil {
			c.logger.LogError(err, "Failed to fetch certificate data from Vault")
		}
		return
	}

	c.mu.Lock()
	if data.CertContent != "" {
		c.tlsCfg.CertContent = data.CertContent
	}
	if data.KeyContent != "" {
		c.tlsCfg.KeyContent = data.KeyContent
	}
	if data.CAContent != "" {
		c.tlsCfg.CAContent = data.CAContent
	}
	c.mu.Unlock()

	c.requestReload()
}

// GetServerCertificate hands the active keypair to TLS handshakes. An
// expired certificate is refused rather than served.
func (c *CertificateManager) GetServerCertificate(info *tls.ClientHelloInfo) (*tls.Certificate, error) {
	c.mu.RLock()
	cert := c.activeCert
	expiry := c.certExpiry
	c.mu.RUnlock()

	if cert == nil {
		return nil, fmt.Errorf("no server certificate loaded")
	}
	if time.Now().After(expiry) {
		if c.logger != nil {
			c.logger.LogError(fmt.Errorf("server certificate has expired"), "Refusing handshake with expired certificate", "expiry", expiry, "server_name", info.ServerName)
		}
		return nil, fmt.Errorf("server certificate has expired")
	}

	if c.reloadCfg != nil && c.reloadCfg.PreemptiveRenewal > 0 &&
		time.Now().After(expiry.Add(-c.reloadCfg.PreemptiveRenewal)) {
		go c.renewEarly()
	}
	return cert, nil
}

// renewEarly reloads from source before the active certificate ages out.
func (c *CertificateManager) renewEarly() {
	if c.logger != nil {
		c.logger.Info("Certificate within renewal window, reloading")
	}
	c.requestReload()
}

// GetCACertPool returns the CA pool used for mutual TLS, or nil outside
// mutual mode.
func (c *CertificateManager) GetCACertPool() *x509.CertPool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.caPool
}

// VerifyPeerCertificate validates the presented client certificate against
// the current CA pool.
func (c *CertificateManager) VerifyPeerCertificate(raw [][]byte, _ [][]*x509.Certificate) error {
	if len(raw) == 0 {
		return fmt.Errorf("client presented no certificates")
	}

	peer, err := x509.ParseCertificate(raw[0])
	if err != nil {
		return fmt.Errorf("cannot parse peer certificate: %w", err)
	}

	pool := c.GetCACertPool()
	if pool == nil {
		return fmt.Errorf("no CA pool configured for client verification")
	}

	if _, err := peer.Verify(x509.VerifyOptions{Roots: pool}); err != nil {
		return fmt.Errorf("peer certificate failed verification: %w", err)
	}
	return nil
}

// AddReloadCallback registers a callback for reload outcomes. Callbacks run
// on their own goroutines.
func (c *CertificateManager) AddReloadCallback(cb ReloadCallback) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.callbacks = append(c.callbacks, cb)
}

// CheckExpiry returns the time left on the server certificate.
func (c *CertificateManager) CheckExpiry() (time.Duration, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.certExpiry.IsZero() {
		return 0, fmt.Errorf("no certificate loaded yet")
	}
	return time.Until(c.certExpiry), nil
}

// GetMetrics snapshots the reload counters.
func (c *CertificateManager) GetMetrics() *CertificateMetrics {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := c.stats
	return &snap
}

// requestReload is the entry point for watchers and early renewal.
func (c *CertificateManager) requestReload() {
	if c.logger != nil {
		c.logger.Info("Certificate reload triggered")
	}
	if err := c.reload(); err != nil && c.logger != nil {
		c.logger.LogError(err, "Certificate reload failed")
	}
}

// reload builds new TLS material from the configured source and swaps it in
// under the lock. Handshakes keep serving the old certificate until the
// swap completes.
func (c *CertificateManager) reload() error {
	c.mu.RLock()
	tlsCfg := *c.tlsCfg
	c.mu.RUnlock()

	serverCert, expiry, err := loadKeypair(&tlsCfg)
	if err != nil {
		c.noteReload(false, err)
		return err
	}
	caPool, err := loadCAPool(&tlsCfg)
	if err != nil {
		c.noteReload(false, err)
		return err
	}

	c.mu.Lock()
	c.activeCert = serverCert
	c.certExpiry = expiry
	c.caPool = caPool
	c.stats.LastReloadTime = time.Now()
	c.mu.Unlock()

	c.noteReload(true, nil)

	if c.logger != nil {
		c.logger.Info("Certificates reloaded", "server_cert_expiry", expiry)
	}
	return nil
}

// loadKeypair reads the server certificate, preferring inline PEM content
// (Vault) over file paths. Both absent means TLS material is managed
// elsewhere and nil is returned.
func loadKeypair(cfg *config.TLSConfig) (*tls.Certificate, time.Time, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case cfg.CertContent != "" && cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(cfg.CertContent), []byte(cfg.KeyContent))
	case cfg.CertFile != "" && cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(cfg.CertFile, cfg.KeyFile)
	default:
		return nil, time.Time{}, nil
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("failed to load server keypair: %w", err)
	}

	var expiry time.Time
	if len(cert.Certificate) > 0 {
		leaf, parseErr := x509.ParseCertificate(cert.Certificate[0])
		if parseErr != nil {
			return nil, time.Time{}, fmt.Errorf("failed to parse server certificate: %w", parseErr)
		}
		expiry = leaf.NotAfter
	}
	return &cert, expiry, nil
}

// loadCAPool builds the client CA pool for mutual TLS, again preferring
// inline content over a file.
func loadCAPool(cfg *config.TLSConfig) (*x509.CertPool, error) {
	if cfg.Mode != "mutual" {
		return nil, nil
	}

	var pemData []byte
	switch {
	case cfg.CAContent != "":
		pemData = []byte(cfg.CAContent)
	case cfg.CAFile != "":
		data, err := os.ReadFile(cfg.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		pemData = data
	default:
		return nil, nil
	}

	pool := x509.NewCertPool()
	if ok := pool.AppendCertsFromPEM(pemData); !ok {
		return nil, fmt.Errorf("failed to parse CA certificate")
	}
	return pool, nil
}

// noteReload updates the counters, fans out to callbacks and records the
// reload in telemetry.
func (c *CertificateManager) noteReload(ok bool, err error) {
	c.mu.Lock()
	c.stats.Reloads++
	if ok {
		c.stats.ReloadSuccesses++
		c.stats.LastReloadSuccess = true
		c.stats.LastReloadError = ""
	} else {
		c.stats.ReloadFailures++
		c.stats.LastReloadSuccess = false
		if err != nil {
			c.stats.LastReloadError = err.Error()
		}
	}
	cbs := slices.Clone(c.callbacks)
	c.mu.Unlock()

	c.recordReloadMetric(ok, err)

	for _, cb := range cbs {
		go cb(ok, err)
	}
}

func (c *CertificateManager) recordReloadMetric(ok bool, err error) {
	if c.om == nil {
		return
	}
	metrics := c.om.GetMetrics()
	if metrics.CertReloadCount == nil {
		return
	}

	status := "success"
	attrs := []attribute.KeyValue{attribute.String("cert_type", "server")}
	if !ok {
		status = "failure"
		if err != nil {
			attrs = append(attrs, attribute.String("error", err.Error()))
		}
	}
	attrs = append(attrs, attribute.String("status", status))

	metrics.CertReloadCount.Add(context.Background(), 1, metric.WithAttributes(attrs...))
	c.publishExpiryMetric()
}

// publishExpiryMetric exports the seconds remaining on the active server
// certificate.
func (c *CertificateManager) publishExpiryMetric() {
	if c.om == nil {
		return
	}
	metrics := c.om.GetMetrics()
	if metrics.CertExpiryTime == nil {
		return
	}

	c.mu.RLock()
	expiry := c.certExpiry
	c.mu.RUnlock()

	if expiry.IsZero() {
		return
	}
	metrics.CertExpiryTime.Record(context.Background(), time.Until(expiry).Seconds(),
		metric.WithAttributes(attribute.String("cert_type", "server")))
}

// startExpiryMonitor refreshes the expiry gauge once a minute until Stop.
func (c *CertificateManager) startExpiryMonitor() {
	if c.om == nil {
		return
	}

	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.publishExpiryMetric()
			case <-c.monitorStop:
				return
			}
		}
	}()

	if c.logger != nil {
		c.logger.Info("Certificate expiry monitor started")
	}
}
