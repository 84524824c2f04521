package server

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"resumescope/internal/config"
	"resumescope/internal/errors"
	"resumescope/internal/watch"
)

const defaultCertReloadDebounce = time.Second

// configureTLS returns the TLS configuration for the listener, or nil when
// TLS is disabled.
func (s *Server) configureTLS() (*tls.Config, error) {
	switch s.TLSConfig.Mode {
	case "", "disabled":
		return nil, nil
	case "server":
	default:
		return nil, fmt.Errorf("invalid TLS mode: %s (must be 'disabled' or 'server')", s.TLSConfig.Mode)
	}

	reloader, err := newCertReloader(s.TLSConfig, s.Logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up TLS: %w", err)
	}
	if err := reloader.Start(); err != nil {
		return nil, fmt.Errorf("failed to start certificate watcher: %w", err)
	}
	s.certReloader = reloader

	return &tls.Config{
		MinVersion:     tlsVersion(s.TLSConfig.MinVersion),
		GetCertificate: reloader.GetCertificate,
	}, nil
}

func tlsVersion(v string) uint16 {
	if v == "1.3" {
		return tls.VersionTLS13
	}
	return tls.VersionTLS12
}

// certReloader serves the current server certificate and, for file-based
// certificates, swaps in a new one when the files change.
type certReloader struct {
	cfg     config.TLSConfig
	logger  *errors.Logger
	cert    atomic.Pointer[tls.Certificate]
	reloads atomic.Int64

	mu      sync.Mutex
	watcher *watch.FileWatcher
}

func newCertReloader(cfg config.TLSConfig, logger *errors.Logger) (*certReloader, error) {
	r := &certReloader{cfg: cfg, logger: logger}
	cert, err := r.load()
	if err != nil {
		return nil, err
	}
	r.cert.Store(cert)
	return r, nil
}

// load reads the certificate from inline content (Vault) or from files.
func (r *certReloader) load() (*tls.Certificate, error) {
	var (
		cert tls.Certificate
		err  error
	)
	switch {
	case r.cfg.CertContent != "" && r.cfg.KeyContent != "":
		cert, err = tls.X509KeyPair([]byte(r.cfg.CertContent), []byte(r.cfg.KeyContent))
		if err != nil {
			return nil, fmt.Errorf("failed to load server cert/key from content: %w", err)
		}
	case r.cfg.CertFile != "" && r.cfg.KeyFile != "":
		cert, err = tls.LoadX509KeyPair(r.cfg.CertFile, r.cfg.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load server cert/key from files: %w", err)
		}
	default:
		return nil, fmt.Errorf("TLS certificate and key are required (provide either files or content)")
	}

	if cert.Leaf == nil && len(cert.Certificate) > 0 {
		cert.Leaf, err = x509.ParseCertificate(cert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("failed to parse server certificate: %w", err)
		}
	}
	return &cert, nil
}

// Start watches the certificate files when auto-reload is enabled. Inline
// certificates are static.
func (r *certReloader) Start() error {
	if !r.cfg.AutoReload.Enabled || r.cfg.CertFile == "" {
		return nil
	}

	debounce := r.cfg.AutoReload.DebounceDelay
	if debounce <= 0 {
		debounce = defaultCertReloadDebounce
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.watcher = watch.NewFileWatcher("tls", []string{r.cfg.CertFile, r.cfg.KeyFile}, debounce, r.reload, r.logger)
	return r.watcher.Start()
}

// reload keeps the previous certificate when the new pair cannot be loaded,
// which also covers the window where only one of the two files was rewritten.
func (r *certReloader) reload() {
	cert, err := r.load()
	if err != nil {
		r.logger.LogError(err, "Failed to reload TLS certificates, keeping previous certificate")
		return
	}
	r.cert.Store(cert)
	r.reloads.Add(1)
	r.logger.Info("TLS certificates reloaded successfully",
		"not_after", cert.Leaf.NotAfter)
}

// GetCertificate implements tls.Config.GetCertificate.
func (r *certReloader) GetCertificate(*tls.ClientHelloInfo) (*tls.Certificate, error) {
	return r.cert.Load(), nil
}

// TimeToExpiry returns how long the served certificate remains valid.
func (r *certReloader) TimeToExpiry() (time.Duration, error) {
	cert := r.cert.Load()
	if cert == nil || cert.Leaf == nil {
		return 0, fmt.Errorf("no certificate loaded")
	}
	return time.Until(cert.Leaf.NotAfter), nil
}

// Reloads returns how many times the certificate was replaced.
func (r *certReloader) Reloads() int64 {
	return r.reloads.Load()
}

func (r *certReloader) watching() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.watcher != nil && r.watcher.IsRunning()
}

// Stop stops the file watcher, if any.
func (r *certReloader) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.watcher == nil {
		return nil
	}
	return r.watcher.Stop()
}
