package tls

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"

	"casework-hq/auditexport/pkg/config"
)

// NewServerConfig loads the key pair and builds a tls.Config serving it
// through a reloader. The reloader is not started.
func NewServerConfig(cfg *config.TLSConfig) (*tls.Config, *CertificateReloader, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, nil, fmt.Errorf("TLS is not enabled")
	}
	if cfg.CertFile == "" {
		return nil, nil, fmt.Errorf("cert_file is required when TLS is enabled")
	}
	if cfg.KeyFile == "" {
		return nil, nil, fmt.Errorf("key_file is required when TLS is enabled")
	}

	reloader := NewCertificateReloader(cfg.CertFile, cfg.KeyFile, cfg.ReloadInterval)
	if err := reloader.Load(); err != nil {
		return nil, nil, fmt.Errorf("failed to load certificate: %w", err)
	}

	tlsConfig := &tls.Config{
		MinVersion:     parseVersion(cfg.MinVersion),
		GetCertificate: reloader.GetCertificateFunc(),
	}

	if cfg.ClientCAFile != "" {
		pool, err := loadCertPool(cfg.ClientCAFile)
		if err != nil {
			return nil, nil, err
		}
		tlsConfig.ClientCAs = pool
		tlsConfig.ClientAuth = parseClientAuth(cfg.ClientAuth)
	}

	return tlsConfig, reloader, nil
}

// parseVersion maps "1.2" to TLS 1.2; anything else means TLS 1.3.
func parseVersion(v string) uint16 {
	if v == "1.2" {
		return tls.VersionTLS12
	}
	return tls.VersionTLS13
}

func parseClientAuth(mode string) tls.ClientAuthType {
	if mode == "verify_if_given" {
		return tls.VerifyClientCertIfGiven
	}
	return tls.RequireAndVerifyClientCert
}

func loadCertPool(path string) (*x509.CertPool, error) {
	pem, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read client CA: %w", err)
	}
	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in client CA file %s", path)
	}
	return pool, nil
}
