package config

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ValidateTLSConfig validates the backend TLS configuration
func (c *Config) ValidateTLSConfig() error {
	t := c.Backend.TLS

	if err := validateTLSMode(t); err != nil {
		return err
	}

	return validateTLSVersion(t)
}

// validateTLSMode validates the TLS mode and associated requirements
func validateTLSMode(t TLSConfig) error {
	switch t.Mode {
	case "system", "":
		return nil
	case "custom":
		return validateCARequired(t)
	case "mutual":
		return validateMutualModeTLS(t)
	default:
		return fmt.Errorf("invalid TLS mode: %s (must be 'system', 'custom', or 'mutual')", t.Mode)
	}
}

// validateMutualModeTLS validates TLS configuration for mutual mode
func validateMutualModeTLS(t TLSConfig) error {
	if t.CertFile == "" || t.KeyFile == "" {
		return fmt.Errorf("client certificate and key files are required for mutual mode")
	}
	return nil
}

// validateCARequired checks that a CA bundle is provided for custom mode
func validateCARequired(t TLSConfig) error {
	if t.CAFile == "" {
		return fmt.Errorf("CA file is required for custom TLS mode")
	}
	return nil
}

// validateTLSVersion validates the TLS version configuration
func validateTLSVersion(t TLSConfig) error {
	switch t.MinVersion {
	case "", "1.2", "1.3":
		return nil
	default:
		return fmt.Errorf("invalid TLS minVersion: %s (must be '1.2' or '1.3')", t.MinVersion)
	}
}

// ClientTLSConfig builds the crypto/tls configuration for the backend connection
func (t TLSConfig) ClientTLSConfig() (*tls.Config, error) {
	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         t.ServerName,
		InsecureSkipVerify: t.InsecureSkipVerify, //nolint:gosec // opt-in for local backends
	}
	if t.MinVersion == "1.3" {
		cfg.MinVersion = tls.VersionTLS13
	}

	if t.CAFile != "" {
		pool, err := x509.SystemCertPool()
		if err != nil || pool == nil {
			pool = x509.NewCertPool()
		}
		pem, err := os.ReadFile(t.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", t.CAFile)
		}
		cfg.RootCAs = pool
	}

	if t.Mode == "mutual" {
		cert, err := tls.LoadX509KeyPair(t.CertFile, t.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}
