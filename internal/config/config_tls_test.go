package config

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTLSMode(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
		errorMsg    string
	}{
		{name: "system mode", tls: TLSConfig{Mode: "system"}},
		{name: "empty mode means system", tls: TLSConfig{}},
		{name: "custom mode valid", tls: TLSConfig{Mode: "custom", CAFile: "/path/to/ca.pem"}},
		{
			name:        "custom mode missing CA",
			tls:         TLSConfig{Mode: "custom"},
			expectError: true,
			errorMsg:    "CA file is required",
		},
		{
			name: "mutual mode valid",
			tls: TLSConfig{
				Mode:     "mutual",
				CertFile: "/path/to/cert.pem",
				KeyFile:  "/path/to/key.pem",
			},
		},
		{
			name:        "mutual mode missing key",
			tls:         TLSConfig{Mode: "mutual", CertFile: "/path/to/cert.pem"},
			expectError: true,
			errorMsg:    "client certificate and key files are required",
		},
		{
			name:        "server mode is not a client mode",
			tls:         TLSConfig{Mode: "server"},
			expectError: true,
			errorMsg:    "invalid TLS mode: server",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTLSMode(tt.tls)
			if tt.expectError {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateTLSVersion(t *testing.T) {
	tests := []struct {
		version     string
		expectError bool
	}{
		{version: ""},
		{version: "1.2"},
		{version: "1.3"},
		{version: "1.0", expectError: true},
		{version: "1.1", expectError: true},
		{version: "tls13", expectError: true},
	}

	for _, tt := range tests {
		t.Run("version "+tt.version, func(t *testing.T) {
			err := validateTLSVersion(TLSConfig{MinVersion: tt.version})
			if tt.expectError {
				assert.ErrorContains(t, err, "invalid TLS minVersion")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

// writeTestCertificate writes a self-signed certificate and key as PEM files
func writeTestCertificate(t *testing.T) (certFile, keyFile string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "jobpilot-test"},
		NotBefore:             time.Now().Add(-time.Hour),
		NotAfter:              time.Now().Add(time.Hour),
		IsCA:                  true,
		BasicConstraintsValid: true,
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageClientAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0600))
	return certFile, keyFile
}

func TestClientTLSConfig(t *testing.T) {
	certFile, keyFile := writeTestCertificate(t)

	t.Run("system mode", func(t *testing.T) {
		cfg, err := TLSConfig{Mode: "system", MinVersion: "1.3"}.ClientTLSConfig()
		require.NoError(t, err)
		assert.Equal(t, uint16(tls.VersionTLS13), cfg.MinVersion)
		assert.Nil(t, cfg.RootCAs)
		assert.Empty(t, cfg.Certificates)
	})

	t.Run("custom CA", func(t *testing.T) {
		cfg, err := TLSConfig{Mode: "custom", CAFile: certFile}.ClientTLSConfig()
		require.NoError(t, err)
		assert.Equal(t, uint16(tls.VersionTLS12), cfg.MinVersion)
		assert.NotNil(t, cfg.RootCAs)
	})

	t.Run("mutual", func(t *testing.T) {
		cfg, err := TLSConfig{Mode: "mutual", CertFile: certFile, KeyFile: keyFile}.ClientTLSConfig()
		require.NoError(t, err)
		assert.Len(t, cfg.Certificates, 1)
	})

	t.Run("CA file without certificates", func(t *testing.T) {
		bogus := filepath.Join(t.TempDir(), "bogus.pem")
		require.NoError(t, os.WriteFile(bogus, []byte("not a pem"), 0600))
		_, err := TLSConfig{Mode: "custom", CAFile: bogus}.ClientTLSConfig()
		assert.ErrorContains(t, err, "no certificates")
	})

	t.Run("missing key pair", func(t *testing.T) {
		_, err := TLSConfig{Mode: "mutual", CertFile: certFile, KeyFile: "/nonexistent"}.ClientTLSConfig()
		assert.ErrorContains(t, err, "failed to load client certificate")
	})
}

func TestValidateTLSConfigIntegration(t *testing.T) {
	tests := []struct {
		name        string
		tls         TLSConfig
		expectError bool
		errorMsg    string
	}{
		{name: "system default", tls: TLSConfig{Mode: "system", MinVersion: "1.2"}},
		{
			name: "complete mutual config",
			tls: TLSConfig{
				Mode:       "mutual",
				CertFile:   "/path/to/cert.pem",
				KeyFile:    "/path/to/key.pem",
				CAFile:     "/path/to/ca.pem",
				MinVersion: "1.3",
			},
		},
		{
			name:        "valid mode with invalid version",
			tls:         TLSConfig{Mode: "system", MinVersion: "1.0"},
			expectError: true,
			errorMsg:    "invalid TLS minVersion: 1.0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Backend: BackendConfig{TLS: tt.tls}}
			err := cfg.ValidateTLSConfig()
			if tt.expectError {
				assert.ErrorContains(t, err, tt.errorMsg)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
