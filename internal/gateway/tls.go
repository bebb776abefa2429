package gateway

import (
	"net/http"

	"jobpilot/internal/config"
)

// newTransport clones the default transport and applies the client TLS settings
func newTransport(cfg config.TLSConfig) (*http.Transport, error) {
	tlsConfig, err := cfg.ClientTLSConfig()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig
	return transport, nil
}
