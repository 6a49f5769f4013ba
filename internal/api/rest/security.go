package rest

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"net/http"
	"os"
)

// NewTransport returns the base HTTP transport for all API traffic,
// optionally trusting an additional CA bundle for private deployments.
func NewTransport(caCertFile string) (*http.Transport, error) {
	transport := http.DefaultTransport.(*http.Transport).Clone()

	if caCertFile == "" {
		return transport, nil
	}

	pem, err := os.ReadFile(caCertFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read CA certificate: %w", err)
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(pem) {
		return nil, fmt.Errorf("no certificates found in %s", caCertFile)
	}

	transport.TLSClientConfig = &tls.Config{RootCAs: pool}
	return transport, nil
}
