// Package tlsx builds the client-side TLS configuration for the SMTP backend.
package tlsx

import (
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

// ClientConfig returns a *tls.Config for the SMTP client, or nil when every
// option is at its zero value so the library default applies.
//
// caFile adds a PEM bundle to the system roots (for servers with private
// CAs). serverName overrides the name verified against the certificate,
// which matters when connecting to an IP address or through a tunnel.
// insecure disables certificate verification entirely and should only be
// used against test servers.
func ClientConfig(caFile, serverName string, insecure bool) (*tls.Config, error) {
	if caFile == "" && serverName == "" && !insecure {
		return nil, nil
	}

	cfg := &tls.Config{
		MinVersion:         tls.VersionTLS12,
		ServerName:         serverName,
		InsecureSkipVerify: insecure,
	}

	if caFile != "" {
		pool, err := x509.SystemCertPool()
		if err != nil {
			pool = x509.NewCertPool()
		}

		pem, err := os.ReadFile(caFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read CA file: %w", err)
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in CA file %s", caFile)
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
