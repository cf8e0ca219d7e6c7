package tlsx

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeTestCA writes a self-signed certificate PEM to a temp file and
// returns its path.
func writeTestCA(t *testing.T) string {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generating key: %v", err)
	}

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "test-ca"},
		NotBefore:             time.Now(),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}

	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("creating certificate: %v", err)
	}

	path := filepath.Join(t.TempDir(), "ca.pem")
	pemData := pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	if err := os.WriteFile(path, pemData, 0o600); err != nil {
		t.Fatalf("writing CA file: %v", err)
	}
	return path
}

func TestClientConfig_AllDefaultsYieldsNil(t *testing.T) {
	t.Parallel()

	cfg, err := ClientConfig("", "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg != nil {
		t.Errorf("config: got %+v, want nil", cfg)
	}
}

func TestClientConfig_Insecure(t *testing.T) {
	t.Parallel()

	cfg, err := ClientConfig("", "", true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg == nil || !cfg.InsecureSkipVerify {
		t.Errorf("config: got %+v, want InsecureSkipVerify", cfg)
	}
}

func TestClientConfig_ServerName(t *testing.T) {
	t.Parallel()

	cfg, err := ClientConfig("", "mail.internal", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ServerName != "mail.internal" {
		t.Errorf("server name: got %q, want %q", cfg.ServerName, "mail.internal")
	}
}

func TestClientConfig_CAFile(t *testing.T) {
	t.Parallel()

	cfg, err := ClientConfig(writeTestCA(t), "", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.RootCAs == nil {
		t.Error("RootCAs: got nil, want populated pool")
	}
}

func TestClientConfig_BadCAFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "ca.pem")
	if err := os.WriteFile(path, []byte("not a certificate"), 0o600); err != nil {
		t.Fatal(err)
	}

	if _, err := ClientConfig(path, "", false); err == nil {
		t.Fatal("expected error for non-PEM CA file")
	}
}

func TestClientConfig_MissingCAFile(t *testing.T) {
	t.Parallel()

	if _, err := ClientConfig(filepath.Join(t.TempDir(), "nope.pem"), "", false); err == nil {
		t.Fatal("expected error for missing CA file")
	}
}
