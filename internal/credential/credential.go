// Package credential resolves the SMTP password for a configured username.
//
// Resolution order: explicit config value, then the SMTP_PASSWORD
// environment variable, then the operating system keyring. An empty result
// is not an error; it means the send proceeds unauthenticated.
package credential

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/99designs/keyring"
)

// serviceName identifies this application's entries in the OS keyring.
const serviceName = "mailsend"

// Credential is a username/password pair resolved at call time.
type Credential struct {
	Username string
	Password string
}

// Resolve returns the credential for username. The returned bool is false
// when no password could be found anywhere, in which case the caller should
// skip authentication.
func Resolve(username, configPassword string) (Credential, bool) {
	if username == "" {
		return Credential{}, false
	}
	if configPassword != "" {
		return Credential{Username: username, Password: configPassword}, true
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		return Credential{Username: username, Password: v}, true
	}

	password, err := fromKeyring(username)
	if err != nil {
		if !errors.Is(err, keyring.ErrKeyNotFound) {
			slog.Warn("keyring lookup failed", "username", username, "error", err)
		}
		return Credential{}, false
	}
	return Credential{Username: username, Password: password}, true
}

// Store saves a password for username in the OS keyring.
func Store(username, password string) error {
	ring, err := openKeyring()
	if err != nil {
		return err
	}

	err = ring.Set(keyring.Item{
		Key:  username,
		Data: []byte(password),
	})
	if err != nil {
		return fmt.Errorf("storing credential for %q: %w", username, err)
	}
	return nil
}

// fromKeyring retrieves the password for username from the OS keyring.
func fromKeyring(username string) (string, error) {
	ring, err := openKeyring()
	if err != nil {
		return "", err
	}

	item, err := ring.Get(username)
	if err != nil {
		return "", err
	}
	return string(item.Data), nil
}

// openKeyring returns a configured keyring instance.
func openKeyring() (keyring.Keyring, error) {
	ring, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,
		AllowedBackends: []keyring.BackendType{
			keyring.KeychainBackend,
			keyring.SecretServiceBackend,
			keyring.WinCredBackend,
			keyring.PassBackend,
			keyring.FileBackend,
		},
		FileDir:                  "~/.config/mailsend/credentials",
		FilePasswordFunc:         keyring.FixedStringPrompt("mailsend-file-key"),
		KeychainTrustApplication: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening keyring: %w", err)
	}
	return ring, nil
}
