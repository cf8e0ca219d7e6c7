// Package transport defines the interface for email delivery backends.
package transport

import (
	"context"
	"fmt"

	"github.com/tclausen/mailsend/internal/email"
)

// Transport is the interface that delivery backends must implement.
// Each backend handles the actual transmission of a composed message
// (e.g., SMTP, AWS SES, Microsoft Graph, stdout).
type Transport interface {
	// Send delivers a composed message through this backend.
	// It returns an error if the delivery fails; no backend retries
	// beyond its own internal policy.
	Send(ctx context.Context, msg *email.Message) error

	// Name returns the human-readable name of this backend.
	Name() string
}

// Error wraps a delivery failure with the connection context in which it
// occurred so callers can report and branch on it without parsing strings.
type Error struct {
	Backend  string
	Op       string // "connect", "auth" or "send"
	Server   string
	Port     int
	Security string
	Username string
	Err      error
}

func (e *Error) Error() string {
	switch e.Op {
	case "auth":
		return fmt.Sprintf("%s: authentication as %q on %s:%d failed: %v",
			e.Backend, e.Username, e.Server, e.Port, e.Err)
	case "connect":
		return fmt.Sprintf("%s: connecting to %s:%d (security %s) failed: %v",
			e.Backend, e.Server, e.Port, e.Security, e.Err)
	default:
		return fmt.Sprintf("%s: sending via %s:%d failed: %v",
			e.Backend, e.Server, e.Port, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }
