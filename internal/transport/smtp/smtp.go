// Package smtp implements a Transport that delivers messages over SMTP
// using the go-mail client library.
package smtp

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"

	mail "github.com/wneessen/go-mail"

	"github.com/tclausen/mailsend/internal/email"
	"github.com/tclausen/mailsend/internal/transport"
)

// Config holds the connection parameters for the SMTP backend.
type Config struct {
	Server   string
	Port     int
	Security string // none, auto, ssl-on-connect, starttls, starttls-when-available
	Username string
	Password string

	// TLSConfig optionally overrides the client TLS configuration
	// (custom CA bundle, SNI name, insecure toggle).
	TLSConfig *tls.Config
}

// Transport sends messages through a single blocking SMTP session:
// connect, optionally authenticate, send, quit. It never retries.
type Transport struct {
	cfg Config
}

// New creates a new SMTP Transport with the given configuration.
func New(cfg Config) *Transport {
	return &Transport{cfg: cfg}
}

// Name returns the backend name.
func (t *Transport) Name() string { return "smtp" }

// Send delivers the message. Connection and authentication failures are
// wrapped with the server, port, security mode and username so the caller
// can tell the phases apart.
func (t *Transport) Send(ctx context.Context, msg *email.Message) error {
	m, err := BuildMessage(msg)
	if err != nil {
		return t.wrap("send", err)
	}

	client, err := t.newClient()
	if err != nil {
		return t.wrap("connect", err)
	}

	if err := client.DialWithContext(ctx); err != nil {
		op := "connect"
		if t.cfg.Username != "" {
			// go-mail authenticates during dial, so a dial failure on an
			// authenticated session may be either phase.
			op = "auth"
		}
		return t.wrap(op, err)
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			slog.Warn("closing smtp session", "server", t.cfg.Server, "error", cerr)
		}
	}()

	if err := client.Send(m); err != nil {
		return t.wrap("send", err)
	}
	return nil
}

func (t *Transport) newClient() (*mail.Client, error) {
	opts := []mail.Option{mail.WithPort(t.cfg.Port)}

	switch t.cfg.Security {
	case "none":
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	case "auto":
		// Opportunistic STARTTLS, upgraded to implicit TLS by port 465.
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSOpportunistic))
	case "ssl-on-connect":
		opts = append(opts, mail.WithSSL())
	case "starttls":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	case "starttls-when-available":
		opts = append(opts, mail.WithTLSPolicy(mail.TLSOpportunistic))
	default:
		return nil, fmt.Errorf("unknown security mode %q", t.cfg.Security)
	}

	if t.cfg.TLSConfig != nil {
		opts = append(opts, mail.WithTLSConfig(t.cfg.TLSConfig))
	}

	if t.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(t.cfg.Username),
			mail.WithPassword(t.cfg.Password),
		)
	}

	return mail.NewClient(t.cfg.Server, opts...)
}

func (t *Transport) wrap(op string, err error) error {
	return &transport.Error{
		Backend:  "smtp",
		Op:       op,
		Server:   t.cfg.Server,
		Port:     t.cfg.Port,
		Security: t.cfg.Security,
		Username: t.cfg.Username,
		Err:      err,
	}
}

// BuildMessage converts a composed message into a go-mail Msg with an HTML
// body, the mapped priority header and all attachment parts.
func BuildMessage(msg *email.Message) (*mail.Msg, error) {
	m := mail.NewMsg()

	if msg.From.Name != "" {
		if err := m.FromFormat(msg.From.Name, msg.From.Email); err != nil {
			return nil, fmt.Errorf("setting sender: %w", err)
		}
	} else {
		if err := m.From(msg.From.Email); err != nil {
			return nil, fmt.Errorf("setting sender: %w", err)
		}
	}
	if len(msg.To) > 0 {
		if err := m.To(msg.To...); err != nil {
			return nil, fmt.Errorf("setting recipients: %w", err)
		}
	}
	if len(msg.Bcc) > 0 {
		if err := m.Bcc(msg.Bcc...); err != nil {
			return nil, fmt.Errorf("setting bcc recipients: %w", err)
		}
	}

	m.Subject(msg.Subject)

	headerValue, err := msg.Priority.HeaderValue()
	if err != nil {
		return nil, err
	}
	m.SetGenHeader(mail.HeaderXPriority, headerValue)

	m.SetBodyString(mail.TypeTextHTML, msg.HTMLBody)

	for _, att := range msg.Attachments {
		m.AttachReadSeeker(att.Name, att.Content,
			mail.WithFileContentType(mail.ContentType(att.ContentType)))
	}

	return m, nil
}
