// Package stdout implements a Transport that prints messages to standard
// output instead of delivering them. It backs the --dry-run flag.
package stdout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/tclausen/mailsend/internal/email"
)

// Transport prints composed messages to stdout in a human-readable format.
type Transport struct {
	// writer is the output destination, defaulting to os.Stdout.
	writer io.Writer
}

// New creates a new stdout Transport that writes to os.Stdout.
func New() *Transport {
	return &Transport{writer: os.Stdout}
}

// NewWithWriter creates a new stdout Transport that writes to the given
// writer. This is useful for testing.
func NewWithWriter(w io.Writer) *Transport {
	return &Transport{writer: w}
}

// Send prints the message to stdout in a readable format.
// It always returns nil (success).
func (t *Transport) Send(_ context.Context, msg *email.Message) error {
	var b strings.Builder

	b.WriteString("========================================\n")

	from := msg.From.Email
	if msg.From.Name != "" {
		from = fmt.Sprintf("%s <%s>", msg.From.Name, msg.From.Email)
	}
	b.WriteString(fmt.Sprintf("From: %s\n", from))

	if len(msg.To) > 0 {
		b.WriteString(fmt.Sprintf("To: %s\n", strings.Join(msg.To, ", ")))
	}
	if len(msg.Bcc) > 0 {
		b.WriteString(fmt.Sprintf("Bcc: %s\n", strings.Join(msg.Bcc, ", ")))
	}

	b.WriteString(fmt.Sprintf("Subject: %s\n", msg.Subject))

	if headerValue, err := msg.Priority.HeaderValue(); err == nil {
		b.WriteString(fmt.Sprintf("X-Priority: %s\n", headerValue))
	}

	b.WriteString("Body:\n")
	b.WriteString(msg.HTMLBody + "\n")

	if len(msg.Attachments) > 0 {
		attachments := make([]string, 0, len(msg.Attachments))
		for _, att := range msg.Attachments {
			attachments = append(attachments, fmt.Sprintf("%s (%s)", att.Name, formatSize(att.Size)))
		}
		b.WriteString(fmt.Sprintf("Attachments: %s\n", strings.Join(attachments, ", ")))
	}

	b.WriteString("========================================\n")

	if _, err := fmt.Fprint(t.writer, b.String()); err != nil {
		// The dry-run backend still reports success; the message was
		// composed, only the printing failed.
		slog.Warn("writing dry-run output", "error", err)
	}

	return nil
}

// Name returns the backend name.
func (t *Transport) Name() string {
	return "stdout"
}

// formatSize formats a byte count into a human-readable string.
func formatSize(bytes int64) string {
	const (
		kb = 1024
		mb = kb * 1024
	)

	switch {
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
