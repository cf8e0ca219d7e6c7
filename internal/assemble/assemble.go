// Package assemble builds an immutable outgoing message from validated
// inputs and a resolved attachment batch.
package assemble

import (
	"fmt"
	"regexp"

	"github.com/tclausen/mailsend/internal/attach"
	"github.com/tclausen/mailsend/internal/email"
)

// addressPattern is a syntactic check only: a local part, an @, and a domain
// with at least one label and a top-level label of two or more characters.
// Deliverability is the mail server's problem.
var addressPattern = regexp.MustCompile(`^[a-zA-Z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?(?:\.[a-zA-Z0-9](?:[a-zA-Z0-9-]*[a-zA-Z0-9])?)*\.[a-zA-Z]{2,}$`)

// ValidationError reports a malformed or missing address. Field names the
// offending parameter (from, to, bcc); Address is the rejected value, empty
// when the problem is an empty recipient set.
type ValidationError struct {
	Field   string
	Address string
}

func (e *ValidationError) Error() string {
	if e.Address == "" {
		return fmt.Sprintf("invalid %s: at least one recipient is required", e.Field)
	}
	return fmt.Sprintf("invalid %s address %q", e.Field, e.Address)
}

// Params carries the caller-supplied inputs for one message.
type Params struct {
	From     string
	FromName string
	To       []string
	Bcc      []string
	Subject  string
	HTMLBody string
	Priority email.Priority
	Batch    attach.Result
}

// Assemble validates addresses and folds the attachment batch into a
// complete message. It performs no I/O: the result either satisfies every
// message invariant or an error is returned before any transport is touched.
//
// When the batch carries an overflow notice, an italicized paragraph with
// the notice is appended to the HTML body so the recipient knows content
// was dropped.
func Assemble(p Params) (*email.Message, error) {
	if err := validateAddresses(p); err != nil {
		return nil, err
	}

	// Validate the priority mapping up front even though transports apply
	// the header themselves; an out-of-range value is a contract violation
	// and must not reach the wire.
	if _, err := p.Priority.HeaderValue(); err != nil {
		return nil, err
	}

	body := p.HTMLBody
	if p.Batch.OverflowNotice != "" {
		body += fmt.Sprintf("<p><i>%s</i></p>", p.Batch.OverflowNotice)
	}

	return &email.Message{
		From:        email.Address{Email: p.From, Name: p.FromName},
		To:          append([]string(nil), p.To...),
		Bcc:         append([]string(nil), p.Bcc...),
		Subject:     p.Subject,
		HTMLBody:    body,
		Priority:    p.Priority,
		Attachments: p.Batch.Files,
	}, nil
}

func validateAddresses(p Params) error {
	if !addressPattern.MatchString(p.From) {
		return &ValidationError{Field: "from", Address: p.From}
	}
	if len(p.To) == 0 && len(p.Bcc) == 0 {
		return &ValidationError{Field: "to/bcc"}
	}
	for _, addr := range p.To {
		if !addressPattern.MatchString(addr) {
			return &ValidationError{Field: "to", Address: addr}
		}
	}
	for _, addr := range p.Bcc {
		if !addressPattern.MatchString(addr) {
			return &ValidationError{Field: "bcc", Address: addr}
		}
	}
	return nil
}
