// Package email defines the core outgoing-message data model shared by the
// assembler and the delivery transports.
package email

import "io"

// Message represents a fully composed email ready for delivery.
// It is created once per send and must not be mutated after being
// handed to a transport.
type Message struct {
	From        Address
	To          []string
	Bcc         []string
	Subject     string
	HTMLBody    string
	Priority    Priority
	Attachments []Attachment
}

// Address is a sender identity: the address itself plus an optional
// display name.
type Address struct {
	Email string
	Name  string
}

// Attachment represents a file attached to an outgoing message. Content is
// an open handle on the source file (or on its temporary copy for locked
// formats); Name is always the original display file name, never the
// temporary copy's.
type Attachment struct {
	Name        string
	Path        string
	ContentType string
	Size        int64
	Content     io.ReadSeeker
}

// Close releases the underlying file handle if the attachment holds one.
func (a Attachment) Close() error {
	if c, ok := a.Content.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// CloseAll closes every attachment handle on the message, returning the
// first error encountered.
func (m *Message) CloseAll() error {
	var firstErr error
	for _, att := range m.Attachments {
		if err := att.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
