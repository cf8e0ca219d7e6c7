package assemble

import (
	"errors"
	"testing"

	"github.com/tclausen/mailsend/internal/attach"
	"github.com/tclausen/mailsend/internal/email"
)

func validParams() Params {
	return Params{
		From:     "sender@example.com",
		To:       []string{"alice@example.com"},
		Subject:  "Test Subject",
		HTMLBody: "<p>Hello</p>",
		Priority: email.PriorityNormal,
	}
}

func TestAssemble_ValidMessage(t *testing.T) {
	t.Parallel()

	msg, err := Assemble(validParams())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if msg.From.Email != "sender@example.com" {
		t.Errorf("from: got %q, want %q", msg.From.Email, "sender@example.com")
	}
	if msg.Subject != "Test Subject" {
		t.Errorf("subject: got %q, want %q", msg.Subject, "Test Subject")
	}
	if msg.HTMLBody != "<p>Hello</p>" {
		t.Errorf("body: got %q, want %q", msg.HTMLBody, "<p>Hello</p>")
	}
}

func TestAssemble_NoRecipients(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.To = nil
	p.Bcc = nil

	_, err := Assemble(p)

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("error: got %v, want ValidationError", err)
	}
	if verr.Address != "" {
		t.Errorf("address: got %q, want empty", verr.Address)
	}
}

func TestAssemble_BccOnly(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.To = nil
	p.Bcc = []string{"ops@example.com"}

	msg, err := Assemble(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.To) != 0 {
		t.Errorf("to: got %v, want empty", msg.To)
	}
	if len(msg.Bcc) != 1 || msg.Bcc[0] != "ops@example.com" {
		t.Errorf("bcc: got %v, want [ops@example.com]", msg.Bcc)
	}
}

func TestAssemble_MalformedAddresses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Params)
		field   string
		address string
	}{
		{
			name:    "to not an email",
			mutate:  func(p *Params) { p.To = []string{"not-an-email"} },
			field:   "to",
			address: "not-an-email",
		},
		{
			name:    "to missing domain dot",
			mutate:  func(p *Params) { p.To = []string{"user@localhost"} },
			field:   "to",
			address: "user@localhost",
		},
		{
			name:    "to single-char tld",
			mutate:  func(p *Params) { p.To = []string{"user@example.c"} },
			field:   "to",
			address: "user@example.c",
		},
		{
			name:    "bcc malformed",
			mutate:  func(p *Params) { p.Bcc = []string{"@example.com"} },
			field:   "bcc",
			address: "@example.com",
		},
		{
			name:    "from malformed",
			mutate:  func(p *Params) { p.From = "sender@" },
			field:   "from",
			address: "sender@",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			p := validParams()
			tt.mutate(&p)

			_, err := Assemble(p)

			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("error: got %v, want ValidationError", err)
			}
			if verr.Field != tt.field {
				t.Errorf("field: got %q, want %q", verr.Field, tt.field)
			}
			if verr.Address != tt.address {
				t.Errorf("address: got %q, want %q", verr.Address, tt.address)
			}
		})
	}
}

func TestAssemble_AcceptsSubdomainsAndPlusAddressing(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.To = []string{"first.last+tag@mail.sub.example.co"}

	if _, err := Assemble(p); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAssemble_OverflowNoticeAppended(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.HTMLBody = "<p>y</p>"
	p.Batch = attach.Result{OverflowNotice: "files were omitted"}

	msg, err := Assemble(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := "<p>y</p><p><i>files were omitted</i></p>"
	if msg.HTMLBody != want {
		t.Errorf("body: got %q, want %q", msg.HTMLBody, want)
	}
}

func TestAssemble_RecipientOrderPreserved(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.To = []string{"z@example.com", "a@example.com", "m@example.com"}

	msg, err := Assemble(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, want := range p.To {
		if msg.To[i] != want {
			t.Errorf("to[%d]: got %q, want %q", i, msg.To[i], want)
		}
	}
}

func TestAssemble_UnsupportedPriority(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.Priority = email.Priority(42)

	_, err := Assemble(p)

	var perr *email.UnsupportedPriorityError
	if !errors.As(err, &perr) {
		t.Fatalf("error: got %v, want UnsupportedPriorityError", err)
	}
	if perr.Priority != email.Priority(42) {
		t.Errorf("priority: got %d, want 42", int(perr.Priority))
	}
}

func TestAssemble_AttachmentsCarriedOver(t *testing.T) {
	t.Parallel()

	p := validParams()
	p.Batch = attach.Result{
		Files: []email.Attachment{
			{Name: "a.txt", Size: 10},
			{Name: "b.txt", Size: 20},
		},
	}

	msg, err := Assemble(p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(msg.Attachments) != 2 {
		t.Fatalf("attachments: got %d, want 2", len(msg.Attachments))
	}
	if msg.Attachments[0].Name != "a.txt" {
		t.Errorf("attachments[0]: got %q, want %q", msg.Attachments[0].Name, "a.txt")
	}
}
