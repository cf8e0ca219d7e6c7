package transport

import (
	"errors"
	"strings"
	"testing"
)

func TestError_Messages(t *testing.T) {
	t.Parallel()

	cause := errors.New("connection refused")

	tests := []struct {
		op   string
		want []string
	}{
		{"connect", []string{"connecting to mail.example.com:587", "security starttls", "connection refused"}},
		{"auth", []string{"authentication as \"mailer\"", "mail.example.com:587", "connection refused"}},
		{"send", []string{"sending via mail.example.com:587", "connection refused"}},
	}

	for _, tt := range tests {
		err := &Error{
			Backend:  "smtp",
			Op:       tt.op,
			Server:   "mail.example.com",
			Port:     587,
			Security: "starttls",
			Username: "mailer",
			Err:      cause,
		}
		for _, want := range tt.want {
			if !strings.Contains(err.Error(), want) {
				t.Errorf("op %q: error %q missing %q", tt.op, err.Error(), want)
			}
		}
	}
}

func TestError_Unwrap(t *testing.T) {
	t.Parallel()

	cause := errors.New("boom")
	err := &Error{Backend: "smtp", Op: "send", Err: cause}

	if !errors.Is(err, cause) {
		t.Error("errors.Is should find the wrapped cause")
	}

	var terr *Error
	if !errors.As(error(err), &terr) {
		t.Error("errors.As should match *Error")
	}
}
