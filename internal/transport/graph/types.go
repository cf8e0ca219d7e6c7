// Package graph implements a Transport that sends messages via the
// Microsoft Graph API.
package graph

import (
	"encoding/base64"
	"io"

	"github.com/tclausen/mailsend/internal/email"
)

// sendMailRequest is the top-level request body for the Graph API sendMail endpoint.
type sendMailRequest struct {
	Message sendMailMessage `json:"message"`
}

// sendMailMessage represents the message portion of a sendMail request.
type sendMailMessage struct {
	Subject       string            `json:"subject"`
	Body          messageBody       `json:"body"`
	Importance    string            `json:"importance,omitempty"`
	ToRecipients  []recipient       `json:"toRecipients,omitempty"`
	BccRecipients []recipient       `json:"bccRecipients,omitempty"`
	Attachments   []graphAttachment `json:"attachments,omitempty"`
}

// messageBody represents the body of an email message.
type messageBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

// recipient represents an email recipient.
type recipient struct {
	EmailAddress emailAddress `json:"emailAddress"`
}

// emailAddress represents an email address in a Graph API request.
type emailAddress struct {
	Address string `json:"address"`
}

// graphAttachment represents a file attachment in a Graph API request.
type graphAttachment struct {
	ODataType    string `json:"@odata.type"`
	Name         string `json:"name"`
	ContentType  string `json:"contentType"`
	ContentBytes string `json:"contentBytes"`
}

// tokenResponse represents the OAuth2 token endpoint response.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// graphErrorResponse represents an error response from the Graph API.
type graphErrorResponse struct {
	Error graphError `json:"error"`
}

// graphError represents the error detail in a Graph API error response.
type graphError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// buildSendMailRequest converts a composed message into a Graph API sendMail
// request body. Attachment handles are rewound and read fully since the
// Graph API wants inline base64 content.
func buildSendMailRequest(msg *email.Message) (*sendMailRequest, error) {
	toRecipients := make([]recipient, 0, len(msg.To))
	for _, addr := range msg.To {
		toRecipients = append(toRecipients, recipient{
			EmailAddress: emailAddress{Address: addr},
		})
	}

	bccRecipients := make([]recipient, 0, len(msg.Bcc))
	for _, addr := range msg.Bcc {
		bccRecipients = append(bccRecipients, recipient{
			EmailAddress: emailAddress{Address: addr},
		})
	}

	attachments := make([]graphAttachment, 0, len(msg.Attachments))
	for _, att := range msg.Attachments {
		if _, err := att.Content.Seek(0, io.SeekStart); err != nil {
			return nil, err
		}
		content, err := io.ReadAll(att.Content)
		if err != nil {
			return nil, err
		}
		attachments = append(attachments, graphAttachment{
			ODataType:    "#microsoft.graph.fileAttachment",
			Name:         att.Name,
			ContentType:  att.ContentType,
			ContentBytes: base64.StdEncoding.EncodeToString(content),
		})
	}

	return &sendMailRequest{
		Message: sendMailMessage{
			Subject: msg.Subject,
			Body: messageBody{
				ContentType: "html",
				Content:     msg.HTMLBody,
			},
			Importance:    importanceFor(msg.Priority),
			ToRecipients:  toRecipients,
			BccRecipients: bccRecipients,
			Attachments:   attachments,
		},
	}, nil
}

// importanceFor maps the message priority onto the Graph importance field.
func importanceFor(p email.Priority) string {
	switch p {
	case email.PriorityLow:
		return "low"
	case email.PriorityHigh:
		return "high"
	default:
		return ""
	}
}
