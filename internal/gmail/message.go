package gmail

import (
	"encoding/base64"
	"errors"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
)

// Placeholders for missing headers.
const (
	NoSubject        = "No Subject"
	UnknownSender    = "Unknown Sender"
	UnknownRecipient = "Unknown Recipient"
	UnknownDate      = "Unknown Date"
	NoReadableBody   = "No readable body content"
)

// Message is the shape returned to tools.
type Message struct {
	ID       string   `json:"id"`
	ThreadID string   `json:"thread_id,omitempty"`
	Subject  string   `json:"subject"`
	From     string   `json:"sender"`
	To       string   `json:"to"`
	Date     string   `json:"date"`
	Snippet  string   `json:"snippet"`
	Body     string   `json:"body,omitempty"`
	Labels   []string `json:"labels,omitempty"`
}

// SentMessage identifies a message created by SendEmail.
type SentMessage struct {
	ID       string `json:"message_id"`
	ThreadID string `json:"thread_id"`
}

func newMessage(m *gmail.Message, withBody bool) *Message {
	msg := &Message{
		ID:       m.Id,
		ThreadID: m.ThreadId,
		Subject:  headerOr(m, "Subject", NoSubject),
		From:     headerOr(m, "From", UnknownSender),
		To:       headerOr(m, "To", UnknownRecipient),
		Date:     headerOr(m, "Date", UnknownDate),
		Snippet:  m.Snippet,
		Labels:   m.LabelIds,
	}
	if withBody {
		msg.Body = PlainTextBody(m.Payload)
	}
	return msg
}

// HeaderValue returns the first header with the given name, matched
// case-insensitively.
func HeaderValue(m *gmail.Message, name string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

func headerOr(m *gmail.Message, name, fallback string) string {
	if v := HeaderValue(m, name); v != "" {
		return v
	}
	return fallback
}

// PlainTextBody returns the top-level body or the first text/plain part,
// or NoReadableBody.
func PlainTextBody(payload *gmail.MessagePart) string {
	if payload == nil {
		return NoReadableBody
	}
	if payload.Body != nil && payload.Body.Data != "" {
		if s, err := decodeBody(payload.Body.Data); err == nil {
			return s
		}
	}

	var body string
	walkParts(payload, func(part *gmail.MessagePart) {
		if body == "" && part.MimeType == "text/plain" && part.Body != nil && part.Body.Data != "" {
			if s, err := decodeBody(part.Body.Data); err == nil {
				body = s
			}
		}
	})
	if body == "" {
		return NoReadableBody
	}
	return body
}

// decodeBody accepts padded and unpadded base64url, then standard base64.
func decodeBody(data string) (string, error) {
	for _, enc := range []*base64.Encoding{base64.URLEncoding, base64.RawURLEncoding, base64.StdEncoding} {
		if b, err := enc.DecodeString(data); err == nil {
			return string(b), nil
		}
	}
	return "", errors.New("body is not base64")
}

func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// EmailMessage is an outgoing email.
type EmailMessage struct {
	To      []string
	Cc      []string
	Bcc     []string
	Subject string
	Body    string
	IsHTML  bool
}

// Validate checks the fields Gmail would otherwise reject late.
func (m *EmailMessage) Validate() error {
	switch {
	case m == nil:
		return errors.New("message is required")
	case len(m.To) == 0:
		return errors.New("at least one recipient is required")
	case m.Subject == "":
		return errors.New("subject is required")
	case m.Body == "":
		return errors.New("body is required")
	}
	return nil
}

// Raw returns the RFC 2822 message encoded as base64url, as the API
// expects in Message.Raw.
func (m *EmailMessage) Raw() string {
	var b strings.Builder
	writeHeader(&b, "To", strings.Join(m.To, ", "))
	writeHeader(&b, "Cc", strings.Join(m.Cc, ", "))
	writeHeader(&b, "Bcc", strings.Join(m.Bcc, ", "))
	writeHeader(&b, "Subject", encodeRFC2047(m.Subject))
	if m.IsHTML {
		writeHeader(&b, "Content-Type", `text/html; charset="UTF-8"`)
	} else {
		writeHeader(&b, "Content-Type", `text/plain; charset="UTF-8"`)
	}
	writeHeader(&b, "MIME-Version", "1.0")
	b.WriteString("\r\n")
	b.WriteString(m.Body)
	return base64.URLEncoding.EncodeToString([]byte(b.String()))
}

// writeHeader skips empty values.
func writeHeader(b *strings.Builder, name, value string) {
	if value == "" {
		return
	}
	b.WriteString(name)
	b.WriteString(": ")
	b.WriteString(value)
	b.WriteString("\r\n")
}

// encodeRFC2047 encodes non-ASCII header values such as umlauts in subjects.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}
