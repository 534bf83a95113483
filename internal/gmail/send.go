package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"strings"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/mail"
)

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047
// This is necessary for non-ASCII characters (like German umlauts) in subjects
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// errHeaderInjection rejects header values that would start a new header line.
var errHeaderInjection = errors.New("header value contains a line break")

func checkHeader(name, value string) error {
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%s: %w", name, errHeaderInjection)
	}
	return nil
}

// buildRaw renders msg in RFC 2822 format.
func buildRaw(msg mail.Outgoing) (string, error) {
	if len(msg.To) == 0 {
		return "", errors.New("at least one recipient is required")
	}
	if msg.Subject == "" {
		return "", errors.New("subject is required")
	}
	for _, to := range msg.To {
		if err := checkHeader("To", to); err != nil {
			return "", err
		}
	}
	if err := checkHeader("Subject", msg.Subject); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("To: ")
	b.WriteString(strings.Join(msg.To, ", "))
	b.WriteString("\r\n")
	b.WriteString("Subject: ")
	b.WriteString(encodeRFC2047(msg.Subject))
	b.WriteString("\r\n")
	if msg.IsHTML {
		b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	} else {
		b.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	}
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.Body)
	return b.String(), nil
}

// Send sends an email from the mailbox owner.
func (c *Client) Send(ctx context.Context, msg mail.Outgoing) error {
	raw, err := buildRaw(msg)
	if err != nil {
		return err
	}

	err = c.track(ctx, instrumentation.OperationSend, func(ctx context.Context) error {
		_, err := c.svc.Messages.Send(me, &gmail.Message{
			Raw: base64.URLEncoding.EncodeToString([]byte(raw)),
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
