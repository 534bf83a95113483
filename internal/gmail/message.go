package gmail

import (
	"encoding/base64"
	"html"
	"regexp"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/mail"
)

var (
	stripPolicy = bluemonday.StrictPolicy()

	// Block level tags that end a line of text.
	blockTags = regexp.MustCompile(`(?i)<\s*(br|/p|/div|/li|/tr|/h[1-6])\s*/?\s*>`)
	blankRuns = regexp.MustCompile(`\n\s*\n\s*\n+`)
	spaceRuns = regexp.MustCompile(`[ \t\r\f\v]+`)
)

// HeaderValue returns the first header with the given name, ignoring case.
func HeaderValue(m *gmail.Message, header string) string {
	if m == nil || m.Payload == nil {
		return ""
	}
	for _, h := range m.Payload.Headers {
		if strings.EqualFold(h.Name, header) {
			return h.Value
		}
	}
	return ""
}

// convertMessage converts a message fetched with the full format.
func convertMessage(m *gmail.Message) mail.Message {
	return mail.Message{
		ID:              m.Id,
		ThreadID:        m.ThreadId,
		Subject:         HeaderValue(m, "Subject"),
		From:            HeaderValue(m, "From"),
		SentAt:          time.UnixMilli(m.InternalDate),
		Body:            messageBody(m.Payload),
		AttachmentNames: attachmentNames(m.Payload),
	}
}

// messageBody returns the text/plain body, or the text/html body reduced to
// plain text when there is no plain part.
func messageBody(p *gmail.MessagePart) string {
	if text, ok := findPart(p, "text/plain"); ok {
		return text
	}
	if h, ok := findPart(p, "text/html"); ok {
		return HTMLToText(h)
	}
	return ""
}

// findPart returns the decoded body of the first non-attachment part with
// the MIME type, depth first.
func findPart(p *gmail.MessagePart, mimeType string) (string, bool) {
	if p == nil {
		return "", false
	}
	if p.Filename == "" && strings.EqualFold(p.MimeType, mimeType) && p.Body != nil && p.Body.Data != "" {
		if text, err := decodeBody(p.Body.Data); err == nil {
			return text, true
		}
	}
	for _, sub := range p.Parts {
		if text, ok := findPart(sub, mimeType); ok {
			return text, true
		}
	}
	return "", false
}

func decodeBody(data string) (string, error) {
	decoded, err := base64.URLEncoding.DecodeString(data)
	if err != nil {
		decoded, err = base64.RawURLEncoding.DecodeString(data)
		if err != nil {
			return "", err
		}
	}
	return string(decoded), nil
}

func attachmentNames(p *gmail.MessagePart) []string {
	var names []string
	walkParts(p, func(part *gmail.MessagePart) {
		if part.Filename != "" {
			names = append(names, part.Filename)
		}
	})
	return names
}

// walkParts recursively walks through message parts
func walkParts(part *gmail.MessagePart, fn func(*gmail.MessagePart)) {
	if part == nil {
		return
	}
	fn(part)
	for _, sub := range part.Parts {
		walkParts(sub, fn)
	}
}

// HTMLToText strips all markup from an HTML body, keeping line breaks at
// block boundaries. Script and style contents are dropped.
func HTMLToText(h string) string {
	h = blockTags.ReplaceAllString(h, "$0\n")
	text := html.UnescapeString(stripPolicy.Sanitize(h))

	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(l, " "))
	}
	text = strings.Join(lines, "\n")
	return strings.TrimSpace(blankRuns.ReplaceAllString(text, "\n\n"))
}
