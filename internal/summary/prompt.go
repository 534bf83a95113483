package summary

import (
	"fmt"
	"strings"
	"time"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/mail"
)

// DateLayout formats dates in prompts and digests, e.g. "Tue Mar 05 2024".
const DateLayout = "Mon Jan 02 2006"

// SystemPrompt is the system role text for thread summaries.
const SystemPrompt = "You are a helpful email summarizer for busy professionals."

var compressionGuide = map[config.Compression]string{
	config.CompressionDetailed:     "Cover every point that needs attention, using up to two full sentences.",
	config.CompressionStandard:     "Keep the key point and any required action, in one or two sentences.",
	config.CompressionSuccinct:     "Use one short sentence with only the essential point.",
	config.CompressionVerySuccinct: "Use a few words, like a headline. No full sentences.",
}

const styleRules = `Rules:
- Write one or two sentences at most, in a calm spoken tone meant to be listened to.
- If something is urgent, time sensitive or needs a reply, say so first and say it plainly.
- Skip greetings, signatures, quoted history and pleasantries.
- Use relative days such as "yesterday" or "on Monday" when they are clearer than dates.`

// ThreadPrompt holds what the summarizer knows about the thread being
// summarized.
type ThreadPrompt struct {
	Messages    []mail.Message
	Original    int
	Windowed    bool
	StyleGuide  string
	Compression config.Compression
	UserEmail   string
	MaxWords    int
	Now         time.Time
	// Location is the zone dates are written in. Nil means time.Local.
	Location *time.Location
}

func (p ThreadPrompt) date(t time.Time) string {
	loc := p.Location
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format(DateLayout)
}

// Build renders the user role prompt.
func (p ThreadPrompt) Build() string {
	var b strings.Builder

	if guide := strings.TrimSpace(p.StyleGuide); guide != "" {
		b.WriteString(guide)
		b.WriteString("\n\n")
	}

	compression := p.Compression
	if _, ok := compressionGuide[compression]; !ok {
		compression = config.CompressionStandard
	}
	fmt.Fprintf(&b, "Compression level: %s. This takes priority over any other length guidance. %s\n\n",
		compression, compressionGuide[compression])

	b.WriteString(styleRules)
	b.WriteString("\n")
	if alias := RecipientAlias(p.UserEmail); alias != "" {
		fmt.Fprintf(&b, "- The reader is %s <%s>. Wherever the reader appears as a sender, refer to them as \"You\" instead of by name.\n",
			alias, p.UserEmail)
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Today is %s.\n", p.date(p.Now))
	b.WriteString(p.framing())
	b.WriteString("\n\n")

	for i, m := range p.Messages {
		body, _ := Truncate(m.Body, p.MaxWords)
		fmt.Fprintf(&b, "Email %d of %d:\n", i+1, len(p.Messages))
		fmt.Fprintf(&b, "From: %s\n", m.From)
		fmt.Fprintf(&b, "Date: %s\n", p.date(m.SentAt))
		fmt.Fprintf(&b, "Subject: %s\n", m.Subject)
		if len(m.AttachmentNames) > 0 {
			fmt.Fprintf(&b, "Attachments: %s\n", strings.Join(m.AttachmentNames, ", "))
		}
		fmt.Fprintf(&b, "Body: %s\n\n", body)
	}

	b.WriteString("Summary:")
	return b.String()
}

func (p ThreadPrompt) framing() string {
	switch {
	case p.Original <= 1:
		return "This is a single email."
	case p.Windowed:
		return fmt.Sprintf("This is a lengthy thread of %d emails. Only the %d most recent are shown; summarize where the conversation stands now.",
			p.Original, len(p.Messages))
	case p.Original > mail.LengthyThreshold:
		return fmt.Sprintf("This is a lengthy thread of %d emails.", p.Original)
	default:
		return fmt.Sprintf("This is a thread of %d emails.", p.Original)
	}
}

// RecipientAlias derives a display name from the local part of an address:
// "jane.doe@example.com" becomes "jane doe".
func RecipientAlias(email string) string {
	local, _, ok := strings.Cut(strings.TrimSpace(email), "@")
	if !ok || local == "" {
		return ""
	}
	local, _, _ = strings.Cut(local, "+")
	alias := strings.Map(func(r rune) rune {
		switch r {
		case '.', '_', '-':
			return ' '
		}
		return r
	}, local)
	return strings.Join(strings.Fields(alias), " ")
}
