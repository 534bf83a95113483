package summary

import (
	"context"
	"fmt"
	"log/slog"
	netmail "net/mail"
	"strings"
	"time"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
)

// NoEmailsNotice is printed instead of label sections when nothing was found.
const NoEmailsNotice = "no new emails found in the specified time period."

// Assemble renders the digest body: title, overview, one overview line per
// non-empty label, then the detailed sections in the given order. The title
// date is now in loc; nil means time.Local.
func Assemble(sections []mail.LabelSummary, total int, p config.Parameters, now time.Time, loc *time.Location) string {
	var b strings.Builder
	if loc == nil {
		loc = time.Local
	}

	fmt.Fprintf(&b, "EMAIL SUMMARY - %s\n\n", now.In(loc).Format(DateLayout))
	b.WriteString("OVERVIEW:\n")
	fmt.Fprintf(&b, "total emails: %d\n", total)
	fmt.Fprintf(&b, "time period: last %d days\n", p.SummaryDays)
	fmt.Fprintf(&b, "target listening time: %d minutes\n\n", p.SummaryTimeMinutes)

	if total == 0 {
		b.WriteString(NoEmailsNotice)
		b.WriteString("\n")
		return b.String()
	}

	var overview []string
	for _, s := range sections {
		if s.EmailCount == 0 {
			continue
		}
		overview = append(overview, fmt.Sprintf("%s: %d emails (%s)", s.Label, s.EmailCount, s.TimeRange))
	}
	if len(overview) > 0 {
		b.WriteString(strings.Join(overview, "\n"))
		b.WriteString("\n\n")
	}

	b.WriteString("DETAILED SUMMARIES:\n\n")
	for _, s := range sections {
		if s.EmailCount == 0 {
			continue
		}
		fmt.Fprintf(&b, "--- %s (%d emails) ---\n", strings.ToUpper(s.Label), s.EmailCount)
		for _, th := range s.Threads {
			b.WriteString(th.Text)
			b.WriteString("\n\n")
		}
	}

	return b.String()
}

// Subject returns the digest email subject.
func Subject(total, days int) string {
	return fmt.Sprintf("AI email summary - %d emails from last %d days", total, days)
}

// ValidRecipient reports whether addr is a single RFC 5322 address that is
// safe to place in a header line.
func ValidRecipient(addr string) bool {
	if addr == "" || strings.ContainsAny(addr, "\r\n") {
		return false
	}
	parsed, err := netmail.ParseAddress(addr)
	return err == nil && strings.Contains(parsed.Address, "@")
}

// Delivery counts the outcome of a dispatch.
type Delivery struct {
	Sent    int
	Skipped int
	Failed  int
}

// Dispatcher sends the digest to each recipient separately, so one bad
// address or failed send does not affect the others.
type Dispatcher struct {
	sender mail.Sender
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher. A nil logger uses slog.Default().
func NewDispatcher(sender mail.Sender, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{sender: sender, logger: logger}
}

// Dispatch sends subject and body to every valid recipient. Invalid
// addresses are skipped and failures are logged; neither stops the rest.
func (d *Dispatcher) Dispatch(ctx context.Context, recipients []string, subject, body string) Delivery {
	logger := logging.WithOperation(d.logger, "summary.dispatch")

	var res Delivery
	for _, to := range recipients {
		to = strings.TrimSpace(to)
		if !ValidRecipient(to) {
			res.Skipped++
			logger.Warn("skipping invalid recipient", slog.String("recipient", to))
			continue
		}

		err := d.sender.Send(ctx, mail.Outgoing{To: []string{to}, Subject: subject, Body: body})
		if err != nil {
			res.Failed++
			logger.Warn("failed to send digest", logging.UserHash(to), logging.Err(err))
			continue
		}
		res.Sent++
		logger.Info("digest sent", logging.UserHash(to))
	}
	return res
}
