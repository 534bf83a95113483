// Package mail holds the mailbox domain types shared by the labeling and
// digest jobs, and the narrow mailbox ports each job depends on.
package mail

import (
	"fmt"
	"time"
)

// LengthyThreshold is the message count above which a thread is lengthy.
const LengthyThreshold = 3

// Message is a single email as fetched from the mailbox. It is not mutated
// after the fetch except for the thread annotations set by the collector.
type Message struct {
	ID              string
	ThreadID        string
	Subject         string
	Body            string
	From            string
	SentAt          time.Time
	AttachmentNames []string

	// Thread annotations. Position is 1-based. ThreadSize is the number of
	// messages the thread had in the mailbox, even when some were not emitted.
	Position      int
	ThreadSize    int
	IsThreadStart bool
}

// Thread is an ordered conversation as returned by the mailbox provider.
type Thread struct {
	ID       string
	Labels   []string
	Messages []Message
}

// Size returns the number of messages in the thread.
func (t Thread) Size() int {
	return len(t.Messages)
}

// Latest returns the most recent message, or false for an empty thread.
func (t Thread) Latest() (Message, bool) {
	if len(t.Messages) == 0 {
		return Message{}, false
	}
	latest := t.Messages[0]
	for _, m := range t.Messages[1:] {
		if !m.SentAt.Before(latest.SentAt) {
			latest = m
		}
	}
	return latest, true
}

// ThreadSummary is the digest text produced for one thread.
type ThreadSummary struct {
	ThreadID   string
	Text       string
	SourceLink string
}

// LabelSummary is the digest section produced for one label.
type LabelSummary struct {
	Label      string
	EmailCount int
	TimeRange  string
	Threads    []ThreadSummary
}

// Outgoing is an email to be sent by the mailbox provider.
type Outgoing struct {
	To      []string
	Subject string
	Body    string
	IsHTML  bool
}

// ThreadLink returns the web link to a thread in the mailbox UI.
func ThreadLink(threadID string) string {
	return fmt.Sprintf("https://mail.google.com/mail/u/0/#all/%s", threadID)
}
