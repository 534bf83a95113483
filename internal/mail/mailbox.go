package mail

import "context"

// Searcher finds threads matching a mailbox query, newest first, returning
// at most max threads with their messages in chronological order. A non-nil
// error may accompany a partial result; callers use whatever was returned.
type Searcher interface {
	SearchThreads(ctx context.Context, query string, max int) ([]Thread, error)
}

// LabelEditor reads and changes label names on a thread.
type LabelEditor interface {
	ThreadLabels(ctx context.Context, threadID string) ([]string, error)
	ModifyThreadLabels(ctx context.Context, threadID string, add, remove []string) error
}

// Sender delivers an outgoing email.
type Sender interface {
	Send(ctx context.Context, msg Outgoing) error
}

// Identity returns the mailbox owner's address.
type Identity interface {
	UserEmail(ctx context.Context) (string, error)
}

// LabelCache is implemented by mailboxes that keep label metadata between
// calls. Jobs reset it when a run starts.
type LabelCache interface {
	ResetLabels()
}

// Mailbox is the full provider surface used by the commands.
type Mailbox interface {
	Searcher
	LabelEditor
	Sender
	Identity
}
