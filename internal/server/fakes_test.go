package server

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/runlock"
)

type fakeMailbox struct {
	mu       sync.Mutex
	threads  []mail.Thread
	labels   map[string][]string
	sent     []mail.Outgoing
	modified int
	resets   int
}

func newFakeMailbox(threads ...mail.Thread) *fakeMailbox {
	f := &fakeMailbox{threads: threads, labels: make(map[string][]string)}
	for _, th := range threads {
		f.labels[th.ID] = append([]string(nil), th.Labels...)
	}
	return f
}

func (f *fakeMailbox) SearchThreads(context.Context, string, int) ([]mail.Thread, error) {
	return f.threads, nil
}

func (f *fakeMailbox) ThreadLabels(_ context.Context, id string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.labels[id]...), nil
}

func (f *fakeMailbox) ModifyThreadLabels(_ context.Context, id string, add, remove []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.modified++
	drop := make(map[string]bool)
	for _, r := range remove {
		drop[r] = true
	}
	var next []string
	for _, l := range f.labels[id] {
		if !drop[l] {
			next = append(next, l)
		}
	}
	f.labels[id] = append(next, add...)
	return nil
}

func (f *fakeMailbox) Send(_ context.Context, msg mail.Outgoing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, msg)
	return nil
}

func (f *fakeMailbox) ResetLabels() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resets++
}

func (f *fakeMailbox) UserEmail(context.Context) (string, error) {
	return "me@example.com", nil
}

type fakeStore struct {
	labels []config.Row
	params []config.Row
}

func (f fakeStore) LabelRows(context.Context) ([]config.Row, error) {
	return f.labels, nil
}

func (f fakeStore) ParameterRows(context.Context) ([]config.Row, error) {
	return f.params, nil
}

type fakeProvider struct {
	answer string
}

func (f fakeProvider) Complete(context.Context, completion.Request) (string, error) {
	return f.answer, nil
}

func fakeFactory(answer string) completion.Factory {
	return func(string) completion.Provider { return fakeProvider{answer: answer} }
}

func configuredStore() fakeStore {
	return fakeStore{
		labels: []config.Row{
			{Key: "Work", Value: "Emails about work"},
			{Key: "Other", Value: "Anything else"},
		},
		params: []config.Row{
			{Key: config.KeyAPIKey, Value: "sk-test"},
			{Key: config.KeyStyle, Value: "count"},
		},
	}
}

func inboxThread(id, subject string) mail.Thread {
	return mail.Thread{
		ID:     id,
		Labels: []string{"INBOX"},
		Messages: []mail.Message{{
			ID:       id + "-1",
			ThreadID: id,
			Subject:  subject,
			Body:     "Please review the quarterly report.",
			From:     "boss@example.com",
			SentAt:   time.Now().Add(-time.Hour),
		}},
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestContext returns a context with the fakes installed for the
// default account.
func newTestContext(t *testing.T, mb mail.Mailbox, store config.Store, answer string, locker runlock.Locker) *ServerContext {
	t.Helper()
	sc, err := NewServerContext(context.Background(), Options{
		Completion: fakeFactory(answer),
		Locker:     locker,
		Output:     io.Discard,
		Logger:     discardLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sc.Shutdown() })

	sc.SetMailboxForAccount("", mb)
	sc.SetConfigStoreForAccount("", store)
	return sc
}
