package summary

import (
	"context"
	"strings"
	"time"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

var day = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return day }

func msg(id, thread string, at time.Time, body string) mail.Message {
	return mail.Message{
		ID:       id,
		ThreadID: thread,
		Subject:  "subject " + id,
		Body:     body,
		From:     "Sender <sender@example.com>",
		SentAt:   at,
	}
}

type fakeSearcher struct {
	threads map[string][]mail.Thread
	err     error
	queries []string
	maxes   []int
}

func (f *fakeSearcher) SearchThreads(_ context.Context, query string, max int) ([]mail.Thread, error) {
	f.queries = append(f.queries, query)
	f.maxes = append(f.maxes, max)
	for prefix, threads := range f.threads {
		if strings.HasPrefix(query, prefix) {
			if len(threads) > max {
				threads = threads[:max]
			}
			return threads, f.err
		}
	}
	return nil, f.err
}

type fakeMailbox struct {
	fakeSearcher
	owner    string
	ownerErr error
	sent     []mail.Outgoing
	sendErr  map[string]error
}

func (f *fakeMailbox) UserEmail(context.Context) (string, error) {
	return f.owner, f.ownerErr
}

func (f *fakeMailbox) Send(_ context.Context, m mail.Outgoing) error {
	if err := f.sendErr[m.To[0]]; err != nil {
		return err
	}
	f.sent = append(f.sent, m)
	return nil
}

// fakeProvider answers with a function of the request and records prompts.
type fakeProvider struct {
	reply    func(req completion.Request) (string, error)
	requests []completion.Request
}

func (f *fakeProvider) Complete(_ context.Context, req completion.Request) (string, error) {
	f.requests = append(f.requests, req)
	if f.reply == nil {
		return "summary", nil
	}
	return f.reply(req)
}

type fakeConfig struct {
	labels config.LabelSet
	params config.Parameters
}

func (f fakeConfig) Labels(context.Context) outcome.Result[config.LabelSet] {
	return outcome.Ok(f.labels)
}

func (f fakeConfig) Parameters(context.Context) outcome.Result[config.Parameters] {
	return outcome.Ok(f.params)
}
