package labeler

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

type fakeProvider struct {
	answer   string
	err      error
	requests []completion.Request
}

func (f *fakeProvider) Complete(_ context.Context, req completion.Request) (string, error) {
	f.requests = append(f.requests, req)
	return f.answer, f.err
}

type modifyCall struct {
	threadID    string
	add, remove []string
}

// fakeMailbox keeps label state per thread and applies modifications.
type fakeMailbox struct {
	threads   []mail.Thread
	labels    map[string][]string
	searchErr error
	modifyErr error
	queries   []string
	maxes     []int
	modifies  []modifyCall
}

func newFakeMailbox(threads ...mail.Thread) *fakeMailbox {
	f := &fakeMailbox{threads: threads, labels: make(map[string][]string)}
	for _, th := range threads {
		f.labels[th.ID] = append([]string(nil), th.Labels...)
	}
	return f
}

func (f *fakeMailbox) SearchThreads(_ context.Context, query string, max int) ([]mail.Thread, error) {
	f.queries = append(f.queries, query)
	f.maxes = append(f.maxes, max)
	return f.threads, f.searchErr
}

func (f *fakeMailbox) ThreadLabels(_ context.Context, id string) ([]string, error) {
	l, ok := f.labels[id]
	if !ok {
		return nil, errors.New("thread not found")
	}
	return append([]string(nil), l...), nil
}

func (f *fakeMailbox) ModifyThreadLabels(_ context.Context, id string, add, remove []string) error {
	f.modifies = append(f.modifies, modifyCall{threadID: id, add: add, remove: remove})
	if f.modifyErr != nil {
		return f.modifyErr
	}
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

// labelsOf returns the sorted labels of a thread.
func (f *fakeMailbox) labelsOf(id string) []string {
	out := append([]string(nil), f.labels[id]...)
	sort.Strings(out)
	return out
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

var day = time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)

func animalLabels() config.LabelSet {
	return config.NewLabelSet(
		config.Label{Name: "dogs", Description: "Emails about dogs"},
		config.Label{Name: "cats", Description: "Emails about cats"},
		config.Label{Name: "god", Description: "Emails about god"},
		config.Label{Name: "Other", Description: "Any other email"},
	)
}

func inboxThread(id string, labels ...string) mail.Thread {
	return mail.Thread{
		ID:     id,
		Labels: labels,
		Messages: []mail.Message{
			{ID: id + "-1", Subject: "first", Body: "older message", SentAt: day},
			{ID: id + "-2", Subject: "latest", Body: "newest message", SentAt: day.Add(time.Hour)},
		},
	}
}
