package summary

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/mail"
)

func jobParams() config.Parameters {
	p := config.BuiltinDefaults().Parameters
	p.APIKey = "sk-test"
	return p
}

func jobLabels() config.LabelSet {
	return config.NewLabelSet(
		config.Label{Name: "AI", Description: "ai"},
		config.Label{Name: "Work", Description: "work"},
		config.Label{Name: "Other", Description: "catch all"},
	)
}

func newTestJob(mb *fakeMailbox, provider *fakeProvider, p config.Parameters, out *bytes.Buffer, dryRun bool) *Job {
	return NewJob(JobConfig{
		Config:     fakeConfig{labels: jobLabels(), params: p},
		Mailbox:    mb,
		Completion: func(string) completion.Provider { return provider },
		CatchAll:   "Other",
		Processed:  "sorted",
		DryRun:     dryRun,
		Output:     out,
		Now:        fixedNow,
		Location:   time.UTC,
	})
}

func workMailbox() *fakeMailbox {
	return &fakeMailbox{
		owner: "jane.doe@example.com",
		fakeSearcher: fakeSearcher{threads: map[string][]mail.Thread{
			"label:Work ":  {{ID: "w", Messages: thread("w", 2)}},
			"label:Other ": {{ID: "o", Messages: thread("o", 1)}},
		}},
	}
}

func TestJob_SendsDigestToOwner(t *testing.T) {
	mb := workMailbox()
	provider := &fakeProvider{}

	res := newTestJob(mb, provider, jobParams(), nil, false).Run(context.Background())

	require.False(t, res.IsDegraded(), "%v", res.Reason)
	report := res.Value
	assert.Equal(t, 1, report.Labels)
	assert.Equal(t, 2, report.Emails)
	assert.Equal(t, 1, report.Threads)
	assert.Equal(t, Delivery{Sent: 1}, report.Delivery)

	require.Len(t, mb.sent, 1)
	assert.Equal(t, []string{"jane.doe@example.com"}, mb.sent[0].To)
	assert.Equal(t, "AI email summary - 2 emails from last 3 days", mb.sent[0].Subject)
	assert.Contains(t, mb.sent[0].Body, "--- WORK (2 emails) ---")
	assert.NotContains(t, mb.sent[0].Body, "OTHER")

	assert.Equal(t, []string{"label:AI newer_than:3d", "label:Work newer_than:3d"}, mb.queries)
	require.Len(t, provider.requests, 1)
	assert.Contains(t, provider.requests[0].User, "jane doe <jane.doe@example.com>")
}

func TestJob_ConfiguredRecipients(t *testing.T) {
	mb := workMailbox()
	p := jobParams()
	p.SummaryEmails = "a@example.com, b@example.com"

	res := newTestJob(mb, &fakeProvider{}, p, nil, false).Run(context.Background())

	assert.False(t, res.IsDegraded())
	require.Len(t, mb.sent, 2)
	assert.Equal(t, []string{"a@example.com"}, mb.sent[0].To)
	assert.Equal(t, []string{"b@example.com"}, mb.sent[1].To)
}

func TestJob_SkipsWithoutAPIKey(t *testing.T) {
	for _, key := range []string{"", config.APIKeyPlaceholder} {
		t.Run(key, func(t *testing.T) {
			mb := workMailbox()
			provider := &fakeProvider{}
			p := jobParams()
			p.APIKey = key

			res := newTestJob(mb, provider, p, nil, false).Run(context.Background())

			assert.True(t, res.Value.Skipped)
			assert.True(t, errors.Is(res.Reason, config.ErrNoAPIKey))
			assert.Empty(t, mb.queries)
			assert.Empty(t, mb.sent)
			assert.Empty(t, provider.requests)
		})
	}
}

func TestJob_DryRunWritesDigest(t *testing.T) {
	mb := workMailbox()
	var out bytes.Buffer

	res := newTestJob(mb, &fakeProvider{}, jobParams(), &out, true).Run(context.Background())

	assert.False(t, res.IsDegraded())
	assert.True(t, res.Value.DryRun)
	assert.Empty(t, mb.sent)
	assert.True(t, strings.HasPrefix(out.String(), "Subject: AI email summary - 2 emails from last 3 days\n\nEMAIL SUMMARY"))
	assert.Equal(t, res.Value.Body, strings.SplitN(out.String(), "\n\n", 2)[1])
}

func TestJob_NoEmailsStillSends(t *testing.T) {
	mb := &fakeMailbox{owner: "me@example.com"}

	res := newTestJob(mb, &fakeProvider{}, jobParams(), nil, false).Run(context.Background())

	assert.False(t, res.IsDegraded())
	require.Len(t, mb.sent, 1)
	assert.Contains(t, mb.sent[0].Body, NoEmailsNotice)
	assert.Equal(t, "AI email summary - 0 emails from last 3 days", mb.sent[0].Subject)
}

func TestJob_FallbackDegradesButDelivers(t *testing.T) {
	mb := workMailbox()
	provider := &fakeProvider{reply: func(completion.Request) (string, error) {
		return "", completion.ErrUnavailable
	}}

	res := newTestJob(mb, provider, jobParams(), nil, false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.True(t, errors.Is(res.Reason, completion.ErrUnavailable))
	assert.Equal(t, 1, res.Value.Fallbacks)
	require.Len(t, mb.sent, 1)
	assert.Contains(t, mb.sent[0].Body, FallbackText)
}

func TestJob_SearchFailureDegrades(t *testing.T) {
	mb := &fakeMailbox{owner: "me@example.com", fakeSearcher: fakeSearcher{err: errors.New("quota")}}

	res := newTestJob(mb, &fakeProvider{}, jobParams(), nil, false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.Equal(t, 0, res.Value.Emails)
	assert.Len(t, mb.sent, 1)
}

func TestJob_NoRecipientDegrades(t *testing.T) {
	mb := &fakeMailbox{ownerErr: errors.New("profile unavailable")}

	res := newTestJob(mb, &fakeProvider{}, jobParams(), nil, false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.Empty(t, mb.sent)
	assert.Equal(t, 0, res.Value.Delivery.Sent)
}
