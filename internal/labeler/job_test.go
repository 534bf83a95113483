package labeler

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
)

func jobParams() config.Parameters {
	p := config.BuiltinDefaults().Parameters
	p.APIKey = "sk-test"
	return p
}

func newTestJob(mb *fakeMailbox, provider *fakeProvider, p config.Parameters, dryRun bool) *Job {
	return NewJob(JobConfig{
		Config:     fakeConfig{labels: animalLabels(), params: p},
		Mailbox:    mb,
		Completion: func(string) completion.Provider { return provider },
		CatchAll:   "Other",
		Processed:  "sorted",
		DryRun:     dryRun,
	})
}

func TestQuery(t *testing.T) {
	tests := []struct {
		name      string
		params    config.Parameters
		wantQuery string
		wantMax   int
	}{
		{
			name:      "count",
			params:    config.Parameters{Style: config.StyleCount, EmailCount: 10, DayCount: 4},
			wantQuery: "in:inbox",
			wantMax:   10,
		},
		{
			name:      "days",
			params:    config.Parameters{Style: config.StyleDays, EmailCount: 10, DayCount: 4},
			wantQuery: "in:inbox newer_than:4d",
			wantMax:   MaxDaysThreads,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, max := Query(tt.params)
			assert.Equal(t, tt.wantQuery, q)
			assert.Equal(t, tt.wantMax, max)
		})
	}
}

func TestJob_LabelsUnseenThread(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "INBOX"))
	provider := &fakeProvider{answer: "cats"}

	res := newTestJob(mb, provider, jobParams(), false).Run(context.Background())

	require.False(t, res.IsDegraded(), "%v", res.Reason)
	assert.Equal(t, []string{"INBOX", "cats", "sorted"}, mb.labelsOf("t1"))
	assert.Equal(t, 1, res.Value.Classified)
	require.Len(t, res.Value.Decisions, 1)
	assert.True(t, res.Value.Decisions[0].Applied)
	assert.Equal(t, "latest", res.Value.Decisions[0].Subject)

	require.Len(t, provider.requests, 1)
	assert.Contains(t, provider.requests[0].User, "Body: newest message")
	assert.Equal(t, []string{"in:inbox newer_than:1d"}, mb.queries)
}

func TestJob_UnknownAnswerUsesCatchAll(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1"))
	provider := &fakeProvider{answer: "Sports"}

	res := newTestJob(mb, provider, jobParams(), false).Run(context.Background())

	assert.False(t, res.IsDegraded())
	assert.Equal(t, 1, res.Value.CatchAll)
	assert.Equal(t, []string{"Other", "sorted"}, mb.labelsOf("t1"))
}

func TestJob_ProviderFailureStillMarksProcessed(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1"))
	provider := &fakeProvider{err: completion.ErrUnavailable}

	res := newTestJob(mb, provider, jobParams(), false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.True(t, errors.Is(res.Reason, completion.ErrUnavailable))
	assert.Equal(t, []string{"Other", "sorted"}, mb.labelsOf("t1"))
}

func TestJob_RerunIsIdempotent(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "INBOX"))
	provider := &fakeProvider{answer: "dogs"}
	job := newTestJob(mb, provider, jobParams(), false)

	job.Run(context.Background())
	after := mb.labelsOf("t1")

	provider.answer = "cats"
	res := job.Run(context.Background())

	assert.Equal(t, after, mb.labelsOf("t1"))
	assert.Equal(t, 1, res.Value.AlreadyProcessed)
	assert.Len(t, mb.modifies, 1)
	assert.Len(t, provider.requests, 1)
}

func TestJob_ResortReplacesLabel(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "INBOX", "dogs", "sorted"))
	p := jobParams()
	p.Resorting = true

	res := newTestJob(mb, &fakeProvider{answer: "cats"}, p, false).Run(context.Background())

	assert.False(t, res.IsDegraded())
	assert.Equal(t, []string{"INBOX", "cats", "sorted"}, mb.labelsOf("t1"))
	require.Len(t, mb.modifies, 1)
	assert.Equal(t, []string{"cats"}, mb.modifies[0].add)
	assert.Equal(t, []string{"dogs"}, mb.modifies[0].remove)
}

func TestJob_DryRunLeavesLabels(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "INBOX"))

	res := newTestJob(mb, &fakeProvider{answer: "cats"}, jobParams(), true).Run(context.Background())

	assert.False(t, res.IsDegraded())
	assert.True(t, res.Value.DryRun)
	assert.Empty(t, mb.modifies)
	assert.Equal(t, []string{"INBOX"}, mb.labelsOf("t1"))
	require.Len(t, res.Value.Decisions, 1)
	assert.Equal(t, []string{"cats", "sorted"}, res.Value.Decisions[0].Add)
	assert.False(t, res.Value.Decisions[0].Applied)
}

func TestJob_SkipsWithoutAPIKey(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1"))
	provider := &fakeProvider{answer: "cats"}
	p := jobParams()
	p.APIKey = config.APIKeyPlaceholder

	res := newTestJob(mb, provider, p, false).Run(context.Background())

	assert.True(t, res.Value.Skipped)
	assert.True(t, errors.Is(res.Reason, config.ErrNoAPIKey))
	assert.Empty(t, mb.queries)
	assert.Empty(t, provider.requests)
}

func TestJob_SearchFailure(t *testing.T) {
	mb := newFakeMailbox()
	mb.searchErr = errors.New("quota")

	res := newTestJob(mb, &fakeProvider{answer: "cats"}, jobParams(), false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.Equal(t, 0, res.Value.Inspected)
}

func TestJob_PartialSearchStillLabels(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "INBOX"))
	mb.searchErr = errors.New("failed to get thread gone: not found")

	res := newTestJob(mb, &fakeProvider{answer: "cats"}, jobParams(), false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.Equal(t, 1, res.Value.Inspected)
	assert.Equal(t, []string{"INBOX", "cats", "sorted"}, mb.labelsOf("t1"))
}

func TestJob_ModifyFailureContinues(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1"), inboxThread("t2"))
	mb.modifyErr = errors.New("rate limited")

	res := newTestJob(mb, &fakeProvider{answer: "cats"}, jobParams(), false).Run(context.Background())

	assert.True(t, res.IsDegraded())
	assert.Equal(t, 2, res.Value.Failed)
	assert.Len(t, mb.modifies, 2)
}

func TestJob_CountStyle(t *testing.T) {
	mb := newFakeMailbox()
	p := jobParams()
	p.Style = config.StyleCount
	p.EmailCount = 7

	newTestJob(mb, &fakeProvider{}, p, false).Run(context.Background())

	assert.Equal(t, []string{"in:inbox"}, mb.queries)
	assert.Equal(t, []int{7}, mb.maxes)
}
