package server

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/runlock"
)

func TestJobStatus(t *testing.T) {
	tests := []struct {
		name   string
		reason error
		want   string
	}{
		{name: "ok", reason: nil, want: instrumentation.StatusSuccess},
		{name: "no api key", reason: config.ErrNoAPIKey, want: instrumentation.StatusSkipped},
		{name: "joined api key", reason: errors.Join(config.ErrNoLabels, config.ErrNoAPIKey), want: instrumentation.StatusSkipped},
		{name: "degraded", reason: errors.New("search failed"), want: instrumentation.StatusDegraded},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, jobStatus(tt.reason))
		})
	}
}

func TestRunLabel(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "Quarterly report"))
	sc := newTestContext(t, mb, configuredStore(), "Work", nil)

	result, info, err := sc.RunLabel(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.False(t, result.IsDegraded(), "reason: %v", result.Reason)
	assert.Equal(t, 1, result.Value.Inspected)
	assert.Equal(t, 1, result.Value.Classified)
	assert.ElementsMatch(t, []string{"INBOX", "Work", "sorted"}, mb.labels["t1"])

	assert.Equal(t, instrumentation.JobLabel, info.Job)
	assert.Equal(t, "default", info.Account)
	assert.Equal(t, instrumentation.StatusSuccess, info.Status)
	assert.NotEmpty(t, info.RunID)

	last := sc.LastRuns()
	require.Contains(t, last, instrumentation.JobLabel)
	assert.Equal(t, info.RunID, last[instrumentation.JobLabel].RunID)
}

func TestRunJobs_ResetLabelCacheEachRun(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "Quarterly report"))
	sc := newTestContext(t, mb, configuredStore(), "Work", nil)

	_, _, err := sc.RunLabel(context.Background(), RunOptions{})
	require.NoError(t, err)
	_, _, err = sc.RunDigest(context.Background(), RunOptions{DryRun: true})
	require.NoError(t, err)

	assert.Equal(t, 2, mb.resets)
}

func TestRunLabel_DryRun(t *testing.T) {
	mb := newFakeMailbox(inboxThread("t1", "Quarterly report"))
	sc := newTestContext(t, mb, configuredStore(), "Work", nil)

	result, _, err := sc.RunLabel(context.Background(), RunOptions{DryRun: true, Trigger: instrumentation.TriggerMCP})
	require.NoError(t, err)

	assert.True(t, result.Value.DryRun)
	assert.Zero(t, mb.modified)
	assert.Equal(t, []string{"INBOX"}, mb.labels["t1"])
}

func TestRunLabel_NoAPIKeyIsSkipped(t *testing.T) {
	store := configuredStore()
	store.params = nil
	mb := newFakeMailbox(inboxThread("t1", "Quarterly report"))
	sc := newTestContext(t, mb, store, "Work", nil)

	result, info, err := sc.RunLabel(context.Background(), RunOptions{})
	require.NoError(t, err)

	assert.True(t, result.Value.Skipped)
	assert.Equal(t, instrumentation.StatusSkipped, info.Status)
	assert.Zero(t, mb.modified)
}

func TestRunLabel_LockHeld(t *testing.T) {
	locker := runlock.NewFile(t.TempDir(), time.Hour, discardLogger())
	release, err := locker.Acquire(context.Background(), instrumentation.JobLabel+"-default")
	require.NoError(t, err)
	defer release()

	mb := newFakeMailbox(inboxThread("t1", "Quarterly report"))
	sc := newTestContext(t, mb, configuredStore(), "Work", locker)

	_, _, err = sc.RunLabel(context.Background(), RunOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, runlock.ErrLocked)
	assert.Zero(t, mb.modified)
}

func TestRunLabel_LockReleasedAfterRun(t *testing.T) {
	locker := runlock.NewFile(t.TempDir(), time.Hour, discardLogger())
	mb := newFakeMailbox(inboxThread("t1", "Quarterly report"))
	sc := newTestContext(t, mb, configuredStore(), "Work", locker)

	_, _, err := sc.RunLabel(context.Background(), RunOptions{})
	require.NoError(t, err)
	_, _, err = sc.RunLabel(context.Background(), RunOptions{})
	require.NoError(t, err)
}

func TestRunDigest_DryRun(t *testing.T) {
	th := inboxThread("t1", "Quarterly report")
	th.Labels = []string{"Work"}
	mb := newFakeMailbox(th)
	sc := newTestContext(t, mb, configuredStore(), "Review the report by Friday.", nil)

	var out bytes.Buffer
	result, info, err := sc.RunDigest(context.Background(), RunOptions{DryRun: true, Output: &out})
	require.NoError(t, err)

	assert.False(t, result.IsDegraded(), "reason: %v", result.Reason)
	assert.Equal(t, 1, result.Value.Emails)
	assert.Empty(t, mb.sent)
	assert.Contains(t, out.String(), "Subject: "+result.Value.Subject)
	assert.Contains(t, out.String(), "Review the report by Friday.")
	assert.Equal(t, instrumentation.JobDigest, info.Job)
}

func TestRunDigest_SendsToOwner(t *testing.T) {
	th := inboxThread("t1", "Quarterly report")
	th.Labels = []string{"Work"}
	mb := newFakeMailbox(th)
	sc := newTestContext(t, mb, configuredStore(), "Review the report by Friday.", nil)

	result, info, err := sc.RunDigest(context.Background(), RunOptions{})
	require.NoError(t, err)

	require.Len(t, mb.sent, 1)
	assert.Equal(t, []string{"me@example.com"}, mb.sent[0].To)
	assert.Equal(t, 1, result.Value.Delivery.Sent)
	assert.Equal(t, instrumentation.StatusSuccess, info.Status)
}
