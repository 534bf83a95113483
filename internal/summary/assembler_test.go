package summary

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/mail"
)

func digestParams() config.Parameters {
	return config.Parameters{SummaryDays: 3, SummaryTimeMinutes: 20}
}

func TestAssemble_NoEmails(t *testing.T) {
	got := Assemble(nil, 0, digestParams(), day, time.UTC)

	assert.True(t, strings.HasPrefix(got, "EMAIL SUMMARY - Tue Mar 05 2024\n\n"))
	assert.Contains(t, got, "total emails: 0\n")
	assert.Contains(t, got, "time period: last 3 days\n")
	assert.Contains(t, got, "target listening time: 20 minutes\n")
	assert.Contains(t, got, NoEmailsNotice)
	assert.NotContains(t, got, "DETAILED SUMMARIES")
}

func TestAssemble_TitleUsesLocation(t *testing.T) {
	late := time.Date(2024, 3, 5, 23, 30, 0, 0, time.UTC)
	east := time.FixedZone("UTC+2", 2*60*60)

	got := Assemble(nil, 0, digestParams(), late, east)

	assert.True(t, strings.HasPrefix(got, "EMAIL SUMMARY - Wed Mar 06 2024\n\n"))
}

func TestAssemble_Sections(t *testing.T) {
	sections := []mail.LabelSummary{
		{
			Label:      "Work",
			EmailCount: 3,
			TimeRange:  "last received: Tue Mar 05 2024",
			Threads:    []mail.ThreadSummary{{Text: "first"}, {Text: "second"}},
		},
		{Label: "Empty"},
		{
			Label:      "AI",
			EmailCount: 1,
			TimeRange:  "last received: Mon Mar 04 2024",
			Threads:    []mail.ThreadSummary{{Text: "third"}},
		},
	}

	got := Assemble(sections, 4, digestParams(), day, time.UTC)

	assert.Contains(t, got, "total emails: 4\n")
	assert.Contains(t, got, "Work: 3 emails (last received: Tue Mar 05 2024)\nAI: 1 emails (last received: Mon Mar 04 2024)\n\n")
	assert.NotContains(t, got, "Empty")
	assert.NotContains(t, got, NoEmailsNotice)

	detail := got[strings.Index(got, "DETAILED SUMMARIES:"):]
	assert.Equal(t, "DETAILED SUMMARIES:\n\n"+
		"--- WORK (3 emails) ---\nfirst\n\nsecond\n\n"+
		"--- AI (1 emails) ---\nthird\n\n", detail)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "AI email summary - 7 emails from last 3 days", Subject(7, 3))
}

func TestValidRecipient(t *testing.T) {
	tests := []struct {
		addr string
		want bool
	}{
		{addr: "a@example.com", want: true},
		{addr: "Jane Doe <jane@example.com>", want: true},
		{addr: "", want: false},
		{addr: "not-an-address", want: false},
		{addr: "a@example.com, b@example.com", want: false},
		{addr: "a@example.com\r\nBcc: other@example.com", want: false},
		{addr: "a@example.com\nBcc: other@example.com", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidRecipient(tt.addr))
		})
	}
}

func TestDispatch_SkipsHeaderInjection(t *testing.T) {
	mb := &fakeMailbox{}
	d := NewDispatcher(mb, nil)

	got := d.Dispatch(context.Background(),
		[]string{"a@example.com\r\nBcc: other@example.com", "b@example.com"},
		"subject", "body")

	assert.Equal(t, Delivery{Sent: 1, Skipped: 1}, got)
	require.Len(t, mb.sent, 1)
	assert.Equal(t, []string{"b@example.com"}, mb.sent[0].To)
}

func TestDispatch(t *testing.T) {
	mb := &fakeMailbox{sendErr: map[string]error{"broken@example.com": errors.New("rejected")}}
	d := NewDispatcher(mb, nil)

	got := d.Dispatch(context.Background(),
		[]string{"a@example.com", "not-an-address", " broken@example.com", "b@example.com "},
		"subject", "body")

	assert.Equal(t, Delivery{Sent: 2, Skipped: 1, Failed: 1}, got)
	require.Len(t, mb.sent, 2)
	assert.Equal(t, []string{"a@example.com"}, mb.sent[0].To)
	assert.Equal(t, []string{"b@example.com"}, mb.sent[1].To)
	assert.Equal(t, "subject", mb.sent[0].Subject)
	assert.Equal(t, "body", mb.sent[0].Body)
	assert.False(t, mb.sent[0].IsHTML)
}
