package summary

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

// Aggregator builds the digest section of one label.
type Aggregator struct {
	summarizer *Summarizer
	loc        *time.Location
}

// NewAggregator creates an Aggregator. Dates are compared and printed in
// loc; nil means time.Local.
func NewAggregator(summarizer *Summarizer, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{summarizer: summarizer, loc: loc}
}

// Aggregate summarizes every thread in msgs, in first-seen order. A failed
// thread keeps its place with the fallback text; the result is then
// degraded with the joined reasons.
func (a *Aggregator) Aggregate(ctx context.Context, label string, msgs []mail.Message, opts Options) outcome.Result[mail.LabelSummary] {
	ls := mail.LabelSummary{
		Label:      label,
		EmailCount: len(msgs),
		TimeRange:  TimeRange(msgs, a.loc),
	}

	var reasons []error
	for _, group := range GroupByThread(msgs) {
		r := a.summarizer.Summarize(ctx, group, opts)
		if r.IsDegraded() {
			reasons = append(reasons, r.Reason)
		}
		ls.Threads = append(ls.Threads, r.Value)
	}

	if len(reasons) > 0 {
		return outcome.Degraded(ls, fmt.Errorf("label %s: %d of %d threads fell back: %w",
			label, len(reasons), len(ls.Threads), errors.Join(reasons...)))
	}
	return outcome.Ok(ls)
}

// TimeRange describes when the messages were received: "last received: <date>"
// when they share one calendar day in loc, otherwise
// "spanning: <oldest> to <newest>".
func TimeRange(msgs []mail.Message, loc *time.Location) string {
	if len(msgs) == 0 {
		return "no emails"
	}
	if loc == nil {
		loc = time.Local
	}

	oldest, newest := msgs[0].SentAt, msgs[0].SentAt
	for _, m := range msgs[1:] {
		if m.SentAt.Before(oldest) {
			oldest = m.SentAt
		}
		if m.SentAt.After(newest) {
			newest = m.SentAt
		}
	}

	first := oldest.In(loc).Format(DateLayout)
	last := newest.In(loc).Format(DateLayout)
	if first == last {
		return "last received: " + last
	}
	return fmt.Sprintf("spanning: %s to %s", first, last)
}
