package summary

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

// Collector gathers the recent messages of a label as a flat, thread
// grouped sequence.
type Collector struct {
	searcher mail.Searcher
	logger   *slog.Logger
}

// NewCollector creates a Collector. A nil logger uses slog.Default().
func NewCollector(searcher mail.Searcher, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{searcher: searcher, logger: logger}
}

// Query returns the mailbox search for a label's messages of the last days.
// Gmail label search writes spaces and slashes in label names as dashes.
func Query(label string, days int) string {
	name := strings.NewReplacer(" ", "-", "/", "-").Replace(label)
	return fmt.Sprintf("label:%s newer_than:%dd", name, days)
}

// Collect returns up to maxCount messages of the label received within the
// last maxDays days.
//
// At most maxCount threads are requested. Messages are then taken in
// provider order until maxCount messages are emitted, which can cut a thread
// short. Thread groups are ordered by their latest emitted message, oldest
// first, keeping the provider's order on ties; messages keep their thread
// order. A search failure degrades the result, which keeps any threads the
// search did return.
func (c *Collector) Collect(ctx context.Context, label string, maxCount, maxDays int) outcome.Result[[]mail.Message] {
	logger := logging.WithOperation(c.logger, "summary.collect").With(logging.Label(label))

	if maxCount <= 0 {
		return outcome.Ok([]mail.Message{})
	}

	threads, err := c.searcher.SearchThreads(ctx, Query(label, maxDays), maxCount)
	if err != nil {
		logger.Warn("failed to search threads", logging.Err(err), slog.Int("threads", len(threads)))
	}

	msgs := orderByLatest(flatten(threads, maxCount))
	logger.Debug("collected messages",
		slog.Int("threads", len(threads)),
		slog.Int("messages", len(msgs)))
	if err != nil {
		return outcome.Degraded(msgs, fmt.Errorf("collecting label %s: %w", label, err))
	}
	return outcome.Ok(msgs)
}

// flatten emits messages in provider order, annotated with their thread
// position, until limit messages are emitted.
func flatten(threads []mail.Thread, limit int) []mail.Message {
	out := make([]mail.Message, 0, limit)
	for _, th := range threads {
		size := th.Size()
		for i, m := range th.Messages {
			if len(out) >= limit {
				return out
			}
			m.ThreadID = th.ID
			m.Position = i + 1
			m.ThreadSize = size
			m.IsThreadStart = i == 0
			out = append(out, m)
		}
	}
	return out
}

// orderByLatest regroups messages by thread and orders the groups by their
// most recent message, ascending. The sort is stable so groups with equal
// timestamps keep their first-seen order.
func orderByLatest(msgs []mail.Message) []mail.Message {
	groups := GroupByThread(msgs)

	latest := make([]time.Time, len(groups))
	for i, g := range groups {
		for _, m := range g {
			if m.SentAt.After(latest[i]) {
				latest[i] = m.SentAt
			}
		}
	}

	idx := make([]int, len(groups))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		return latest[idx[a]].Before(latest[idx[b]])
	})

	out := make([]mail.Message, 0, len(msgs))
	for _, i := range idx {
		out = append(out, groups[i]...)
	}
	return out
}

// GroupByThread splits messages into per-thread groups, in the order each
// thread is first seen. Message order within a group is preserved.
func GroupByThread(msgs []mail.Message) [][]mail.Message {
	index := make(map[string]int)
	var groups [][]mail.Message
	for _, m := range msgs {
		i, ok := index[m.ThreadID]
		if !ok {
			i = len(groups)
			index[m.ThreadID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], m)
	}
	return groups
}
