package gmail

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
)

// maxPageSize is the largest page the threads list endpoint returns.
const maxPageSize = 100

// SearchThreads returns up to max threads matching the Gmail search query,
// newest first, each with its messages in chronological order.
//
// A thread that cannot be fetched, for example one deleted since it was
// listed, is skipped. The remaining threads are returned together with the
// joined fetch errors.
func (c *Client) SearchThreads(ctx context.Context, query string, max int) ([]mail.Thread, error) {
	if max <= 0 {
		return nil, nil
	}

	ids, err := c.listThreadIDs(ctx, query, max)
	if err != nil {
		return nil, err
	}

	names, err := c.labelNames(ctx)
	if err != nil {
		return nil, err
	}

	threads := make([]mail.Thread, 0, len(ids))
	var errs []error
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		t, err := c.getThread(ctx, id, "full")
		if err != nil {
			c.logger.Warn("skipping thread",
				logging.Operation("gmail.search"),
				logging.ThreadID(id),
				logging.Err(err))
			errs = append(errs, err)
			continue
		}
		threads = append(threads, convertThread(t, names))
	}
	status := instrumentation.StatusSuccess
	if len(errs) > 0 {
		status = instrumentation.StatusDegraded
	}
	c.logger.Debug("threads searched",
		logging.Operation("gmail.search"),
		logging.Status(status),
		slog.Int("threads", len(threads)),
		slog.Int("skipped", len(errs)))
	return threads, errors.Join(errs...)
}

// listThreadIDs pages through the threads list until max IDs are collected.
func (c *Client) listThreadIDs(ctx context.Context, query string, max int) ([]string, error) {
	var ids []string
	pageToken := ""

	for len(ids) < max {
		pageSize := max - len(ids)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		var res *gmail.ListThreadsResponse
		err := c.track(ctx, instrumentation.OperationSearch, func(ctx context.Context) error {
			req := c.svc.Threads.List(me).Context(ctx).Q(query).MaxResults(int64(pageSize))
			if pageToken != "" {
				req = req.PageToken(pageToken)
			}
			var err error
			res, err = req.Do()
			return err
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list threads for %q: %w", query, err)
		}

		for _, t := range res.Threads {
			ids = append(ids, t.Id)
		}
		if res.NextPageToken == "" {
			break
		}
		pageToken = res.NextPageToken
	}

	if len(ids) > max {
		ids = ids[:max]
	}
	return ids, nil
}

func (c *Client) getThread(ctx context.Context, id, format string) (*gmail.Thread, error) {
	var t *gmail.Thread
	err := c.track(ctx, instrumentation.OperationGet, func(ctx context.Context) error {
		var err error
		t, err = c.svc.Threads.Get(me, id).Context(ctx).Format(format).Do()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get thread %s: %w", id, err)
	}
	return t, nil
}

// convertThread converts a Gmail thread. The thread's labels are the union
// of its messages' labels, by name.
func convertThread(t *gmail.Thread, names map[string]string) mail.Thread {
	out := mail.Thread{ID: t.Id}
	out.Labels = threadLabelNames(t, names)
	for _, m := range t.Messages {
		msg := convertMessage(m)
		msg.ThreadID = t.Id
		out.Messages = append(out.Messages, msg)
	}
	return out
}

func threadLabelNames(t *gmail.Thread, names map[string]string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range t.Messages {
		for _, id := range m.LabelIds {
			name, ok := names[id]
			if !ok {
				name = id
			}
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out
}
