package gmail

import (
	"context"
	"fmt"
	"log/slog"

	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
)

// ResetLabels drops the cached label names and IDs. The next call that needs
// them lists the mailbox labels again.
func (c *Client) ResetLabels() {
	c.mu.Lock()
	c.labelIDs = nil
	c.names = nil
	c.mu.Unlock()
}

// loadLabels fills the label caches until ResetLabels is called.
func (c *Client) loadLabels(ctx context.Context) error {
	c.mu.Lock()
	loaded := c.labelIDs != nil
	c.mu.Unlock()
	if loaded {
		return nil
	}

	var labels []*gmail.Label
	err := c.track(ctx, instrumentation.OperationList, func(ctx context.Context) error {
		res, err := c.svc.Labels.List(me).Context(ctx).Do()
		if err != nil {
			return err
		}
		labels = res.Labels
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to list labels: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.labelIDs = make(map[string]string, len(labels))
	c.names = make(map[string]string, len(labels))
	for _, l := range labels {
		c.labelIDs[l.Name] = l.Id
		c.names[l.Id] = l.Name
	}
	return nil
}

// labelNames returns a copy of the id to name map.
func (c *Client) labelNames(ctx context.Context) (map[string]string, error) {
	if err := c.loadLabels(ctx); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]string, len(c.names))
	for id, name := range c.names {
		out[id] = name
	}
	return out, nil
}

// labelID returns the ID of the named label. With create set, a missing
// label is created as a visible user label.
func (c *Client) labelID(ctx context.Context, name string, create bool) (string, bool, error) {
	if err := c.loadLabels(ctx); err != nil {
		return "", false, err
	}
	c.mu.Lock()
	id, ok := c.labelIDs[name]
	c.mu.Unlock()
	if ok || !create {
		return id, ok, nil
	}

	var created *gmail.Label
	err := c.track(ctx, instrumentation.OperationCreate, func(ctx context.Context) error {
		var err error
		created, err = c.svc.Labels.Create(me, &gmail.Label{
			Name:                  name,
			LabelListVisibility:   "labelShow",
			MessageListVisibility: "show",
		}).Context(ctx).Do()
		return err
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to create label %q: %w", name, err)
	}
	c.logger.Info("label created", logging.Operation("gmail.label.create"), logging.Label(name))

	c.mu.Lock()
	if c.labelIDs != nil {
		c.labelIDs[name] = created.Id
		c.names[created.Id] = name
	}
	c.mu.Unlock()
	return created.Id, true, nil
}

// ThreadLabels returns the names of the labels on a thread.
func (c *Client) ThreadLabels(ctx context.Context, threadID string) ([]string, error) {
	names, err := c.labelNames(ctx)
	if err != nil {
		return nil, err
	}
	t, err := c.getThread(ctx, threadID, "minimal")
	if err != nil {
		return nil, err
	}
	return threadLabelNames(t, names), nil
}

// ModifyThreadLabels adds and removes labels by name. Labels to add are
// created when missing; labels to remove that do not exist are ignored.
func (c *Client) ModifyThreadLabels(ctx context.Context, threadID string, add, remove []string) error {
	req := &gmail.ModifyThreadRequest{}
	for _, name := range add {
		id, _, err := c.labelID(ctx, name, true)
		if err != nil {
			return err
		}
		req.AddLabelIds = append(req.AddLabelIds, id)
	}
	for _, name := range remove {
		id, ok, err := c.labelID(ctx, name, false)
		if err != nil {
			return err
		}
		if !ok {
			c.logger.Debug("skipping removal of unknown label", logging.Label(name), logging.ThreadID(threadID))
			continue
		}
		req.RemoveLabelIds = append(req.RemoveLabelIds, id)
	}
	if len(req.AddLabelIds) == 0 && len(req.RemoveLabelIds) == 0 {
		return nil
	}

	err := c.track(ctx, instrumentation.OperationModify, func(ctx context.Context) error {
		_, err := c.svc.Threads.Modify(me, threadID, req).Context(ctx).Do()
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to modify labels of thread %s: %w", threadID, err)
	}
	c.logger.Debug("thread labels modified",
		logging.ThreadID(threadID),
		slog.Any("add", add),
		slog.Any("remove", remove))
	return nil
}
