// Package config resolves the label definitions and run parameters for a
// job from the user editable config store, falling back to defaults so a
// run always has a complete configuration.
package config

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/outcome"
)

var (
	// ErrNoStore is the degradation reason when no store is configured.
	ErrNoStore = errors.New("no config store configured")
	// ErrNoLabels is the degradation reason when the store has no usable label rows.
	ErrNoLabels = errors.New("config store has no labels")
	// ErrNoAPIKey stops a job before any mailbox activity.
	ErrNoAPIKey = errors.New("api key not configured")
)

// Row is one key/value row of a config table.
type Row struct {
	Key   string
	Value string
}

// Store reads the two config tables. Implementations return the data rows
// only, without any header row.
type Store interface {
	LabelRows(ctx context.Context) ([]Row, error)
	ParameterRows(ctx context.Context) ([]Row, error)
}

// Source is what the jobs need from configuration. Resolver implements it.
type Source interface {
	Labels(ctx context.Context) outcome.Result[LabelSet]
	Parameters(ctx context.Context) outcome.Result[Parameters]
}

// Resolver loads configuration fresh on every call. It never fails: read
// errors produce a Degraded result holding the defaults.
type Resolver struct {
	store    Store
	defaults Defaults
	logger   *slog.Logger
}

// NewResolver creates a resolver. A nil logger uses slog.Default().
func NewResolver(store Store, defaults Defaults, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{store: store, defaults: defaults, logger: logger}
}

// Labels returns the configured label set.
func (r *Resolver) Labels(ctx context.Context) outcome.Result[LabelSet] {
	logger := logging.WithOperation(r.logger, "config.labels")
	if r.store == nil {
		logger.Warn("using default labels", logging.Err(ErrNoStore))
		return outcome.Degraded(r.defaults.Labels, ErrNoStore)
	}

	rows, err := r.store.LabelRows(ctx)
	if err != nil {
		logger.Warn("failed to read labels, using defaults", logging.Err(err))
		return outcome.Degraded(r.defaults.Labels, err)
	}

	var labels []Label
	for _, row := range usable(rows) {
		labels = append(labels, Label{Name: row.Key, Description: row.Value})
	}
	if len(labels) == 0 {
		logger.Warn("using default labels", logging.Err(ErrNoLabels))
		return outcome.Degraded(r.defaults.Labels, ErrNoLabels)
	}

	set := NewLabelSet(labels...)
	logger.Debug("labels resolved", slog.Int("count", set.Len()))
	return outcome.Ok(set)
}

// Parameters returns the configured run parameters. Individual values that
// fail coercion keep their default and are logged; they do not degrade the
// whole result.
func (r *Resolver) Parameters(ctx context.Context) outcome.Result[Parameters] {
	logger := logging.WithOperation(r.logger, "config.parameters")
	if r.store == nil {
		logger.Warn("using default parameters", logging.Err(ErrNoStore))
		return outcome.Degraded(r.defaults.Parameters, ErrNoStore)
	}

	rows, err := r.store.ParameterRows(ctx)
	if err != nil {
		logger.Warn("failed to read parameters, using defaults", logging.Err(err))
		return outcome.Degraded(r.defaults.Parameters, err)
	}

	params, rejected := ParseParameters(usable(rows), r.defaults.Parameters)
	for _, fe := range rejected {
		logger.Warn("parameter rejected", slog.String("key", fe.Key), logging.Err(fe))
	}
	return outcome.Ok(params)
}

// usable trims keys and drops rows with an empty key or value.
func usable(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		key := strings.TrimSpace(row.Key)
		if key == "" || strings.TrimSpace(row.Value) == "" {
			continue
		}
		out = append(out, Row{Key: key, Value: row.Value})
	}
	return out
}
