package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/labeler"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
	"github.com/teemow/inboxbrief/internal/runlock"
	"github.com/teemow/inboxbrief/internal/summary"
)

const pushTimeout = 10 * time.Second

// RunOptions selects how a job runs.
type RunOptions struct {
	Account string
	DryRun  bool
	// Trigger is instrumentation.TriggerCLI or instrumentation.TriggerMCP.
	Trigger string
	// Output receives the digest in a dry run. Nil uses the context's Output.
	Output io.Writer
}

// RunInfo describes a finished run.
type RunInfo struct {
	Job      string        `json:"job"`
	RunID    string        `json:"run_id"`
	Account  string        `json:"account"`
	Status   string        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Started  time.Time     `json:"started"`
	Duration time.Duration `json:"duration"`
}

// jobStatus maps a job result reason to a run status.
func jobStatus(reason error) string {
	switch {
	case reason == nil:
		return instrumentation.StatusSuccess
	case errors.Is(reason, config.ErrNoAPIKey):
		return instrumentation.StatusSkipped
	default:
		return instrumentation.StatusDegraded
	}
}

type jobFunc[T any] func(ctx context.Context, mb mail.Mailbox, src config.Source, logger *slog.Logger) (outcome.Result[T], map[string]int)

// runJob wraps one job execution with the run lock, a job span, audit and
// metrics. It returns an error only when the job could not start: no
// mailbox, no config store or the run lock is held.
func runJob[T any](ctx context.Context, sc *ServerContext, job string, ro RunOptions, fn jobFunc[T]) (outcome.Result[T], RunInfo, error) {
	account := sc.account(ro.Account)
	trigger := ro.Trigger
	if trigger == "" {
		trigger = instrumentation.TriggerCLI
	}
	runID := uuid.NewString()
	logger := logging.WithRun(logging.WithAccount(sc.logger, account), job, runID)
	info := RunInfo{Job: job, RunID: runID, Account: account, Started: time.Now()}

	var zero outcome.Result[T]
	mb, err := sc.MailboxForAccount(account)
	if err != nil {
		return zero, info, err
	}
	if lc, ok := mb.(mail.LabelCache); ok {
		lc.ResetLabels()
	}
	src, err := sc.ConfigSourceForAccount(account)
	if err != nil {
		return zero, info, err
	}

	release, err := sc.opts.Locker.Acquire(ctx, job+"-"+account)
	if err != nil {
		if errors.Is(err, runlock.ErrLocked) {
			logger.Warn("previous run still in progress, skipping")
		}
		return zero, info, fmt.Errorf("failed to acquire %s lock: %w", job, err)
	}
	defer release()

	ctx, span := instrumentation.StartJobSpan(ctx, job, runID,
		instrumentation.NewSpanAttributeBuilder().WithDryRun(ro.DryRun).Build()...)
	defer span.End()

	jr := instrumentation.NewJobRun(job, runID, trigger).
		WithAccount(account).
		WithDryRun(ro.DryRun).
		WithSpanContext(ctx)

	logger.Info("job started", slog.String("trigger", trigger), slog.Bool("dry_run", ro.DryRun))
	result, counts := fn(ctx, mb, src, logger)

	if email, err := mb.UserEmail(ctx); err == nil {
		jr.WithUser(email)
	}
	for name, n := range counts {
		jr.Count(name, n)
	}
	status := jobStatus(result.Reason)
	jr.Complete(status, result.Reason)
	sc.AuditLogger().LogJobRun(ctx, jr)
	sc.Metrics().RecordJobRun(ctx, job, status, jr.Duration)

	if status == instrumentation.StatusDegraded {
		instrumentation.SetSpanError(span, result.Reason)
		logger.Warn("job finished degraded", logging.Status(status), logging.Err(result.Reason))
	} else {
		instrumentation.SetSpanSuccess(span)
		logger.Info("job finished", logging.Status(status), slog.Duration("duration", jr.Duration))
	}

	if sc.opts.Provider != nil {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), pushTimeout)
		if err := sc.opts.Provider.Push(pushCtx, job, runID); err != nil {
			logger.Warn("failed to push metrics", logging.Err(err))
		}
		cancel()
	}

	info.Status = status
	info.Duration = jr.Duration
	if result.Reason != nil {
		info.Reason = result.Reason.Error()
	}
	sc.recordRun(info)
	return result, info, nil
}

// RunLabel runs the labeling job for an account.
func (sc *ServerContext) RunLabel(ctx context.Context, ro RunOptions) (outcome.Result[labeler.Report], RunInfo, error) {
	return runJob(ctx, sc, instrumentation.JobLabel, ro,
		func(ctx context.Context, mb mail.Mailbox, src config.Source, logger *slog.Logger) (outcome.Result[labeler.Report], map[string]int) {
			result := labeler.NewJob(labeler.JobConfig{
				Config:     src,
				Mailbox:    mb,
				Completion: sc.opts.Completion,
				CatchAll:   sc.opts.Defaults.CatchAll,
				Processed:  sc.opts.Defaults.Processed,
				DryRun:     ro.DryRun,
				Metrics:    sc.Metrics(),
				Logger:     logger,
			}).Run(ctx)
			r := result.Value
			return result, map[string]int{
				"inspected":         r.Inspected,
				"already_processed": r.AlreadyProcessed,
				"classified":        r.Classified,
				"catch_all":         r.CatchAll,
				"failed":            r.Failed,
			}
		})
}

// RunDigest runs the digest job for an account.
func (sc *ServerContext) RunDigest(ctx context.Context, ro RunOptions) (outcome.Result[summary.Report], RunInfo, error) {
	out := ro.Output
	if out == nil {
		out = sc.opts.Output
	}
	return runJob(ctx, sc, instrumentation.JobDigest, ro,
		func(ctx context.Context, mb mail.Mailbox, src config.Source, logger *slog.Logger) (outcome.Result[summary.Report], map[string]int) {
			result := summary.NewJob(summary.JobConfig{
				Config:     src,
				Mailbox:    mb,
				Completion: sc.opts.Completion,
				CatchAll:   sc.opts.Defaults.CatchAll,
				Processed:  sc.opts.Defaults.Processed,
				DryRun:     ro.DryRun,
				Output:     out,
				Location:   sc.opts.Location,
				Metrics:    sc.Metrics(),
				Logger:     logger,
			}).Run(ctx)
			r := result.Value
			return result, map[string]int{
				"labels":    r.Labels,
				"emails":    r.Emails,
				"threads":   r.Threads,
				"fallbacks": r.Fallbacks,
				"sent":      r.Delivery.Sent,
				"failed":    r.Delivery.Failed,
			}
		})
}
