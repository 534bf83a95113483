package labeler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

// MaxDaysThreads caps the threads inspected by a days style run.
const MaxDaysThreads = 500

// Mailbox is the provider surface the labeling job uses.
type Mailbox interface {
	mail.Searcher
	mail.LabelEditor
}

// JobConfig wires a labeling Job.
type JobConfig struct {
	Config     config.Source
	Mailbox    Mailbox
	Completion completion.Factory
	CatchAll   string
	Processed  string
	// DryRun classifies without changing any labels.
	DryRun  bool
	Metrics *instrumentation.Metrics
	Logger  *slog.Logger
}

// Decision is the outcome for one inspected thread.
type Decision struct {
	ThreadID string
	Subject  string
	Label    string
	Add      []string
	Remove   []string
	Applied  bool
}

// Report describes a labeling run.
type Report struct {
	Skipped bool
	DryRun  bool
	// Inspected counts threads returned by the inbox search.
	Inspected        int
	AlreadyProcessed int
	Classified       int
	CatchAll         int
	Failed           int
	Decisions        []Decision
}

// Job classifies inbox threads and tags them.
type Job struct {
	cfg JobConfig
}

// NewJob creates a labeling job.
func NewJob(cfg JobConfig) *Job {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Job{cfg: cfg}
}

// Query returns the inbox search and thread limit for the run parameters.
func Query(p config.Parameters) (string, int) {
	if p.Style == config.StyleCount {
		return "in:inbox", p.EmailCount
	}
	return fmt.Sprintf("in:inbox newer_than:%dd", p.DayCount), MaxDaysThreads
}

// Run executes one labeling run. Threads are handled one at a time. It never
// returns an error: failures degrade the result and the run moves on to the
// next thread.
func (j *Job) Run(ctx context.Context) outcome.Result[Report] {
	logger := logging.WithOperation(j.cfg.Logger, "labeler.job")
	report := Report{DryRun: j.cfg.DryRun}
	var reasons []error

	params := j.cfg.Config.Parameters(ctx)
	j.cfg.Metrics.RecordConfigResolution(ctx, "parameters", params.Status())
	if params.IsDegraded() {
		reasons = append(reasons, params.Reason)
	}
	labels := j.cfg.Config.Labels(ctx)
	j.cfg.Metrics.RecordConfigResolution(ctx, "labels", labels.Status())
	if labels.IsDegraded() {
		reasons = append(reasons, labels.Reason)
	}
	p := params.Value

	if !p.HasAPIKey() {
		logger.Warn("api key not configured, skipping labeling")
		report.Skipped = true
		return outcome.Degraded(report, config.ErrNoAPIKey)
	}

	known := append(labels.Value.Names(), j.cfg.CatchAll)
	classifier := NewClassifier(j.cfg.Completion(p.APIKey), j.cfg.CatchAll, p.MaxWords, j.cfg.Logger)

	query, max := Query(p)
	threads, err := j.cfg.Mailbox.SearchThreads(ctx, query, max)
	if err != nil {
		logger.Warn("failed to search inbox", logging.Err(err), slog.Int("threads", len(threads)))
		reasons = append(reasons, fmt.Errorf("searching inbox: %w", err))
	}
	report.Inspected = len(threads)

	for _, th := range threads {
		if err := ctx.Err(); err != nil {
			reasons = append(reasons, err)
			break
		}
		d, err := j.handle(ctx, th, labels.Value, known, p, classifier, &report)
		if d != nil {
			report.Decisions = append(report.Decisions, *d)
		}
		if err != nil {
			reasons = append(reasons, err)
		}
	}

	logger.Info("labeling finished",
		slog.Int("inspected", report.Inspected),
		slog.Int("already_processed", report.AlreadyProcessed),
		slog.Int("classified", report.Classified),
		slog.Int("catch_all", report.CatchAll),
		slog.Int("failed", report.Failed),
		slog.Bool("dry_run", report.DryRun))

	if len(reasons) > 0 {
		return outcome.Degraded(report, errors.Join(reasons...))
	}
	return outcome.Ok(report)
}

// handle classifies and tags one thread. A nil decision means the thread
// was skipped.
func (j *Job) handle(ctx context.Context, th mail.Thread, labels config.LabelSet, known []string, p config.Parameters, classifier *Classifier, report *Report) (*Decision, error) {
	logger := j.cfg.Logger.With(logging.ThreadID(th.ID))

	current, err := j.cfg.Mailbox.ThreadLabels(ctx, th.ID)
	if err != nil {
		logger.Warn("failed to read thread labels, using search result", logging.Err(err))
		current = th.Labels
	}

	if contains(current, j.cfg.Processed) && !p.Resorting {
		report.AlreadyProcessed++
		j.cfg.Metrics.RecordThreadClassified(ctx, "", instrumentation.OutcomeSkipped)
		return nil, nil
	}

	latest, ok := th.Latest()
	if !ok {
		return nil, nil
	}
	latest.ThreadID = th.ID

	var reason error
	res := classifier.Classify(ctx, latest, labels, p.Model)
	if res.IsDegraded() {
		reason = res.Reason
	}
	label := res.Value

	report.Classified++
	metricOutcome := instrumentation.OutcomeMatched
	if label == j.cfg.CatchAll {
		report.CatchAll++
		metricOutcome = instrumentation.OutcomeCatchAll
	}
	j.cfg.Metrics.RecordThreadClassified(ctx, label, metricOutcome)

	add, remove := Plan(current, label, known, j.cfg.Processed, p.Resorting)
	d := &Decision{ThreadID: th.ID, Subject: latest.Subject, Label: label, Add: add, Remove: remove}

	if j.cfg.DryRun {
		logger.Info("dry run, labels not changed",
			logging.Label(label),
			slog.Any("add", add),
			slog.Any("remove", remove))
		return d, reason
	}
	if len(add) == 0 && len(remove) == 0 {
		logger.Debug("thread already labeled", logging.Label(label))
		return d, reason
	}

	if err := j.cfg.Mailbox.ModifyThreadLabels(ctx, th.ID, add, remove); err != nil {
		report.Failed++
		logger.Warn("failed to apply labels", logging.Label(label), logging.Err(err))
		return d, errors.Join(reason, fmt.Errorf("labeling thread %s: %w", th.ID, err))
	}
	d.Applied = true
	logger.Info("thread classified", logging.Label(label), slog.Bool("changed", true))
	return d, reason
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
