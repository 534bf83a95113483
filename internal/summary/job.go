package summary

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

// Mailbox is the provider surface the digest job uses.
type Mailbox interface {
	mail.Searcher
	mail.Sender
	mail.Identity
}

// JobConfig wires a digest Job.
type JobConfig struct {
	Config     config.Source
	Mailbox    Mailbox
	Completion completion.Factory
	// CatchAll and Processed are never summarized.
	CatchAll  string
	Processed string
	// DryRun writes the digest to Output instead of sending it.
	DryRun   bool
	Output   io.Writer
	Now      func() time.Time
	Location *time.Location
	Metrics  *instrumentation.Metrics
	Logger   *slog.Logger
}

// Report describes a digest run.
type Report struct {
	Skipped   bool
	DryRun    bool
	Labels    int
	Emails    int
	Threads   int
	Fallbacks int
	Subject   string
	Body      string
	Delivery  Delivery
}

// Job collects, summarizes and sends the digest.
type Job struct {
	cfg JobConfig
}

// NewJob creates a digest job.
func NewJob(cfg JobConfig) *Job {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Output == nil {
		cfg.Output = io.Discard
	}
	return &Job{cfg: cfg}
}

// Run executes one digest run. It never returns an error: problems along
// the way degrade the result and are joined into its reason. Labels are
// processed one at a time, threads within a label one at a time.
func (j *Job) Run(ctx context.Context) outcome.Result[Report] {
	logger := logging.WithOperation(j.cfg.Logger, "summary.job")
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
		logger.Warn("api key not configured, skipping digest")
		report.Skipped = true
		return outcome.Degraded(report, config.ErrNoAPIKey)
	}

	userEmail, err := j.cfg.Mailbox.UserEmail(ctx)
	if err != nil {
		logger.Warn("failed to read mailbox owner", logging.Err(err))
		reasons = append(reasons, fmt.Errorf("reading mailbox owner: %w", err))
	}

	recipients := p.Recipients()
	if len(recipients) == 0 && userEmail != "" {
		recipients = []string{userEmail}
	}

	opts := OptionsFromParameters(p, userEmail)
	opts.Location = j.cfg.Location
	summarizer := NewSummarizer(j.cfg.Completion(p.APIKey), j.cfg.Now, j.cfg.Metrics, j.cfg.Logger)
	aggregator := NewAggregator(summarizer, j.cfg.Location)
	collector := NewCollector(j.cfg.Mailbox, j.cfg.Logger)

	var sections []mail.LabelSummary
	for _, label := range labels.Value.Without(j.cfg.CatchAll, j.cfg.Processed).Names() {
		if err := ctx.Err(); err != nil {
			reasons = append(reasons, err)
			break
		}

		collected := collector.Collect(ctx, label, p.SummaryCount, p.SummaryDays)
		if collected.IsDegraded() {
			reasons = append(reasons, collected.Reason)
		}
		msgs := collected.Value
		report.Emails += len(msgs)
		if len(msgs) == 0 {
			continue
		}

		section := aggregator.Aggregate(ctx, label, msgs, opts)
		if section.IsDegraded() {
			reasons = append(reasons, section.Reason)
		}
		for _, th := range section.Value.Threads {
			if th.Text == FallbackText {
				report.Fallbacks++
			}
		}
		report.Labels++
		report.Threads += len(section.Value.Threads)
		sections = append(sections, section.Value)

		logger.Info("label summarized",
			logging.Label(label),
			slog.Int("emails", len(msgs)),
			slog.Int("threads", len(section.Value.Threads)),
			logging.Status(section.Status()))
	}

	report.Subject = Subject(report.Emails, p.SummaryDays)
	report.Body = Assemble(sections, report.Emails, p, j.cfg.Now(), j.cfg.Location)

	if j.cfg.DryRun {
		if _, err := fmt.Fprintf(j.cfg.Output, "Subject: %s\n\n%s", report.Subject, report.Body); err != nil {
			reasons = append(reasons, fmt.Errorf("writing dry run output: %w", err))
		}
	} else {
		report.Delivery = NewDispatcher(j.cfg.Mailbox, j.cfg.Logger).Dispatch(ctx, recipients, report.Subject, report.Body)
		if report.Delivery.Sent == 0 {
			reasons = append(reasons, errors.New("digest was not delivered to any recipient"))
		}
	}

	logger.Info("digest finished",
		slog.Int("labels", report.Labels),
		slog.Int("emails", report.Emails),
		slog.Int("fallbacks", report.Fallbacks),
		slog.Int("sent", report.Delivery.Sent))

	if len(reasons) > 0 {
		return outcome.Degraded(report, errors.Join(reasons...))
	}
	return outcome.Ok(report)
}
