package instrumentation

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// Trigger values for JobRun.
const (
	TriggerCLI = "cli"
	TriggerMCP = "mcp"
)

// JobRun captures one execution of a batch job for the audit log.
//
// # Privacy Considerations
//
// UserEmail is the mailbox owner and is PII. LogAttrs only emits its domain;
// LogAuditAttrs emits the full address and should go to an access controlled
// stream.
type JobRun struct {
	Job       string
	RunID     string
	Trigger   string
	Account   string
	UserEmail string
	DryRun    bool

	StartTime time.Time
	Duration  time.Duration
	Status    string
	Reason    string

	// Counts holds job specific totals such as threads inspected or emails
	// summarized.
	Counts map[string]int

	TraceID string
	SpanID  string
}

// NewJobRun creates a JobRun with timing started.
func NewJobRun(job, runID, trigger string) *JobRun {
	return &JobRun{
		Job:       job,
		RunID:     runID,
		Trigger:   trigger,
		StartTime: time.Now(),
		Counts:    map[string]int{},
	}
}

// WithUser sets the mailbox owner.
func (jr *JobRun) WithUser(email string) *JobRun {
	jr.UserEmail = email
	return jr
}

// WithAccount sets the OAuth account name.
func (jr *JobRun) WithAccount(account string) *JobRun {
	jr.Account = account
	return jr
}

// WithDryRun marks the run as a dry run.
func (jr *JobRun) WithDryRun(dryRun bool) *JobRun {
	jr.DryRun = dryRun
	return jr
}

// WithSpanContext extracts trace context from the current span.
func (jr *JobRun) WithSpanContext(ctx context.Context) *JobRun {
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		jr.TraceID = span.SpanContext().TraceID().String()
		jr.SpanID = span.SpanContext().SpanID().String()
	}
	return jr
}

// Count sets a named total.
func (jr *JobRun) Count(name string, n int) *JobRun {
	jr.Counts[name] = n
	return jr
}

// Complete records the final status and duration. reason may be nil.
func (jr *JobRun) Complete(status string, reason error) *JobRun {
	jr.Duration = time.Since(jr.StartTime)
	jr.Status = status
	if reason != nil {
		jr.Reason = reason.Error()
	}
	return jr
}

// UserDomain returns the domain portion of the mailbox owner's address.
func (jr *JobRun) UserDomain() string {
	return ExtractUserDomain(jr.UserEmail)
}

// LogAttrs returns cardinality controlled attributes for operational logs.
func (jr *JobRun) LogAttrs() []slog.Attr {
	return jr.attrs(slog.String("user_domain", jr.UserDomain()))
}

// LogAuditAttrs returns attributes including the full mailbox address.
func (jr *JobRun) LogAuditAttrs() []slog.Attr {
	attrs := jr.attrs(slog.String("user", jr.UserEmail))
	if jr.SpanID != "" {
		attrs = append(attrs, slog.String("span_id", jr.SpanID))
	}
	return attrs
}

func (jr *JobRun) attrs(identity slog.Attr) []slog.Attr {
	attrs := []slog.Attr{
		slog.String("job", jr.Job),
		slog.String("run_id", jr.RunID),
		slog.String("trigger", jr.Trigger),
		identity,
		slog.Duration("duration", jr.Duration),
		slog.String("status", jr.Status),
	}

	if jr.Account != "" && jr.Account != "default" {
		attrs = append(attrs, slog.String("account", jr.Account))
	}
	if jr.DryRun {
		attrs = append(attrs, slog.Bool("dry_run", true))
	}

	names := make([]string, 0, len(jr.Counts))
	for name := range jr.Counts {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		attrs = append(attrs, slog.Int(name, jr.Counts[name]))
	}

	if jr.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", jr.TraceID))
	}
	if jr.Reason != "" {
		attrs = append(attrs, slog.String("reason", jr.Reason))
	}
	return attrs
}

// AuditLogger writes one structured record per job run.
type AuditLogger struct {
	logger     *slog.Logger
	includePII bool
	enabled    bool
}

// NewAuditLogger creates an AuditLogger. A nil logger uses slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger:     logger,
		includePII: config.IncludePII,
		enabled:    config.Enabled,
	}
}

// LogJobRun logs a completed run. Error runs are logged at warn level.
func (al *AuditLogger) LogJobRun(ctx context.Context, jr *JobRun) {
	if al == nil || !al.enabled {
		return
	}

	var attrs []slog.Attr
	if al.includePII {
		attrs = jr.LogAuditAttrs()
	} else {
		attrs = jr.LogAttrs()
	}

	level := slog.LevelInfo
	if jr.Status == StatusError {
		level = slog.LevelWarn
	}
	al.logger.LogAttrs(ctx, level, "job_run", attrs...)
}
