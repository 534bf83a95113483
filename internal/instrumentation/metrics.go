package instrumentation

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
const (
	attrStatus    = "status"
	attrOperation = "operation"
	attrService   = "service"
	attrOutcome   = "outcome"
	attrPurpose   = "purpose"
	attrJob       = "job"
	attrTool      = "tool"
	attrLabel     = "label"
	attrTable     = "table"
)

// Outcome values for per-thread metrics.
const (
	OutcomeMatched    = "matched"
	OutcomeCatchAll   = "catch_all"
	OutcomeSkipped    = "skipped"
	OutcomeSummarized = "summarized"
	OutcomeFallback   = "fallback"
)

// Metrics provides methods for recording observability metrics.
// A zero Metrics is a valid no-op recorder.
type Metrics struct {
	// Google API metrics
	googleAPIOperationsTotal   metric.Int64Counter
	googleAPIOperationDuration metric.Float64Histogram

	// Completion provider metrics
	completionCallsTotal metric.Int64Counter
	completionDuration   metric.Float64Histogram

	// Job metrics
	jobRunsTotal            metric.Int64Counter
	jobDuration             metric.Float64Histogram
	threadsClassifiedTotal  metric.Int64Counter
	digestThreadsSummarized metric.Int64Counter
	configResolutionsTotal  metric.Int64Counter

	// MCP Tool metrics
	toolInvocationsTotal metric.Int64Counter
	toolDuration         metric.Float64Histogram

	// detailedLabels controls whether user defined label names are attached
	detailedLabels bool
}

// NewMetrics creates a new Metrics instance with all metrics initialized.
func NewMetrics(meter metric.Meter, detailedLabels bool) (*Metrics, error) {
	m := &Metrics{
		detailedLabels: detailedLabels,
	}

	var err error

	m.googleAPIOperationsTotal, err = meter.Int64Counter(
		"google_api_operations_total",
		metric.WithDescription("Total number of Google API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operations_total counter: %w", err)
	}

	m.googleAPIOperationDuration, err = meter.Float64Histogram(
		"google_api_operation_duration_seconds",
		metric.WithDescription("Google API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_api_operation_duration_seconds histogram: %w", err)
	}

	m.completionCallsTotal, err = meter.Int64Counter(
		"completion_calls_total",
		metric.WithDescription("Total number of completion provider calls"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion_calls_total counter: %w", err)
	}

	m.completionDuration, err = meter.Float64Histogram(
		"completion_duration_seconds",
		metric.WithDescription("Completion provider call duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create completion_duration_seconds histogram: %w", err)
	}

	m.jobRunsTotal, err = meter.Int64Counter(
		"job_runs_total",
		metric.WithDescription("Total number of job runs by outcome"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job_runs_total counter: %w", err)
	}

	m.jobDuration, err = meter.Float64Histogram(
		"job_duration_seconds",
		metric.WithDescription("Job run duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(1, 5, 15, 30, 60, 120, 300, 600, 1200),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create job_duration_seconds histogram: %w", err)
	}

	m.threadsClassifiedTotal, err = meter.Int64Counter(
		"threads_classified_total",
		metric.WithDescription("Threads evaluated by the labeling job"),
		metric.WithUnit("{thread}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create threads_classified_total counter: %w", err)
	}

	m.digestThreadsSummarized, err = meter.Int64Counter(
		"digest_threads_summarized_total",
		metric.WithDescription("Threads summarized by the digest job"),
		metric.WithUnit("{thread}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create digest_threads_summarized_total counter: %w", err)
	}

	m.configResolutionsTotal, err = meter.Int64Counter(
		"config_resolutions_total",
		metric.WithDescription("Config table resolutions by status"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create config_resolutions_total counter: %w", err)
	}

	m.toolInvocationsTotal, err = meter.Int64Counter(
		"mcp_tool_invocations_total",
		metric.WithDescription("Total number of MCP tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"mcp_tool_duration_seconds",
		metric.WithDescription("MCP tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 120.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create mcp_tool_duration_seconds histogram: %w", err)
	}

	return m, nil
}

// RecordGoogleAPIOperation records a Google API operation with service, operation,
// status, and duration.
//
// Parameters:
//   - service: Google service name (gmail, drive, sheets)
//   - operation: Operation type (list, get, modify, send, etc.)
//   - status: Result status ("success" or "error")
//   - duration: Time taken for the operation
func (m *Metrics) RecordGoogleAPIOperation(ctx context.Context, service, operation, status string, duration time.Duration) {
	if m == nil || m.googleAPIOperationsTotal == nil || m.googleAPIOperationDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrService, service),
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.googleAPIOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.googleAPIOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordCompletion records one completion provider call.
// status is "success" or the error class reported by the provider.
func (m *Metrics) RecordCompletion(ctx context.Context, purpose, status string, duration time.Duration) {
	if m == nil || m.completionCallsTotal == nil || m.completionDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrPurpose, purpose),
		attribute.String(attrStatus, status),
	}

	m.completionCallsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.completionDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordJobRun records a finished job run.
func (m *Metrics) RecordJobRun(ctx context.Context, job, status string, duration time.Duration) {
	if m == nil || m.jobRunsTotal == nil || m.jobDuration == nil {
		return // Instrumentation not initialized
	}

	m.jobRunsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrJob, job),
		attribute.String(attrStatus, status),
	))
	m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String(attrJob, job),
	))
}

// RecordThreadClassified records the outcome for one thread of the labeling
// job. The label is attached only with detailed labels enabled.
func (m *Metrics) RecordThreadClassified(ctx context.Context, label, outcome string) {
	if m == nil || m.threadsClassifiedTotal == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOutcome, outcome),
	}
	if m.detailedLabels && label != "" {
		attrs = append(attrs, attribute.String(attrLabel, label))
	}

	m.threadsClassifiedTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordThreadSummarized records whether a digest thread got a real summary
// or the fallback text.
func (m *Metrics) RecordThreadSummarized(ctx context.Context, outcome string) {
	if m == nil || m.digestThreadsSummarized == nil {
		return // Instrumentation not initialized
	}

	m.digestThreadsSummarized.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrOutcome, outcome),
	))
}

// RecordConfigResolution records whether a config table was read from the
// store or replaced by defaults.
func (m *Metrics) RecordConfigResolution(ctx context.Context, table, status string) {
	if m == nil || m.configResolutionsTotal == nil {
		return // Instrumentation not initialized
	}

	m.configResolutionsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrTable, table),
		attribute.String(attrStatus, status),
	))
}

// RecordToolInvocation records an MCP tool invocation with tool name, status, and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, toolName, status string, duration time.Duration) {
	if m == nil || m.toolInvocationsTotal == nil || m.toolDuration == nil {
		return // Instrumentation not initialized
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, toolName),
		attribute.String(attrStatus, status),
	}

	m.toolInvocationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}
