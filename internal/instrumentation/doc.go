// Package instrumentation provides OpenTelemetry instrumentation for inboxbrief.
//
// The batch jobs are short lived, so metrics are either scraped from the
// serve command's metrics endpoint or pushed to a Prometheus pushgateway at
// the end of each run.
//
// # Metrics
//
// Job metrics:
//   - job_runs_total: Counter of job runs by job and status (success, degraded, skipped, error)
//   - job_duration_seconds: Histogram of job run durations
//   - threads_classified_total: Counter of labeling outcomes per thread
//   - digest_threads_summarized_total: Counter of digest threads by outcome (summarized, fallback)
//   - config_resolutions_total: Counter of config table reads by table and status
//
// Completion provider metrics:
//   - completion_calls_total: Counter of calls by purpose and status
//   - completion_duration_seconds: Histogram of call durations
//
// Google API metrics:
//   - google_api_operations_total: Counter of Google API operations by service, operation, status
//   - google_api_operation_duration_seconds: Histogram of Google API operation durations
//
// MCP Tool metrics:
//   - mcp_tool_invocations_total: Counter of MCP tool invocations by tool name and status
//   - mcp_tool_duration_seconds: Histogram of MCP tool execution durations
//
// # Tracing
//
// Spans are created for job runs (job.<name>), completion calls
// (completion.<purpose>), Google API calls (google.<service>.<operation>)
// and MCP tool invocations (tool.<name>).
//
// # Configuration
//
// Instrumentation is configured via environment variables:
//   - INSTRUMENTATION_ENABLED: Enable/disable instrumentation (default: true)
//   - METRICS_EXPORTER: Metrics exporter type (prometheus, otlp, stdout, default: prometheus)
//   - TRACING_EXPORTER: Tracing exporter type (otlp, stdout, none, default: none)
//   - OTEL_EXPORTER_OTLP_ENDPOINT: OTLP endpoint for traces/metrics
//   - OTEL_TRACES_SAMPLER_ARG: Sampling rate (0.0 to 1.0, default: 0.1)
//   - OTEL_SERVICE_NAME: Service name (default: inboxbrief)
//   - PUSHGATEWAY_URL: Prometheus pushgateway for batch runs
//
// # Example Usage
//
//	provider, err := instrumentation.NewProvider(ctx, instrumentation.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer provider.Shutdown(ctx)
//
//	provider.Metrics().RecordJobRun(ctx, instrumentation.JobDigest, instrumentation.StatusSuccess, time.Since(start))
//	if err := provider.Push(ctx, instrumentation.JobDigest, runID); err != nil {
//		logger.Warn("metrics push failed", logging.Err(err))
//	}
package instrumentation
