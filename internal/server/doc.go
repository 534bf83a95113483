// Package server wires the jobs to their collaborators.
//
// ServerContext caches one Gmail mailbox and one config store per account,
// created lazily on first use, and holds the completion factory, run lock
// and instrumentation shared by the CLI commands and the MCP tools.
//
// RunLabel and RunDigest execute one job run each. A run gets a run ID,
// takes the run lock for its job and account, records a job span, an audit
// record and job metrics, and pushes metrics to the pushgateway when one is
// configured. Job problems degrade the returned result; an error is returned
// only when the run could not start.
//
// MetricsServer exposes /metrics and the HealthChecker probes on a separate
// port for long running serve processes.
package server
