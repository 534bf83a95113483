// Package logging provides structured logging utilities for inboxbrief.
//
// This package centralizes logging patterns to ensure consistent, structured logging
// throughout the codebase using the standard library's slog package.
//
// # Key Features
//
//   - Logger construction from CLI flags (text or JSON)
//   - Run correlation: every job run carries job and run_id attributes
//   - PII sanitization (email anonymization)
//   - Consistent attribute naming across the codebase
//   - An adapter that routes go-redis log output into slog
//
// # Usage Patterns
//
// Create a logger with standard attributes:
//
//	logger := logging.WithRun(slog.Default(), "digest", runID)
//	logger.Info("label summarized",
//	    logging.Label("Work"),
//	    logging.Status(logging.StatusSuccess))
//
// Sanitize sensitive data before logging:
//
//	logger.Info("digest sent",
//	    logging.UserHash(recipient))
//
// # Security Considerations
//
//   - Email addresses are hashed to prevent PII leakage while allowing correlation
//   - API keys and tokens are never logged directly
package logging
