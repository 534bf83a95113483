// Package cmd implements the command-line interface for inboxbrief.
//
// This package provides the following commands:
//   - label: Classify inbox threads and tag them with the configured labels
//   - digest: Summarize recent labeled email and mail the digest
//   - serve: Start the MCP server to provide the jobs as tools for AI assistants
//   - auth: Authorize a Google account
//   - version: Display version information
//
// Persistent flags fall back to environment variables, optionally loaded
// from an env file.
package cmd
