// Package inbox_tools exposes the inbox jobs as MCP tools.
//
// Job tools:
//   - inbox_label_run: classify and tag inbox threads
//   - inbox_digest_run: build the digest and send it, or return it with dry_run
//
// Configuration tools:
//   - inbox_classify: classify an ad-hoc subject and body with the current labels
//   - inbox_config_show: show the resolved labels and parameters
//
// Every tool takes an optional account argument naming the OAuth account;
// it defaults to the server's account. Job runs share the run lock with
// the CLI commands, so a tool call fails while a scheduled run is active.
//
// Example:
//
//	inbox_digest_run(dry_run: true)
package inbox_tools
