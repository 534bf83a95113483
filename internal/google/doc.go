// Package google provides OAuth2 authorization for the Google APIs the
// jobs use.
//
// Tokens are stored per account as JSON files under the user cache directory
// (inboxbrief/google-<account>.token). The OAuth client is configured with
// GOOGLE_CLIENT_ID and GOOGLE_CLIENT_SECRET. INBOXBRIEF_CACHE_DIR overrides
// the cache directory.
package google
