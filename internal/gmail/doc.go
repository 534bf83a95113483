// Package gmail adapts the Gmail API to the mailbox ports in package mail.
//
// The Client searches threads and converts them to mail.Thread values,
// reads and changes thread labels by name (creating missing user labels),
// sends plain text or HTML email and reports the mailbox owner's address.
// Every API call is traced and counted through the instrumentation package.
//
// Authentication uses the account's OAuth token from the google package
// (see "inboxbrief auth").
package gmail
