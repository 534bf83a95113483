// Package labeler classifies inbox threads into the configured labels and
// applies the result to the mailbox.
//
// Each inspected thread ends up tagged with the processed label. A processed
// thread is skipped by later runs unless resorting is enabled, in which case
// it is classified again and labels from the known label set that no longer
// apply are removed.
package labeler
