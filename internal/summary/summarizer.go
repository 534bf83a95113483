package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
)

const (
	// FallbackText replaces a thread summary that could not be generated.
	FallbackText = "summary generation failed"
	// WindowSize is the number of recent messages kept from a lengthy thread.
	WindowSize = 2
	// PurposeSummarize names thread summary calls in metrics.
	PurposeSummarize = instrumentation.PurposeSummarize
)

// Options are the per-run settings for thread summaries.
type Options struct {
	Model       string
	StyleGuide  string
	Compression config.Compression
	UserEmail   string
	MaxWords    int
	// Location is the zone prompt dates are written in. Nil means time.Local.
	Location *time.Location
}

// OptionsFromParameters maps run parameters to summary options.
func OptionsFromParameters(p config.Parameters, userEmail string) Options {
	return Options{
		Model:       p.Model,
		StyleGuide:  p.SummaryPrompt,
		Compression: p.SummaryCompression,
		UserEmail:   userEmail,
		MaxWords:    p.MaxWords,
	}
}

// Summarizer produces one short summary per thread.
type Summarizer struct {
	provider completion.Provider
	now      func() time.Time
	metrics  *instrumentation.Metrics
	logger   *slog.Logger
}

// NewSummarizer creates a Summarizer. now may be nil to use time.Now.
func NewSummarizer(provider completion.Provider, now func() time.Time, metrics *instrumentation.Metrics, logger *slog.Logger) *Summarizer {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Summarizer{provider: provider, now: now, metrics: metrics, logger: logger}
}

// Window returns the messages a summary is built from: all of them, or the
// last WindowSize when the thread is lengthy.
func Window(msgs []mail.Message) ([]mail.Message, bool) {
	if len(msgs) > mail.LengthyThreshold {
		return msgs[len(msgs)-WindowSize:], true
	}
	return msgs, false
}

// Prompt builds the prompt for a thread.
func (s *Summarizer) Prompt(msgs []mail.Message, opts Options) ThreadPrompt {
	window, windowed := Window(msgs)

	original := len(msgs)
	if len(msgs) > 0 && msgs[0].ThreadSize > original {
		original = msgs[0].ThreadSize
	}

	return ThreadPrompt{
		Messages:    window,
		Original:    original,
		Windowed:    windowed,
		StyleGuide:  opts.StyleGuide,
		Compression: opts.Compression,
		UserEmail:   opts.UserEmail,
		MaxWords:    opts.MaxWords,
		Now:         s.now(),
		Location:    opts.Location,
	}
}

// Summarize summarizes one thread. It never fails: on a completion error the
// summary text is FallbackText and the result is degraded. The source link
// is always set.
func (s *Summarizer) Summarize(ctx context.Context, msgs []mail.Message, opts Options) outcome.Result[mail.ThreadSummary] {
	var threadID string
	if len(msgs) > 0 {
		threadID = msgs[0].ThreadID
	}
	link := mail.ThreadLink(threadID)
	fallback := mail.ThreadSummary{ThreadID: threadID, Text: FallbackText, SourceLink: link}
	logger := logging.WithOperation(s.logger, "summary.thread").With(logging.ThreadID(threadID))

	if len(msgs) == 0 {
		return outcome.Degraded(fallback, fmt.Errorf("thread %s has no messages", threadID))
	}

	text, err := s.provider.Complete(ctx, completion.Request{
		Model:   opts.Model,
		System:  SystemPrompt,
		User:    s.Prompt(msgs, opts).Build(),
		Purpose: PurposeSummarize,
	})
	if err != nil {
		s.metrics.RecordThreadSummarized(ctx, instrumentation.OutcomeFallback)
		logger.Warn("thread summary failed, using fallback",
			logging.Model(opts.Model),
			logging.Status(completion.Status(err)),
			logging.Err(err))
		return outcome.Degraded(fallback, fmt.Errorf("summarizing thread %s: %w", threadID, err))
	}

	s.metrics.RecordThreadSummarized(ctx, instrumentation.OutcomeSummarized)
	return outcome.Ok(mail.ThreadSummary{
		ThreadID:   threadID,
		Text:       fmt.Sprintf("%s\nOpen thread: %s", text, link),
		SourceLink: link,
	})
}
