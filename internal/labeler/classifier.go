package labeler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/teemow/inboxbrief/internal/completion"
	"github.com/teemow/inboxbrief/internal/config"
	"github.com/teemow/inboxbrief/internal/instrumentation"
	"github.com/teemow/inboxbrief/internal/logging"
	"github.com/teemow/inboxbrief/internal/mail"
	"github.com/teemow/inboxbrief/internal/outcome"
	"github.com/teemow/inboxbrief/internal/summary"
)

// SystemPrompt is the system role text for classification calls.
const SystemPrompt = "You are a helpful email classifier."

// Classifier picks one configured label for an email.
type Classifier struct {
	provider completion.Provider
	catchAll string
	maxWords int
	logger   *slog.Logger
}

// NewClassifier creates a Classifier. Answers that are not a configured
// label map to catchAll. Bodies are truncated to maxWords words.
func NewClassifier(provider completion.Provider, catchAll string, maxWords int, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{provider: provider, catchAll: catchAll, maxWords: maxWords, logger: logger}
}

// BuildPrompt renders the classification prompt for one email.
func BuildPrompt(m mail.Message, labels config.LabelSet, maxWords int) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Classify this email into one of these labels: %s. Return only one word (the label).\n\n",
		strings.Join(labels.Names(), ", "))

	b.WriteString("Definitions:\n")
	for _, l := range labels.Labels() {
		fmt.Fprintf(&b, "%s: %s\n", l.Name, l.Description)
	}

	body, _ := summary.Truncate(m.Body, maxWords)
	fmt.Fprintf(&b, "\nSubject: %s\n\nBody: %s\n\n", m.Subject, body)
	if len(m.AttachmentNames) > 0 {
		fmt.Fprintf(&b, "Attachments: %s\n\n", strings.Join(m.AttachmentNames, ", "))
	}
	b.WriteString("Label:")
	return b.String()
}

// MatchLabel returns the answer when it names a configured label exactly,
// ignoring surrounding whitespace, and catchAll otherwise.
func MatchLabel(answer string, labels config.LabelSet, catchAll string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if labels.Has(answer) {
		return answer, true
	}
	return catchAll, false
}

// Classify returns the label for m. It never fails: a completion error
// degrades the result to the catch-all label. An unknown answer also yields
// the catch-all label but is not a degradation.
func (c *Classifier) Classify(ctx context.Context, m mail.Message, labels config.LabelSet, model string) outcome.Result[string] {
	logger := logging.WithOperation(c.logger, "labeler.classify").With(logging.ThreadID(m.ThreadID))

	answer, err := c.provider.Complete(ctx, completion.Request{
		Model:   model,
		System:  SystemPrompt,
		User:    BuildPrompt(m, labels, c.maxWords),
		Purpose: instrumentation.PurposeClassify,
	})
	if err != nil {
		logger.Warn("classification failed, using catch-all label",
			logging.Model(model),
			logging.Status(completion.Status(err)),
			logging.Err(err))
		return outcome.Degraded(c.catchAll, fmt.Errorf("classifying thread %s: %w", m.ThreadID, err))
	}

	label, ok := MatchLabel(answer, labels, c.catchAll)
	if !ok {
		logger.Info("unexpected label, using catch-all",
			slog.String("answer", answer),
			logging.Label(c.catchAll))
	}
	return outcome.Ok(label)
}
