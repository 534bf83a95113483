// Package completion is the Completion Provider: it turns a system and user
// prompt into generated text. Callers treat every error as a failure, but the
// sentinel errors keep transport problems apart from bad responses so the
// difference is visible in logs and metrics.
package completion

import (
	"context"
	"errors"
)

var (
	// ErrTransport wraps network failures and error responses from the API.
	ErrTransport = errors.New("completion transport failure")
	// ErrMalformedResponse means the API answered but the body could not be
	// decoded or held no choices.
	ErrMalformedResponse = errors.New("malformed completion response")
	// ErrEmptyResponse means the first choice had no text.
	ErrEmptyResponse = errors.New("empty completion response")
	// ErrUnavailable means the circuit breaker rejected the call.
	ErrUnavailable = errors.New("completion provider unavailable")
)

// Request is one chat completion call.
type Request struct {
	Model  string
	System string
	User   string
	// Purpose names the caller for metrics and spans, e.g. "classify".
	Purpose   string
	MaxTokens int
}

// Provider generates text for a request.
type Provider interface {
	Complete(ctx context.Context, req Request) (string, error)
}

// Factory builds a provider for an API key. Jobs read the key from the
// config store at the start of each run.
type Factory func(apiKey string) Provider

// Status maps an error from Complete to a low cardinality status label.
func Status(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, ErrUnavailable):
		return "unavailable"
	case errors.Is(err, ErrEmptyResponse):
		return "empty"
	case errors.Is(err, ErrMalformedResponse):
		return "malformed"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "transport"
	}
}
