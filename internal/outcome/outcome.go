// Package outcome carries component results that never fail the caller.
//
// A Result is either Ok, holding the computed value, or Degraded, holding a
// safe fallback value together with the reason the real value could not be
// produced. Callers always get a usable Value; Reason exists for logging and
// metrics.
package outcome

// Result is the return type of every component boundary in the jobs.
type Result[T any] struct {
	Value  T
	Reason error
}

// Ok wraps a successfully computed value.
func Ok[T any](v T) Result[T] {
	return Result[T]{Value: v}
}

// Degraded wraps a fallback value and the reason it was used.
// A nil reason still marks the result as degraded.
func Degraded[T any](v T, reason error) Result[T] {
	if reason == nil {
		reason = errUnspecified
	}
	return Result[T]{Value: v, Reason: reason}
}

// IsDegraded reports whether the value is a fallback.
func (r Result[T]) IsDegraded() bool {
	return r.Reason != nil
}

// Status returns "ok" or "degraded", for log and metric labels.
func (r Result[T]) Status() string {
	if r.IsDegraded() {
		return StatusDegraded
	}
	return StatusOK
}

const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
)

type unspecified struct{}

func (unspecified) Error() string { return "degraded without reason" }

var errUnspecified error = unspecified{}
