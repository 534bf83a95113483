// Package runlock keeps two runs of the same job from overlapping.
//
// A Locker hands out one lease per job name. A second Acquire for a held
// name fails with ErrLocked instead of waiting, so a scheduled run that
// finds the previous one still going simply does nothing. Leases expire
// after a TTL so a crashed run cannot block its job forever.
package runlock

import (
	"context"
	"errors"
	"time"
)

// DefaultTTL bounds how long a lease survives a run that never released it.
const DefaultTTL = 30 * time.Minute

// ErrLocked is returned when another run holds the lease.
var ErrLocked = errors.New("run already in progress")

// Release gives up a lease. It is safe to call more than once.
type Release func()

// Locker grants exclusive leases by job name.
type Locker interface {
	Acquire(ctx context.Context, name string) (Release, error)
}

// Noop grants every lease.
type Noop struct{}

// Acquire always succeeds.
func (Noop) Acquire(context.Context, string) (Release, error) {
	return func() {}, nil
}
