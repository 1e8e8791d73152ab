package repository

import "context"

// Locker provides mutual exclusion keyed by an arbitrary string.
type Locker interface {
	// Acquire blocks until the lock for key is held or ctx is done.
	// The returned function releases the lock.
	Acquire(ctx context.Context, key string) (release func(), err error)
}
