package period

import "context"

// Locker serializes lifecycle transitions across processes.
// The database constraints stay authoritative; the lock only keeps
// concurrent admins from racing into them.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// NopLocker never blocks.
type NopLocker struct{}

// Lock implements Locker.
func (NopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}

const lifecycleLockKey = "period:lifecycle"
