// Package lock provides short-lived named locks used to keep two deliveries
// of the same payment event from being processed at once.
package lock

import (
	"context"
	"time"
)

// Locker acquires a named lock for at most ttl. ok is false when someone
// else holds it. release is never nil and is safe to call more than once.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
