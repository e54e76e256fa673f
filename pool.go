package redisclient

import (
	"context"
	"errors"
	"time"
)

var ErrPoolClosed = errors.New("redisclient: pool closed")

// Resource is one connection checked out of a Pool.
//
// Exactly one of Release, ReleaseUnused or Destroy must be called, once.
type Resource interface {
	// Value returns the checked out connection.
	Value() *Connection

	// Release returns the connection to the pool for reuse.
	Release()

	// ReleaseUnused returns the connection without marking it as used.
	// Health checks use it so idle time keeps accumulating.
	ReleaseUnused()

	// Destroy closes the connection and removes it from the pool.
	Destroy()

	CreationTime() time.Time
	IdleDuration() time.Duration
}

// Pool hands out connections to one command at a time.
//
// Implementations must be safe for concurrent use: Acquire and the release
// methods of Resource are called from many goroutines.
type Pool interface {
	// Acquire checks out a connection, creating one if the pool is below its
	// size limit, or waiting for one to be released until ctx is done.
	Acquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle checks out every idle connection, for health checks.
	AcquireAllIdle() []Resource

	// Close closes idle connections and makes further Acquire calls fail.
	// Connections checked out at that time are closed when released.
	Close()

	Stats() PoolStats
}

// PoolFactory creates a Pool of at most maxSize connections built by constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)
