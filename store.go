package deflow

import "context"

// Storer is the lifecycle interface implemented by durable store backends.
// The engine calls Migrate and Ping on Start and Close on Stop when the
// configured schedule store also implements Storer. The in-memory store
// has no lifecycle and does not implement it.
type Storer interface {
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
