package session

import (
	"context"
	"time"
)

// Store persists session data keyed by token.
//
// Load returns ErrNotFound for unknown and expired tokens, and refreshes the
// last-touched time of the record it returns. Save replaces the record and
// restarts its timeout.
type Store interface {
	Load(ctx context.Context, token string) (map[string]any, error)
	Save(ctx context.Context, token string, data map[string]any, timeout time.Duration) error
}

// Deleter is implemented by stores that can drop a single record.
type Deleter interface {
	Delete(ctx context.Context, token string) error
}

// Sweeper is implemented by stores that keep expired records until swept.
type Sweeper interface {
	Sweep(ctx context.Context) (int, error)
}
