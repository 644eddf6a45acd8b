// Package verification holds short-lived one-time codes keyed by phone
// number.
package verification

import (
	"context"
	"time"
)

// Store keeps a value for ttl. ConsumeIfValid compares and deletes in one
// step, so a code can succeed at most once.
type Store interface {
	Store(ctx context.Context, key, value string, ttl time.Duration) error
	ConsumeIfValid(ctx context.Context, key, value string) (bool, error)
}
