package shared

import (
	"context"
	"time"
)

// IdempotencyStore stores processed correlation IDs so that retried
// monetary operations are applied at most once
type IdempotencyStore interface {
	// MarkProcessed marks a correlation ID as processed with a TTL.
	// Returns true if the ID was newly marked, false if it was already processed.
	MarkProcessed(ctx context.Context, correlationID string, ttl time.Duration) (bool, error)

	// IsProcessed checks if a correlation ID has already been processed
	IsProcessed(ctx context.Context, correlationID string) (bool, error)

	// Close closes the store and releases resources
	Close() error
}

// IdempotencyConfig holds configuration for idempotency handling
type IdempotencyConfig struct {
	// TTL is the time-to-live for processed correlation IDs.
	// After this duration, the same ID can be processed again.
	TTL time.Duration

	// Enabled determines whether idempotency checking is enabled
	Enabled bool
}

// DefaultIdempotencyConfig returns the default idempotency configuration
func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{
		TTL:     24 * time.Hour,
		Enabled: true,
	}
}
