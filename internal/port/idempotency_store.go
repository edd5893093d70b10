package port

import "context"

// IdempotencyStore fences duplicate sale deliveries by sale event ID.
type IdempotencyStore interface {
	// MarkApplied records the sale ID, returning false if it was already marked.
	MarkApplied(ctx context.Context, saleID string) (bool, error)

	// Release removes the mark so a failed apply can be retried.
	Release(ctx context.Context, saleID string) error
}
