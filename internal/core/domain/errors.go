package domain

import "errors"

var (
	// ErrInvalidQuantity rejects sales with zero or negative quantity.
	ErrInvalidQuantity = errors.New("quantity must be a positive integer")

	// ErrUnknownProduct means no inventory record exists for the
	// (product, warehouse) pair. The ledger never creates records on apply.
	ErrUnknownProduct = errors.New("no inventory record for product/warehouse")

	// ErrInsufficientStock is returned under PolicyStrict when the decrement
	// would make stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrConcurrencyTimeout means the per-key lock could not be acquired
	// within the bounded wait. Retryable.
	ErrConcurrencyTimeout = errors.New("timed out waiting for inventory record lock")

	// ErrDuplicateSale means a sale event with the same ID was already applied.
	ErrDuplicateSale = errors.New("sale event already applied")
)
