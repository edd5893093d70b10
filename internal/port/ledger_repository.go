package port

import (
	"context"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

// LedgerRepository is the persistence port for the inventory ledger.
type LedgerRepository interface {
	// ApplySale durably records the sale event and decrements stock for its
	// (product, warehouse) key in one atomic unit: both happen or neither.
	// The strict-policy decision is made under the per-key lock, never
	// against a stale read. Returns the stock value after the decrement.
	ApplySale(ctx context.Context, sale domain.SaleEvent, policy domain.StockPolicy) (int, error)

	// CurrentStock returns the stock counter for the pair, or
	// domain.ErrUnknownProduct when no record exists.
	CurrentStock(ctx context.Context, productID, warehouseID string) (int, error)

	// Restock creates or replaces the inventory record (initial stocking and
	// replenishment path; never invoked by sale application).
	Restock(ctx context.Context, rec domain.InventoryRecord) error
}
