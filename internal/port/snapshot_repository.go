package port

import (
	"context"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

// SnapshotRepository records historical stock levels for the reporting layer.
// Snapshot writes are advisory and happen outside the apply transaction.
type SnapshotRepository interface {
	RecordStockSnapshot(ctx context.Context, upd domain.StockUpdate) error
}

// StockFeed publishes stock updates to an external consumer.
type StockFeed interface {
	Publish(ctx context.Context, upd domain.StockUpdate) error
}
