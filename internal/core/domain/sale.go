package domain

import "time"

// SaleEvent is one order line. It is created once by order capture and is
// immutable after the ledger has applied it.
type SaleEvent struct {
	ID          string
	OrderID     string
	ProductID   string
	WarehouseID string
	Quantity    int
	UnitPrice   float64
	CreatedAt   time.Time
}

// StockUpdate is emitted on the reporting feed after a sale is applied.
type StockUpdate struct {
	ProductID   string    `json:"product_id"`
	WarehouseID string    `json:"warehouse_id"`
	Stock       int       `json:"stock"`
	SaleID      string    `json:"sale_id"`
	AppliedAt   time.Time `json:"applied_at"`
}
