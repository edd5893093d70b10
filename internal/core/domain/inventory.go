package domain

import "time"

// StockPolicy decides what happens when a sale would drive stock below zero.
type StockPolicy string

const (
	// PolicyStrict rejects any sale that would make stock negative.
	PolicyStrict StockPolicy = "strict"
	// PolicyBackorder lets stock go negative; the shortfall is a backorder signal.
	PolicyBackorder StockPolicy = "backorder"
)

// ParseStockPolicy maps a config string to a policy, defaulting to strict.
func ParseStockPolicy(s string) StockPolicy {
	if StockPolicy(s) == PolicyBackorder {
		return PolicyBackorder
	}
	return PolicyStrict
}

// InventoryRecord is the authoritative stock counter for one
// (product, warehouse) pair.
type InventoryRecord struct {
	ProductID       string
	WarehouseID     string
	Stock           int
	LastStockUpdate time.Time
}

// Key returns the composite ledger key.
func (r InventoryRecord) Key() string {
	return r.ProductID + ":" + r.WarehouseID
}
