package storage

import (
	"context"
	"sync"
	"time"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

// MemoryAdapter keeps the ledger in process memory. Each (product, warehouse)
// record carries its own lock, so appliers for different keys never contend;
// the map mutex only guards key lookup.
type MemoryAdapter struct {
	mu       sync.RWMutex
	records  map[string]*memoryRecord
	lockWait time.Duration
}

type memoryRecord struct {
	sem   chan struct{} // capacity 1, held while mutating
	rec   domain.InventoryRecord
	sales []domain.SaleEvent
}

func NewMemoryAdapter(lockWait time.Duration) *MemoryAdapter {
	return &MemoryAdapter{
		records:  make(map[string]*memoryRecord),
		lockWait: lockWait,
	}
}

func (m *MemoryAdapter) get(productID, warehouseID string) *memoryRecord {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[productID+":"+warehouseID]
}

// acquire takes the record lock within the bounded wait.
func (m *MemoryAdapter) acquire(ctx context.Context, r *memoryRecord) error {
	select {
	case r.sem <- struct{}{}:
		return nil
	case <-time.After(m.lockWait):
		return domain.ErrConcurrencyTimeout
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *MemoryAdapter) ApplySale(ctx context.Context, sale domain.SaleEvent, policy domain.StockPolicy) (int, error) {
	r := m.get(sale.ProductID, sale.WarehouseID)
	if r == nil {
		return 0, domain.ErrUnknownProduct
	}
	if err := m.acquire(ctx, r); err != nil {
		return 0, err
	}
	defer func() { <-r.sem }()

	if policy == domain.PolicyStrict && r.rec.Stock < sale.Quantity {
		return 0, domain.ErrInsufficientStock
	}
	r.rec.Stock -= sale.Quantity
	r.rec.LastStockUpdate = time.Now()
	r.sales = append(r.sales, sale)
	return r.rec.Stock, nil
}

func (m *MemoryAdapter) CurrentStock(ctx context.Context, productID, warehouseID string) (int, error) {
	r := m.get(productID, warehouseID)
	if r == nil {
		return 0, domain.ErrUnknownProduct
	}
	if err := m.acquire(ctx, r); err != nil {
		return 0, err
	}
	defer func() { <-r.sem }()
	return r.rec.Stock, nil
}

func (m *MemoryAdapter) Restock(ctx context.Context, rec domain.InventoryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := rec.ProductID + ":" + rec.WarehouseID
	if r, ok := m.records[key]; ok {
		r.sem <- struct{}{}
		r.rec = rec
		<-r.sem
		return nil
	}
	m.records[key] = &memoryRecord{
		sem: make(chan struct{}, 1),
		rec: rec,
	}
	return nil
}

// AppliedSales returns the sale events recorded for a key, oldest first.
func (m *MemoryAdapter) AppliedSales(productID, warehouseID string) []domain.SaleEvent {
	r := m.get(productID, warehouseID)
	if r == nil {
		return nil
	}
	r.sem <- struct{}{}
	defer func() { <-r.sem }()
	out := make([]domain.SaleEvent, len(r.sales))
	copy(out, r.sales)
	return out
}
