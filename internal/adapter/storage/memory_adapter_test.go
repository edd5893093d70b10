package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

func memorySale(id, productID, warehouseID string, quantity int) domain.SaleEvent {
	return domain.SaleEvent{
		ID:          id,
		OrderID:     "order-" + id,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		CreatedAt:   time.Now(),
	}
}

func seedMemory(t *testing.T, m *MemoryAdapter, productID, warehouseID string, stock int) {
	t.Helper()
	err := m.Restock(context.Background(), domain.InventoryRecord{
		ProductID:       productID,
		WarehouseID:     warehouseID,
		Stock:           stock,
		LastStockUpdate: time.Now(),
	})
	if err != nil {
		t.Fatalf("restock failed: %v", err)
	}
}

func TestMemoryApplySale_Success(t *testing.T) {
	m := NewMemoryAdapter(time.Second)
	seedMemory(t, m, "p1", "w1", 10)

	stock, err := m.ApplySale(context.Background(), memorySale("s1", "p1", "w1", 3), domain.PolicyStrict)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 7 {
		t.Errorf("expected stock 7, got %d", stock)
	}

	sales := m.AppliedSales("p1", "w1")
	if len(sales) != 1 || sales[0].ID != "s1" {
		t.Errorf("expected one applied sale s1, got %+v", sales)
	}
}

func TestMemoryApplySale_UnknownProduct(t *testing.T) {
	m := NewMemoryAdapter(time.Second)

	_, err := m.ApplySale(context.Background(), memorySale("s1", "p1", "w1", 1), domain.PolicyStrict)
	if !errors.Is(err, domain.ErrUnknownProduct) {
		t.Errorf("expected ErrUnknownProduct, got %v", err)
	}

	// Apply must not have created a record.
	if _, err := m.CurrentStock(context.Background(), "p1", "w1"); !errors.Is(err, domain.ErrUnknownProduct) {
		t.Errorf("expected ErrUnknownProduct after failed apply, got %v", err)
	}
}

func TestMemoryApplySale_StrictRejection(t *testing.T) {
	m := NewMemoryAdapter(time.Second)
	seedMemory(t, m, "p1", "w1", 5)

	_, err := m.ApplySale(context.Background(), memorySale("s1", "p1", "w1", 10), domain.PolicyStrict)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Errorf("expected ErrInsufficientStock, got %v", err)
	}

	stock, err := m.CurrentStock(context.Background(), "p1", "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", stock)
	}
	if n := len(m.AppliedSales("p1", "w1")); n != 0 {
		t.Errorf("expected no recorded sales, got %d", n)
	}
}

func TestMemoryApplySale_BackorderGoesNegative(t *testing.T) {
	m := NewMemoryAdapter(time.Second)
	seedMemory(t, m, "p1", "w1", 2)

	stock, err := m.ApplySale(context.Background(), memorySale("s1", "p1", "w1", 5), domain.PolicyBackorder)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != -3 {
		t.Errorf("expected stock -3, got %d", stock)
	}
}

func TestMemoryApplySale_SumProperty(t *testing.T) {
	m := NewMemoryAdapter(time.Second)
	seedMemory(t, m, "p1", "w1", 100)

	quantities := []int{3, 8, 7, 1, 11, 20}
	total := 0
	for i, quantity := range quantities {
		if _, err := m.ApplySale(context.Background(),
			memorySale(fmt.Sprintf("s%d", i), "p1", "w1", quantity), domain.PolicyStrict); err != nil {
			t.Fatalf("apply %d failed: %v", i, err)
		}
		total += quantity
	}

	stock, err := m.CurrentStock(context.Background(), "p1", "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 100-total {
		t.Errorf("expected stock %d, got %d", 100-total, stock)
	}
}

func TestMemoryApplySale_ConcurrentNoLostUpdates(t *testing.T) {
	initialStock := 100
	m := NewMemoryAdapter(5 * time.Second)
	seedMemory(t, m, "p1", "w1", initialStock)

	var successCount atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < initialStock; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, err := m.ApplySale(context.Background(),
				memorySale(fmt.Sprintf("s%d", n), "p1", "w1", 1), domain.PolicyStrict)
			if err == nil {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	if successCount.Load() != int32(initialStock) {
		t.Errorf("expected %d successes, got %d", initialStock, successCount.Load())
	}

	stock, err := m.CurrentStock(context.Background(), "p1", "w1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stock != 0 {
		t.Errorf("expected stock 0, got %d", stock)
	}
}

func TestMemoryApplySale_IndependentKeys(t *testing.T) {
	m := NewMemoryAdapter(time.Second)
	seedMemory(t, m, "p1", "w1", 10)
	seedMemory(t, m, "p1", "w2", 10)

	if _, err := m.ApplySale(context.Background(), memorySale("s1", "p1", "w1", 4), domain.PolicyStrict); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	stock, _ := m.CurrentStock(context.Background(), "p1", "w2")
	if stock != 10 {
		t.Errorf("expected w2 stock untouched at 10, got %d", stock)
	}
}

func TestMemoryApplySale_LockTimeout(t *testing.T) {
	m := NewMemoryAdapter(20 * time.Millisecond)
	seedMemory(t, m, "p1", "w1", 10)

	// Hold the record lock so the apply cannot acquire it.
	r := m.get("p1", "w1")
	r.sem <- struct{}{}
	defer func() { <-r.sem }()

	_, err := m.ApplySale(context.Background(), memorySale("s1", "p1", "w1", 1), domain.PolicyStrict)
	if !errors.Is(err, domain.ErrConcurrencyTimeout) {
		t.Errorf("expected ErrConcurrencyTimeout, got %v", err)
	}
}
