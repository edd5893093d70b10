package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
	"github.com/ltdat/inventory-ledger/internal/port"
)

// Option tunes a LedgerService.
type Option func(*LedgerService)

// WithIdempotencyStore enables duplicate-sale fencing by sale event ID.
func WithIdempotencyStore(store port.IdempotencyStore) Option {
	return func(s *LedgerService) { s.idem = store }
}

// WithRetry overrides the bounded retry of lock-wait timeouts.
func WithRetry(maxRetries int, backoff time.Duration) Option {
	return func(s *LedgerService) {
		s.maxRetries = maxRetries
		s.backoff = backoff
	}
}

// LedgerService owns the stock counters' mutation rule: every durably
// recorded sale decrements stock in the same atomic unit, via the repository.
type LedgerService struct {
	repo       port.LedgerRepository
	idem       port.IdempotencyStore
	policy     domain.StockPolicy
	maxRetries int
	backoff    time.Duration
	updates    chan domain.StockUpdate
	log        *zap.Logger
}

func NewLedgerService(repo port.LedgerRepository, policy domain.StockPolicy, feedSize int, log *zap.Logger, opts ...Option) *LedgerService {
	s := &LedgerService{
		repo:       repo,
		policy:     policy,
		maxRetries: 3,
		backoff:    20 * time.Millisecond,
		updates:    make(chan domain.StockUpdate, feedSize),
		log:        log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ApplySale validates and applies one sale event. On success it returns the
// stock remaining after the decrement and emits a StockUpdate on the feed.
func (s *LedgerService) ApplySale(ctx context.Context, sale domain.SaleEvent) (int, error) {
	if sale.Quantity <= 0 {
		return 0, domain.ErrInvalidQuantity
	}
	if sale.ProductID == "" || sale.WarehouseID == "" {
		return 0, domain.ErrUnknownProduct
	}
	if sale.ID == "" {
		sale.ID = uuid.New().String()
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now()
	}

	if s.idem != nil {
		ok, err := s.idem.MarkApplied(ctx, sale.ID)
		if err != nil {
			return 0, fmt.Errorf("idempotency check: %w", err)
		}
		if !ok {
			return 0, domain.ErrDuplicateSale
		}
	}

	newStock, err := s.applyWithRetry(ctx, sale)
	if err != nil {
		if s.idem != nil {
			// Unblock a later redelivery of the same sale.
			if relErr := s.idem.Release(ctx, sale.ID); relErr != nil {
				s.log.Error("failed to release idempotency key",
					zap.String("sale_id", sale.ID), zap.Error(relErr))
			}
		}
		return 0, err
	}

	upd := domain.StockUpdate{
		ProductID:   sale.ProductID,
		WarehouseID: sale.WarehouseID,
		Stock:       newStock,
		SaleID:      sale.ID,
		AppliedAt:   time.Now(),
	}
	select {
	case s.updates <- upd:
	default:
		// The feed is advisory; the ledger itself is already consistent.
		s.log.Warn("stock update feed full, dropping update",
			zap.String("sale_id", sale.ID))
	}

	s.log.Info("sale applied",
		zap.String("sale_id", sale.ID),
		zap.String("product_id", sale.ProductID),
		zap.String("warehouse_id", sale.WarehouseID),
		zap.Int("quantity", sale.Quantity),
		zap.Int("stock", newStock),
	)
	return newStock, nil
}

func (s *LedgerService) applyWithRetry(ctx context.Context, sale domain.SaleEvent) (int, error) {
	var lastErr error
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			wait := s.backoff << (attempt - 1)
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return 0, ctx.Err()
			}
		}

		newStock, err := s.repo.ApplySale(ctx, sale, s.policy)
		if err == nil {
			return newStock, nil
		}
		if !errors.Is(err, domain.ErrConcurrencyTimeout) {
			return 0, err
		}
		lastErr = err
		s.log.Warn("lock wait timed out, retrying",
			zap.String("sale_id", sale.ID), zap.Int("attempt", attempt+1))
	}
	return 0, lastErr
}

// CurrentStock returns the stock counter for a (product, warehouse) pair.
func (s *LedgerService) CurrentStock(ctx context.Context, productID, warehouseID string) (int, error) {
	if productID == "" || warehouseID == "" {
		return 0, domain.ErrUnknownProduct
	}
	return s.repo.CurrentStock(ctx, productID, warehouseID)
}

// Restock creates or replaces an inventory record.
func (s *LedgerService) Restock(ctx context.Context, rec domain.InventoryRecord) error {
	if rec.ProductID == "" || rec.WarehouseID == "" {
		return domain.ErrUnknownProduct
	}
	if rec.LastStockUpdate.IsZero() {
		rec.LastStockUpdate = time.Now()
	}
	if err := s.repo.Restock(ctx, rec); err != nil {
		return err
	}
	s.log.Info("inventory restocked",
		zap.String("product_id", rec.ProductID),
		zap.String("warehouse_id", rec.WarehouseID),
		zap.Int("stock", rec.Stock),
	)
	return nil
}

// Policy reports the configured negative-stock policy.
func (s *LedgerService) Policy() domain.StockPolicy {
	return s.policy
}

// Updates exposes the reporting feed of applied stock changes.
func (s *LedgerService) Updates() <-chan domain.StockUpdate {
	return s.updates
}

// Close shuts the feed down; feed workers drain and exit.
func (s *LedgerService) Close() {
	close(s.updates)
}
