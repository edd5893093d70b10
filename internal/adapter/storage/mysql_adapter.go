package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

// MySQL error 1205: lock wait timeout exceeded.
const mysqlErrLockWaitTimeout = 1205

type MySQLAdapter struct {
	db *sql.DB
}

func NewMySQLAdapter(db *sql.DB) *MySQLAdapter {
	return &MySQLAdapter{db: db}
}

// ApplySale inserts the sale event and decrements stock in one transaction.
// The row lock taken by SELECT ... FOR UPDATE serializes appliers per
// (product, warehouse) key, so the strict-policy decision sees the live
// counter.
func (m *MySQLAdapter) ApplySale(ctx context.Context, sale domain.SaleEvent, policy domain.StockPolicy) (int, error) {
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var stock int
	err = tx.QueryRowContext(ctx, `
		SELECT stock FROM inventory
		WHERE product_id = ? AND warehouse_id = ?
		FOR UPDATE`,
		sale.ProductID, sale.WarehouseID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUnknownProduct
	}
	if err != nil {
		return 0, mapMySQLErr("lock inventory", err)
	}

	if policy == domain.PolicyStrict && stock < sale.Quantity {
		return 0, domain.ErrInsufficientStock
	}
	newStock := stock - sale.Quantity

	_, err = tx.ExecContext(ctx, `
		INSERT INTO sale_events (id, order_id, product_id, warehouse_id, quantity, unit_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sale.ID, sale.OrderID, sale.ProductID, sale.WarehouseID,
		sale.Quantity, sale.UnitPrice, sale.CreatedAt,
	)
	if err != nil {
		return 0, mapMySQLErr("insert sale event", err)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE inventory
		SET stock = ?, last_stock_update = NOW()
		WHERE product_id = ? AND warehouse_id = ?`,
		newStock, sale.ProductID, sale.WarehouseID,
	)
	if err != nil {
		return 0, mapMySQLErr("update inventory", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, mapMySQLErr("commit", err)
	}
	return newStock, nil
}

func (m *MySQLAdapter) CurrentStock(ctx context.Context, productID, warehouseID string) (int, error) {
	var stock int
	err := m.db.QueryRowContext(ctx, `
		SELECT stock FROM inventory
		WHERE product_id = ? AND warehouse_id = ?`,
		productID, warehouseID,
	).Scan(&stock)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUnknownProduct
	}
	if err != nil {
		return 0, fmt.Errorf("query inventory: %w", err)
	}
	return stock, nil
}

func (m *MySQLAdapter) Restock(ctx context.Context, rec domain.InventoryRecord) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO inventory (product_id, warehouse_id, stock, last_stock_update)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE stock = VALUES(stock), last_stock_update = VALUES(last_stock_update)`,
		rec.ProductID, rec.WarehouseID, rec.Stock, rec.LastStockUpdate,
	)
	if err != nil {
		return fmt.Errorf("upsert inventory: %w", err)
	}
	return nil
}

// RecordStockSnapshot appends one row of stock history for reporting.
func (m *MySQLAdapter) RecordStockSnapshot(ctx context.Context, upd domain.StockUpdate) error {
	_, err := m.db.ExecContext(ctx, `
		INSERT INTO stock_history (product_id, warehouse_id, stock, sale_id, recorded_at)
		VALUES (?, ?, ?, ?, ?)`,
		upd.ProductID, upd.WarehouseID, upd.Stock, upd.SaleID, upd.AppliedAt,
	)
	if err != nil {
		return fmt.Errorf("insert stock history: %w", err)
	}
	return nil
}

func mapMySQLErr(op string, err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrLockWaitTimeout {
		return fmt.Errorf("%s: %w", op, domain.ErrConcurrencyTimeout)
	}
	return fmt.Errorf("%s: %w", op, err)
}
