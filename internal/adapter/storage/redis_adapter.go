package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

const (
	stockKeyPrefix      = "stock:"
	salesKeyPrefix      = "sales:"
	lastUpdateKeyPrefix = "stockts:"
	saleIDKeyPrefix     = "sale:"
	saleIDKeyTTL        = 24 * time.Hour
)

// applySaleScript decrements stock and appends the sale record atomically.
// Reply: {0, new stock} on success, {1} unknown key, {2} insufficient stock.
var applySaleScript = redis.NewScript(`
local stock = redis.call('GET', KEYS[1])
if not stock then
	return {1, 0}
end

stock = tonumber(stock)
local quantity = tonumber(ARGV[1])
if ARGV[2] == 'strict' and stock < quantity then
	return {2, stock}
end

local new = redis.call('DECRBY', KEYS[1], quantity)
redis.call('RPUSH', KEYS[2], ARGV[3])
redis.call('SET', KEYS[3], ARGV[4])
return {0, new}
`)

type RedisAdapter struct {
	client *redis.Client
}

func NewRedisAdapter(client *redis.Client) *RedisAdapter {
	return &RedisAdapter{client: client}
}

func (r *RedisAdapter) ApplySale(ctx context.Context, sale domain.SaleEvent, policy domain.StockPolicy) (int, error) {
	payload, err := json.Marshal(sale)
	if err != nil {
		return 0, fmt.Errorf("marshal sale event: %w", err)
	}

	keys := []string{
		stockKeyPrefix + sale.ProductID + ":" + sale.WarehouseID,
		salesKeyPrefix + sale.ProductID + ":" + sale.WarehouseID,
		lastUpdateKeyPrefix + sale.ProductID + ":" + sale.WarehouseID,
	}
	reply, err := applySaleScript.Run(ctx, r.client, keys,
		sale.Quantity, string(policy), payload, sale.CreatedAt.Format(time.RFC3339Nano),
	).Int64Slice()
	if err != nil {
		return 0, fmt.Errorf("apply sale script: %w", err)
	}
	if len(reply) != 2 {
		return 0, fmt.Errorf("apply sale script: unexpected reply length %d", len(reply))
	}

	switch reply[0] {
	case 0:
		return int(reply[1]), nil
	case 1:
		return 0, domain.ErrUnknownProduct
	default:
		return 0, domain.ErrInsufficientStock
	}
}

func (r *RedisAdapter) CurrentStock(ctx context.Context, productID, warehouseID string) (int, error) {
	stock, err := r.client.Get(ctx, stockKeyPrefix+productID+":"+warehouseID).Int()
	if errors.Is(err, redis.Nil) {
		return 0, domain.ErrUnknownProduct
	}
	if err != nil {
		return 0, fmt.Errorf("get stock: %w", err)
	}
	return stock, nil
}

func (r *RedisAdapter) Restock(ctx context.Context, rec domain.InventoryRecord) error {
	key := rec.ProductID + ":" + rec.WarehouseID
	pipe := r.client.TxPipeline()
	pipe.Set(ctx, stockKeyPrefix+key, rec.Stock, 0)
	pipe.Set(ctx, lastUpdateKeyPrefix+key, rec.LastStockUpdate.Format(time.RFC3339Nano), 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("set stock: %w", err)
	}
	return nil
}

// MarkApplied fences duplicate sale deliveries via SETNX.
func (r *RedisAdapter) MarkApplied(ctx context.Context, saleID string) (bool, error) {
	ok, err := r.client.SetNX(ctx, saleIDKeyPrefix+saleID, 1, saleIDKeyTTL).Result()
	if err != nil {
		return false, fmt.Errorf("setnx sale id: %w", err)
	}
	return ok, nil
}

func (r *RedisAdapter) Release(ctx context.Context, saleID string) error {
	return r.client.Del(ctx, saleIDKeyPrefix+saleID).Err()
}
