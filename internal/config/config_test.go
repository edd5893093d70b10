package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_ADDR", "GRPC_ADDR", "STORAGE_BACKEND", "LEDGER_STOCK_POLICY",
		"DEFAULT_WAREHOUSE", "LEDGER_MAX_RETRIES", "LEDGER_LOCK_WAIT_MS", "KAFKA_BROKERS",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, ":50051", cfg.GRPCAddr)
	assert.Equal(t, BackendMySQL, cfg.Backend)
	assert.Equal(t, domain.PolicyStrict, cfg.StockPolicy)
	assert.Equal(t, "main", cfg.DefaultWarehouse)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 500*time.Millisecond, cfg.LockWait)
	assert.Empty(t, cfg.KafkaBrokers)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "redis")
	t.Setenv("LEDGER_STOCK_POLICY", "backorder")
	t.Setenv("DEFAULT_WAREHOUSE", "eu-west")
	t.Setenv("LEDGER_MAX_RETRIES", "7")
	t.Setenv("LEDGER_LOCK_WAIT_MS", "250")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg := Load()

	assert.Equal(t, BackendRedis, cfg.Backend)
	assert.Equal(t, domain.PolicyBackorder, cfg.StockPolicy)
	assert.Equal(t, "eu-west", cfg.DefaultWarehouse)
	assert.Equal(t, 7, cfg.MaxRetries)
	assert.Equal(t, 250*time.Millisecond, cfg.LockWait)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_BadValuesFallBack(t *testing.T) {
	t.Setenv("LEDGER_MAX_RETRIES", "not-a-number")
	t.Setenv("LEDGER_STOCK_POLICY", "lenient-ish")

	cfg := Load()

	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, domain.PolicyStrict, cfg.StockPolicy, "unknown policy falls back to strict")
}
