// Package config collects runtime configuration from the environment.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ltdat/inventory-ledger/internal/core/domain"
)

// Storage backend selectors.
const (
	BackendMySQL  = "mysql"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds the knobs for servers, storage, and the ledger itself.
type Config struct {
	Env      string
	HTTPAddr string
	GRPCAddr string

	Backend  string
	MySQLDSN string

	RedisAddr string

	StockPolicy      domain.StockPolicy
	DefaultWarehouse string
	MaxRetries       int
	RetryBackoff     time.Duration
	LockWait         time.Duration

	FeedWorkers  int
	FeedBuffer   int
	KafkaBrokers []string
	KafkaTopic   string

	ShutdownTimeout time.Duration
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoienv(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func durenvms(key string, defMs int) time.Duration {
	return time.Duration(atoienv(key, defMs)) * time.Millisecond
}

// Load reads configuration from environment variables with defaults.
func Load() Config {
	var brokers []string
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		brokers = strings.Split(v, ",")
	}

	return Config{
		Env:      getenv("APP_ENV", "development"),
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),
		GRPCAddr: getenv("GRPC_ADDR", ":50051"),

		Backend:  getenv("STORAGE_BACKEND", BackendMySQL),
		MySQLDSN: getenv("MYSQL_DSN", "root:root@tcp(localhost:3306)/ledger?parseTime=true"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),

		StockPolicy:      domain.ParseStockPolicy(getenv("LEDGER_STOCK_POLICY", "strict")),
		DefaultWarehouse: getenv("DEFAULT_WAREHOUSE", "main"),
		MaxRetries:       atoienv("LEDGER_MAX_RETRIES", 3),
		RetryBackoff:     durenvms("LEDGER_RETRY_BACKOFF_MS", 20),
		LockWait:         durenvms("LEDGER_LOCK_WAIT_MS", 500),

		FeedWorkers:  atoienv("FEED_WORKERS", 4),
		FeedBuffer:   atoienv("FEED_BUFFER", 1024),
		KafkaBrokers: brokers,
		KafkaTopic:   getenv("KAFKA_TOPIC", "stock.updates"),

		ShutdownTimeout: durenvms("SHUTDOWN_TIMEOUT_MS", 5000),
	}
}
