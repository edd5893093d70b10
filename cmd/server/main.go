package main

import (
	"context"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/ltdat/inventory-ledger/internal/adapter/feed"
	"github.com/ltdat/inventory-ledger/internal/adapter/handler"
	"github.com/ltdat/inventory-ledger/internal/adapter/storage"
	"github.com/ltdat/inventory-ledger/internal/config"
	"github.com/ltdat/inventory-ledger/internal/core/domain"
	"github.com/ltdat/inventory-ledger/internal/core/service"
	"github.com/ltdat/inventory-ledger/internal/logger"
	"github.com/ltdat/inventory-ledger/internal/port"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zlog.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		repo     port.LedgerRepository
		snapshot port.SnapshotRepository
		db       *sql.DB
		rdb      *redis.Client
	)

	// Redis serves as idempotency store whenever reachable, and as the
	// ledger backend when selected.
	if cfg.Backend == config.BackendRedis || cfg.Backend == config.BackendMySQL {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, PoolSize: 100})
		if err := rdb.Ping(ctx).Err(); err != nil {
			if cfg.Backend == config.BackendRedis {
				zlog.Fatal("failed to connect redis", zap.Error(err))
			}
			zlog.Warn("redis unreachable, duplicate-sale fencing disabled", zap.Error(err))
			rdb.Close()
			rdb = nil
		} else {
			zlog.Info("connected to redis", zap.String("addr", cfg.RedisAddr))
		}
	}

	switch cfg.Backend {
	case config.BackendMySQL:
		db, err = sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			zlog.Fatal("failed to open mysql", zap.Error(err))
		}
		db.SetMaxOpenConns(50)
		db.SetMaxIdleConns(25)
		db.SetConnMaxLifetime(5 * time.Minute)
		if err := db.PingContext(ctx); err != nil {
			zlog.Fatal("failed to ping mysql", zap.Error(err))
		}
		zlog.Info("connected to mysql")

		mysqlAdapter := storage.NewMySQLAdapter(db)
		repo = mysqlAdapter
		snapshot = mysqlAdapter
	case config.BackendRedis:
		repo = storage.NewRedisAdapter(rdb)
	case config.BackendMemory:
		repo = storage.NewMemoryAdapter(cfg.LockWait)
	default:
		zlog.Fatal("unknown storage backend", zap.String("backend", cfg.Backend))
	}

	opts := []service.Option{
		service.WithRetry(cfg.MaxRetries, cfg.RetryBackoff),
	}
	if rdb != nil {
		opts = append(opts, service.WithIdempotencyStore(storage.NewRedisAdapter(rdb)))
	}
	ledger := service.NewLedgerService(repo, cfg.StockPolicy, cfg.FeedBuffer, zlog, opts...)
	zlog.Info("ledger ready",
		zap.String("backend", cfg.Backend),
		zap.String("policy", string(cfg.StockPolicy)),
	)

	var publisher *feed.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		publisher = feed.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		zlog.Info("publishing stock updates to kafka",
			zap.Strings("brokers", cfg.KafkaBrokers),
			zap.String("topic", cfg.KafkaTopic),
		)
	}

	// Feed worker pool: drains applied-sale updates into history and kafka.
	var wg sync.WaitGroup
	for i := 0; i < cfg.FeedWorkers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			feedLoop(id, ledger.Updates(), snapshot, publisher, zlog)
		}(i)
	}
	zlog.Info("started feed workers", zap.Int("count", cfg.FeedWorkers))

	// gRPC admin surface: health + reflection.
	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		zlog.Fatal("failed to listen", zap.String("addr", cfg.GRPCAddr), zap.Error(err))
	}
	go func() {
		zlog.Info("gRPC server listening", zap.String("addr", cfg.GRPCAddr))
		if err := grpcServer.Serve(lis); err != nil {
			zlog.Error("gRPC server error", zap.Error(err))
		}
	}()

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(zlog))
	httpHandler := handler.NewHTTPHandler(ledger, cfg.DefaultWarehouse)
	httpHandler.Register(router)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	go func() {
		zlog.Info("HTTP server listening", zap.String("addr", cfg.HTTPAddr))
		if err := httpServer.ListenAndServe(); err != http.ErrServerClosed {
			zlog.Error("HTTP server error", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	httpServer.Shutdown(shutdownCtx)
	zlog.Info("HTTP server stopped")

	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	grpcServer.GracefulStop()
	zlog.Info("gRPC server stopped")

	ledger.Close()
	wg.Wait()
	zlog.Info("feed workers stopped")

	if publisher != nil {
		publisher.Close()
	}
	if rdb != nil {
		rdb.Close()
	}
	if db != nil {
		db.Close()
	}
	zlog.Info("connections closed")
}

func feedLoop(id int, updates <-chan domain.StockUpdate, snapshot port.SnapshotRepository, publisher *feed.KafkaPublisher, zlog *zap.Logger) {
	for upd := range updates {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)

		if snapshot != nil {
			if err := snapshot.RecordStockSnapshot(ctx, upd); err != nil {
				zlog.Error("failed to record stock snapshot",
					zap.Int("worker", id),
					zap.String("sale_id", upd.SaleID),
					zap.Error(err),
				)
			}
		}
		if publisher != nil {
			if err := publisher.Publish(ctx, upd); err != nil {
				zlog.Error("failed to publish stock update",
					zap.Int("worker", id),
					zap.String("sale_id", upd.SaleID),
					zap.Error(err),
				)
			}
		}

		cancel()
	}
}
