package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pos/internal/config"
	"pos/internal/handler"
	"pos/internal/infra/cache"
	"pos/internal/infra/db"
	"pos/internal/infra/memory"
	infraRepo "pos/internal/infra/repository"
	"pos/internal/persist"
	repo "pos/internal/repository"
	"pos/internal/server"
	"pos/internal/usecase"
	"pos/internal/validator"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type uuidGenerator struct{}

func (g *uuidGenerator) NewID() string {
	return uuid.NewString()
}

type realClock struct{}

func (c *realClock) Now() time.Time {
	return time.Now()
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// SNAPSHOT_STOREでカートとプロフィールの保存先を選ぶ
func newSnapshotStore(ctx context.Context, cfg config.Config, gormDB *gorm.DB) (repo.SnapshotStore, func(), error) {
	switch cfg.SnapshotStore {
	case config.StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		return cache.NewSnapshotRedisStore(client, cfg.SnapshotTTL), func() { _ = client.Close() }, nil
	case config.StoreMemory:
		return memory.NewSnapshotStore(), func() {}, nil
	default:
		return infraRepo.NewSnapshotGormStore(gormDB), func() {}, nil
	}
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	// .envは無くてもよい（環境変数で渡す場合）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//DB接続
	gormDB, err := db.Connect(cfg.DSN(), cfg.IsProduction())
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	//Repository（GORM実装）生成
	merchantRepo := infraRepo.NewMerchantGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	saleRepo := infraRepo.NewSaleGormRepository(gormDB)

	if cfg.SeedDemo {
		if err := db.SeedDemo(ctx, infraRepo.NewTxManagerGorm(gormDB)); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		logger.Info("demo data seeded")
	}

	store, closeStore, err := newSnapshotStore(ctx, cfg, gormDB)
	if err != nil {
		return err
	}
	defer closeStore()

	sessions := usecase.NewSessionManager(store, logger,
		usecase.WithPersistOptions(persist.WithRetry(cfg.PersistMaxTries, cfg.PersistInitialBackoff)),
	)

	//Usecase生成
	cartUC := usecase.NewCartUsecase(sessions, productRepo, saleRepo, merchantRepo, validator.NewCartValidator(), &uuidGenerator{}, &realClock{}, logger)
	sessionUC := usecase.NewSessionUsecase(sessions, merchantRepo, cfg.ResetCartsOnMerchantSwitch, logger)
	catalogUC := usecase.NewCatalogUsecase(productRepo)

	//Handler生成
	e := server.New(logger)
	server.RegisterRoutes(e, cfg, merchantRepo, logger, server.Handlers{
		Health:  handler.NewHealthHandler(),
		Session: handler.NewSessionHandler(sessionUC),
		Cart:    handler.NewCartHandler(cartUC),
		Catalog: handler.NewCatalogHandler(catalogUC),
	})

	logger.Info("starting pos api",
		zap.String("env", cfg.GoEnv),
		zap.String("snapshot_store", cfg.SnapshotStore),
	)

	//Server起動（シグナルで停止）
	serveErr := server.Start(ctx, e, cfg.Addr(), logger)

	// 未保存のカートを書き出す
	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sessions.Close(flushCtx); err != nil {
		logger.Error("flush sessions failed", zap.Error(err))
	}

	return serveErr
}
