package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs-labo46/ecshop/internal/config"
	"github.com/rs-labo46/ecshop/internal/handler"
	"github.com/rs-labo46/ecshop/internal/infra/cache"
	"github.com/rs-labo46/ecshop/internal/infra/db"
	"github.com/rs-labo46/ecshop/internal/infra/events"
	"github.com/rs-labo46/ecshop/internal/infra/memory"
	infraRepo "github.com/rs-labo46/ecshop/internal/infra/repository"
	"github.com/rs-labo46/ecshop/internal/infra/token"
	"github.com/rs-labo46/ecshop/internal/logger"
	"github.com/rs-labo46/ecshop/internal/repository"
	"github.com/rs-labo46/ecshop/internal/server"
	"github.com/rs-labo46/ecshop/internal/usecase"
	"github.com/rs-labo46/ecshop/internal/validator"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	l, err := logger.Init(cfg.LogMode, cfg.LogFile)
	if err != nil {
		panic(err)
	}
	defer func() { _ = l.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	//DB（postgres or memory）
	tx, closeStore, err := openStore(cfg)
	if err != nil {
		l.Fatal("open store failed", zap.String("driver", cfg.StoreDriver), zap.Error(err))
	}
	defer closeStore()

	//集計キャッシュ（REDIS_ADDRがあるときだけ）
	var statsCache usecase.StatsCache
	if cfg.RedisAddr != "" {
		rdb := cache.NewRedisClient(cfg.RedisAddr)
		defer func() { _ = rdb.Close() }()
		statsCache = cache.NewRedisStatsCache(rdb, cfg.StatsCacheTTL)
	}

	//注文イベント（KAFKA_BROKERSがあるときだけ）
	var publisher usecase.EventPublisher
	var kafkaPub *events.KafkaPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPub = events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic, 1024)
		kafkaPub.Start()
		publisher = kafkaPub
	}

	clock := usecase.SystemClock()
	idGen := usecase.UUIDGenerator()
	issuer := token.NewJWTIssuer(cfg.JWTSecret, cfg.JWTTTL)
	catalogV := validator.NewCatalogValidator()

	//Usecase生成
	authUC := usecase.NewAuthUsecase(tx, validator.NewAuthValidator(), issuer, clock, usecase.DefaultBcryptCost)
	productUC := usecase.NewProductUsecase(tx, catalogV, statsCache, clock)
	categoryUC := usecase.NewCategoryUsecase(tx, catalogV, clock)
	cartUC := usecase.NewCartUsecase(tx)
	orderUC := usecase.NewOrderUsecase(tx, validator.NewOrderValidator(), publisher, statsCache, clock, idGen)
	adminOrderUC := usecase.NewAdminOrderUsecase(tx, publisher, statsCache, clock, idGen)
	statsUC := usecase.NewStatsUsecase(tx, statsCache, clock)

	if cfg.AdminEmail != "" {
		if err := authUC.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword); err != nil {
			l.Fatal("ensure admin failed", zap.Error(err))
		}
	}

	//Handler生成
	srv := server.New(cfg, l, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		Category:     handler.NewCategoryHandler(categoryUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		Stats:        handler.NewStatsHandler(statsUC),
	})

	//Server起動
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case <-ctx.Done():
		l.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			l.Error("http server stopped", zap.Error(err))
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		l.Warn("http shutdown failed", zap.Error(err))
	}

	//残りのイベントを送ってから止める
	if kafkaPub != nil {
		kafkaPub.Close()
	}
}

func openStore(cfg config.Config) (repository.TransactionManager, func(), error) {
	if cfg.StoreDriver == config.StoreDriverMemory {
		zap.L().Warn("using in-memory store; data is lost on restart")
		return memory.NewStore(), func() {}, nil
	}

	gormDB, err := db.Connect(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Migrate(gormDB); err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	zap.L().Info("postgres connected", zap.String("env", cfg.GoEnv))
	return infraRepo.NewTxManagerGorm(gormDB), closeFn, nil
}
