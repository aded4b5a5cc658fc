package main

import (
	"context"

	"go.uber.org/zap"
	"quote-commerce/internal/config"
	"quote-commerce/internal/db"
	"quote-commerce/internal/logger"
	organizationrepo "quote-commerce/internal/repository/organization"
	pricelistrepo "quote-commerce/internal/repository/pricelist"
	productrepo "quote-commerce/internal/repository/product"
	"quote-commerce/internal/seed"
	pricelistsvc "quote-commerce/internal/service/pricelist"
	productsvc "quote-commerce/internal/service/product"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	log, err := logger.NewForEnvironment(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	log = log.Named("seed")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	productRepo := productrepo.NewPostgres(pool, log)
	priceListRepo := pricelistrepo.NewPostgres(pool)

	orgID, err := seed.Apply(ctx,
		organizationrepo.NewPostgres(pool),
		pricelistsvc.New(priceListRepo, log),
		productsvc.New(productRepo, priceListRepo, log),
		log)
	if err != nil {
		log.Fatal("seed apply", zap.Error(err))
	}
	log.Info("use this organization id in the X-Organization-ID header", zap.String("organization_id", orgID))
}
