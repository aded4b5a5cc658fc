package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"quote-commerce/internal/config"
	"quote-commerce/internal/db"
	"quote-commerce/internal/importer"
	"quote-commerce/internal/logger"
	organizationrepo "quote-commerce/internal/repository/organization"
	pricelistrepo "quote-commerce/internal/repository/pricelist"
	productrepo "quote-commerce/internal/repository/product"
	productsvc "quote-commerce/internal/service/product"
)

func main() {
	var (
		filePath       string
		organizationID string
	)
	flag.StringVar(&filePath, "file", "", "Path to a price CSV (sku,price_list,amount,currency,tax_included)")
	flag.StringVar(&organizationID, "org", "", "Organization id to import into")
	flag.Parse()

	if filePath == "" || organizationID == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	log, err := logger.NewForEnvironment(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	log = log.Named("importer")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	if _, err := organizationrepo.NewPostgres(pool).GetByID(ctx, organizationID); err != nil {
		log.Fatal("lookup organization", zap.String("organization_id", organizationID), zap.Error(err))
	}

	f, err := os.Open(filePath)
	if err != nil {
		log.Fatal("open file", zap.Error(err))
	}
	defer f.Close()

	productRepo := productrepo.NewPostgres(pool, log)
	priceListRepo := pricelistrepo.NewPostgres(pool)
	imp := importer.NewCSVImporter(f, productRepo, priceListRepo, productsvc.New(productRepo, priceListRepo, log), organizationID, log)

	start := time.Now()
	count, err := imp.Run(ctx)
	if err != nil {
		log.Fatal("import failed", zap.Int("imported", count), zap.Error(err))
	}

	fmt.Printf("Imported %d prices into organization %s in %s\n", count, organizationID, time.Since(start).Truncate(time.Millisecond))
}
