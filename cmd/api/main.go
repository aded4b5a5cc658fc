package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"quote-commerce/internal/config"
	"quote-commerce/internal/db"
	"quote-commerce/internal/httpserver"
	"quote-commerce/internal/idempotency"
	"quote-commerce/internal/lock"
	"quote-commerce/internal/logger"
	"quote-commerce/internal/metrics"
	"quote-commerce/internal/notify"
	cartrepo "quote-commerce/internal/repository/cart"
	organizationrepo "quote-commerce/internal/repository/organization"
	paymentrepo "quote-commerce/internal/repository/payment"
	pricelistrepo "quote-commerce/internal/repository/pricelist"
	productrepo "quote-commerce/internal/repository/product"
	cartsvc "quote-commerce/internal/service/cart"
	paymentsvc "quote-commerce/internal/service/payment"
	pricelistsvc "quote-commerce/internal/service/pricelist"
	"quote-commerce/internal/service/pricing"
	productsvc "quote-commerce/internal/service/product"
	quotesvc "quote-commerce/internal/service/quote"
	"quote-commerce/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	log, err := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: "stdout"})
	if err != nil {
		panic("init logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	dbpool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect to db", zap.Error(err))
	}
	defer dbpool.Close()

	m := metrics.New()

	var (
		locker   lock.Locker       = lock.NewLocal()
		notifier notify.Notifier   = notify.Nop{}
		events   notify.Subscriber
		store    idempotency.Store = idempotency.NewMemory(cfg.Redis.IdempotencyTTL)
	)
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		}
		defer rdb.Close()

		redisNotifier := notify.NewRedis(rdb, log.Named("notify"))
		locker = lock.NewRedis(rdb, cfg.Redis.CartLockTTL)
		notifier = redisNotifier
		events = redisNotifier
		store = idempotency.NewRedis(rdb, "payment:idempotency:", cfg.Redis.IdempotencyTTL)
		log.Info("redis enabled", zap.String("addr", cfg.Redis.Addr))
	} else {
		log.Warn("REDIS_ADDR not set; using in-process cart locks and no cart events")
	}

	var proofs storage.ProofStorage = storage.NewMemory()
	if cfg.Storage.Enabled() {
		s3Storage, err := storage.NewS3(ctx, cfg.Storage, storage.WithLogger(log.Named("storage")))
		if err != nil {
			log.Fatal("init object storage", zap.Error(err))
		}
		if err := s3Storage.EnsureBucket(ctx); err != nil {
			log.Fatal("ensure proof bucket", zap.String("bucket", s3Storage.Bucket()), zap.Error(err))
		}
		proofs = s3Storage
	} else {
		log.Warn("S3_BUCKET not set; payment proofs kept in memory")
	}

	orgRepo := organizationrepo.NewPostgres(dbpool)
	productRepo := productrepo.NewPostgres(dbpool, log.Named("product_repo"))
	priceListRepo := pricelistrepo.NewPostgres(dbpool)
	cartRepo := cartrepo.NewPostgres(dbpool, log.Named("cart_repo"))
	paymentRepo := paymentrepo.NewPostgres(dbpool)

	selector := pricing.NewSelector(productRepo, priceListRepo, pricing.NewEvaluator(log.Named("evaluator")), m, log.Named("selector"))
	lookup := pricing.NewPriceLookup(productRepo, priceListRepo)

	cartService := cartsvc.New(cartRepo, selector, lookup, locker,
		cartsvc.WithNotifier(notifier),
		cartsvc.WithLogger(log.Named("cart")))
	quoteService := quotesvc.New(cartRepo, lookup, locker, cfg.Quote,
		quotesvc.WithNotifier(notifier),
		quotesvc.WithMetrics(m),
		quotesvc.WithLogger(log.Named("quote")))
	paymentService := paymentsvc.New(paymentRepo, quoteService, proofs, store,
		paymentsvc.WithMetrics(m),
		paymentsvc.WithLocker(locker),
		paymentsvc.WithLogger(log.Named("payment")))

	srv := httpserver.New(cfg.HTTPAddr, httpserver.Deps{
		Logger:           log,
		DB:               dbpool,
		Metrics:          m,
		CORSAllowOrigins: cfg.CORSAllowOrigins,
		Organizations:    orgRepo,
		Carts:            cartService,
		Quotes:           quoteService,
		Products:         productsvc.New(productRepo, priceListRepo, log.Named("product")),
		PriceLists:       pricelistsvc.New(priceListRepo, log.Named("price_list")),
		Payments:         paymentService,
		Events:           events,
	})

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		log.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		log.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	} else {
		log.Info("server stopped")
	}
}
