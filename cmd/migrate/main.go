package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"go.uber.org/zap"
	"quote-commerce/internal/config"
	"quote-commerce/internal/db"
	"quote-commerce/internal/logger"
	"quote-commerce/internal/migrate"
)

func main() {
	steps := flag.Int("steps", 1, "Number of migrations to roll back with the down command")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] up|down|version\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	command := "up"
	if flag.NArg() > 0 {
		command = flag.Arg(0)
	}

	cfg, err := config.Load()
	if err != nil {
		panic("load config: " + err.Error())
	}
	log, err := logger.NewForEnvironment(cfg.AppEnv, cfg.LogLevel)
	if err != nil {
		panic("init logger: " + err.Error())
	}
	log = log.Named("migrate")
	defer func() { _ = log.Sync() }()

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, cfg.DBMaxConns)
	if err != nil {
		log.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	switch command {
	case "up":
		if err := migrate.Apply(ctx, pool); err != nil {
			log.Fatal("apply migrations", zap.Error(err))
		}
		log.Info("migrations applied")
	case "down":
		if err := migrate.Rollback(ctx, pool, *steps); err != nil {
			log.Fatal("roll back migrations", zap.Int("steps", *steps), zap.Error(err))
		}
		log.Info("migrations rolled back", zap.Int("steps", *steps))
	case "version":
		version, dirty, err := migrate.Version(ctx, pool)
		if err != nil {
			log.Fatal("read migration version", zap.Error(err))
		}
		log.Info("migration version", zap.Uint("version", version), zap.Bool("dirty", dirty))
	default:
		flag.Usage()
		os.Exit(2)
	}
}
