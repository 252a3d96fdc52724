package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"vidoma-bot/internal/admin"
	"vidoma-bot/internal/ai"
	"vidoma-bot/internal/bot"
	"vidoma-bot/internal/config"
	"vidoma-bot/internal/storage"
	"vidoma-bot/pkg/crm"
	"vidoma-bot/pkg/logger"
	"vidoma-bot/pkg/novaposhta"
	"vidoma-bot/pkg/redis"
)

func main() {
	rollback := flag.Bool("rollback", false, "roll back the last database migration and exit")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Debug)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.LookupCacheTTL)
	defer cache.Close()

	store, err := storage.NewPostgresStorage(ctx, cfg.Database, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to connect to storage", zap.Error(err))
	}
	defer store.Close()

	if *rollback {
		if err := storage.RollbackMigration(ctx, store.DB().DB, zapLogger); err != nil {
			zapLogger.Fatal("Failed to rollback migration", zap.Error(err))
		}
		return
	}

	if err := storage.RunMigrations(ctx, store.DB().DB, zapLogger); err != nil {
		zapLogger.Fatal("Failed to run migrations", zap.Error(err))
	}

	directory := novaposhta.NewClient(
		cfg.NovaPoshtaAPIURL,
		cfg.NovaPoshtaAPIKey,
		cfg.HTTPRequestTimeout,
		cache,
		zapLogger,
	)

	crmClient := crm.NewClient(
		cfg.CRMAPIURL,
		cfg.CRMAPIKey,
		cfg.CRMRequestTimeout,
		zapLogger,
	)

	consultant := ai.New(cfg.OpenAIAPIKey, store, zapLogger)

	tgBot, err := bot.New(cfg, store, directory, crmClient, consultant, zapLogger)
	if err != nil {
		zapLogger.Fatal("Failed to create bot", zap.Error(err))
	}

	go tgBot.Start(ctx)

	adminServer := admin.NewServer(ctx, cfg.Admin, store, tgBot, zapLogger)
	if err := adminServer.Run(ctx); err != nil {
		zapLogger.Fatal("Admin server failed", zap.Error(err))
	}

	zapLogger.Info("Shutdown complete")
}
