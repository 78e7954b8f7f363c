package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/leonid6372/upbit-paper/internal/api"
	"github.com/leonid6372/upbit-paper/internal/bot"
	"github.com/leonid6372/upbit-paper/internal/catalog"
	"github.com/leonid6372/upbit-paper/internal/common/clients/upbit"
	"github.com/leonid6372/upbit-paper/internal/common/config"
	"github.com/leonid6372/upbit-paper/internal/common/domain"
	"github.com/leonid6372/upbit-paper/internal/common/repositories/memory"
	"github.com/leonid6372/upbit-paper/internal/common/repositories/postgres"
	"github.com/leonid6372/upbit-paper/internal/ticker"
	"github.com/leonid6372/upbit-paper/internal/trade"
	"github.com/leonid6372/upbit-paper/migrations"
	"github.com/leonid6372/upbit-paper/pkg/dictionary"
	"github.com/leonid6372/upbit-paper/pkg/goosemigrate"
	"github.com/leonid6372/upbit-paper/pkg/log"
	"go.uber.org/zap"
)

const (
	serviceName     = "upbit-paper"
	shutdownTimeout = 10 * time.Second
)

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "config.yaml", "service config path")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())

	cfg := config.GetConfig(configPath)

	if err := log.Setup(log.Options{
		Service:  serviceName,
		Env:      cfg.Env,
		Level:    cfg.LogLevel,
		Encoding: cfg.LogEncoding,
	}); err != nil {
		log.Warn("invalid log settings, keeping the default logger", zap.Error(err))
	}

	log.Info("service starting...")

	var (
		pool                 *pgxpool.Pool
		operationsRepository domain.OperationsRepository
		chatsRepository      domain.ChatsRepository
		err                  error
	)

	if cfg.PostgresEnabled() {
		log.Info("init postgres...")
		pool, err = pgxpool.New(ctx, cfg.GetPostgresURL())
		if err != nil {
			log.Fatal("postgres init failed", zap.Error(err))
		}

		if err := goosemigrate.NewMigrator(cfg.GetPostgresURL(), migrations.FS, cfg.Postgres.Schema).Up(); err != nil {
			log.Fatal("migrations up failed", zap.Error(err))
		}

		operationsRepository = postgres.NewOperationsRepository(pool)
		chatsRepository = postgres.NewChatsRepository(pool)
	} else {
		log.Warn("postgres is not configured, operations are kept in memory")
		operationsRepository = memory.NewOperationsRepository()
		chatsRepository = memory.NewChatsRepository()
	}

	openingBalance, err := cfg.OpeningBalance()
	if err != nil {
		log.Fatal("invalid opening balance", zap.Error(err))
	}

	log.Info("restoring ledger...")
	ledger, err := trade.RestoreLedger(ctx, openingBalance, operationsRepository)
	if err != nil {
		log.Fatal("ledger restore failed", zap.Error(err))
	}

	upbitClient := upbit.NewClient(cfg.Upbit.BaseURL, cfg.Upbit.RequestTimeout, cfg.Upbit.Quote)

	registry := ticker.NewRegistry(ctx, upbitClient)
	markets := catalog.New(upbitClient)

	service := trade.NewService(ledger, operationsRepository, registry.Cache(), markets)
	service.WatchPositions(registry)

	server := api.New(&cfg.HTTP, registry, service, markets)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	var telegram *bot.Bot

	if cfg.BotEnabled() {
		log.Info("init dictionary...")
		dictionary, err := dictionary.New(cfg.Bot.DictionaryPath)
		if err != nil {
			log.Fatal("dictionary init failed", zap.Error(err))
		}

		log.Info("init telebot...")
		telegram, err = bot.New(ctx, &cfg.Bot, registry, service, markets, chatsRepository, dictionary)
		if err != nil {
			log.Fatal("bot starting failed", zap.Error(err))
		}

		go func() {
			telegram.Start()
		}()
	}

	log.Info("service starting complete")

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-done
	log.Info("service shutting down...")

	if telegram != nil {
		telegram.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown failed", zap.Error(err))
	}

	cancel()
	registry.Close()

	if pool != nil {
		pool.Close()
	}

	if err := log.Sync(); err != nil {
		log.Error("log sync failed", zap.Error(err))
	}

	log.Info("service shut down complete")
}
