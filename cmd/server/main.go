package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/papillon/aggregator/internal/api"
	"github.com/papillon/aggregator/internal/core/domain"
	"github.com/papillon/aggregator/internal/core/ports"
	"github.com/papillon/aggregator/internal/core/service"
	mongodb "github.com/papillon/aggregator/internal/infrastructure/db/mongo"
	redisdb "github.com/papillon/aggregator/internal/infrastructure/db/redis"
	"github.com/papillon/aggregator/internal/infrastructure/notify"
	"github.com/papillon/aggregator/internal/infrastructure/scheduler"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/ard"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/izly"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/local"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/multi"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/pronote"
	"github.com/papillon/aggregator/internal/infrastructure/vendors/turboself"
	"github.com/papillon/aggregator/internal/pkg/config"
	"github.com/papillon/aggregator/pkg/logger"
)

func main() {
	cfg := config.Load()
	log := logger.Init(logger.Options{
		Level:  cfg.LogLevel,
		Pretty: cfg.Env == "development",
	})

	ctx := context.Background()

	mongoClient, db, err := mongodb.Connect(ctx, mongodb.Config{
		URI:      cfg.Mongo.URI,
		Database: cfg.Mongo.Database,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connection failed")
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = mongoClient.Disconnect(disconnectCtx)
	}()

	rdb, err := redisdb.Connect(ctx, redisdb.Config{
		Addr: cfg.Redis.Addr,
		DB:   cfg.Redis.DB,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection failed")
	}
	defer rdb.Close()

	accountRepo := mongodb.NewAccountRepository(db)
	if err := accountRepo.EnsureIndexes(ctx); err != nil {
		log.Fatal().Err(err).Msg("mongo index setup failed")
	}

	// One adapter per service tag. HTTP authenticators share the default
	// client; Pronote and Multi resolve their instance URL per account.
	httpClient := &http.Client{Timeout: 15 * time.Second}
	registry := ports.Registry{
		domain.ServicePronote:   pronote.New(pronote.NewHTTPAuthenticator(httpClient), log),
		domain.ServiceMulti:     multi.New(multi.NewHTTPAuthenticator(httpClient), log),
		domain.ServiceLocal:     local.New(log),
		domain.ServiceTurboself: turboself.New(turboself.NewHTTPAuthenticator("", httpClient), log),
		domain.ServiceARD:       ard.New(ard.NewHTTPAuthenticator("", httpClient), log),
		domain.ServiceIzly:      izly.New(izly.NewHTTPAuthenticator("", httpClient), log),
	}

	reloads := service.NewReloadOrchestrator(registry, accountRepo, log)
	dispatch := service.NewDispatcher(registry, accountRepo, reloads, log)
	accounts := service.NewAccountService(accountRepo, reloads, log)

	seen := redisdb.NewSeenNewsStore(rdb)
	notifyCtx, stopNotify := context.WithCancel(ctx)
	defer stopNotify()
	notifier := notify.NewQueue(0, notify.NewLogNotifier(log), log)
	notifier.Start(notifyCtx)
	refresh := service.NewRefreshService(accountRepo, dispatch, seen, notifier, cfg.Refresh.Budget, log)

	sched := scheduler.New(log)
	if err := sched.ScheduleRefresh(cfg.Refresh.Interval, refresh); err != nil {
		log.Fatal().Err(err).Msg("refresh scheduling failed")
	}
	sched.Start()

	e := api.NewRouter(db, rdb, cfg.JWTSecret, accounts, dispatch, log)

	go func() {
		if err := e.Start(":" + cfg.Port); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.Env).Msg("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown failed")
	}
}
