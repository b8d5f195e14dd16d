package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/ndelacroix/culture-pass/internal/bookings"
	"github.com/ndelacroix/culture-pass/internal/config"
	"github.com/ndelacroix/culture-pass/internal/database"
	"github.com/ndelacroix/culture-pass/internal/handler"
	"github.com/ndelacroix/culture-pass/internal/middleware"
	"github.com/ndelacroix/culture-pass/internal/queue"
	"github.com/ndelacroix/culture-pass/internal/repository"
	"github.com/ndelacroix/culture-pass/internal/router"
	"github.com/ndelacroix/culture-pass/internal/scheduler"
	"github.com/ndelacroix/culture-pass/internal/search"
)

func main() {
	_ = godotenv.Load() // .env is optional; real env vars win

	cfg := config.Load()

	var logger *zap.Logger
	var err error
	if cfg.Env == "prod" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal("open database failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db, "migrations"); err != nil {
		logger.Fatal("migrations failed", zap.Error(err))
	}

	rdb := config.NewRedisClient() // nil when Redis is unreachable; limiter and cache degrade

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	offerers := repository.NewOffererRepo(db)
	offers := repository.NewOfferRepo(db)
	stocks := repository.NewStockRepo(db)
	bookingRepo := repository.NewBookingRepo(db)
	deposits := repository.NewDepositRepo(db)

	publisher := queue.NewPublisher(cfg.AMQPURL, logger)
	svc := bookings.NewService(users, stocks, bookingRepo, deposits, publisher, cfg.Booking, logger)
	indexer := search.NewIndexer(db, rdb, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	consumer := queue.NewConsumer(cfg.AMQPURL, logger)
	consumer.RunNotificationLog(ctx)
	consumer.RunOfferReindex(ctx, indexer.Reindex)

	sweep := scheduler.New(svc, cfg.Booking.SweepInterval, logger)
	go sweep.Run(ctx)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.Metrics())

	// Registered per route group, after JWTAuth where one applies, so
	// user-scoped rate keys see the authenticated id.
	limit := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens, deposits, logger), cfg.JWTSecret, limit)
	router.RegisterPublic(e,
		handler.NewPublicHandler(offers, indexer),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
		limit)
	router.RegisterBeneficiary(e, handler.NewBookingHandler(svc, bookingRepo), cfg.JWTSecret, limit)
	router.RegisterPro(e,
		handler.NewProVenueHandler(offerers),
		handler.NewProOfferHandler(offers, stocks, offerers),
		handler.NewProBookingHandler(svc, bookingRepo),
		cfg.JWTSecret, limit)

	go func() {
		addr := ":" + cfg.Port
		logger.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", zap.Error(err))
		os.Exit(1)
	}
}
