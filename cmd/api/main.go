package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/marketplace-api/internal/config"
	"github.com/jwalitptl/marketplace-api/internal/email"
	"github.com/jwalitptl/marketplace-api/internal/handler"
	checkoutHandler "github.com/jwalitptl/marketplace-api/internal/handler/checkout"
	orderHandler "github.com/jwalitptl/marketplace-api/internal/handler/order"
	productHandler "github.com/jwalitptl/marketplace-api/internal/handler/product"
	"github.com/jwalitptl/marketplace-api/internal/middleware"
	"github.com/jwalitptl/marketplace-api/internal/repository"
	"github.com/jwalitptl/marketplace-api/internal/repository/postgres"
	"github.com/jwalitptl/marketplace-api/internal/router"
	appointmentService "github.com/jwalitptl/marketplace-api/internal/service/appointment"
	availabilityService "github.com/jwalitptl/marketplace-api/internal/service/availability"
	bookingService "github.com/jwalitptl/marketplace-api/internal/service/booking"
	checkoutService "github.com/jwalitptl/marketplace-api/internal/service/checkout"
	notificationService "github.com/jwalitptl/marketplace-api/internal/service/notification"
	productService "github.com/jwalitptl/marketplace-api/internal/service/product"
	"github.com/jwalitptl/marketplace-api/pkg/auth"
	"github.com/jwalitptl/marketplace-api/pkg/logger"
	"github.com/jwalitptl/marketplace-api/pkg/messaging/redis"
	"github.com/jwalitptl/marketplace-api/pkg/metrics"
	"github.com/jwalitptl/marketplace-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Repositories. Product reads go through the config cache; booking
	// reads always hit the live table.
	productRepo := repository.NewCachedProductRepository(
		postgres.NewProductRepository(db),
		cfg.Booking.ConfigCacheTTL,
	)
	bookingRepo := postgres.NewBookingRepository(db)
	orderRepo := postgres.NewOrderRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	m := metrics.NewMetrics("marketplace", "api")

	emailSvc := email.NewSMTPService(cfg.Email)
	notifier := notificationService.NewService(emailSvc, appLogger)

	validator := bookingService.NewValidator(bookingRepo)
	productSvc := productService.NewService(productRepo)
	availabilitySvc := availabilityService.NewService(productRepo, bookingRepo, cfg.Booking.DefaultWindowDays, cfg.Booking.MaxWindowDays)
	checkoutSvc := checkoutService.NewService(productRepo, orderRepo, validator, notifier, m)
	appointmentSvc := appointmentService.NewService(orderRepo, notifier)

	tokens := auth.NewTokenManager(cfg.JWT.Secret, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	h := handler.NewHandler(db)
	productH := productHandler.NewHandler(productSvc, availabilitySvc)
	checkoutH := checkoutHandler.NewHandler(checkoutSvc)
	orderH := orderHandler.NewHandler(appointmentSvc)

	r := router.NewRouter(tokens, h, productH, checkoutH, orderH, router.Config{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(),
		MetricsPrefix: "marketplace_api",
	})
	r.Setup()

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r.Engine(),
	}

	broker, err := redis.NewRedisBroker(redis.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, appLogger.Zerolog())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer broker.Close()

	processor := worker.NewOutboxProcessor(outboxRepo, broker, worker.OutboxProcessorConfig{
		BatchSize:     cfg.Outbox.BatchSize,
		PollInterval:  cfg.Outbox.PollInterval,
		RetryAttempts: cfg.Outbox.RetryAttempts,
		RetryDelay:    cfg.Outbox.RetryDelay,
	}, appLogger, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go processor.Start(ctx)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited properly")
}
