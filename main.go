package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"curequeue-server/internal/config"
	"curequeue-server/internal/homevisit"
	"curequeue-server/internal/logging"
	"curequeue-server/internal/metrics"
	"curequeue-server/internal/middleware"
	"curequeue-server/internal/models"
	"curequeue-server/internal/notify"
	"curequeue-server/internal/realtime"
	"curequeue-server/internal/reviews"
	"curequeue-server/internal/routes"
	"curequeue-server/internal/scheduler"
	"curequeue-server/internal/telemetry"
)

func main() {
	envErr := godotenv.Load()

	cfg, err := config.LoadConfig()
	if err != nil {
		bootLogger := logging.Init("curequeue-server", "production", "info")
		bootLogger.Fatal().Err(err).Msg("loading config")
	}

	logger := logging.Init(cfg.Telemetry.ServiceName, cfg.Environment, cfg.LogLevel)
	if envErr != nil {
		logger.Warn().Err(envErr).Msg("no .env file loaded, using process environment")
	}

	ctx := context.Background()
	shutdownTracing := telemetry.Setup(ctx, cfg.Telemetry, logger)

	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logger.Fatal().Err(err).Msg("connecting to database")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	dispatcher := notify.NewDispatcher(newEmailSender(ctx, cfg, logger), notify.DispatcherConfig{
		Workers:     cfg.Notify.Workers,
		QueueSize:   cfg.Notify.QueueSize,
		SendTimeout: cfg.Notify.SendTimeout,
	}, logger, m)
	hub := realtime.New(logger, m)

	sched := scheduler.New(scheduler.Options{
		Store:          scheduler.NewGormStore(db),
		Location:       cfg.Clinic.Location,
		ServiceMinutes: cfg.Clinic.ServiceMinutes,
		Notifier:       dispatcher,
		Publisher:      hub,
		Metrics:        m,
		Logger:         logger,
	})
	homeVisits := homevisit.NewService(homevisit.NewGormStore(db), dispatcher, m, logger)
	reviewService := reviews.NewService(reviews.NewGormStore(db), newRatingsCache(ctx, cfg, logger), logger)

	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(), middleware.Metrics(m))

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.LegacyTokenHeader, middleware.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, db, cfg, routes.Services{
		Scheduler:  sched,
		HomeVisits: homeVisits,
		Reviews:    reviewService,
		Hub:        hub,
		Gatherer:   registry,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(router, cfg.Telemetry.ServiceName),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		logger.Info().Str("port", cfg.Port).Str("timezone", cfg.Clinic.Timezone).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server forced to shutdown")
	}
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("pending notifications dropped")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("tracer shutdown")
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info().Msg("server exited")
}

// newEmailSender picks the transport named by MAILER_TRANSPORT, falling back
// to logging when the chosen one is not configured.
func newEmailSender(ctx context.Context, cfg *config.Config, logger zerolog.Logger) notify.EmailSender {
	switch cfg.Mailer.Transport {
	case "sendgrid":
		if s := notify.NewSendGridSender(notify.SendGridConfig{
			APIKey:    cfg.Mailer.SendGridAPIKey,
			FromEmail: cfg.Mailer.DefaultFrom,
			FromName:  cfg.Mailer.FromName,
		}, logger); s != nil {
			return s
		}
		logger.Warn().Msg("SENDGRID_API_KEY not set, emails will be logged")
	case "ses":
		client, err := notify.LoadSESClient(ctx, cfg.Mailer.AWSRegion)
		if err == nil {
			if s := notify.NewSESSender(client, notify.SESConfig{
				Region:    cfg.Mailer.AWSRegion,
				FromEmail: cfg.Mailer.DefaultFrom,
				FromName:  cfg.Mailer.FromName,
			}, logger); s != nil {
				return s
			}
		}
		logger.Warn().Err(err).Msg("SES unavailable, emails will be logged")
	}
	return notify.NewLogSender(logger)
}

func newRatingsCache(ctx context.Context, cfg *config.Config, logger zerolog.Logger) reviews.RatingsCache {
	if cfg.Redis.Addr == "" {
		return reviews.NopCache{}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unavailable, ratings cache disabled")
		_ = client.Close()
		return reviews.NopCache{}
	}
	return reviews.NewRedisCache(client, cfg.RatingsCacheTTL, logger)
}
