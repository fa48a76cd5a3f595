package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/Naiemjoy1/bistro-restaurants-server/internal/auth"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/cache"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/config"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/consumer"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/gateway"
	h "github.com/Naiemjoy1/bistro-restaurants-server/internal/http"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/logger"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/notifier"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/processor"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/publisher"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/repository"
	"github.com/Naiemjoy1/bistro-restaurants-server/internal/service"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type mongoPinger struct{ db *mongo.Database }

func (p mongoPinger) Ping(ctx context.Context) error { return p.db.Client().Ping(ctx, nil) }

type redisPinger struct{ client *redis.Client }

func (p redisPinger) Ping(ctx context.Context) error { return p.client.Ping(ctx).Err() }

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()
	zap.ReplaceGlobals(zl)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cart store
	startupCtx, cancelStartup := context.WithTimeout(ctx, 30*time.Second)
	defer cancelStartup()

	mongoDB, err := repository.ConnectMongoDB(startupCtx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		zl.Fatal("failed to connect to mongodb", zap.Error(err))
	}
	defer func() {
		if err := mongoDB.Client().Disconnect(context.Background()); err != nil {
			zl.Warn("mongodb disconnect failed", zap.Error(err))
		}
	}()
	cartRepo := repository.NewMongoCartRepository(mongoDB)
	if indexer, ok := cartRepo.(interface{ CreateIndexes(context.Context) error }); ok {
		if err := indexer.CreateIndexes(startupCtx); err != nil {
			zl.Warn("failed to create cart indexes", zap.Error(err))
		}
	}
	userRepo := repository.NewMongoUserRepository(mongoDB)

	// Payment ledger
	creds := &repository.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsDirPath,
	}
	ledger, err := repository.NewPaymentRepository(startupCtx, creds)
	if err != nil {
		zl.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer ledger.Close()
	if err := ledger.Migrate(creds.MigrationsDirPath); err != nil {
		zl.Fatal("failed to run migrations", zap.Error(err))
	}

	// Cache and receipt claims
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	redisCache := cache.NewRedisCache(redisClient)

	// Upstream collaborators
	cardProcessor := processor.NewStripeProcessor(cfg.Stripe.SecretKey, cfg.Stripe.Currency, cfg.UpstreamTimeout)
	gw := gateway.NewClient(gateway.Config{
		MerchantID:     cfg.Gateway.MerchantID,
		MerchantSecret: cfg.Gateway.MerchantSecret,
		InitURL:        cfg.Gateway.InitURL,
		ValidationURL:  cfg.Gateway.ValidationURL,
		SuccessURL:     cfg.Gateway.SuccessURL,
		FailURL:        cfg.Gateway.FailURL,
		CancelURL:      cfg.Gateway.CancelURL,
		Timeout:        cfg.UpstreamTimeout,
	}, logger.Component(zl, "gateway"))
	tokens := auth.NewTokens(cfg.JWTSecret, cfg.JWTLifetime)
	admins := auth.NewAdmins(userRepo)

	// Services
	cartSvc := service.NewCartService(cartRepo, redisCache, logger.Component(zl, "cart"))
	reconciler := service.NewReconciler(ledger, cartSvc, logger.Component(zl, "reconciler"))
	intentSvc := service.NewIntentService(cardProcessor, ledger, reconciler, cfg.Stripe.Currency, logger.Component(zl, "intent"))
	redirectSvc := service.NewRedirectService(gw, ledger, reconciler, cfg.Gateway.ValidateCallback, logger.Component(zl, "redirect"))
	history := service.NewHistory(ledger)

	// Background workers
	poller := publisher.NewOutboxPoller(publisher.Config{
		EventTick:    cfg.Outbox.PollInterval,
		RecoveryTick: cfg.Outbox.RecoveryInterval,
		PurgeGrace:   cfg.Outbox.PurgeGrace,
	}, ledger, reconciler, publisher.NewKafkaWriter(cfg.Kafka.ReceiptsTopic, cfg.Kafka.Brokers...), logger.Component(zl, "outbox"))
	defer func() {
		if err := poller.Close(); err != nil {
			zl.Warn("kafka writer close failed", zap.Error(err))
		}
	}()

	mailer := notifier.NewMailer(notifier.Config{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	receipts := consumer.NewConsumer(
		consumer.NewKafkaReader(cfg.Kafka.ReceiptsTopic, cfg.Kafka.ConsumerGroup, cfg.Kafka.Brokers...),
		redisCache, mailer, logger.Component(zl, "receipts"))
	defer receipts.Close()

	limiter := h.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){poller.Run, receipts.Run, func(ctx context.Context) { limiter.Cleanup(ctx, 5*time.Minute) }} {
		wg.Add(1)
		go func(run func(context.Context)) {
			defer wg.Done()
			run(ctx)
		}(run)
	}

	// HTTP
	httpLogger := logger.Component(zl, "http")
	router := h.NewRouter(h.RouterDeps{
		Payments:  h.NewPaymentHandler(intentSvc, history, cfg.RequestTimeout, httpLogger),
		Redirects: h.NewRedirectHandler(redirectSvc, cfg.Gateway.CartViewURL, cfg.RequestTimeout, httpLogger),
		Carts:     h.NewCartHandler(cartSvc, cfg.RequestTimeout, httpLogger),
		Auth:      h.NewAuthHandler(tokens, httpLogger),
		Tokens:    tokens,
		Admins:    admins,
		Limiter:   limiter,
		Health: map[string]h.Pinger{
			"postgres": ledger,
			"mongodb":  mongoPinger{mongoDB},
			"redis":    redisPinger{redisClient},
		},
		RequestTimeout: cfg.RequestTimeout,
		Logger:         httpLogger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zl.Info("payment service starting", zap.String("port", cfg.HTTPPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	zl.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Error("server forced to shutdown", zap.Error(err))
	}

	wg.Wait()
	zl.Info("server exited")
}
