package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"market/internal/config"
	"market/internal/handler"
	"market/internal/infra/cache"
	"market/internal/infra/db"
	"market/internal/infra/events"
	"market/internal/infra/payment"
	infraRepo "market/internal/infra/repository"
	"market/internal/repository"
	"market/internal/server"
	"market/internal/usecase"
	"market/internal/validator"

	"github.com/joho/godotenv"
)

func main() {
	//.envは無くてもよい（本番は環境変数）
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", slog.Any("err", err))
		os.Exit(1)
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", slog.Any("err", err))
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(gormDB); err != nil {
		return err
	}

	//Repository（GORM実装）生成
	userRepo := infraRepo.NewUserGormRepository(gormDB)
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	cartRepo := infraRepo.NewCartGormRepository(gormDB)
	tx := infraRepo.NewTxManagerGorm(gormDB)

	//冪等キー（Redisが無ければ無効）
	var idem repository.IdempotencyStore = cache.NopIdempotencyStore{}
	if cfg.RedisAddr != "" {
		rdb := cache.NewClient(cfg.RedisAddr)
		defer rdb.Close()
		idem = cache.NewIdempotencyRedisStore(rdb)
	} else {
		log.Warn("REDIS_ADDR is empty; idempotency keys are ignored")
	}

	//イベント（Kafkaが無ければログ出力のみ）
	var publisher usecase.EventPublisher = events.NewLogPublisher(log)
	if len(cfg.KafkaBrokers) > 0 {
		prod := events.NewProducer(cfg.KafkaBrokers, 1024, log)
		prod.Start()
		defer prod.Close()
		publisher = prod
	} else {
		log.Warn("KAFKA_BROKERS is empty; order events are only logged")
	}

	//決済
	var payments usecase.PaymentBridge = payment.DisabledBridge{}
	if cfg.PaymentsEnabled() {
		payments = payment.NewStripeBridge(payment.StripeConfig{
			SecretKey:     cfg.StripeSecretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
			Currency:      cfg.StripeCurrency,
		})
	} else {
		log.Warn("STRIPE_SECRET_KEY is empty; payment routes answer 503")
	}

	//Usecase生成
	authUC := usecase.NewAuthUsecase(cfg, userRepo, validator.NewAuthValidator())
	productUC := usecase.NewProductUsecase(productRepo, tx)
	cartUC := usecase.NewCartUsecase(cartRepo, productRepo)
	orderUC := usecase.NewOrderUsecase(tx)
	checkoutUC := usecase.NewCheckoutUsecase(
		usecase.CheckoutConfig{ClientOrigin: cfg.ClientOrigin, ServiceName: cfg.ServiceName},
		usecase.CheckoutDeps{
			Tx:          tx,
			Payments:    payments,
			Events:      publisher,
			Idempotency: idem,
			Validator:   validator.NewCheckoutValidator(),
			Logger:      log,
		},
	)
	adminOrderUC := usecase.NewAdminOrderUsecase(tx, publisher, log, cfg.ServiceName)

	//Handler生成
	srv := server.New(cfg, log, userRepo, server.Handlers{
		Auth:         handler.NewAuthHandler(authUC),
		Product:      handler.NewProductHandler(productUC),
		Cart:         handler.NewCartHandler(cartUC),
		Order:        handler.NewOrderHandler(orderUC, checkoutUC),
		Stripe:       handler.NewStripeHandler(checkoutUC),
		AdminOrder:   handler.NewAdminOrderHandler(adminOrderUC),
		AdminProduct: handler.NewAdminProductHandler(productUC),
		AdminUser:    handler.NewAdminUserHandler(authUC),
	})

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return srv.Shutdown(10 * time.Second)
}
