package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"go.uber.org/zap"

	"julianmorley.ca/pureview/api/internal/account"
	"julianmorley.ca/pureview/api/internal/cart"
	"julianmorley.ca/pureview/api/internal/catalog"
	"julianmorley.ca/pureview/api/internal/images"
	"julianmorley.ca/pureview/api/internal/mail"
	"julianmorley.ca/pureview/api/internal/order"
	"julianmorley.ca/pureview/api/internal/payment"
	"julianmorley.ca/pureview/api/internal/realtime"
	"julianmorley.ca/pureview/api/internal/router"
	"julianmorley.ca/pureview/api/internal/store"
	"julianmorley.ca/pureview/api/pkg/ai"
	"julianmorley.ca/pureview/api/pkg/config"
	"julianmorley.ca/pureview/api/pkg/mongo"
	"julianmorley.ca/pureview/api/pkg/redis"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("Error building logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.IsProduction() {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var closers []func(context.Context) error
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](closeCtx); err != nil {
				logger.Warn("close failed", zap.Error(err))
			}
		}
	}()

	var (
		st   store.Store
		ping func(context.Context) error
	)
	switch cfg.DataStore {
	case config.StoreMongo:
		client, err := mongo.Connect(cfg.MongoDB.URI, logger)
		if err != nil {
			return err
		}
		closers = append(closers, client.Disconnect)

		db := client.Database(cfg.MongoDB.Database)
		if err := mongo.EnsureIndexes(ctx, db, logger); err != nil {
			logger.Warn("index setup incomplete", zap.Error(err))
		}
		st = mongo.NewStore(db, cfg.StoreTimeout)
		ping = func(ctx context.Context) error { return client.Ping(ctx, nil) }
	default:
		logger.Warn("using in-memory store, data is lost on restart")
		st = store.NewMemory()
	}

	var cache catalog.ProductCache
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		closers = append(closers, func(context.Context) error { return client.Close() })
		cache = redis.NewProductCache(client)
		logger.Info("product cache enabled", zap.String("addr", cfg.Redis.Addr))
	}

	var gcs *storage.Client
	if cfg.Storage.Bucket != "" {
		client, err := storage.NewClient(ctx)
		if err != nil {
			logger.Warn("image storage disabled", zap.Error(err))
		} else {
			gcs = client
			closers = append(closers, func(context.Context) error { return client.Close() })
		}
	}
	host := images.NewHost(gcs, cfg.Storage.Bucket, logger)
	var imageDeleter catalog.ImageDeleter
	if host.Configured() {
		imageDeleter = host
	}

	hub := realtime.NewHub(cfg.Realtime.QueueSize, logger)
	go hub.Run(ctx)

	var orderOpts []order.Option
	if sender := mail.NewSender(cfg.Mail.SendGridKey, cfg.Mail.From, logger); sender.Enabled() {
		orderOpts = append(orderOpts, order.WithMailer(sender))
	}
	if insights := ai.NewInsights(cfg.OpenAI, logger); insights != nil {
		orderOpts = append(orderOpts, order.WithInsights(insights))
	}
	orders := order.NewEngine(st, st, hub, logger, orderOpts...)

	handler := router.NewHandler(router.Deps{
		Carts:    cart.NewEngine(st, logger),
		Orders:   orders,
		Accounts: account.NewService(st, st, logger),
		Catalog:  catalog.NewService(st, st, cache, imageDeleter, logger),
		Payments: payment.NewStripeGateway(cfg.Payment.StripeSecret, cfg.Payment.Currency, logger),
		Images:   host,
		Hub:      hub,
		Ping:     ping,
	}, logger)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router.NewEngine(cfg, handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server is running", zap.String("addr", srv.Addr), zap.String("store", cfg.DataStore))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}
	hub.Stop()
	orders.Wait()
	return nil
}
