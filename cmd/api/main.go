package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hirelanka/marketplace-backend/api/routes"
	"github.com/hirelanka/marketplace-backend/internal/catalog"
	"github.com/hirelanka/marketplace-backend/internal/escrow"
	"github.com/hirelanka/marketplace-backend/internal/ledger"
	"github.com/hirelanka/marketplace-backend/internal/notifications"
	"github.com/hirelanka/marketplace-backend/internal/orders"
	"github.com/hirelanka/marketplace-backend/internal/payments"
	payherewebhook "github.com/hirelanka/marketplace-backend/internal/webhooks/payhere"
	"github.com/hirelanka/marketplace-backend/pkg/commission"
	"github.com/hirelanka/marketplace-backend/pkg/config"
	"github.com/hirelanka/marketplace-backend/pkg/db"
	"github.com/hirelanka/marketplace-backend/pkg/logger"
	"github.com/hirelanka/marketplace-backend/pkg/metrics"
	"github.com/hirelanka/marketplace-backend/pkg/migrate"
	"github.com/hirelanka/marketplace-backend/pkg/ordernumber"
	"github.com/hirelanka/marketplace-backend/pkg/outbox"
	"github.com/hirelanka/marketplace-backend/pkg/payhere"
	"github.com/hirelanka/marketplace-backend/pkg/pubsub"
	"github.com/hirelanka/marketplace-backend/pkg/redis"
	"github.com/hirelanka/marketplace-backend/pkg/telemetry"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(context.Background(), "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	shutdownTracing, err := telemetry.InitTracerProvider(ctx, cfg.Telemetry, "hirelanka-api", cfg.App.Version)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logg.Error(context.Background(), "error flushing traces", err)
		}
	}()

	dbClient, err := db.New(ctx, cfg.DB, logg, db.WithTracing(cfg.Telemetry.Enabled))
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	settlementMetrics := metrics.NewSettlementMetrics(registry)

	notificationsRepo := notifications.NewRepository(dbClient.DB())
	sink, closeSinks, err := buildSinks(ctx, cfg, logg, notificationsRepo)
	if err != nil {
		return err
	}
	defer closeSinks()

	dispatcher, err := notifications.NewDispatcher(sink, logg)
	if err != nil {
		return err
	}
	// queued deliveries finish before the sinks close
	defer dispatcher.Wait()

	numbers, err := ordernumber.NewGenerator(redisClient)
	if err != nil {
		return err
	}
	commissionPolicy, err := commission.NewPolicy(cfg.Commission.DefaultRate)
	if err != nil {
		return err
	}
	ledgerService, err := ledger.NewService(ledger.NewRepository(dbClient.DB()))
	if err != nil {
		return err
	}
	outboxService := outbox.NewService(outbox.NewRepository(dbClient.DB()), logg)
	ordersRepo := orders.NewRepository(dbClient.DB())

	orderParams := orders.ServiceParams{
		Repository: ordersRepo,
		Catalog:    catalog.NewReader(dbClient.DB()),
		Tx:         dbClient,
		Outbox:     outboxService,
		Numbers:    numbers,
		Notifier:   dispatcher,
		Commission: commissionPolicy,
		Metrics:    settlementMetrics,
		Logger:     logg,
	}
	ordersService, err := orders.NewService(orderParams)
	if err != nil {
		return err
	}
	bookingsService, err := orders.NewBookingService(orderParams)
	if err != nil {
		return err
	}

	signer := payhere.NewSigner(cfg.PayHere.MerchantID, cfg.PayHere.MerchantSecret)
	paymentsRepo := payments.NewRepository(dbClient.DB())
	paymentsService, err := payments.NewService(payments.ServiceParams{
		Repository: paymentsRepo,
		Orders:     ordersRepo,
		Ledger:     ledgerService,
		Outbox:     outboxService,
		Tx:         dbClient,
		Notifier:   dispatcher,
		Signer:     signer,
		Gateway: payments.GatewaySettings{
			Currency:  cfg.PayHere.Currency,
			Country:   cfg.PayHere.Country,
			ClientURL: cfg.PayHere.ClientURL,
			ServerURL: cfg.PayHere.ServerURL,
			Sandbox:   cfg.PayHere.Sandbox(),
		},
		Metrics: settlementMetrics,
		Logger:  logg,
	})
	if err != nil {
		return err
	}

	escrowService, err := escrow.NewService(escrow.ServiceParams{
		Payments: paymentsRepo,
		Orders:   ordersRepo,
		Ledger:   ledgerService,
		Outbox:   outboxService,
		Tx:       dbClient,
		Notifier: dispatcher,
		Metrics:  settlementMetrics,
		Logger:   logg,
	})
	if err != nil {
		return err
	}

	notificationsService, err := notifications.NewService(notificationsRepo)
	if err != nil {
		return err
	}

	guard, err := payherewebhook.NewIdempotencyGuard(redisClient, cfg.Webhook.IdempotencyTTL, "payhere")
	if err != nil {
		return err
	}

	handler := routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Logger:        logg,
		DB:            dbClient,
		Redis:         redisClient,
		Gatherer:      registry,
		Orders:        ordersService,
		Bookings:      bookingsService,
		Payments:      paymentsService,
		Escrow:        escrowService,
		Notifications: notificationsService,
		Signer:        signer,
		WebhookGuard:  guard,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	logCtx := logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"addr":    addr,
		"sandbox": cfg.PayHere.Sandbox(),
		"sinks":   cfg.Notifications.Sinks,
	})
	logg.Info(logCtx, "starting api server")

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logg.Info(logCtx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// buildSinks assembles the configured notification sinks. The returned func
// releases any transport the sinks hold.
func buildSinks(ctx context.Context, cfg *config.Config, logg *logger.Logger, repo notifications.Repository) (notifications.Sink, func(), error) {
	var (
		sinks   notifications.MultiSink
		closers []func() error
	)
	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logg.Error(context.Background(), "error closing notification sink", err)
			}
		}
	}

	if cfg.Notifications.Enabled(config.NotificationSinkStore) {
		store, err := notifications.NewStoreSink(repo)
		if err != nil {
			return nil, closeAll, err
		}
		sinks = append(sinks, store)
	}

	if cfg.Notifications.Enabled(config.NotificationSinkPubSub) {
		client, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, logg)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, client.Close)
		sink, err := notifications.NewPubSubSink(client.NotificationPublisher())
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		sinks = append(sinks, sink)
	}

	if cfg.Notifications.Enabled(config.NotificationSinkKafka) {
		sink, err := notifications.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.NotificationTopic)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, sink.Close)
		sinks = append(sinks, sink)
	}

	return sinks, closeAll, nil
}
