package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deofis/cursos-online-apirest/internal/application"
	"github.com/deofis/cursos-online-apirest/internal/config"
	"github.com/deofis/cursos-online-apirest/internal/domain"
	"github.com/deofis/cursos-online-apirest/internal/inventory"
	"github.com/deofis/cursos-online-apirest/internal/kafka"
	"github.com/deofis/cursos-online-apirest/internal/logger"
	"github.com/deofis/cursos-online-apirest/internal/migrate"
	"github.com/deofis/cursos-online-apirest/internal/payment"
	"github.com/deofis/cursos-online-apirest/internal/presentation"
	"github.com/deofis/cursos-online-apirest/internal/repository"
)

func main() {
	logger.Init()
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Warn("config load failed", "err", err)
		os.Exit(1)
	}

	// DB pool
	pool, err := pgxpool.New(context.Background(), cfg.DB_STRING)
	if err != nil {
		logger.Warn("pgxpool new failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(context.Background()); err != nil {
		logger.Warn("db ping failed", "err", err)
		os.Exit(1)
	}
	logger.Info("db connected")

	if err := migrate.Up(cfg.DB_STRING); err != nil {
		logger.Warn("migrations failed", "err", err)
		os.Exit(1)
	}
	logger.Info("migrations applied")

	// Kafka producer: order events for the notification worker
	prod := kafka.NewProducer(cfg.KAFKA_BROKERS, cfg.KAFKA_TOPIC)
	defer prod.Close()

	// Notification worker: consumes order events and dispatches mails.
	// Mail transport is stood in by structured logs until SMTP lands.
	_ = kafka.StartConsumer(
		context.Background(),
		kafka.ConsumerConfig{
			Brokers: cfg.KAFKA_BROKERS,
			Topic:   cfg.KAFKA_TOPIC,
			GroupID: cfg.KAFKA_GROUP_ID,
		},
		func(ctx context.Context, event kafka.OrderEvent) error {
			logger.Info("notification dispatched",
				"type", event.Type,
				"order", event.OrderNumber,
				"recipient", event.Recipient,
				"total", event.Total,
			)
			return nil
		},
	)

	// Payment strategies
	registry := payment.NewRegistry()
	registry.Register(domain.MethodCash, payment.NewCashStrategy())
	registry.Register(domain.MethodPayPal, payment.NewPayPalStrategy(
		payment.NewPayPalClient(cfg.PAYPAL_BASE_URL, cfg.PAYPAL_CLIENT_ID, cfg.PAYPAL_SECRET),
		cfg.CLIENT_URL, cfg.CURRENCY,
	))
	registry.Register(domain.MethodProviderX, payment.NewProviderXStrategy(
		payment.NewProviderXClient(cfg.PROVIDERX_BASE_URL, cfg.PROVIDERX_ACCESS_TOKEN),
		cfg.CLIENT_URL,
	))

	// Wiring
	tx := repository.NewTxManager(pool)
	orderRepo := repository.NewOrderRepository(pool)
	skuRepo := repository.NewSkuRepository(pool)
	allocator := inventory.NewAllocator(skuRepo)
	checkout := application.NewCheckoutService(tx, orderRepo, registry, prod)
	orders := application.NewOrdersService(tx, orderRepo, allocator, checkout, prod)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// API
	h := presentation.NewStoreHandler(orders, checkout)
	h.Register(r)

	addr := ":" + cfg.HTTP_PORT
	logger.Info("starting http", "addr", addr)
	if err := http.ListenAndServe(addr, r); err != nil {
		logger.Warn("http server crashed", "err", err)
		os.Exit(1)
	}
}
