// Package main is the entry point for the payment gateway API server.
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/commercekit/zaver-gateway/internal/api"
	"github.com/commercekit/zaver-gateway/internal/auth"
	"github.com/commercekit/zaver-gateway/internal/checkout"
	"github.com/commercekit/zaver-gateway/internal/config"
	"github.com/commercekit/zaver-gateway/internal/health"
	"github.com/commercekit/zaver-gateway/internal/middleware"
	"github.com/commercekit/zaver-gateway/internal/order"
	"github.com/commercekit/zaver-gateway/internal/ordermgmt"
	"github.com/commercekit/zaver-gateway/internal/reconcile"
	"github.com/commercekit/zaver-gateway/internal/tax"
	"github.com/commercekit/zaver-gateway/internal/tracing"
	"github.com/commercekit/zaver-gateway/internal/zaver"
)

func main() {
	help := flag.Bool("help", false, "display help message")
	configPath := flag.String("config", "", "path to a YAML config file")
	flag.Parse()

	if *help {
		fmt.Println("Zaver Gateway API Server")
		fmt.Println()
		fmt.Println("Usage: api [options]")
		fmt.Println()
		fmt.Println("Options:")
		flag.PrintDefaults()
		os.Exit(0)
	}

	cfg, errs := config.Load(*configPath)
	if len(errs) > 0 {
		for _, err := range errs {
			fmt.Fprintln(os.Stderr, "config error:", err)
		}
		os.Exit(1)
	}

	logger := middleware.NewLogger(cfg.Env)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", "summary", cfg.LogSummary())

	tracerProvider, err := tracing.NewProvider(tracing.Config{
		ServiceName:  "zaver-gateway",
		Enabled:      cfg.TracingEnabled,
		Environment:  cfg.Env,
		ExporterType: cfg.TracingExporterType,
		OTLPEndpoint: cfg.TracingOTLPEndpoint,
		SamplingRate: cfg.TracingSamplingRate,
		InsecureMode: cfg.TracingInsecureMode,
	})
	if err != nil {
		logger.Error("failed to initialize tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracerProvider.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown tracer provider", "error", err)
		}
	}()

	// Order store: Postgres when configured, in-memory otherwise.
	var (
		store     order.Store
		db        *sql.DB
		dbChecker api.HealthChecker
	)
	if cfg.DatabaseURL != "" {
		db, err = sql.Open("postgres", cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to open database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		pgStore := order.NewPostgresStore(db)
		if err := pgStore.EnsureSchema(ctx); err != nil {
			cancel()
			logger.Error("failed to ensure database schema", "error", err)
			os.Exit(1)
		}
		cancel()

		store = pgStore
		dbChecker = health.NewDBChecker(db)
		logger.Info("using postgres order store")
	} else {
		store = order.NewInMemoryStore()
		logger.Warn("DATABASE_URL not set, using in-memory order store")
	}

	metrics := middleware.NewMetrics()
	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		logger.Error("failed to register metrics", "error", err)
		os.Exit(1)
	}

	// Rate limit store: Redis when configured, in-memory otherwise.
	var (
		rateLimitStore middleware.RateLimitStore
		redisChecker   api.HealthChecker
	)
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			logger.Error("failed to parse redis url", "error", err)
			os.Exit(1)
		}
		redisClient := redis.NewClient(opts)
		defer redisClient.Close()

		rateLimitStore = middleware.NewRedisRateLimitStore(redisClient).WithMetrics(metrics)
		redisChecker = health.NewRedisChecker(redisClient)
		logger.Info("using redis rate limit store")
	} else {
		memStore := middleware.NewInMemoryRateLimitStore()
		go func() {
			ticker := time.NewTicker(time.Minute)
			defer ticker.Stop()
			for range ticker.C {
				memStore.Cleanup()
			}
		}()
		rateLimitStore = memStore
		logger.Warn("REDIS_URL not set, using in-memory rate limit store")
	}

	zaverClient := zaver.NewHTTPClient(cfg.ZaverAPIKey, cfg.ZaverTestMode)

	taxRates := make([]tax.Rate, 0, len(cfg.TaxRates))
	for _, r := range cfg.TaxRates {
		taxRates = append(taxRates, tax.Rate{
			Country:  r.Country,
			State:    r.State,
			TaxClass: r.TaxClass,
			Shipping: r.Shipping,
			Percent:  decimal.NewFromFloat(r.Percent),
		})
	}
	taxes := tax.NewTableResolver(taxRates)

	builder := checkout.NewBuilder(taxes, cfg.StoreURL, cfg.PublicURL, cfg.Platform)
	processor := checkout.NewProcessor(store, zaverClient, builder, logger)
	payments := reconcile.NewPaymentReconciler(store, zaverClient, logger)
	refunds := reconcile.NewRefundReconciler(store, logger)
	initiator := reconcile.NewRefundInitiator(store, zaverClient, builder, logger)
	manager := ordermgmt.NewManager(store, zaverClient, builder, logger)

	jwtService := auth.NewJWTServiceWithRotation(cfg.JWTSecret, cfg.JWTPreviousSecret)

	checkoutHandlers := api.NewCheckoutHandlers(store, processor, payments, builder, metrics, logger)
	webhookHandlers := api.NewWebhookHandlers(store, payments, refunds, cfg.ZaverCallbackToken, metrics, logger)
	managementHandlers := api.NewManagementHandlers(manager, logger)
	refundHandlers := api.NewRefundHandlers(initiator, metrics, logger)
	paymentMethodHandlers := api.NewPaymentMethodHandlers(zaverClient, logger)
	healthHandlers := api.NewHealthHandlers(api.HealthHandlersConfig{
		DBChecker:    dbChecker,
		RedisChecker: redisChecker,
		ZaverChecker: health.NewZaverChecker(zaverClient),
	})

	authenticate := middleware.Authenticate(jwtService)
	globalLimit := middleware.RateLimiter(rateLimitStore, middleware.DefaultGlobalLimit(), middleware.IPKeyFunc())
	callbackLimit := middleware.RateLimiter(rateLimitStore, middleware.DefaultCallbackLimit(), middleware.IPKeyFunc())
	managementLimit := middleware.RateLimiter(rateLimitStore, middleware.DefaultManagementLimit(), middleware.RepresentativeKeyFunc())

	mux := http.NewServeMux()

	mux.Handle("POST /checkout/sessions", globalLimit(http.HandlerFunc(checkoutHandlers.HandleCreateSession)))
	mux.Handle("GET /checkout/order-received/{orderID}", globalLimit(http.HandlerFunc(checkoutHandlers.HandleOrderReceived)))

	mux.Handle("POST /callbacks/zaver/payment", callbackLimit(http.HandlerFunc(webhookHandlers.HandlePaymentCallback)))
	mux.Handle("POST /callbacks/zaver/refund", callbackLimit(http.HandlerFunc(webhookHandlers.HandleRefundCallback)))

	mux.Handle("POST /orders/{orderID}/transitions", authenticate(managementLimit(http.HandlerFunc(managementHandlers.HandleTransition))))
	mux.Handle("POST /orders/{orderID}/refunds", authenticate(managementLimit(http.HandlerFunc(refundHandlers.HandleCreateRefund))))

	mux.Handle("GET /payment-methods", globalLimit(http.HandlerFunc(paymentMethodHandlers.HandleList)))

	mux.HandleFunc("GET /health", healthHandlers.Health)
	mux.HandleFunc("GET /ready", healthHandlers.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Apply middleware: RequestID -> Tracing -> Logging -> HTTPMetrics
	handler := middleware.RequestID(
		middleware.Tracing("zaver-gateway")(
			middleware.Logging(logger)(
				middleware.HTTPMetrics(metrics)(mux))))

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("starting server", "port", cfg.Port, "env", cfg.Env, "zaver_test_mode", cfg.ZaverTestMode)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}
