package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"time"

	"bakery-service/handlers"
	"bakery-service/internal/auth"
	"bakery-service/internal/cart"
	"bakery-service/internal/consul"
	"bakery-service/internal/invoice"
	"bakery-service/internal/mailer"
	"bakery-service/internal/orders"
	"bakery-service/internal/payments"
	"bakery-service/internal/products"
	"bakery-service/internal/recipes"
	"bakery-service/internal/stores/kafka"
	"bakery-service/internal/stores/memory"
	"bakery-service/internal/stores/mongodb"
	"bakery-service/internal/stores/postgres"
	"bakery-service/internal/stores/s3"
	"bakery-service/internal/users"
	"bakery-service/pkg/cache"
	"bakery-service/pkg/config"
	"bakery-service/pkg/logger"
	"bakery-service/pkg/logkey"
	"bakery-service/pkg/shutdown"

	"github.com/shopspring/decimal"
)

// store is what every backend implements: the domain ports plus the outbox
// the Kafka relay drains.
type store interface {
	users.Store
	cart.Store
	products.Store
	orders.Store
	kafka.Outbox
}

func main() {
	if err := startApp(); err != nil {
		slog.Error("service stopped", slog.String(logkey.ERROR, err.Error()))
		os.Exit(1)
	}
}

func startApp() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger.New(logger.Options{
		Service:   cfg.ServiceName,
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: !cfg.Production(),
	})
	decimal.MarshalJSONWithoutQuotes = true

	ctx, stop := shutdown.WithSignals(context.Background())
	defer stop()

	st, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	/*
		//------------------------------------------------------//
		                Setting up workflows
		//------------------------------------------------------//
	*/
	keys, err := auth.NewKeys(cfg.Auth.Secret, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}
	userConf, err := users.NewConf(st, keys, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword)
	if err != nil {
		return err
	}

	var listCache cache.Cache = cache.Nop{}
	if cfg.RedisAddr != "" {
		listCache = cache.NewRedisCache(cfg.RedisAddr, cfg.ServiceName)
	}
	var uploader products.ImageUploader = memory.Images{}
	if cfg.S3.Bucket != "" {
		if uploader, err = s3.NewUploader(ctx, cfg.S3.Bucket, cfg.S3.Region, cfg.S3.PublicBaseURL); err != nil {
			return err
		}
	}
	productConf, err := products.NewConf(st, uploader, listCache)
	if err != nil {
		return err
	}

	cartConf, err := cart.NewConf(st)
	if err != nil {
		return err
	}

	var checkout orders.Checkout
	if cfg.Stripe.SecretKey != "" {
		checkout = payments.NewCheckout(cfg.Stripe.SecretKey, cfg.Stripe.SuccessURL, cfg.Stripe.CancelURL)
	}
	if cfg.Stripe.WebhookSecret == "" {
		slog.Warn("STRIPE_WEBHOOK_SECRET is not set, payment webhooks will be refused")
	}
	orderConf, err := orders.NewConf(st, st, checkout, orders.Pricing{
		ShippingFee: cfg.Pricing.ShippingFee,
		TaxRate:     cfg.Pricing.TaxRate,
	})
	if err != nil {
		return err
	}

	mail := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.User, cfg.SMTP.Password)
	invoiceConf, err := invoice.NewConf(orderConf, userConf, st, mail)
	if err != nil {
		return err
	}

	var gen recipes.Generator
	if cfg.Recipe.APIKey != "" {
		gen = recipes.NewGeminiClient(cfg.Recipe.Endpoint, cfg.Recipe.Model, cfg.Recipe.APIKey)
	} else {
		slog.Warn("GEMINI_KEY not set, recipe suggestions use the fallback template")
	}
	recipeConf := recipes.NewConf(gen, cfg.Recipe.RetryBase)

	/*
		//------------------------------------------------------//
		                Background workers
		//------------------------------------------------------//
	*/
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewConf(cfg.KafkaBrokers)
		if err != nil {
			return err
		}
		defer producer.Close()
		go kafka.NewRelay(st, producer, cfg.KafkaOrdersTopic).Run(ctx)
		slog.Info("outbox relay started", slog.String("topic", cfg.KafkaOrdersTopic))
	}

	/*
		//------------------------------------------------------//
		                Setting up http server
		//------------------------------------------------------//
	*/
	engine, err := handlers.API(cfg.EndpointPrefix, cfg.GinMode, keys, handlers.Deps{
		Users:         userConf,
		Products:      productConf,
		Cart:          cartConf,
		Orders:        orderConf,
		Invoices:      invoiceConf,
		Recipes:       recipeConf,
		StripeWebhook: payments.NewWebhook(cfg.Stripe.WebhookSecret),
		Verbose:       !cfg.Production(),
	})
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.HTTPPort),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	if cfg.ConsulAddr != "" {
		client, err := consul.NewClient(cfg.ConsulAddr)
		if err != nil {
			return err
		}
		id, err := consul.RegisterService(client, consul.Registration{
			Name:       cfg.ServiceName,
			Port:       cfg.HTTPPort,
			HealthPath: "/ping",
		})
		if err != nil {
			return err
		}
		defer func() {
			if err := consul.Deregister(client, id); err != nil {
				slog.Error("consul deregistration failed", slog.String(logkey.ERROR, err.Error()))
			}
		}()
	}

	serverErrors := make(chan error, 1)
	go func() {
		slog.Info("http server started", slog.String("addr", srv.Addr), slog.String("store", cfg.StoreDriver))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown started")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			_ = srv.Close()
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		slog.Info("shutdown complete")
		return nil
	}
}

func openStore(ctx context.Context, cfg config.Config) (store, func(), error) {
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.Postgres.DSN())
		if err != nil {
			return nil, nil, err
		}
		if err := postgres.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		s, err := postgres.NewStore(db)
		if err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return s, func() { _ = db.Close() }, nil

	case config.DriverMongo:
		s, err := mongodb.Open(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = s.Close(closeCtx)
		}, nil

	case config.DriverMemory:
		slog.Warn("using the in-memory store, data is lost on restart")
		return memory.New(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}
