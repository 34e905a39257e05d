package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fjod/food-storefront/internal/backend"
	"github.com/fjod/food-storefront/internal/cart"
	"github.com/fjod/food-storefront/internal/config"
	h "github.com/fjod/food-storefront/internal/http"
	"github.com/fjod/food-storefront/internal/payment"
	"github.com/fjod/food-storefront/internal/poller"
	"github.com/fjod/food-storefront/internal/slot"
	"github.com/fjod/food-storefront/internal/storefront"
	"github.com/fjod/food-storefront/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.LogLevel, cfg.LogFormat)
	zerolog.DefaultContextLogger = &log

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithContext(ctx, log)

	// Durable slot
	base, closeSlot, err := openSlot(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.SlotDriver).Msg("failed to open cart slot")
	}
	defer closeSlot()
	log.Info().Str("driver", cfg.SlotDriver).Msg("cart slot ready")

	sessions := cart.NewSessions(base, cfg.SessionIdleTTL)
	sessions.Subscribe(func(sessionID string, snap cart.Snapshot) {
		log.Debug().
			Str("session_id", sessionID).
			Int("total_items", snap.TotalItems).
			Str("total_price", snap.TotalPrice.String()).
			Msg("cart changed")
	})
	if cfg.SessionIdleTTL > 0 {
		go sessions.Run(ctx, cfg.SessionIdleTTL/2)
	}

	backendClient := backend.NewClient(cfg.BackendURL, cfg.RequestTimeout)
	views := storefront.NewService(backendClient, storefront.Options{
		CarouselSize: cfg.CarouselSize,
		RelatedLimit: cfg.RelatedLimit,
	})
	payments := payment.NewHandler(sessions, backendClient)

	if len(cfg.KafkaBrokers) > 0 {
		p := poller.NewPoller(payments, cfg.PaymentTopic, cfg.KafkaBrokers...)
		defer p.Close()
		go p.Run(ctx)
		log.Info().Strs("brokers", cfg.KafkaBrokers).Str("topic", cfg.PaymentTopic).Msg("payment consumer started")
	}

	router := h.NewRouter(h.RouterConfig{
		RequestTimeout: cfg.RequestTimeout,
		CookieSecure:   cfg.CookieSecure,
		Logger:         log,
	}, h.Handlers{
		Cart:    h.NewCartHandler(sessions, views, cfg.RequestTimeout),
		Catalog: h.NewCatalogHandler(views, cfg.RequestTimeout),
		Payment: h.NewPaymentHandler(payments, cfg.RequestTimeout),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.HTTPPort).Str("backend", cfg.BackendURL).Msg("storefront starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Graceful shutdown
	<-ctx.Done()
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}

func openSlot(ctx context.Context, cfg *config.Config) (slot.Slot, func(), error) {
	switch cfg.SlotDriver {
	case config.DriverRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       0,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("redis connection failed: %w", err)
		}
		return slot.NewRedisSlot(client, cfg.SlotTTL), func() { client.Close() }, nil

	case config.DriverMongo:
		db, err := slot.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		s := slot.NewMongoSlot(db, cfg.SlotTTL)
		if err := s.CreateIndexes(ctx); err != nil {
			db.Client().Disconnect(ctx)
			return nil, nil, err
		}
		return s, func() { db.Client().Disconnect(context.Background()) }, nil

	case config.DriverSQLite:
		s, err := slot.NewSQLiteSlot(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		if err := s.RunMigrations(); err != nil {
			s.Close()
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil

	case config.DriverMemory:
		return slot.NewMemorySlot(), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown slot driver %q", cfg.SlotDriver)
}
