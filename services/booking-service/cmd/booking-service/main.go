package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/admin"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/clock"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/metrics"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service, config.String("LOG_LEVEL", "info"))

	ctx, stop := runtime.SignalContext()
	defer stop()

	if err := run(ctx, service, logger); err != nil {
		logger.Error("booking-service exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, service string, logger *slog.Logger) error {
	port, err := config.Port("PORT", "8080")
	if err != nil {
		return err
	}

	otelCfg, err := otelx.ConfigFromEnv(service)
	if err != nil {
		return err
	}
	otelShutdown, err := otelx.Setup(ctx, otelCfg)
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	brokers := config.List("KAFKA_BROKERS")
	backend, err := storage.OpenBackend(ctx, config.String("DATABASE_URL", "data/appointments.db"), logger, storage.BackendOptions{
		PublishEvents: len(brokers) > 0,
	})
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer backend.Close()
	logger.Info("store opened", "dialect", backend.Dialect)

	migrateOnStart, err := config.Bool("MIGRATE_ON_START", true)
	if err != nil {
		return err
	}
	if migrateOnStart {
		if err := backend.Migrator.Up(ctx); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rdb, err := openRedis(ctx, logger)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	clk := clock.NewSystem()
	hours, err := openingHours()
	if err != nil {
		return err
	}
	authn, err := loadAuthenticator(logger)
	if err != nil {
		return err
	}
	sessions, err := newSessionManager(clk, rdb, logger)
	if err != nil {
		return err
	}

	bookings := booking.NewService(backend.Store, clk, hours, logger, m)
	adminSvc := admin.NewService(backend.Store, authn, sessions, logger, m)

	if backend.Pool != nil && len(brokers) > 0 {
		pollEvery, err := config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second)
		if err != nil {
			return err
		}
		batchSize, err := config.Int("OUTBOX_BATCH_SIZE", 50)
		if err != nil {
			return err
		}
		publisher := outbox.NewPublisher(backend.Pool, outbox.NewRepository(), logger, m, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: pollEvery,
			BatchSize: batchSize,
		})
		go publisher.Run(ctx)
	} else if len(brokers) > 0 {
		logger.Warn("KAFKA_BROKERS ignored: the outbox needs a PostgreSQL store")
	}

	limiter, err := newRateLimiter(ctx, rdb)
	if err != nil {
		return err
	}

	views, err := handlers.NewRenderer(logger)
	if err != nil {
		return err
	}
	secureCookies, err := config.Bool("COOKIE_SECURE", false)
	if err != nil {
		return err
	}

	checks := []runtime.ReadyCheck{{Name: "store", Check: backend.Store.Ping}}
	if rdb != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}})
	}
	if backend.Pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "postgres", Check: db.ReadyCheck(backend.Pool)})
		if len(brokers) > 0 {
			checks = append(checks, runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)})
		}
	}

	mux := runtime.NewBaseMuxWithReady(checks...)
	mux.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	handlers.NewAPIHandler(bookings, adminSvc, logger).Register(mux)
	handlers.NewWebHandler(bookings, adminSvc, views, handlers.CookieConfig{Secure: secureCookies}, logger).Register(mux)

	timeout, err := config.Duration("HTTP_REQUEST_TIMEOUT", 15*time.Second)
	if err != nil {
		return err
	}
	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithRecover(logger),
		httpx.WithAccessLog(logger),
		httpx.WithSecurityHeaders,
		httpx.WithBodyLimit(1<<20),
		httpx.WithTimeout(timeout),
		httpx.RateLimit(limiter, logger, true),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := runtime.Serve(ctx, logger, srv, 10*time.Second); err != nil {
		return err
	}
	logger.Info("http server stopped")
	return nil
}

func openingHours() (availability.Hours, error) {
	step, err := config.Duration("SLOT_STEP", 30*time.Minute)
	if err != nil {
		return availability.Hours{}, err
	}
	return availability.ParseHours(config.String("OPENING_HOURS", "09:00-17:00"), step)
}
