package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dentbook/clinic/libs/db"
	"github.com/dentbook/clinic/libs/email"
	"github.com/dentbook/clinic/libs/httpx"
	"github.com/dentbook/clinic/libs/kafkax"
	otelx "github.com/dentbook/clinic/libs/otel"
	"github.com/dentbook/clinic/libs/runtime"
	"github.com/dentbook/clinic/libs/sms"
	"github.com/dentbook/clinic/services/notification-service/internal/consumer"
	"github.com/dentbook/clinic/services/notification-service/internal/delivery"
	"github.com/dentbook/clinic/services/notification-service/internal/storage"
)

func serve(ctx context.Context, cfg serviceConfig, logger *slog.Logger, migrate bool) error {
	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(serviceName))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{})
	if err != nil {
		return fmt.Errorf("db connection failed: %w", err)
	}
	defer pool.Close()

	if migrate {
		applied, err := storage.Migrate(ctx, pool)
		if err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		logger.Info("migrations applied", "files", applied)
	}

	emailSender, err := email.New(email.ConfigFromEnv())
	if err != nil {
		return err
	}
	smsSender, err := sms.New(sms.ConfigFromEnv())
	if err != nil {
		return err
	}

	repo := storage.NewRepository(pool)
	handler := delivery.NewHandler(emailSender, smsSender, repo, logger, cfg.SendTimeout)
	eventConsumer := consumer.New(logger, repo, consumer.Config{
		Brokers: cfg.KafkaBrokers,
		GroupID: cfg.GroupID,
		Topic:   cfg.Topic,
	}, handler.Handle)

	consumerDone := make(chan struct{})
	go func() {
		defer close(consumerDone)
		eventConsumer.Run(ctx)
	}()
	logger.Info("consuming notification requests", "topic", cfg.Topic,
		"email_provider", emailSender.ProviderID(), "sms_provider", smsSender.ProviderID())

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
	)
	h := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           otelhttp.NewHandler(h, "notification"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	select {
	case <-consumerDone:
	case <-shutdownCtx.Done():
		logger.Warn("consumer did not stop before shutdown deadline")
	}
	logger.Info("http server stopped")
	return nil
}
