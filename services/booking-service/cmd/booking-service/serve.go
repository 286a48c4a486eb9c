package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	gorillahandlers "github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/dentbook/clinic/libs/db"
	"github.com/dentbook/clinic/libs/httpx"
	otelx "github.com/dentbook/clinic/libs/otel"
	"github.com/dentbook/clinic/libs/runtime"
	"github.com/dentbook/clinic/services/booking-service/internal/handlers"
	"github.com/dentbook/clinic/services/booking-service/internal/notify"
	"github.com/dentbook/clinic/services/booking-service/internal/reservations"
	"github.com/dentbook/clinic/services/booking-service/internal/storage"
)

const (
	bodyLimit      = 1 << 20
	requestTimeout = 15 * time.Second
)

func newServeCmd() *cobra.Command {
	var migrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, errLog, err := runtime.NewLoggerWithErrorFile(serviceName, cfg.ErrorLogPath)
			if err != nil {
				return err
			}
			defer errLog.Close()

			ctx, stop := runtime.SignalContext()
			defer stop()
			if err := serve(ctx, cfg, logger, migrate); err != nil {
				logger.Error("booking service stopped", "err", err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply pending migrations before serving")
	return cmd
}

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

	pool, err := db.Open(ctx, cfg.DatabaseURL, db.Options{MaxConns: int32(cfg.DBMaxConns)})
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

	store := storage.NewStore(pool)
	supervisor := db.NewSupervisor(store, cfg.ReconnectInterval, logger.With("component", "db"))
	go supervisor.Run(ctx)

	sink, sinkCloser, sinkChecks, err := buildSink(cfg, logger)
	if err != nil {
		return err
	}
	defer sinkCloser.Close()
	dispatcher := notify.NewDispatcher(sink, logger.With("component", "notify"), notify.DispatcherConfig{
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
		Timeout:   cfg.NotifyTimeout,
	})

	limit, limitCloser, limitChecks, err := buildRateLimit(cfg, logger)
	if err != nil {
		return err
	}
	defer limitCloser.Close()

	svc := reservations.NewService(store, dispatcher, supervisor, logger, reservations.Config{BaseURL: cfg.BaseURL})

	checks := append([]runtime.ReadyCheck{
		{Name: "db", Check: db.ReadyCheck(pool)},
		{Name: "db_supervisor", Check: supervisor.Ready},
	}, sinkChecks...)
	checks = append(checks, limitChecks...)
	probes := runtime.NewBaseMuxWithReady(checks...)

	router := mux.NewRouter()
	router.Handle("/healthz", probes)
	router.Handle("/readyz", probes)
	handlers.NewAPI(svc, supervisor.Ping, logger, limit).Register(router)

	handler := httpx.Chain(router,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.PublicAPIPolicy(cfg.CORSOrigins)),
		httpx.WithBodyLimit(bodyLimit),
		httpx.WithTimeout(requestTimeout),
	)
	handler = gorillahandlers.RecoveryHandler(
		gorillahandlers.RecoveryLogger(panicLogger{logger}),
		gorillahandlers.PrintRecoveryStack(true),
	)(handler)
	handler = otelhttp.NewHandler(handler, "booking")

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
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
	if err := dispatcher.Close(shutdownCtx); err != nil {
		logger.Error("notification dispatcher did not drain", "err", err)
	}
	logger.Info("http server stopped")
	return nil
}

// panicLogger sends recovered handler panics to the error log.
type panicLogger struct {
	logger *slog.Logger
}

func (l panicLogger) Println(v ...interface{}) {
	l.logger.Error("panic recovered", "panic", fmt.Sprint(v...))
}
