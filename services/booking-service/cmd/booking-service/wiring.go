package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dentbook/clinic/libs/email"
	"github.com/dentbook/clinic/libs/httpx"
	"github.com/dentbook/clinic/libs/kafkax"
	"github.com/dentbook/clinic/libs/runtime"
	"github.com/dentbook/clinic/libs/sms"
	"github.com/dentbook/clinic/services/booking-service/internal/notify"
)

// buildSink returns the notification sink for cfg.NotifyTransport and a
// closer for any resources it holds.
func buildSink(cfg serviceConfig, logger *slog.Logger) (notify.Sink, io.Closer, []runtime.ReadyCheck, error) {
	if cfg.NotifyTransport == "kafka" {
		w := kafkax.NewWriter(cfg.KafkaBrokers, cfg.NotifyTopic)
		logger.Info("notifications via kafka", "topic", cfg.NotifyTopic)
		return notify.NewKafkaSink(w), w, []runtime.ReadyCheck{
			{Name: "kafka", Check: kafkax.ReadyCheck(cfg.KafkaBrokers)},
		}, nil
	}

	emailSender, err := email.New(email.ConfigFromEnv())
	if err != nil {
		return nil, nil, nil, err
	}
	smsSender, err := sms.New(sms.ConfigFromEnv())
	if err != nil {
		return nil, nil, nil, err
	}
	logger.Info("notifications delivered in process", "email_provider", emailSender.ProviderID(), "sms_provider", smsSender.ProviderID())
	return notify.DirectSink{Email: emailSender, SMS: smsSender}, io.NopCloser(nil), nil, nil
}

// buildRateLimit returns the limiter middleware for the write routes, or nil
// when rate limiting is disabled.
func buildRateLimit(cfg serviceConfig, logger *slog.Logger) (httpx.Middleware, io.Closer, []runtime.ReadyCheck, error) {
	if cfg.RateLimitPerMinute <= 0 {
		return nil, io.NopCloser(nil), nil, nil
	}
	if cfg.RedisAddr == "" {
		return httpx.RateLimit(httpx.NewMemoryLimiter(cfg.RateLimitPerMinute, time.Minute), logger, true), io.NopCloser(nil), nil, nil
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		// fail open: the limiter logs and lets requests through until Redis is back
		logger.Warn("redis unavailable at startup", "addr", cfg.RedisAddr, "err", err)
	}
	limiter := httpx.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, time.Minute, serviceName+":rl")
	check := runtime.ReadyCheck{Name: "redis", Check: func(ctx context.Context) error {
		if err := rdb.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("ping: %w", err)
		}
		return nil
	}}
	return httpx.RateLimit(limiter, logger, true), rdb, []runtime.ReadyCheck{check}, nil
}
