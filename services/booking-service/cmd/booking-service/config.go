package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/dentbook/clinic/libs/config"
)

type serviceConfig struct {
	Port              string
	DatabaseURL       string
	BaseURL           string
	ErrorLogPath      string
	DBMaxConns        int
	ReconnectInterval time.Duration
	CORSOrigins       []string

	NotifyTransport string
	NotifyWorkers   int
	NotifyQueueSize int
	NotifyTimeout   time.Duration
	KafkaBrokers    []string
	NotifyTopic     string

	RedisAddr          string
	RateLimitPerMinute int
}

func loadConfig() (serviceConfig, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := serviceConfig{
		BaseURL:         config.String("BASE_URL", "http://localhost:8080"),
		ErrorLogPath:    config.String("ERROR_LOG_PATH", "server_errors.log"),
		CORSOrigins:     config.List("CORS_ALLOWED_ORIGINS"),
		NotifyTransport: config.String("NOTIFY_TRANSPORT", "direct"),
		KafkaBrokers:    config.List("KAFKA_BROKERS"),
		NotifyTopic:     config.String("NOTIFY_TOPIC", "booking.notification.requested.v1"),
		RedisAddr:       config.String("REDIS_ADDR", ""),
	}
	var err error
	cfg.Port, err = config.Port("PORT", "8080")
	collect(err)
	cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL")
	collect(err)
	cfg.DBMaxConns, err = config.Int("DB_MAX_CONNS", 10)
	collect(err)
	cfg.ReconnectInterval, err = config.Duration("DB_RECONNECT_INTERVAL", 5*time.Second)
	collect(err)
	cfg.NotifyWorkers, err = config.Int("NOTIFY_WORKERS", 4)
	collect(err)
	cfg.NotifyQueueSize, err = config.Int("NOTIFY_QUEUE_SIZE", 256)
	collect(err)
	cfg.NotifyTimeout, err = config.Duration("NOTIFY_TIMEOUT", 10*time.Second)
	collect(err)
	cfg.RateLimitPerMinute, err = config.Int("RATE_LIMIT_PER_MINUTE", 20)
	collect(err)

	switch cfg.NotifyTransport {
	case "direct":
	case "kafka":
		if len(cfg.KafkaBrokers) == 0 {
			collect(errors.New("KAFKA_BROKERS is required when NOTIFY_TRANSPORT=kafka"))
		}
	default:
		collect(fmt.Errorf("NOTIFY_TRANSPORT must be direct or kafka (got %q)", cfg.NotifyTransport))
	}
	if cfg.DBMaxConns < 1 {
		collect(errors.New("DB_MAX_CONNS must be at least 1"))
	}
	if cfg.ReconnectInterval <= 0 {
		collect(errors.New("DB_RECONNECT_INTERVAL must be positive"))
	}
	return cfg, errors.Join(errs...)
}
