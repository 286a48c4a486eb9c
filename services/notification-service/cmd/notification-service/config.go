package main

import (
	"errors"
	"time"

	"github.com/dentbook/clinic/libs/config"
)

type serviceConfig struct {
	Port         string
	DatabaseURL  string
	ErrorLogPath string
	KafkaBrokers []string
	GroupID      string
	Topic        string
	SendTimeout  time.Duration
}

func loadConfig() (serviceConfig, error) {
	var errs []error
	collect := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	cfg := serviceConfig{
		ErrorLogPath: config.String("ERROR_LOG_PATH", "notification_errors.log"),
		KafkaBrokers: config.List("KAFKA_BROKERS"),
		GroupID:      config.String("KAFKA_GROUP_ID", serviceName),
		Topic:        config.String("NOTIFY_TOPIC", "booking.notification.requested.v1"),
	}
	var err error
	cfg.Port, err = config.Port("PORT", "8085")
	collect(err)
	cfg.DatabaseURL, err = config.RequiredString("DATABASE_URL")
	collect(err)
	cfg.SendTimeout, err = config.Duration("NOTIFY_TIMEOUT", 10*time.Second)
	collect(err)
	if len(cfg.KafkaBrokers) == 0 {
		collect(errors.New("KAFKA_BROKERS is required"))
	}
	return cfg, errors.Join(errs...)
}
