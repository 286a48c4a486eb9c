package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Supervisor watches database connectivity. It pings on every interval and
// when callers report connection failures; once a probe fails it keeps
// probing at the same interval until the database answers again.
type Supervisor struct {
	pinger   Pinger
	interval time.Duration
	logger   *slog.Logger

	trigger chan struct{}
	healthy atomic.Bool

	mu      sync.Mutex
	lastErr error
}

func NewSupervisor(p Pinger, interval time.Duration, logger *slog.Logger) *Supervisor {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Supervisor{
		pinger:   p,
		interval: interval,
		logger:   logger,
		trigger:  make(chan struct{}, 1),
	}
	s.healthy.Store(true)
	return s
}

// ReportFailure marks the database unhealthy and wakes the probe loop.
// Errors that are not connection errors are ignored. Never blocks.
func (s *Supervisor) ReportFailure(err error) {
	if !IsConnectionError(err) {
		return
	}
	s.markDown(err)
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

// Ping checks the database on behalf of a caller and reports connection
// failures.
func (s *Supervisor) Ping(ctx context.Context) error {
	err := s.pinger.Ping(ctx)
	if err != nil {
		s.ReportFailure(err)
	}
	return err
}

func (s *Supervisor) markDown(err error) {
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	if s.healthy.Swap(false) {
		s.logger.Error("database connection lost", "err", err)
	}
}

func (s *Supervisor) Healthy() bool { return s.healthy.Load() }

// Ready fails while the database is considered down.
func (s *Supervisor) Ready(context.Context) error {
	if s.Healthy() {
		return nil
	}
	if err := s.LastError(); err != nil {
		return fmt.Errorf("database unavailable: %w", err)
	}
	return errors.New("database unavailable")
}

func (s *Supervisor) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

// Run blocks until ctx is done.
func (s *Supervisor) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.trigger:
			s.recover(ctx)
		case <-ticker.C:
			s.probe(ctx)
		}
	}
}

func (s *Supervisor) probe(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.interval)
	err := s.pinger.Ping(pctx)
	cancel()
	if err == nil || ctx.Err() != nil {
		return
	}
	s.markDown(err)
	s.recover(ctx)
}

func (s *Supervisor) recover(ctx context.Context) {
	attempt := 0
	for {
		attempt++
		pctx, cancel := context.WithTimeout(ctx, s.interval)
		err := s.pinger.Ping(pctx)
		cancel()
		if err == nil {
			s.mu.Lock()
			s.lastErr = nil
			s.mu.Unlock()
			s.healthy.Store(true)
			s.logger.Info("database reconnected", "attempts", attempt)
			return
		}
		s.mu.Lock()
		s.lastErr = err
		s.mu.Unlock()
		s.logger.Error("database reconnect failed", "attempt", attempt, "err", err)

		timer := time.NewTimer(s.interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
