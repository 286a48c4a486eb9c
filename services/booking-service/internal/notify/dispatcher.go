package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sink delivers a single notification. Implementations make one attempt.
type Sink interface {
	SendEmail(ctx context.Context, to, subject, body string) error
	SendSMS(ctx context.Context, to, body string) error
}

type DispatcherConfig struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration
}

// Dispatcher delivers messages on background workers so callers never wait
// on a provider. Delivery failures are logged and dropped.
type Dispatcher struct {
	sink    Sink
	logger  *slog.Logger
	timeout time.Duration

	queue chan Message
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

func NewDispatcher(sink Sink, logger *slog.Logger, cfg DispatcherConfig) *Dispatcher {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	d := &Dispatcher{
		sink:    sink,
		logger:  logger,
		timeout: cfg.Timeout,
		queue:   make(chan Message, cfg.QueueSize),
	}
	d.wg.Add(cfg.Workers)
	for i := 0; i < cfg.Workers; i++ {
		go d.work()
	}
	return d
}

// Enqueue never blocks. When the queue is full or the dispatcher is closed
// the message is dropped and logged.
func (d *Dispatcher) Enqueue(msgs ...Message) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, m := range msgs {
		if d.closed {
			d.logger.Error("notification dropped", "channel", m.Channel, "reason", "dispatcher closed")
			continue
		}
		select {
		case d.queue <- m:
		default:
			d.logger.Error("notification dropped", "channel", m.Channel, "reason", "queue full")
		}
	}
}

// Close stops intake and waits for queued messages to be delivered or ctx
// to expire.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for m := range d.queue {
		d.deliver(m)
	}
}

func (d *Dispatcher) deliver(m Message) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()

	start := time.Now()
	err := d.send(ctx, m)
	if err != nil {
		d.logger.Error("notification delivery failed", "channel", m.Channel, "recipient", m.To, "err", err)
		return
	}
	d.logger.Info("notification sent", "channel", m.Channel, "recipient", m.To, "duration_ms", time.Since(start).Milliseconds())
}

func (d *Dispatcher) send(ctx context.Context, m Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sink panic: %v", r)
		}
	}()
	switch m.Channel {
	case ChannelEmail:
		return d.sink.SendEmail(ctx, m.To, m.Subject, m.Body)
	case ChannelSMS:
		return d.sink.SendSMS(ctx, m.To, m.Body)
	default:
		return fmt.Errorf("unsupported channel %q", m.Channel)
	}
}
