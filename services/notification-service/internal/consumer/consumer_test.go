package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"

	"github.com/dentbook/clinic/libs/kafkax"
)

type scriptedReader struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	errs   []error
	closed bool
}

func (r *scriptedReader) ReadMessage(ctx context.Context) (kafka.Message, error) {
	r.mu.Lock()
	if len(r.errs) > 0 {
		err := r.errs[0]
		r.errs = r.errs[1:]
		r.mu.Unlock()
		return kafka.Message{}, err
	}
	if len(r.msgs) > 0 {
		m := r.msgs[0]
		r.msgs = r.msgs[1:]
		r.mu.Unlock()
		return m, nil
	}
	r.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (r *scriptedReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type memInbox struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (m *memInbox) RecordEvent(_ context.Context, id, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[id] {
		return false, nil
	}
	m.seen[id] = true
	return true, nil
}

func message(id string) kafka.Message {
	return kafkax.NewMessage(context.Background(), "k", kafkax.EventMeta{EventID: id, EventType: "t"}, []byte("{}"))
}

func TestRunDedupesAndSurvivesErrors(t *testing.T) {
	reader := &scriptedReader{
		errs: []error{errors.New("broker gone")},
		msgs: []kafka.Message{message("a"), message("a"), message("b"), message("c")},
	}
	var (
		mu      sync.Mutex
		handled []string
	)
	done := make(chan struct{})
	handler := func(_ context.Context, meta kafkax.EventMeta, _ kafka.Message) error {
		mu.Lock()
		defer mu.Unlock()
		handled = append(handled, meta.EventID)
		if meta.EventID == "c" {
			close(done)
		}
		if meta.EventID == "b" {
			return errors.New("provider down")
		}
		return nil
	}

	c := newConsumer(reader, slog.New(slog.NewTextHandler(io.Discard, nil)), &memInbox{seen: map[string]bool{}}, handler)
	c.retryDelay = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(stopped)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not process all messages")
	}
	cancel()
	<-stopped

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, handled)
	assert.True(t, reader.closed)
}
