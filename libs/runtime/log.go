package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"
)

func NewLogger(service string) *slog.Logger {
	return newLogger(os.Stdout, nil, service)
}

// NewLoggerWithErrorFile logs JSON to stdout and additionally appends every
// record at ERROR or above to path as "[RFC3339 timestamp] message attrs".
// The returned closer flushes and closes the file.
func NewLoggerWithErrorFile(service, path string) (*slog.Logger, io.Closer, error) {
	if path == "" {
		return NewLogger(service), io.NopCloser(nil), nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open error log: %w", err)
	}
	return newLogger(os.Stdout, f, service), f, nil
}

func newLogger(stdout io.Writer, errFile io.Writer, service string) *slog.Logger {
	var h slog.Handler = slog.NewJSONHandler(stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	if errFile != nil {
		h = &teeHandler{primary: h, errors: &errorFileHandler{mu: &sync.Mutex{}, w: errFile}}
	}
	return slog.New(h).With("service", service)
}

type teeHandler struct {
	primary slog.Handler
	errors  slog.Handler
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return t.primary.Enabled(ctx, level)
}

func (t *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	err := t.primary.Handle(ctx, r)
	if r.Level >= slog.LevelError {
		err = errors.Join(err, t.errors.Handle(ctx, r.Clone()))
	}
	return err
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{primary: t.primary.WithAttrs(attrs), errors: t.errors.WithAttrs(attrs)}
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{primary: t.primary.WithGroup(name), errors: t.errors.WithGroup(name)}
}

// errorFileHandler writes one plain text line per record. Groups are flattened.
type errorFileHandler struct {
	mu    *sync.Mutex
	w     io.Writer
	attrs []slog.Attr
}

func (h *errorFileHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *errorFileHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	line := fmt.Sprintf("[%s] %s", ts.UTC().Format(time.RFC3339Nano), r.Message)
	for _, a := range h.attrs {
		line += " " + a.String()
	}
	r.Attrs(func(a slog.Attr) bool {
		line += " " + a.String()
		return true
	})
	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, line+"\n")
	return err
}

func (h *errorFileHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	next = append(next, h.attrs...)
	next = append(next, attrs...)
	return &errorFileHandler{mu: h.mu, w: h.w, attrs: next}
}

func (h *errorFileHandler) WithGroup(string) slog.Handler { return h }
