package logger

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

const (
	defaultQueueSize    = 1024
	defaultFlushTimeout = 5 * time.Second
)

type shippedRecord struct {
	ctx    context.Context
	record slog.Record
	next   slog.Handler
}

// shipper hands records to a remote handler from one goroutine. When the
// queue is full the record is counted as dropped instead of blocking the
// caller.
type shipper struct {
	mu      sync.RWMutex
	stopped bool
	queue   chan shippedRecord
	done    chan struct{}
	flush   time.Duration
	dropped atomic.Uint64
}

func startShipper(queueSize int, flush time.Duration) *shipper {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	if flush <= 0 {
		flush = defaultFlushTimeout
	}
	s := &shipper{
		queue: make(chan shippedRecord, queueSize),
		done:  make(chan struct{}),
		flush: flush,
	}
	go s.loop()
	return s
}

func (s *shipper) loop() {
	defer close(s.done)
	for rec := range s.queue {
		_ = rec.next.Handle(rec.ctx, rec.record)
	}
}

func (s *shipper) offer(rec shippedRecord) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.stopped {
		return
	}
	select {
	case s.queue <- rec:
	default:
		s.dropped.Add(1)
	}
}

// stop closes the queue and waits for it to drain. Without a deadline on
// ctx the wait is bounded by the flush timeout.
func (s *shipper) stop(ctx context.Context) error {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return nil
	}
	s.stopped = true
	close(s.queue)
	s.mu.Unlock()

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.flush)
		defer cancel()
	}
	select {
	case <-s.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// remoteHandler is the slog.Handler side of a shipper. Derived handlers
// share the queue.
type remoteHandler struct {
	next slog.Handler
	s    *shipper
}

func (h *remoteHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *remoteHandler) Handle(ctx context.Context, r slog.Record) error {
	// the caller's context may be canceled before the record is shipped
	h.s.offer(shippedRecord{ctx: context.WithoutCancel(ctx), record: r.Clone(), next: h.next})
	return nil
}

func (h *remoteHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &remoteHandler{next: h.next.WithAttrs(attrs), s: h.s}
}

func (h *remoteHandler) WithGroup(name string) slog.Handler {
	return &remoteHandler{next: h.next.WithGroup(name), s: h.s}
}
