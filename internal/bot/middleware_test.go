package bot

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
)

func okHandler(_ context.Context, _ *Request, _ intent.Result) (reply.Response, error) {
	return reply.Text("ok"), nil
}

func TestLoggingMiddleware(t *testing.T) {
	log := logger.NewWithWriter("debug", io.Discard)

	called := false
	next := func(ctx context.Context, req *Request, res intent.Result) (reply.Response, error) {
		called = true
		return okHandler(ctx, req, res)
	}

	resp, err := LoggingMiddleware(log)("test", next)(context.Background(), &Request{}, intent.Result{Command: intent.CmdHelp})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !called {
		t.Error("Expected next to be called")
	}
	if resp.IsEmpty() {
		t.Error("Expected outputs from handler")
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	mw := MetricsMiddleware(m)

	_, _ = mw("test", okHandler)(context.Background(), &Request{}, intent.Result{Command: intent.CmdToday})
	failing := func(context.Context, *Request, intent.Result) (reply.Response, error) {
		return reply.Response{}, errors.New("db down")
	}
	_, _ = mw("test", failing)(context.Background(), &Request{}, intent.Result{Command: intent.CmdToday})

	if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("today", "success")); got != 1 {
		t.Errorf("success count = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.CommandsTotal.WithLabelValues("today", "error")); got != 1 {
		t.Errorf("error count = %v, want 1", got)
	}
}

func TestRecoveryMiddleware(t *testing.T) {
	log := logger.NewWithWriter("error", io.Discard)
	panicking := func(context.Context, *Request, intent.Result) (reply.Response, error) {
		panic("test panic")
	}

	_, err := RecoveryMiddleware(log)("test", panicking)(context.Background(), &Request{}, intent.Result{Command: intent.CmdStats})

	var pe *PanicError
	if !errors.As(err, &pe) {
		t.Fatalf("expected *PanicError, got %v", err)
	}
	if pe.Value != "test panic" {
		t.Errorf("panic value = %v", pe.Value)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(_ string, next HandlerFunc) HandlerFunc {
			return func(ctx context.Context, req *Request, res intent.Result) (reply.Response, error) {
				order = append(order, name)
				return next(ctx, req, res)
			}
		}
	}

	h := Chain(okHandler, "test", mark("outer"), mark("inner"))
	_, _ = h(context.Background(), &Request{}, intent.Result{})

	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("order = %v, want [outer inner]", order)
	}
}
