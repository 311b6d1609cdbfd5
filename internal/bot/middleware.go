package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/garyellow/quizbot-go/internal/intent"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/reply"
)

// HandlerFunc is a dispatched command invocation.
type HandlerFunc func(ctx context.Context, req *Request, res intent.Result) (reply.Response, error)

// Middleware wraps a HandlerFunc. module is the owning module's name.
type Middleware func(module string, next HandlerFunc) HandlerFunc

// Chain applies middlewares so that the first one is outermost.
func Chain(h HandlerFunc, module string, mws ...Middleware) HandlerFunc {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](module, h)
	}
	return h
}

// PanicError is returned by RecoveryMiddleware when a handler panicked.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("handler panic: %v", e.Value)
}

// LoggingMiddleware logs handler execution with timing.
func LoggingMiddleware(log *logger.Logger) Middleware {
	return func(module string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request, res intent.Result) (reply.Response, error) {
			start := time.Now()

			log.WithField("module", module).
				WithField("command", string(res.Command)).
				DebugContext(ctx, "Handler started")

			resp, err := next(ctx, req, res)

			entry := log.WithField("module", module).
				WithField("command", string(res.Command)).
				WithField("duration_ms", time.Since(start).Milliseconds()).
				WithField("outputs", len(resp.Outputs))
			if err != nil {
				entry.WithError(err).ErrorContext(ctx, "Handler failed")
			} else {
				entry.DebugContext(ctx, "Handler completed")
			}
			return resp, err
		}
	}
}

// MetricsMiddleware records command outcome and duration.
func MetricsMiddleware(m *metrics.Metrics) Middleware {
	return func(_ string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request, res intent.Result) (reply.Response, error) {
			start := time.Now()
			resp, err := next(ctx, req, res)

			if m != nil {
				status := "success"
				if err != nil {
					status = "error"
				}
				m.RecordCommand(string(res.Command), status, time.Since(start).Seconds())
			}
			return resp, err
		}
	}
}

// RecoveryMiddleware converts handler panics into *PanicError.
func RecoveryMiddleware(log *logger.Logger) Middleware {
	return func(module string, next HandlerFunc) HandlerFunc {
		return func(ctx context.Context, req *Request, res intent.Result) (resp reply.Response, err error) {
			defer func() {
				if r := recover(); r != nil {
					stack := debug.Stack()
					log.WithField("module", module).
						WithField("command", string(res.Command)).
						WithField("panic", r).
						WithField("stack", string(stack)).
						ErrorContext(ctx, "Handler panicked")
					resp, err = reply.Response{}, &PanicError{Value: r, Stack: stack}
				}
			}()
			return next(ctx, req, res)
		}
	}
}
