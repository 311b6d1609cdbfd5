package logger

import (
	"context"
	"log/slog"

	"github.com/garyellow/quizbot-go/internal/ctxutil"
)

// contextAttrs lists the chat tracing values copied from a context onto
// every record logged with it.
var contextAttrs = []func(context.Context) (slog.Attr, bool){
	func(ctx context.Context) (slog.Attr, bool) {
		p := ctxutil.GetPlatform(ctx)
		return slog.String("platform", p), p != ""
	},
	func(ctx context.Context) (slog.Attr, bool) {
		u := ctxutil.GetUserID(ctx)
		return slog.String("user_id", u), u != ""
	},
	func(ctx context.Context) (slog.Attr, bool) {
		id, ok := ctxutil.GetAccountID(ctx)
		return slog.Int64("account_id", id), ok
	},
	func(ctx context.Context) (slog.Attr, bool) {
		id, ok := ctxutil.GetRequestID(ctx)
		return slog.String("request_id", id), ok && id != ""
	},
}

// tracingHandler decorates records with the values in contextAttrs.
type tracingHandler struct {
	next slog.Handler
}

func (h tracingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h tracingHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, attr := range contextAttrs {
		if a, ok := attr(ctx); ok {
			r.AddAttrs(a)
		}
	}
	return h.next.Handle(ctx, r)
}

func (h tracingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return tracingHandler{next: h.next.WithAttrs(attrs)}
}

func (h tracingHandler) WithGroup(name string) slog.Handler {
	return tracingHandler{next: h.next.WithGroup(name)}
}
