// Package ctxutil carries per-turn chat values (platform, channel user,
// account, request ID) through a context.
package ctxutil

import (
	"context"
)

type key int

const (
	userIDKey key = iota
	platformKey
	accountIDKey
	requestIDKey
)

func value[T comparable](ctx context.Context, k key) (T, bool) {
	var zero T
	v, ok := ctx.Value(k).(T)
	if !ok || v == zero {
		return zero, false
	}
	return v, true
}

// WithUserID stores the platform-scoped channel user (Kakao bot user key,
// LINE user ID). Rate limits and logs key on it.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// GetUserID returns the channel user, or "" when unset.
func GetUserID(ctx context.Context) string {
	v, _ := value[string](ctx, userIDKey)
	return v
}

// WithPlatform stores the chat platform name ("kakao", "line").
func WithPlatform(ctx context.Context, platform string) context.Context {
	return context.WithValue(ctx, platformKey, platform)
}

// GetPlatform returns the chat platform, or "" when unset.
func GetPlatform(ctx context.Context) string {
	v, _ := value[string](ctx, platformKey)
	return v
}

// WithAccountID stores the account the channel user resolved to.
func WithAccountID(ctx context.Context, accountID int64) context.Context {
	return context.WithValue(ctx, accountIDKey, accountID)
}

// GetAccountID reports false until an account has been resolved.
func GetAccountID(ctx context.Context) (int64, bool) {
	return value[int64](ctx, accountIDKey)
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func GetRequestID(ctx context.Context) (string, bool) {
	return value[string](ctx, requestIDKey)
}

// PreserveTracing detaches ctx from its parent's cancellation and deadline
// while keeping its values. LINE events are handled after the webhook
// response has been written.
func PreserveTracing(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}
