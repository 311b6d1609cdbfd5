// Package token provides access tokens for outbound APIs.
//
// The database is the source of truth: every instance reads the persisted
// token, refreshes it when it is within the skew window of expiry, and writes
// the result back. Concurrent refreshes for one key inside a process are
// collapsed with singleflight.
package token

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/garyellow/quizbot-go/internal/config"
	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/storage"
)

// refreshTimeout bounds one refresh call, independent of the caller's deadline.
const refreshTimeout = 15 * time.Second

// Token is a freshly issued credential.
type Token struct {
	AccessToken  string
	RefreshToken string // empty keeps the stored refresh token
	ExpiresAt    time.Time
}

// Refresher obtains a new token. current is nil when nothing is stored yet;
// refreshers that need a refresh token should return ErrNoRefreshToken.
type Refresher interface {
	Refresh(ctx context.Context, current *storage.StoredToken) (*Token, error)
}

// RefresherFunc adapts a function to Refresher.
type RefresherFunc func(ctx context.Context, current *storage.StoredToken) (*Token, error)

// Refresh calls f.
func (f RefresherFunc) Refresh(ctx context.Context, current *storage.StoredToken) (*Token, error) {
	return f(ctx, current)
}

// ErrNoRefreshToken is returned by refreshers that cannot bootstrap a token.
var ErrNoRefreshToken = errors.New("no refresh token")

// Store persists tokens.
type Store interface {
	GetToken(ctx context.Context, key string) (*storage.StoredToken, error)
	SaveToken(ctx context.Context, t *storage.StoredToken) error
	DeleteToken(ctx context.Context, key string) error
}

// Provider hands out valid access tokens.
type Provider struct {
	store     Store
	refresher Refresher
	skew      time.Duration
	now       func() time.Time
	group     singleflight.Group
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

// Option configures a Provider.
type Option func(*Provider)

// WithSkew overrides config.TokenRefreshSkew.
func WithSkew(d time.Duration) Option {
	return func(p *Provider) { p.skew = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) { p.now = now }
}

// WithMetrics records refresh outcomes.
func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// NewProvider creates a provider.
func NewProvider(store Store, refresher Refresher, log *logger.Logger, opts ...Option) *Provider {
	p := &Provider{
		store:     store,
		refresher: refresher,
		skew:      config.TokenRefreshSkew,
		now:       time.Now,
		logger:    log.WithModule("token"),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Get returns a usable access token for key, refreshing it if needed.
// Failures wrap domerrors.ErrTokenUnavailable.
func (p *Provider) Get(ctx context.Context, key string) (string, error) {
	stored, err := p.load(ctx, key)
	if err != nil {
		return "", err
	}
	if stored != nil && p.valid(stored) {
		return stored.AccessToken, nil
	}

	ch := p.group.DoChan(key, func() (any, error) {
		// the caller's cancellation must not fail other waiters
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return p.refresh(rctx, key)
	})

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Put stores a token obtained outside the provider, such as an OAuth
// code exchange.
func (p *Provider) Put(ctx context.Context, key string, t *Token) error {
	return p.store.SaveToken(ctx, &storage.StoredToken{
		Key:          key,
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt,
		UpdatedAt:    p.now(),
	})
}

// Invalidate forgets the access token for key so the next Get refreshes.
// Callers use it after the upstream API rejected the token.
func (p *Provider) Invalidate(ctx context.Context, key string) error {
	stored, err := p.load(ctx, key)
	if err != nil || stored == nil {
		return err
	}
	stored.ExpiresAt = p.now().Add(-time.Second)
	stored.UpdatedAt = p.now()
	return p.store.SaveToken(ctx, stored)
}

func (p *Provider) load(ctx context.Context, key string) (*storage.StoredToken, error) {
	stored, err := p.store.GetToken(ctx, key)
	if domerrors.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load token %q: %w", key, err)
	}
	return stored, nil
}

func (p *Provider) valid(t *storage.StoredToken) bool {
	if t.AccessToken == "" {
		return false
	}
	if t.ExpiresAt.IsZero() {
		return true
	}
	return p.now().Add(p.skew).Before(t.ExpiresAt)
}

func (p *Provider) refresh(ctx context.Context, key string) (string, error) {
	// another instance may have refreshed while we waited
	stored, err := p.load(ctx, key)
	if err != nil {
		return "", err
	}
	if stored != nil && p.valid(stored) {
		return stored.AccessToken, nil
	}

	log := p.logger.WithField("token_key", key)
	fresh, err := p.refresher.Refresh(ctx, stored)
	if err != nil {
		p.record("error")
		log.WithError(err).WarnContext(ctx, "Token refresh failed")
		return "", fmt.Errorf("%w: refresh %q: %w", domerrors.ErrTokenUnavailable, key, err)
	}
	if fresh == nil || fresh.AccessToken == "" {
		p.record("error")
		return "", fmt.Errorf("%w: refresh %q returned empty token", domerrors.ErrTokenUnavailable, key)
	}

	if err := p.Put(ctx, key, fresh); err != nil {
		// the fresh token is still usable for this call
		log.WithError(err).ErrorContext(ctx, "Failed to persist refreshed token")
	}
	p.record("success")
	log.WithField("expires_at", fresh.ExpiresAt).DebugContext(ctx, "Token refreshed")
	return fresh.AccessToken, nil
}

func (p *Provider) record(status string) {
	if p.metrics != nil {
		p.metrics.RecordTokenRefresh(status)
	}
}
