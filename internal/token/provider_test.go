package token

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/garyellow/quizbot-go/internal/errors"
	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/storage"
)

var testNow = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func newTestProvider(t *testing.T, r Refresher, opts ...Option) (*Provider, *storage.DB) {
	t.Helper()
	db, err := storage.NewTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithSkew(time.Minute)}, opts...)
	return NewProvider(db, r, logger.NewWithWriter("error", io.Discard), opts...), db
}

func TestGet_ReturnsValidStoredToken(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestProvider(t, RefresherFunc(func(context.Context, *storage.StoredToken) (*Token, error) {
		calls.Add(1)
		return nil, errors.New("should not refresh")
	}))
	ctx := context.Background()
	require.NoError(t, p.Put(ctx, "notify:provider", &Token{AccessToken: "a1", ExpiresAt: testNow.Add(time.Hour)}))

	got, err := p.Get(ctx, "notify:provider")

	require.NoError(t, err)
	assert.Equal(t, "a1", got)
	assert.Zero(t, calls.Load())
}

func TestGet_RefreshesInsideSkewAndPersists(t *testing.T) {
	var seen *storage.StoredToken
	p, db := newTestProvider(t, RefresherFunc(func(_ context.Context, cur *storage.StoredToken) (*Token, error) {
		seen = cur
		return &Token{AccessToken: "a2", ExpiresAt: testNow.Add(2 * time.Hour)}, nil
	}))
	ctx := context.Background()
	require.NoError(t, p.Put(ctx, "oauth:7", &Token{AccessToken: "a1", RefreshToken: "r1", ExpiresAt: testNow.Add(30 * time.Second)}))

	got, err := p.Get(ctx, "oauth:7")

	require.NoError(t, err)
	assert.Equal(t, "a2", got)
	require.NotNil(t, seen)
	assert.Equal(t, "r1", seen.RefreshToken)

	stored, err := db.GetToken(ctx, "oauth:7")
	require.NoError(t, err)
	assert.Equal(t, "a2", stored.AccessToken)
	assert.Equal(t, "r1", stored.RefreshToken, "empty refresh token keeps the stored one")
	assert.True(t, stored.ExpiresAt.Equal(testNow.Add(2*time.Hour)))
}

func TestGet_BootstrapsMissingToken(t *testing.T) {
	p, _ := newTestProvider(t, RefresherFunc(func(_ context.Context, cur *storage.StoredToken) (*Token, error) {
		assert.Nil(t, cur)
		return &Token{AccessToken: "cc"}, nil
	}))

	got, err := p.Get(context.Background(), "notify:provider")

	require.NoError(t, err)
	assert.Equal(t, "cc", got)
}

func TestGet_RefreshFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p, _ := newTestProvider(t, RefresherFunc(func(context.Context, *storage.StoredToken) (*Token, error) {
		return nil, ErrNoRefreshToken
	}), WithMetrics(m))

	_, err := p.Get(context.Background(), "oauth:1")

	require.Error(t, err)
	assert.ErrorIs(t, err, domerrors.ErrTokenUnavailable)
	assert.ErrorIs(t, err, ErrNoRefreshToken)
	assert.InDelta(t, 1, testutil.ToFloat64(m.TokenRefreshTotal.WithLabelValues("error")), 0)
}

func TestGet_EmptyRefreshResult(t *testing.T) {
	p, _ := newTestProvider(t, RefresherFunc(func(context.Context, *storage.StoredToken) (*Token, error) {
		return &Token{}, nil
	}))

	_, err := p.Get(context.Background(), "k")
	assert.ErrorIs(t, err, domerrors.ErrTokenUnavailable)
}

func TestGet_ConcurrentRefreshIsCollapsed(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	p, _ := newTestProvider(t, RefresherFunc(func(context.Context, *storage.StoredToken) (*Token, error) {
		calls.Add(1)
		<-release
		return &Token{AccessToken: "shared", ExpiresAt: testNow.Add(time.Hour)}, nil
	}))

	const n = 8
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := range n {
		wg.Go(func() {
			tok, err := p.Get(context.Background(), "notify:provider")
			assert.NoError(t, err)
			results[i] = tok
		})
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, calls.Load(), int32(2))
	for _, r := range results {
		assert.Equal(t, "shared", r)
	}
}

func TestGet_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	p, _ := newTestProvider(t, RefresherFunc(func(context.Context, *storage.StoredToken) (*Token, error) {
		<-release
		return &Token{AccessToken: "late"}, nil
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := p.Get(ctx, "k")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestInvalidateForcesRefresh(t *testing.T) {
	var calls atomic.Int32
	p, _ := newTestProvider(t, RefresherFunc(func(context.Context, *storage.StoredToken) (*Token, error) {
		calls.Add(1)
		return &Token{AccessToken: "new", ExpiresAt: testNow.Add(time.Hour)}, nil
	}))
	ctx := context.Background()
	require.NoError(t, p.Put(ctx, "k", &Token{AccessToken: "old", ExpiresAt: testNow.Add(time.Hour)}))

	require.NoError(t, p.Invalidate(ctx, "k"))
	got, err := p.Get(ctx, "k")

	require.NoError(t, err)
	assert.Equal(t, "new", got)
	assert.Equal(t, int32(1), calls.Load())
	assert.NoError(t, p.Invalidate(ctx, "missing"))
}
