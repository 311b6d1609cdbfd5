package r2client_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/r2client"
	"github.com/garyellow/quizbot-go/internal/r2client/r2test"
)

const lockKey = "locks/backup.json"

func TestLock_ExclusiveUntilReleased(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	a := r2client.NewLock(store, lockKey, time.Hour, "host-a")
	b := r2client.NewLock(store, lockKey, time.Hour, "host-b")

	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, a.Held())

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "second owner must not acquire a live lease")

	require.NoError(t, a.Release(ctx))
	assert.False(t, a.Held())

	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLock_TakesOverExpiredLease(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	a := r2client.NewLock(store, lockKey, time.Minute, "host-a", r2client.WithLockClock(func() time.Time { return now }))
	ok, err := a.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	b := r2client.NewLock(store, lockKey, time.Minute, "host-b",
		r2client.WithLockClock(func() time.Time { return now.Add(2 * time.Minute) }))
	ok, err = b.Acquire(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	renewed, err := a.Renew(ctx)
	require.NoError(t, err)
	assert.False(t, renewed, "the old owner lost the lease")
	assert.False(t, a.Held())

	// releasing a lost lease leaves the new owner's object alone
	require.NoError(t, a.Release(ctx))
	assert.True(t, store.Has(lockKey))
}

func TestLock_Renew(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	l := r2client.NewLock(store, lockKey, time.Minute, "host")

	renewed, err := l.Renew(ctx)
	require.NoError(t, err)
	assert.False(t, renewed, "renew without acquire")

	_, err = l.Acquire(ctx)
	require.NoError(t, err)
	renewed, err = l.Renew(ctx)
	require.NoError(t, err)
	assert.True(t, renewed)
}

func TestLock_CorruptRecordIsTakenOver(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	_, err := store.Put(ctx, lockKey, strings.NewReader("not json"), "")
	require.NoError(t, err)

	ok, err := r2client.NewLock(store, lockKey, time.Minute, "host").Acquire(ctx)

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestConfigEndpoint(t *testing.T) {
	assert.Equal(t, "https://abc.r2.cloudflarestorage.com", r2client.Config{AccountID: "abc"}.EndpointURL())
	assert.Equal(t, "http://localhost:9000", r2client.Config{AccountID: "abc", Endpoint: "http://localhost:9000"}.EndpointURL())

	_, err := r2client.New(context.Background(), r2client.Config{})
	assert.Error(t, err)
}
