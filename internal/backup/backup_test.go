package backup

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/r2client"
	"github.com/garyellow/quizbot-go/internal/r2client/r2test"
	"github.com/garyellow/quizbot-go/internal/storage"
)

const (
	snapshotKey = "snapshots/quiz.db.zst"
	lockKey     = "locks/backup.json"
)

func newTestManager(t *testing.T, store *r2test.Store, m *metrics.Metrics) *Manager {
	t.Helper()
	lock := r2client.NewLock(store, lockKey, time.Minute, "test")
	mgr, err := NewManager(store, lock, Config{
		SnapshotKey: snapshotKey,
		Interval:    time.Hour,
		TempDir:     t.TempDir(),
	}, logger.NewWithWriter("error", io.Discard), m)
	require.NoError(t, err)
	return mgr
}

func newFileDB(t *testing.T, path string) *storage.DB {
	t.Helper()
	db, err := storage.New(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestBackupRestoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	m := metrics.New(prometheus.NewRegistry())
	mgr := newTestManager(t, store, m)

	src := newFileDB(t, filepath.Join(t.TempDir(), "quiz.db"))
	q := &storage.Question{Category: "맞춤법", Text: "올바른 표기는?", Options: []string{"되요", "돼요"}, CorrectIndex: 1}
	require.NoError(t, src.CreateQuestion(ctx, q))

	res, err := mgr.Backup(ctx, src)
	require.NoError(t, err)
	assert.NotEmpty(t, res.ETag)
	assert.Positive(t, res.SizeBytes)
	assert.True(t, store.Has(snapshotKey))
	assert.False(t, store.Has(lockKey), "lease is released after upload")
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobDurationSeconds))

	st, _, err := mgr.state.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, res.ETag, st.SnapshotETag)
	assert.Equal(t, res.SizeBytes, st.SizeBytes)

	dst := filepath.Join(t.TempDir(), "data", "quiz.db")
	restored, err := mgr.Restore(ctx, dst)
	require.NoError(t, err)
	require.True(t, restored)

	got, err := newFileDB(t, dst).GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Equal(t, "올바른 표기는?", got.Text)
	assert.Equal(t, []string{"되요", "돼요"}, got.Options)
}

func TestBackupLocked(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	mgr := newTestManager(t, store, nil)

	other := r2client.NewLock(store, lockKey, time.Hour, "other")
	ok, err := other.Acquire(ctx)
	require.NoError(t, err)
	require.True(t, ok)

	db := newFileDB(t, filepath.Join(t.TempDir(), "quiz.db"))
	_, err = mgr.Backup(ctx, db)

	assert.ErrorIs(t, err, ErrLocked)
	assert.False(t, store.Has(snapshotKey))
	assert.True(t, other.Held())
}

type failingSnapshotter struct{}

func (failingSnapshotter) Snapshot(context.Context, string) error {
	return errors.New("disk full")
}

func TestBackupSnapshotFailureReleasesLease(t *testing.T) {
	store := r2test.NewStore()
	mgr := newTestManager(t, store, nil)

	_, err := mgr.Backup(context.Background(), failingSnapshotter{})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.False(t, store.Has(lockKey))
}

func TestDue(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	mgr := newTestManager(t, store, nil)
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	mgr.now = func() time.Time { return now }

	due, err := mgr.Due(ctx)
	require.NoError(t, err)
	assert.True(t, due, "never backed up")

	require.NoError(t, mgr.state.Update(ctx, func(st *State) { st.LastBackupAt = now.Unix() }))

	due, err = mgr.Due(ctx)
	require.NoError(t, err)
	assert.False(t, due)

	now = now.Add(time.Hour)
	due, err = mgr.Due(ctx)
	require.NoError(t, err)
	assert.True(t, due)
}

func TestRestoreNoop(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	mgr := newTestManager(t, store, nil)

	t.Run("missing snapshot", func(t *testing.T) {
		restored, err := mgr.Restore(ctx, filepath.Join(t.TempDir(), "quiz.db"))
		require.NoError(t, err)
		assert.False(t, restored)
	})

	t.Run("existing database", func(t *testing.T) {
		_, err := store.Put(ctx, snapshotKey, strings.NewReader("ignored"), "application/zstd")
		require.NoError(t, err)
		path := filepath.Join(t.TempDir(), "quiz.db")
		require.NoError(t, os.WriteFile(path, []byte("local"), 0o600))

		restored, err := mgr.Restore(ctx, path)
		require.NoError(t, err)
		assert.False(t, restored)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Equal(t, "local", string(data))
	})
}

func TestRestoreCorruptSnapshot(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	mgr := newTestManager(t, store, nil)
	_, err := store.Put(ctx, snapshotKey, strings.NewReader("not zstd"), "application/zstd")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "quiz.db")
	_, err = mgr.Restore(ctx, path)

	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.ErrorIs(t, statErr, os.ErrNotExist)
}

func TestStateStoreUpdate(t *testing.T) {
	ctx := context.Background()
	store := r2test.NewStore()
	s, err := NewStateStore(store, DefaultStateKey)
	require.NoError(t, err)
	s.now = func() time.Time { return time.Unix(100, 0) }

	require.NoError(t, s.Update(ctx, func(st *State) { st.SizeBytes = 1 }))
	require.NoError(t, s.Update(ctx, func(st *State) { st.SizeBytes += 10 }))

	st, etag, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(11), st.SizeBytes)
	assert.Equal(t, int64(100), st.UpdatedAt)
	assert.NotEmpty(t, etag)
}

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(r2test.NewStore(), nil, Config{}, logger.NewWithWriter("error", io.Discard), nil)
	assert.Error(t, err)
}
