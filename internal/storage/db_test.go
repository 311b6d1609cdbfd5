package storage

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIdentitySurvivesReopen(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "quiz.db")

	db, err := New(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, path, db.Path())
	created, _, err := db.EnsureIdentity(ctx, PlatformKakao, "persisted")
	require.NoError(t, err)
	require.NoError(t, db.Close())

	reopened, err := New(ctx, path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })

	got, err := reopened.GetIdentity(ctx, PlatformKakao, "persisted")
	require.NoError(t, err)
	assert.Equal(t, created.AccountID, got.AccountID)
	assert.NoError(t, reopened.Ping(ctx))
}

func TestWithTxRollsBackOnError(t *testing.T) {
	t.Parallel()
	db := setupTestDB(t)
	ctx := context.Background()
	boom := errors.New("grading failed")

	err := db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO accounts (is_temporary, created_at, updated_at) VALUES (1, 0, 0)`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	permanent, temporary, err := db.CountAccounts(ctx)
	require.NoError(t, err)
	assert.Zero(t, permanent+temporary)
}

func TestSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	dir := t.TempDir()

	db, err := New(ctx, filepath.Join(dir, "quiz.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	_, _, err = db.EnsureIdentity(ctx, PlatformLINE, "U1")
	require.NoError(t, err)

	dst := filepath.Join(dir, "snapshot.db")
	require.NoError(t, db.Snapshot(ctx, dst))
	// a second snapshot replaces the first
	require.NoError(t, db.Snapshot(ctx, dst))

	snap, err := New(ctx, dst)
	require.NoError(t, err)
	t.Cleanup(func() { _ = snap.Close() })
	_, err = snap.GetIdentity(ctx, PlatformLINE, "U1")
	assert.NoError(t, err)

	assert.Error(t, setupTestDB(t).Snapshot(ctx, filepath.Join(dir, "mem.db")))
}
