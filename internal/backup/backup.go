// Package backup ships compressed SQLite snapshots to object storage and
// restores the latest one when an instance starts without a database.
//
// Only one instance uploads at a time: a backup runs under an r2client.Lock
// lease and records its completion in a shared State object.
package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/garyellow/quizbot-go/internal/logger"
	"github.com/garyellow/quizbot-go/internal/metrics"
	"github.com/garyellow/quizbot-go/internal/r2client"
)

// ErrLocked means another instance holds the backup lease.
var ErrLocked = errors.New("backup: lease held by another instance")

// DefaultStateKey is where State is stored when Config.StateKey is empty.
const DefaultStateKey = "state/backup.json"

// Snapshotter writes a consistent copy of the database to a file.
type Snapshotter interface {
	Snapshot(ctx context.Context, dst string) error
}

// Config configures a Manager.
type Config struct {
	SnapshotKey string
	StateKey    string
	Interval    time.Duration
	TempDir     string
}

// Result describes an uploaded snapshot.
type Result struct {
	ETag      string        `json:"etag"`
	SizeBytes int64         `json:"size_bytes"`
	Duration  time.Duration `json:"duration"`
}

// Manager runs backups and restores.
type Manager struct {
	store   r2client.ObjectStore
	lock    *r2client.Lock
	state   *StateStore
	cfg     Config
	logger  *logger.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewManager creates a manager. m may be nil.
func NewManager(store r2client.ObjectStore, lock *r2client.Lock, cfg Config, log *logger.Logger, m *metrics.Metrics) (*Manager, error) {
	if cfg.SnapshotKey == "" {
		return nil, errors.New("backup: snapshot key is required")
	}
	if cfg.StateKey == "" {
		cfg.StateKey = DefaultStateKey
	}
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 6 * time.Hour
	}
	state, err := NewStateStore(store, cfg.StateKey)
	if err != nil {
		return nil, err
	}
	return &Manager{
		store:   store,
		lock:    lock,
		state:   state,
		cfg:     cfg,
		logger:  log.WithModule("backup"),
		metrics: m,
		now:     time.Now,
	}, nil
}

// Restore downloads the latest snapshot into dbPath when no local database
// exists. It reports whether a snapshot was restored.
func (m *Manager) Restore(ctx context.Context, dbPath string) (bool, error) {
	if _, err := os.Stat(dbPath); err == nil {
		return false, nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("backup: stat database: %w", err)
	}

	obj, err := m.store.Get(ctx, m.cfg.SnapshotKey)
	if errors.Is(err, r2client.ErrNotFound) {
		m.logger.InfoContext(ctx, "No snapshot to restore; starting with an empty database")
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("backup: download snapshot: %w", err)
	}
	defer func() { _ = obj.Body.Close() }()

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return false, fmt.Errorf("backup: create data dir: %w", err)
	}
	if err := extractTo(obj.Body, dbPath); err != nil {
		return false, fmt.Errorf("backup: restore snapshot: %w", err)
	}

	m.logger.WithField("etag", obj.ETag).
		WithField("compressed_bytes", obj.Size).
		InfoContext(ctx, "Database restored from snapshot")
	return true, nil
}

// Due reports whether the last recorded backup is older than the interval.
func (m *Manager) Due(ctx context.Context) (bool, error) {
	st, _, err := m.state.Load(ctx)
	if err != nil {
		return false, err
	}
	last := time.Unix(st.LastBackupAt, 0)
	return st.LastBackupAt == 0 || m.now().Sub(last) >= m.cfg.Interval, nil
}

// Backup snapshots db and uploads it. It returns ErrLocked when another
// instance is already backing up.
func (m *Manager) Backup(ctx context.Context, db Snapshotter) (*Result, error) {
	start := time.Now()
	res, err := m.backup(ctx, db)
	status := "success"
	switch {
	case errors.Is(err, ErrLocked):
		status = "skipped"
	case err != nil:
		status = "error"
	}
	if m.metrics != nil {
		m.metrics.RecordJob("backup", status, time.Since(start).Seconds())
	}
	return res, err
}

func (m *Manager) backup(ctx context.Context, db Snapshotter) (*Result, error) {
	start := time.Now()

	acquired, err := m.lock.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	if !acquired {
		return nil, ErrLocked
	}
	defer func() {
		relCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
		defer cancel()
		if err := m.lock.Release(relCtx); err != nil {
			m.logger.WithError(err).WarnContext(ctx, "Failed to release backup lease")
		}
	}()

	dir, err := os.MkdirTemp(m.cfg.TempDir, "quizbot-backup-*")
	if err != nil {
		return nil, fmt.Errorf("backup: temp dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(dir) }()

	snapshot := filepath.Join(dir, "quiz.db")
	if err := db.Snapshot(ctx, snapshot); err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}
	archive := snapshot + ".zst"
	size, err := compressFile(snapshot, archive)
	if err != nil {
		return nil, fmt.Errorf("backup: %w", err)
	}

	f, err := os.Open(archive)
	if err != nil {
		return nil, fmt.Errorf("backup: open archive: %w", err)
	}
	defer func() { _ = f.Close() }()

	etag, err := m.store.Put(ctx, m.cfg.SnapshotKey, f, "application/zstd")
	if err != nil {
		return nil, fmt.Errorf("backup: upload: %w", err)
	}

	if err := m.state.Update(ctx, func(st *State) {
		st.LastBackupAt = m.now().Unix()
		st.SnapshotETag = etag
		st.SizeBytes = size
	}); err != nil {
		// the snapshot is uploaded; a stale state only makes the next run early
		m.logger.WithError(err).WarnContext(ctx, "Failed to record backup state")
	}

	res := &Result{ETag: etag, SizeBytes: size, Duration: time.Since(start)}
	m.logger.WithField("etag", etag).
		WithField("size_bytes", size).
		WithField("duration_ms", res.Duration.Milliseconds()).
		InfoContext(ctx, "Backup uploaded")
	return res, nil
}

// Run checks periodically and backs up whenever one is due. It returns when
// ctx is canceled.
func (m *Manager) Run(ctx context.Context, db Snapshotter) {
	m.logger.Debug("Backup job started")
	defer m.logger.Debug("Backup job stopped")

	check := max(m.cfg.Interval/4, time.Minute)
	ticker := time.NewTicker(check)
	defer ticker.Stop()

	for {
		m.runIfDue(ctx, db)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (m *Manager) runIfDue(ctx context.Context, db Snapshotter) {
	due, err := m.Due(ctx)
	if err != nil {
		m.logger.WithError(err).WarnContext(ctx, "Failed to read backup state")
		return
	}
	if !due {
		return
	}
	if _, err := m.Backup(ctx, db); err != nil && !errors.Is(err, ErrLocked) && ctx.Err() == nil {
		m.logger.WithError(err).ErrorContext(ctx, "Backup failed")
	}
}
