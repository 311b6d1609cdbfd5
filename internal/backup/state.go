package backup

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/garyellow/quizbot-go/internal/r2client"
)

const maxStateAttempts = 3

// State records the last successful backup so every instance can tell
// whether one is due.
type State struct {
	LastBackupAt int64  `json:"last_backup_at"`
	SnapshotETag string `json:"snapshot_etag,omitempty"`
	SizeBytes    int64  `json:"size_bytes"`
	UpdatedAt    int64  `json:"updated_at"`
}

// StateStore keeps State in one object, updated with compare-and-swap.
type StateStore struct {
	store r2client.ObjectStore
	key   string
	now   func() time.Time
}

// NewStateStore creates a state store.
func NewStateStore(store r2client.ObjectStore, key string) (*StateStore, error) {
	if store == nil {
		return nil, errors.New("backup: object store is required")
	}
	if key == "" {
		return nil, errors.New("backup: state key is required")
	}
	return &StateStore{store: store, key: key, now: time.Now}, nil
}

// Load returns the state and its ETag. A missing object yields the zero
// State and an empty ETag.
func (s *StateStore) Load(ctx context.Context) (State, string, error) {
	obj, err := s.store.Get(ctx, s.key)
	if errors.Is(err, r2client.ErrNotFound) {
		return State{}, "", nil
	}
	if err != nil {
		return State{}, "", fmt.Errorf("backup: load state: %w", err)
	}
	defer func() { _ = obj.Body.Close() }()

	var st State
	if err := json.NewDecoder(io.LimitReader(obj.Body, 64<<10)).Decode(&st); err != nil {
		return State{}, "", fmt.Errorf("backup: decode state: %w", err)
	}
	return st, obj.ETag, nil
}

// Update applies fn and writes the result, retrying when another writer
// got there first.
func (s *StateStore) Update(ctx context.Context, fn func(*State)) error {
	for range maxStateAttempts {
		st, etag, err := s.Load(ctx)
		if err != nil {
			return err
		}
		fn(&st)
		st.UpdatedAt = s.now().Unix()

		body, err := json.Marshal(st)
		if err != nil {
			return fmt.Errorf("backup: encode state: %w", err)
		}

		var ok bool
		if etag == "" {
			ok, _, err = s.store.Create(ctx, s.key, bytes.NewReader(body), "application/json")
		} else {
			ok, _, err = s.store.Replace(ctx, s.key, bytes.NewReader(body), etag, "application/json")
		}
		if err != nil {
			return fmt.Errorf("backup: write state: %w", err)
		}
		if ok {
			return nil
		}
	}
	return errors.New("backup: state changed concurrently, giving up")
}
