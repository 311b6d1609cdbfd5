package r2client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
)

const lockContentType = "application/json"

// LockRecord is the JSON body of a lock object.
type LockRecord struct {
	Owner     string    `json:"owner"`
	Holder    string    `json:"holder,omitempty"` // host name, for humans reading the bucket
	ExpiresAt time.Time `json:"expires_at"`
}

// Lock is a lease held through conditional writes on a single object.
// An expired lease may be taken over by another owner.
type Lock struct {
	store  ObjectStore
	key    string
	ttl    time.Duration
	owner  string
	holder string
	now    func() time.Time

	mu   sync.Mutex
	etag string // empty while not held
}

// LockOption configures a Lock.
type LockOption func(*Lock)

// WithLockClock overrides time.Now for lease expiry.
func WithLockClock(now func() time.Time) LockOption {
	return func(l *Lock) { l.now = now }
}

// NewLock creates a lock with a random owner id.
func NewLock(store ObjectStore, key string, ttl time.Duration, holder string, opts ...LockOption) *Lock {
	l := &Lock{
		store:  store,
		key:    key,
		ttl:    ttl,
		owner:  uuid.NewString(),
		holder: holder,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Owner returns this lock's owner id.
func (l *Lock) Owner() string { return l.owner }

// Held reports whether the last Acquire or Renew succeeded.
func (l *Lock) Held() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.etag != ""
}

// Acquire takes the lease. It returns false without error when another
// owner holds an unexpired lease.
func (l *Lock) Acquire(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	body, err := l.record()
	if err != nil {
		return false, err
	}
	created, etag, err := l.store.Create(ctx, l.key, bytes.NewReader(body), lockContentType)
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if created {
		l.etag = etag
		return true, nil
	}

	current, currentETag, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		// released between our create and read; the next attempt will win
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("acquire lock: %w", err)
	}
	if current != nil && current.Owner != l.owner && l.now().Before(current.ExpiresAt) {
		return false, nil
	}

	replaced, etag, err := l.store.Replace(ctx, l.key, bytes.NewReader(body), currentETag, lockContentType)
	if err != nil {
		return false, fmt.Errorf("take over lock: %w", err)
	}
	if replaced {
		l.etag = etag
	}
	return replaced, nil
}

// Renew extends a held lease. It returns false when the lease was lost.
func (l *Lock) Renew(ctx context.Context) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.etag == "" {
		return false, nil
	}
	body, err := l.record()
	if err != nil {
		return false, err
	}
	replaced, etag, err := l.store.Replace(ctx, l.key, bytes.NewReader(body), l.etag, lockContentType)
	if err != nil {
		return false, fmt.Errorf("renew lock: %w", err)
	}
	if !replaced {
		l.etag = ""
		return false, nil
	}
	l.etag = etag
	return true, nil
}

// Release deletes the lock object if this owner still holds it.
func (l *Lock) Release(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.etag == "" {
		return nil
	}
	l.etag = ""

	current, _, err := l.read(ctx)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	if current != nil && current.Owner != l.owner {
		return nil
	}
	return l.store.Delete(ctx, l.key)
}

func (l *Lock) record() ([]byte, error) {
	body, err := json.Marshal(LockRecord{Owner: l.owner, Holder: l.holder, ExpiresAt: l.now().Add(l.ttl)})
	if err != nil {
		return nil, fmt.Errorf("encode lock: %w", err)
	}
	return body, nil
}

// read returns the current record. A corrupt record is returned as nil so
// that it can be taken over.
func (l *Lock) read(ctx context.Context) (*LockRecord, string, error) {
	obj, err := l.store.Get(ctx, l.key)
	if err != nil {
		return nil, "", err
	}
	defer func() { _ = obj.Body.Close() }()

	raw, err := io.ReadAll(obj.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read lock: %w", err)
	}
	var rec LockRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, obj.ETag, nil
	}
	return &rec, obj.ETag, nil
}
