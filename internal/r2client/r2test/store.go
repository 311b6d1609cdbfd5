// Package r2test provides an in-memory r2client.ObjectStore for tests.
package r2test

import (
	"bytes"
	"context"
	"io"
	"strconv"
	"sync"

	"github.com/garyellow/quizbot-go/internal/r2client"
)

type memObject struct {
	data []byte
	etag string
}

// Store is an in-memory ObjectStore with real conditional semantics.
type Store struct {
	mu      sync.Mutex
	objects map[string]memObject
	seq     int
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{objects: map[string]memObject{}}
}

func (m *Store) write(key string, body io.Reader) (string, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return "", err
	}
	m.seq++
	etag := "etag-" + strconv.Itoa(m.seq)
	m.objects[key] = memObject{data: data, etag: etag}
	return etag, nil
}

// Put implements r2client.ObjectStore.
func (m *Store) Put(_ context.Context, key string, body io.Reader, _ string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.write(key, body)
}

// Has reports whether key exists.
func (m *Store) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.objects[key]
	return ok
}

// Get implements r2client.ObjectStore.
func (m *Store) Get(_ context.Context, key string) (*r2client.Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok {
		return nil, r2client.ErrNotFound
	}
	return &r2client.Object{Body: io.NopCloser(bytes.NewReader(o.data)), ETag: o.etag, Size: int64(len(o.data))}, nil
}

// Create implements r2client.ObjectStore.
func (m *Store) Create(_ context.Context, key string, body io.Reader, _ string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.objects[key]; ok {
		return false, "", nil
	}
	etag, err := m.write(key, body)
	return err == nil, etag, err
}

// Replace implements r2client.ObjectStore.
func (m *Store) Replace(_ context.Context, key string, body io.Reader, etag, _ string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.objects[key]
	if !ok || o.etag != etag {
		return false, "", nil
	}
	newETag, err := m.write(key, body)
	return err == nil, newETag, err
}

// Delete implements r2client.ObjectStore.
func (m *Store) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	return nil
}

var _ r2client.ObjectStore = (*Store)(nil)
