// Package memory provides an in-memory ObjectStore for tests and dry runs.
package memory

import (
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/mtfreepress/capitol-pdf-mirror/internal/storage"
)

type object struct {
	data        []byte
	contentType string
	updated     time.Time
}

// Store keeps objects in a map guarded by a mutex.
type Store struct {
	mu      sync.Mutex
	objects map[string]object
	now     func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		objects: map[string]object{},
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// List returns every object under the prefix, sorted by key.
func (s *Store) List(_ context.Context, prefix string) ([]storage.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var infos []storage.ObjectInfo
	for key, obj := range s.objects {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		infos = append(infos, storage.ObjectInfo{
			Key:     key,
			Size:    int64(len(obj.data)),
			Updated: obj.updated,
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

// Upload stores the object contents.
func (s *Store) Upload(_ context.Context, key, contentType string, r io.Reader) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = object{data: data, contentType: contentType, updated: s.now()}
	return nil
}

// Delete removes the object; missing keys are ignored.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

// Get returns the stored contents and content type for assertions in tests.
func (s *Store) Get(key string) ([]byte, string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	obj, ok := s.objects[key]
	if !ok {
		return nil, "", false
	}
	data := make([]byte, len(obj.data))
	copy(data, obj.data)
	return data, obj.contentType, true
}

// Len reports the number of stored objects.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.objects)
}
