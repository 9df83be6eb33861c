package blobstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

type memObject struct {
	data     []byte
	meta     Metadata
	modified time.Time
}

// MemoryStore is an in-process Store used by tests and local development.
// It also supports fault injection so failure paths can be exercised.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string]memObject

	// failNext, when set, is returned by the next store call and then cleared.
	failNext error
}

func NewMemory() *MemoryStore {
	return &MemoryStore{objects: make(map[string]memObject)}
}

// FailNext makes the next operation return err, simulating an outage.
func (m *MemoryStore) FailNext(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = err
}

func (m *MemoryStore) takeFault() error {
	err := m.failNext
	m.failNext = nil
	return err
}

func (m *MemoryStore) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return err
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	mcp := make(Metadata, len(meta))
	for k, v := range meta {
		mcp[k] = v
	}
	m.objects[key] = memObject{data: cp, meta: mcp, modified: time.Now().UTC()}
	return nil
}

func (m *MemoryStore) Get(ctx context.Context, key string) (*Object, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return nil, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	cp := make([]byte, len(obj.data))
	copy(cp, obj.data)
	return &Object{Data: cp, Metadata: obj.meta}, nil
}

func (m *MemoryStore) Head(ctx context.Context, key string) (Metadata, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return nil, err
	}
	obj, ok := m.objects[key]
	if !ok {
		return nil, ErrNotFound
	}
	return obj.meta, nil
}

func (m *MemoryStore) List(ctx context.Context, prefix string) ([]ObjectInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return nil, err
	}
	var out []ObjectInfo
	for key, obj := range m.objects {
		if strings.HasPrefix(key, prefix) {
			out = append(out, ObjectInfo{Key: key, Size: int64(len(obj.data)), LastModified: obj.modified})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.takeFault(); err != nil {
		return err
	}
	delete(m.objects, key)
	return nil
}

// Corrupt flips one bit of a stored object, simulating silent backend
// corruption for integrity tests. Returns false when the key is absent.
func (m *MemoryStore) Corrupt(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	obj, ok := m.objects[key]
	if !ok || len(obj.data) == 0 {
		return false
	}
	obj.data[len(obj.data)/2] ^= 0x01
	m.objects[key] = obj
	return true
}

// Exists reports whether a key is present, for test assertions.
func (m *MemoryStore) Exists(key string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.objects[key]
	return ok
}
