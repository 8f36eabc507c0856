package store

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps collections in process memory. It backs tests and the
// "memory" store driver.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
	now         func() time.Time
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

// NewMemory creates an empty in-memory store.
func NewMemory(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{collections: make(map[string]*memoryCollection), now: Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Collection(name string) Collection {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{records: make(map[string]*Record), now: s.now}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

type memoryCollection struct {
	mu      sync.RWMutex
	order   []string
	records map[string]*Record
	now     func() time.Time
}

func (c *memoryCollection) Insert(_ context.Context, fields map[string]any) (*Record, error) {
	now := c.now()
	r := (&Record{ID: NewID(), Fields: fields, CreatedAt: now, UpdatedAt: now}).Clone()

	c.mu.Lock()
	defer c.mu.Unlock()
	c.records[r.ID] = r
	c.order = append(c.order, r.ID)
	return r.Clone(), nil
}

func (c *memoryCollection) FindByID(_ context.Context, id string) (*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	r, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

func (c *memoryCollection) Find(_ context.Context, f Filter) ([]*Record, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]*Record, 0, len(c.order))
	for _, id := range c.order {
		r := c.records[id]
		if f.Matches(r) {
			out = append(out, r.Clone())
		}
	}
	return out, nil
}

func (c *memoryCollection) UpdateByID(_ context.Context, id string, partial map[string]any) (*Record, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	for k, v := range partial {
		r.Fields[k] = v
	}
	r.UpdatedAt = c.now()
	return r.Clone(), nil
}

func (c *memoryCollection) DeleteByID(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.records[id]; !ok {
		return nil
	}
	delete(c.records, id)
	for i, oid := range c.order {
		if oid == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

func (c *memoryCollection) Count(_ context.Context, f Filter) (int64, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var n int64
	for _, r := range c.records {
		if f.Matches(r) {
			n++
		}
	}
	return n, nil
}

func (c *memoryCollection) SumBy(_ context.Context, groupField, sumField string) ([]GroupTotal, error) {
	c.mu.RLock()
	records := make([]*Record, 0, len(c.order))
	for _, id := range c.order {
		records = append(records, c.records[id])
	}
	c.mu.RUnlock()

	return foldSums(records, groupField, sumField), nil
}

// Unavailable is a Store whose every operation fails with ErrUnavailable.
// It stands in when no backend is configured.
type Unavailable struct{}

func (Unavailable) Collection(string) Collection { return unavailableCollection{} }
func (Unavailable) Ping(context.Context) error   { return ErrUnavailable }
func (Unavailable) Close(context.Context) error  { return nil }

type unavailableCollection struct{}

func (unavailableCollection) Insert(context.Context, map[string]any) (*Record, error) {
	return nil, ErrUnavailable
}

func (unavailableCollection) FindByID(context.Context, string) (*Record, error) {
	return nil, ErrUnavailable
}

func (unavailableCollection) Find(context.Context, Filter) ([]*Record, error) {
	return nil, ErrUnavailable
}

func (unavailableCollection) UpdateByID(context.Context, string, map[string]any) (*Record, error) {
	return nil, ErrUnavailable
}

func (unavailableCollection) DeleteByID(context.Context, string) error { return ErrUnavailable }

func (unavailableCollection) Count(context.Context, Filter) (int64, error) {
	return 0, ErrUnavailable
}
