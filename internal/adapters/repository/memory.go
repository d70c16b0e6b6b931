package repository

import (
	"context"
	"sync"
	"time"

	"github.com/CurryTPH/all-sports-api/internal/domain/model"
	"github.com/CurryTPH/all-sports-api/pkg/metrics"
)

type collection struct {
	order []model.Record
	byID  map[string]int
}

// MemoryStore keeps every collection in process memory, in insertion order.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string]*collection
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string]*collection)}
}

// Find implements Store.
func (s *MemoryStore) Find(ctx context.Context, name string, f Filter, srt Sort, limit int) ([]model.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()

	s.mu.RLock()
	var snapshot []model.Record
	if c, ok := s.collections[name]; ok {
		snapshot = make([]model.Record, len(c.order))
		copy(snapshot, c.order)
	}
	s.mu.RUnlock()

	out := Apply(snapshot, f, srt, limit)
	for i := range out {
		out[i] = out[i].Clone()
	}
	metrics.RecordStoreLatency("find", name, float64(time.Since(start).Microseconds())/1000)
	return out, nil
}

// Insert implements Store.
func (s *MemoryStore) Insert(ctx context.Context, name string, rec model.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	rec, err := prepare(rec)
	if err != nil {
		return err
	}

	s.mu.Lock()
	c, ok := s.collections[name]
	if !ok {
		c = &collection{byID: make(map[string]int)}
		s.collections[name] = c
	}
	if i, exists := c.byID[rec.ID()]; exists {
		c.order[i] = rec
	} else {
		c.byID[rec.ID()] = len(c.order)
		c.order = append(c.order, rec)
	}
	n := len(c.order)
	s.mu.Unlock()

	metrics.UpdateStoreRecords(name, n)
	return nil
}

// Count implements Store.
func (s *MemoryStore) Count(ctx context.Context, name string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if c, ok := s.collections[name]; ok {
		return len(c.order), nil
	}
	return 0, nil
}
