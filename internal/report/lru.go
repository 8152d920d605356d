package report

import (
	"container/list"
	"fmt"
	"sync"
)

// LRUStore keeps the most recent runs in memory and delegates to a
// backing Store on miss.
type LRUStore struct {
	mu    sync.Mutex
	cap   int
	back  Store
	order *list.List // front is most recently used; values are *Run
	items map[string]*list.Element
}

// NewLRUStore creates an LRU cache with the given capacity that delegates
// to back on cache misses. Capacity must be >= 1.
func NewLRUStore(cap int, back Store) *LRUStore {
	if cap < 1 {
		cap = 1
	}
	return &LRUStore{
		cap:   cap,
		back:  back,
		order: list.New(),
		items: make(map[string]*list.Element, cap),
	}
}

// Save caches the run and writes it through to the backing store.
func (s *LRUStore) Save(run *Run) error {
	s.put(run)
	return s.back.Save(run)
}

// Load checks the cache first. On miss, loads from the backing store
// and promotes the run into the cache.
func (s *LRUStore) Load(runID string) (*Run, error) {
	s.mu.Lock()
	if e, ok := s.items[runID]; ok {
		s.order.MoveToFront(e)
		run := e.Value.(*Run)
		s.mu.Unlock()
		return run, nil
	}
	s.mu.Unlock()

	run, err := s.back.Load(runID)
	if err != nil {
		return nil, err
	}
	s.put(run)
	return run, nil
}

// List delegates to the backing store.
func (s *LRUStore) List(limit int) ([]*Run, error) {
	l, ok := s.back.(Lister)
	if !ok {
		return nil, fmt.Errorf("run store %T cannot list runs", s.back)
	}
	return l.List(limit)
}

// Len reports the number of cached runs.
func (s *LRUStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.order.Len()
}

func (s *LRUStore) put(run *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.items[run.ID]; ok {
		e.Value = run
		s.order.MoveToFront(e)
		return
	}
	s.items[run.ID] = s.order.PushFront(run)
	if s.order.Len() > s.cap {
		oldest := s.order.Back()
		s.order.Remove(oldest)
		delete(s.items, oldest.Value.(*Run).ID)
	}
}
