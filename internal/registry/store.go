package registry

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Techways-AI/sme-panel-staging-sub001/internal/index"
)

// entry is one cached handle with its load time for reporting.
type entry struct {
	handle   *index.Handle
	loadedAt time.Time
}

// entryStore abstracts the cache container so the registry can run either
// unbounded or with LRU eviction.
type entryStore interface {
	Get(id string) (*entry, bool)
	Add(id string, e *entry)
	Remove(id string) (*entry, bool)
	Len() int
	Keys() []string
}

// mapStore is the unbounded default.
type mapStore struct {
	entries map[string]*entry
}

func newMapStore() *mapStore {
	return &mapStore{entries: make(map[string]*entry)}
}

func (s *mapStore) Get(id string) (*entry, bool) {
	e, ok := s.entries[id]
	return e, ok
}

func (s *mapStore) Add(id string, e *entry) {
	s.entries[id] = e
}

func (s *mapStore) Remove(id string) (*entry, bool) {
	e, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
	}
	return e, ok
}

func (s *mapStore) Len() int {
	return len(s.entries)
}

func (s *mapStore) Keys() []string {
	keys := make([]string, 0, len(s.entries))
	for id := range s.entries {
		keys = append(keys, id)
	}
	return keys
}

// lruStore bounds the cache; capacity evictions close handles via the
// callback. Explicit Remove suppresses the callback so the caller owns the
// returned entry; the registry serializes access, so suppress needs no lock.
type lruStore struct {
	cache    *lru.Cache[string, *entry]
	suppress map[string]bool
}

func newLRUStore(maxEntries int, onEvict func(id string, e *entry)) *lruStore {
	s := &lruStore{suppress: make(map[string]bool)}
	cache, _ := lru.NewWithEvict[string, *entry](maxEntries, func(id string, e *entry) {
		if s.suppress[id] {
			return
		}
		onEvict(id, e)
	})
	s.cache = cache
	return s
}

func (s *lruStore) Get(id string) (*entry, bool) {
	return s.cache.Get(id)
}

func (s *lruStore) Add(id string, e *entry) {
	s.cache.Add(id, e)
}

func (s *lruStore) Remove(id string) (*entry, bool) {
	e, ok := s.cache.Peek(id)
	if !ok {
		return nil, false
	}
	s.suppress[id] = true
	s.cache.Remove(id)
	delete(s.suppress, id)
	return e, true
}

func (s *lruStore) Len() int {
	return s.cache.Len()
}

func (s *lruStore) Keys() []string {
	return s.cache.Keys()
}
