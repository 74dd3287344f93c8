package realtime

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is a Store held in process memory, used by tests and local
// runs without a database. It keeps the same last writer wins contract as
// the Postgres store.
type MemoryStore struct {
	mu       sync.RWMutex
	passages map[Key]*Passage
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{passages: make(map[Key]*Passage)}
}

func (s *MemoryStore) Put(ctx context.Context, passages []*Passage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, passage := range passages {
		copied := *passage
		s.passages[Key{StationId: passage.StationId, DayTrainNum: passage.DayTrainNum}] = &copied
	}
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (*Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	passage, present := s.passages[key]
	if !present {
		return nil, ErrItemNotFound
	}
	return passage, nil
}

func (s *MemoryStore) BatchGet(ctx context.Context, keys []Key) ([]*Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*Passage
	for _, key := range keys {
		if passage, present := s.passages[key]; present {
			results = append(results, passage)
		}
	}
	return results, nil
}

func (s *MemoryStore) PassagesOnDay(ctx context.Context, day string) ([]*Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*Passage
	for _, passage := range s.passages {
		if passage.Day == day {
			results = append(results, passage)
		}
	}
	sortPassages(results)
	return results, nil
}

func (s *MemoryStore) StationPassagesOnDay(ctx context.Context, stationId, day string) ([]*Passage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var results []*Passage
	for _, passage := range s.passages {
		if passage.StationId == stationId && passage.Day == day {
			results = append(results, passage)
		}
	}
	sortPassages(results)
	return results, nil
}

func sortPassages(passages []*Passage) {
	sort.Slice(passages, func(i, j int) bool {
		if passages[i].StationId != passages[j].StationId {
			return passages[i].StationId < passages[j].StationId
		}
		return passages[i].DayTrainNum < passages[j].DayTrainNum
	})
}
