package storage

import (
	"context"
	"sort"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	probes      map[string]ProbeRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.probes = make(map[string]ProbeRecord)
	return nil
}

func (s *MemoryStore) SaveProbe(_ context.Context, record ProbeRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.probes == nil {
		s.probes = make(map[string]ProbeRecord)
	}
	s.probes[record.Name] = record
	return nil
}

func (s *MemoryStore) GetProbe(_ context.Context, name string) (ProbeRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, ok := s.probes[name]
	return record, ok, nil
}

func (s *MemoryStore) ListProbes(_ context.Context) ([]ProbeRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]ProbeRecord, 0, len(s.probes))
	for _, record := range s.probes {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Name < records[j].Name })
	return records, nil
}

func (s *MemoryStore) DeleteProbe(_ context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.probes, name)
	return nil
}
