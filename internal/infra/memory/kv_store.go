package memory

import (
	"context"
	"sync"
)

// KVStore keeps player values in process memory. State is lost on restart.
type KVStore struct {
	mu     sync.RWMutex
	values map[string]map[string]string
}

func NewKVStore() *KVStore {
	return &KVStore{values: make(map[string]map[string]string)}
}

func (s *KVStore) Get(_ context.Context, playerID, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[playerID][key]
	return v, ok, nil
}

func (s *KVStore) Set(_ context.Context, playerID, key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	player, ok := s.values[playerID]
	if !ok {
		player = make(map[string]string)
		s.values[playerID] = player
	}
	player[key] = value
	return nil
}
