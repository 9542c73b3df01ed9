package store

import (
	"fmt"
	"sync"
	"time"
)

// MemStore is an in-memory Store for tests and runs without a cache folder.
type MemStore struct {
	mu      sync.Mutex
	nodes   map[string]NodeStatus
	runs    map[int64]Run
	nextRun int64
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{nodes: make(map[string]NodeStatus), runs: make(map[int64]Run)}
}

// NodeStatus implements Store.
func (s *MemStore) NodeStatus(uid string) (*NodeStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.nodes[uid]; ok {
		return &st, nil
	}
	return &NodeStatus{UID: uid, Status: StatusNone}, nil
}

// SetNodeStatus implements Store.
func (s *MemStore) SetNodeStatus(st *NodeStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	st.UpdatedAt = time.Now()
	s.nodes[st.UID] = *st
	return nil
}

// ClearNodeStatus implements Store.
func (s *MemStore) ClearNodeStatus(uids ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range uids {
		delete(s.nodes, u)
	}
	return nil
}

// BeginRun implements Store.
func (s *MemStore) BeginRun(pipeline string, nodes int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRun++
	s.runs[s.nextRun] = Run{
		ID: s.nextRun, Pipeline: pipeline, Nodes: nodes,
		Status: StatusRunning, StartedAt: time.Now(),
	}
	return s.nextRun, nil
}

// EndRun implements Store.
func (s *MemStore) EndRun(runID int64, status Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return fmt.Errorf("end run %d: %w", runID, ErrNotFound)
	}
	r.Status = status
	r.EndedAt = time.Now()
	s.runs[runID] = r
	return nil
}

// GetRun implements Store.
func (s *MemStore) GetRun(runID int64) (*Run, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %d: %w", runID, ErrNotFound)
	}
	return &r, nil
}

// Close implements Store.
func (s *MemStore) Close() error { return nil }
