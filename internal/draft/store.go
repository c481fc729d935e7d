package draft

import (
	"strings"
	"sync"
)

// Store owns the per-package drafts of one admin session. Drafts are created
// lazily with defaults on first access and are never persisted.
type Store struct {
	mu     sync.Mutex
	drafts map[string]PackageDraft
}

// NewStore constructs an empty draft store.
func NewStore() *Store {
	return &Store{drafts: make(map[string]PackageDraft)}
}

// Get returns a copy of the package draft, creating the default on first use.
func (s *Store) Get(packageID string) PackageDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getLocked(packageID).clone()
}

// Update applies fn to the package draft and stores the result when fn
// succeeds.
func (s *Store) Update(packageID string, fn func(*PackageDraft) error) (PackageDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	working := s.getLocked(packageID).clone()
	if err := fn(&working); err != nil {
		return PackageDraft{}, err
	}
	s.drafts[normaliseID(packageID)] = working
	return working.clone(), nil
}

// Reset discards the draft for a package.
func (s *Store) Reset(packageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.drafts, normaliseID(packageID))
}

func (s *Store) getLocked(packageID string) PackageDraft {
	if s.drafts == nil {
		s.drafts = make(map[string]PackageDraft)
	}
	id := normaliseID(packageID)
	d, ok := s.drafts[id]
	if !ok {
		d = NewPackageDraft(id)
		s.drafts[id] = d
	}
	return d
}

func normaliseID(id string) string {
	return strings.TrimSpace(id)
}
