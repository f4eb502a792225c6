package session

import (
	"context"
	"sync"
	"time"

	"github.com/trogers1052/adx-service/internal/models"
)

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// MemoryStore is an in-process Store. Entries expire after ttl; a zero ttl
// keeps them until deleted. Expired entries are swept by Save at most once
// per ttl, so an entry outlives its expiry by less than one ttl.
type MemoryStore struct {
	mu        sync.Mutex
	entries   map[string]memoryEntry
	ttl       time.Duration
	now       func() time.Time
	nextSweep time.Time
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Save stores an encoded copy so later mutation of snap doesn't leak in
func (s *MemoryStore) Save(_ context.Context, id string, snap *models.TableSnapshot) error {
	data, err := encode(snap)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry := memoryEntry{data: data}
	if s.ttl > 0 {
		entry.expires = now.Add(s.ttl)
		if !now.Before(s.nextSweep) {
			s.sweep(now)
			s.nextSweep = now.Add(s.ttl)
		}
	}
	s.entries[id] = entry
	return nil
}

// sweep drops expired entries. Callers hold mu.
func (s *MemoryStore) sweep(now time.Time) {
	for id, e := range s.entries {
		if !e.expires.IsZero() && !now.Before(e.expires) {
			delete(s.entries, id)
		}
	}
}

// Load returns the cached snapshot or ErrNotFound
func (s *MemoryStore) Load(_ context.Context, id string) (*models.TableSnapshot, error) {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if ok && !entry.expires.IsZero() && !s.now().Before(entry.expires) {
		delete(s.entries, id)
		ok = false
	}
	s.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	return decode(entry.data)
}

// Delete drops the cached snapshot
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

// Len reports the number of live entries
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	n := 0
	for _, e := range s.entries {
		if e.expires.IsZero() || now.Before(e.expires) {
			n++
		}
	}
	return n
}
