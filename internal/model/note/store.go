package note

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Store exposes note retrieval for the note context.
type Store interface {
	List() []Note
	FindByID(id string) (Note, bool)
	FindByTags(tags []string) []Note
	Recent(limit int) []Note
	Put(n Note) Note
}

// MemoryStore implements Store with an in-memory slice guarded by a RWMutex.
type MemoryStore struct {
	mu    sync.RWMutex
	items []Note
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied notes.
func NewMemoryStore(items []Note) *MemoryStore {
	s := &MemoryStore{}
	for _, n := range items {
		s.Put(n)
	}
	return s
}

// List returns a copy of every stored note.
func (s *MemoryStore) List() []Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Note(nil), s.items...)
}

// FindByID looks up a note by identifier.
func (s *MemoryStore) FindByID(id string) (Note, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, item := range s.items {
		if item.ID == id {
			return item, true
		}
	}
	return Note{}, false
}

// FindByTags returns notes carrying at least one of the given tags.
func (s *MemoryStore) FindByTags(tags []string) []Note {
	if len(tags) == 0 {
		return nil
	}
	wanted := make(map[string]bool, len(tags))
	for _, t := range tags {
		wanted[strings.ToLower(strings.TrimPrefix(t, "#"))] = true
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Note
	for _, item := range s.items {
		for _, tag := range item.Tags {
			if wanted[strings.ToLower(tag)] {
				out = append(out, item)
				break
			}
		}
	}
	return out
}

// Recent returns up to limit notes ordered by most recent update.
func (s *MemoryStore) Recent(limit int) []Note {
	s.mu.RLock()
	out := append([]Note(nil), s.items...)
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Put inserts or replaces a note, assigning an id and timestamps when absent.
func (s *MemoryStore) Put(n Note) Note {
	now := time.Now().UTC()
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range s.items {
		if item.ID == n.ID {
			n.CreatedAt = item.CreatedAt
			s.items[i] = n
			return n
		}
	}
	s.items = append(s.items, n)
	return n
}
