package profile

import (
	"sync"
	"time"
)

// Profile captures the owner of the brain. Embedding is an opaque vector used
// for semantic relevance scoring; nil until an embedding client populates it.
type Profile struct {
	Name      string    `json:"name"`
	Headline  string    `json:"headline,omitempty"`
	About     string    `json:"about,omitempty"`
	Skills    []string  `json:"skills,omitempty"`
	Interests []string  `json:"interests,omitempty"`
	Embedding []float64 `json:"embedding,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store exposes profile retrieval and updates for the profile context.
type Store interface {
	Get() (*Profile, bool)
	Update(p Profile) Profile
}

// MemoryStore implements Store for a single profile.
type MemoryStore struct {
	mu      sync.RWMutex
	profile *Profile
}

// NewMemoryStore returns a store optionally preloaded with a profile.
func NewMemoryStore(p *Profile) *MemoryStore {
	return &MemoryStore{profile: p}
}

// Get returns a copy of the stored profile, or false when none exists.
func (s *MemoryStore) Get() (*Profile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.profile == nil {
		return nil, false
	}
	out := *s.profile
	out.Skills = append([]string(nil), s.profile.Skills...)
	out.Interests = append([]string(nil), s.profile.Interests...)
	out.Embedding = append([]float64(nil), s.profile.Embedding...)
	return &out, true
}

// Update replaces the stored profile and stamps UpdatedAt.
func (s *MemoryStore) Update(p Profile) Profile {
	p.UpdatedAt = time.Now().UTC()
	s.mu.Lock()
	s.profile = &p
	s.mu.Unlock()
	return p
}
