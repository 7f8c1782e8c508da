package conversation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store with in-memory maps, suitable for the CLI
// surface and for tests.
type MemoryStore struct {
	mu     sync.RWMutex
	byID   map[string]*Conversation
	byRoom map[roomKey]string
}

type roomKey struct {
	roomID        string
	interfaceType InterfaceType
}

// NewMemoryStore bootstraps an empty in-memory conversation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:   make(map[string]*Conversation),
		byRoom: make(map[roomKey]string),
	}
}

// CreateConversation provisions a conversation for the room. At most one
// conversation exists per (roomID, interfaceType) pair; a second create for
// the same pair returns the existing conversation.
func (s *MemoryStore) CreateConversation(_ context.Context, interfaceType InterfaceType, roomID string) (*Conversation, error) {
	if roomID == "" {
		return nil, fmt.Errorf("room id is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := roomKey{roomID: roomID, interfaceType: interfaceType}
	if id, ok := s.byRoom[key]; ok {
		return s.byID[id].Clone(), nil
	}

	now := time.Now().UTC()
	conv := &Conversation{
		ID:            uuid.NewString(),
		InterfaceType: interfaceType,
		RoomID:        roomID,
		CreatedAt:     now,
		UpdatedAt:     now,
		ActiveTurns:   make([]Turn, 0, 16),
	}
	s.byID[conv.ID] = conv
	s.byRoom[key] = conv.ID
	return conv.Clone(), nil
}

// GetConversation returns nil on miss, never an error.
func (s *MemoryStore) GetConversation(_ context.Context, id string) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.byID[id].Clone(), nil
}

// GetConversationByRoomID returns nil on miss, never an error.
func (s *MemoryStore) GetConversationByRoomID(_ context.Context, roomID string, interfaceType InterfaceType) (*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byRoom[roomKey{roomID: roomID, interfaceType: interfaceType}]
	if !ok {
		return nil, nil
	}
	return s.byID[id].Clone(), nil
}

// AddTurn appends to the active tier, keeping it ordered by timestamp. A
// missing conversation is an error, never a silent create.
func (s *MemoryStore) AddTurn(_ context.Context, id string, turn Turn) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("add turn to %s: %w", id, ErrNotFound)
	}

	if turn.ID == "" {
		turn.ID = uuid.NewString()
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	conv.ActiveTurns = append(conv.ActiveTurns, turn)
	sort.SliceStable(conv.ActiveTurns, func(i, j int) bool {
		return conv.ActiveTurns[i].Timestamp.Before(conv.ActiveTurns[j].Timestamp)
	})
	conv.UpdatedAt = time.Now().UTC()
	return conv.Clone(), nil
}

// AddSummary appends a summary entry.
func (s *MemoryStore) AddSummary(_ context.Context, id string, summary Summary) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("add summary to %s: %w", id, ErrNotFound)
	}
	if summary.ID == "" {
		summary.ID = uuid.NewString()
	}
	conv.Summaries = append(conv.Summaries, summary)
	conv.UpdatedAt = time.Now().UTC()
	return conv.Clone(), nil
}

// MoveTurnsToArchive moves the active turns at the given indices to the
// archive tier, preserving their order. The archive is append-only.
func (s *MemoryStore) MoveTurnsToArchive(_ context.Context, id string, indices []int) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("archive turns of %s: %w", id, ErrNotFound)
	}

	marked := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 0 || idx >= len(conv.ActiveTurns) {
			return nil, fmt.Errorf("archive turns of %s: index %d out of range", id, idx)
		}
		marked[idx] = true
	}

	remaining := conv.ActiveTurns[:0]
	for i, turn := range conv.ActiveTurns {
		if marked[i] {
			conv.ArchivedTurns = append(conv.ArchivedTurns, turn)
		} else {
			remaining = append(remaining, turn)
		}
	}
	conv.ActiveTurns = remaining
	conv.UpdatedAt = time.Now().UTC()
	return conv.Clone(), nil
}

// GetRecentConversations lists conversations ordered by most recent update.
func (s *MemoryStore) GetRecentConversations(_ context.Context, opts RecentOptions) ([]*Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Conversation, 0, len(s.byID))
	for _, conv := range s.byID {
		if opts.InterfaceType != "" && conv.InterfaceType != opts.InterfaceType {
			continue
		}
		out = append(out, conv.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

// DeleteConversation removes the conversation and reports whether it existed.
func (s *MemoryStore) DeleteConversation(_ context.Context, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	delete(s.byID, id)
	delete(s.byRoom, roomKey{roomID: conv.RoomID, interfaceType: conv.InterfaceType})
	return true, nil
}

// UpdateMetadata shallow-merges the patch into the conversation metadata.
func (s *MemoryStore) UpdateMetadata(_ context.Context, id string, patch map[string]any) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("update metadata of %s: %w", id, ErrNotFound)
	}
	if conv.Metadata == nil {
		conv.Metadata = make(map[string]any, len(patch))
	}
	for k, v := range patch {
		conv.Metadata[k] = v
	}
	conv.UpdatedAt = time.Now().UTC()
	return conv.Clone(), nil
}
