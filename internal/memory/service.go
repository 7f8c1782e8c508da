package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
)

// DefaultActiveCapacity bounds the active tier before overflow handling kicks in.
const DefaultActiveCapacity = 20

// Config tunes the memory service.
type Config struct {
	// ActiveCapacity is the maximum number of turns kept in the active tier.
	ActiveCapacity int
}

// Service is the tiered conversation memory store. All mutations to one
// conversation serialize behind a per-id lock; different conversations
// proceed in parallel.
type Service struct {
	store      conversation.Store
	summarizer Summarizer
	capacity   int

	locksMu sync.Mutex
	locks   map[string]*sync.Mutex
}

// NewService creates the memory service on top of a conversation store.
// A nil summarizer falls back to the deterministic heuristic.
func NewService(store conversation.Store, summarizer Summarizer, cfg Config) *Service {
	capacity := cfg.ActiveCapacity
	if capacity <= 0 {
		capacity = DefaultActiveCapacity
	}
	if summarizer == nil {
		summarizer = HeuristicSummarizer{}
	}
	return &Service{
		store:      store,
		summarizer: summarizer,
		capacity:   capacity,
		locks:      make(map[string]*sync.Mutex),
	}
}

// GetOrCreateConversationForRoom is idempotent: repeated calls for the same
// (roomID, interfaceType) pair return the same conversation. Creation happens
// exactly once per room under concurrent calls.
func (s *Service) GetOrCreateConversationForRoom(ctx context.Context, roomID string, interfaceType conversation.InterfaceType) (*conversation.Conversation, error) {
	lock := s.lockFor("room:" + roomID + ":" + string(interfaceType))
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.GetConversationByRoomID(ctx, roomID, interfaceType)
	if err != nil {
		return nil, fmt.Errorf("lookup conversation for room %s: %w", roomID, err)
	}
	if conv != nil {
		return conv, nil
	}
	conv, err = s.store.CreateConversation(ctx, interfaceType, roomID)
	if err != nil {
		return nil, fmt.Errorf("create conversation for room %s: %w", roomID, err)
	}
	log.Printf("[memory] created conversation id=%s room=%s interface=%s", conv.ID, roomID, interfaceType)
	return conv, nil
}

// AddTurn appends a turn to the active tier and handles capacity overflow.
// Overflowing turns always move losslessly to the archive; when that block is
// large enough a summary of it is recorded as well, so both tiers stay
// queryable by FormatHistoryForPrompt. A missing conversation is an error,
// never a silent create.
func (s *Service) AddTurn(ctx context.Context, conversationID string, turn conversation.Turn) (*conversation.Conversation, error) {
	lock := s.lockFor(conversationID)
	lock.Lock()
	defer lock.Unlock()

	conv, err := s.store.AddTurn(ctx, conversationID, turn)
	if err != nil {
		return nil, err
	}

	overflow := len(conv.ActiveTurns) - s.capacity
	if overflow <= 0 {
		return conv, nil
	}

	oldest := conv.ActiveTurns[:overflow]
	if text, err := s.summarizer.Summarize(ctx, oldest); err != nil {
		log.Printf("[memory] summarization failed for conversation=%s: %v", conversationID, err)
	} else if text != "" {
		summary := conversation.Summary{
			StartTime: oldest[0].Timestamp,
			EndTime:   oldest[len(oldest)-1].Timestamp,
			Text:      text,
			TurnCount: len(oldest),
		}
		if _, err := s.store.AddSummary(ctx, conversationID, summary); err != nil {
			log.Printf("[memory] failed to record summary for conversation=%s: %v", conversationID, err)
		}
	}

	indices := make([]int, overflow)
	for i := range indices {
		indices[i] = i
	}
	conv, err = s.store.MoveTurnsToArchive(ctx, conversationID, indices)
	if err != nil {
		return nil, fmt.Errorf("archive overflow of conversation %s: %w", conversationID, err)
	}
	return conv, nil
}

// FormatHistoryForPrompt renders summaries (oldest first) followed by the most
// recent active turns, truncated to the length budget. Whole turns are dropped
// from the oldest end of the window until the budget is satisfied; a turn is
// never split mid-text.
func (s *Service) FormatHistoryForPrompt(ctx context.Context, conversationID string, maxLength int) (string, error) {
	conv, err := s.store.GetConversation(ctx, conversationID)
	if err != nil {
		return "", err
	}
	if conv == nil {
		return "", nil
	}

	var blocks []string
	for _, summary := range conv.Summaries {
		blocks = append(blocks, "Earlier ("+
			fmt.Sprintf("%d turns", summary.TurnCount)+"): "+summary.Text)
	}
	for _, turn := range conv.ActiveTurns {
		blocks = append(blocks, formatTurn(turn))
	}

	if maxLength <= 0 {
		return strings.Join(blocks, "\n"), nil
	}

	// Drop whole blocks from the oldest end until the rendering fits.
	for start := 0; start <= len(blocks); start++ {
		candidate := strings.Join(blocks[start:], "\n")
		if len(candidate) <= maxLength {
			return candidate, nil
		}
	}
	return "", nil
}

// GetConversation returns nil on miss.
func (s *Service) GetConversation(ctx context.Context, id string) (*conversation.Conversation, error) {
	return s.store.GetConversation(ctx, id)
}

// GetConversationByRoomID returns nil on miss.
func (s *Service) GetConversationByRoomID(ctx context.Context, roomID string, interfaceType conversation.InterfaceType) (*conversation.Conversation, error) {
	return s.store.GetConversationByRoomID(ctx, roomID, interfaceType)
}

// GetRecentConversations lists conversations by most recent activity.
func (s *Service) GetRecentConversations(ctx context.Context, opts conversation.RecentOptions) ([]*conversation.Conversation, error) {
	return s.store.GetRecentConversations(ctx, opts)
}

// DeleteConversation removes the conversation and reports whether it existed.
func (s *Service) DeleteConversation(ctx context.Context, id string) (bool, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	return s.store.DeleteConversation(ctx, id)
}

// UpdateMetadata shallow-merges the patch into the conversation metadata.
func (s *Service) UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*conversation.Conversation, error) {
	lock := s.lockFor(id)
	lock.Lock()
	defer lock.Unlock()
	return s.store.UpdateMetadata(ctx, id, patch)
}

func (s *Service) lockFor(key string) *sync.Mutex {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	lock, ok := s.locks[key]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[key] = lock
	}
	return lock
}

func formatTurn(turn conversation.Turn) string {
	name := turn.UserName
	if name == "" {
		name = turn.UserID
	}
	if turn.UserID == "assistant" {
		return "Assistant: " + turn.Response
	}
	if turn.Response != "" {
		return name + ": " + turn.Query + "\nAssistant: " + turn.Response
	}
	return name + ": " + turn.Query
}
