package conversation

import (
	"context"
	"errors"
)

// ErrNotFound is returned by mutating store operations that reference a
// conversation id that does not exist. Read operations return nil instead.
var ErrNotFound = errors.New("conversation not found")

// RecentOptions narrows GetRecentConversations.
type RecentOptions struct {
	Limit         int
	InterfaceType InterfaceType
}

// Store is the persistence contract consumed by the memory service. Backends
// must key conversations uniquely by (roomID, interfaceType).
type Store interface {
	CreateConversation(ctx context.Context, interfaceType InterfaceType, roomID string) (*Conversation, error)
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	GetConversationByRoomID(ctx context.Context, roomID string, interfaceType InterfaceType) (*Conversation, error)
	AddTurn(ctx context.Context, id string, turn Turn) (*Conversation, error)
	AddSummary(ctx context.Context, id string, summary Summary) (*Conversation, error)
	MoveTurnsToArchive(ctx context.Context, id string, indices []int) (*Conversation, error)
	GetRecentConversations(ctx context.Context, opts RecentOptions) ([]*Conversation, error)
	DeleteConversation(ctx context.Context, id string) (bool, error)
	UpdateMetadata(ctx context.Context, id string, patch map[string]any) (*Conversation, error)
}
