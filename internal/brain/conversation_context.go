package brain

import (
	"context"

	"github.com/yeehaa123/personal-brain-sub006/internal/memory"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
)

// ContextConversation is the mediator id of the conversation context.
const ContextConversation = "conversation"

// ConversationContext fronts the tiered memory service behind the mediator.
type ConversationContext struct {
	memory *memory.Service
}

// NewConversationContext creates the conversation context.
func NewConversationContext(svc *memory.Service) *ConversationContext {
	return &ConversationContext{memory: svc}
}

// Memory exposes the underlying memory service to the query pipeline.
func (c *ConversationContext) Memory() *memory.Service {
	return c.memory
}

// HandleRequest implements the mediator contract.
func (c *ConversationContext) HandleRequest(ctx context.Context, req *message.Request) (map[string]any, error) {
	switch req.DataType {
	case "conversation.history":
		id, _ := req.Payload["conversationId"].(string)
		maxLength := intValue(req.Payload["maxLength"], 0)
		history, err := c.memory.FormatHistoryForPrompt(ctx, id, maxLength)
		if err != nil {
			return nil, err
		}
		return map[string]any{"history": history}, nil
	case "conversation.get":
		id, _ := req.Payload["conversationId"].(string)
		conv, err := c.memory.GetConversation(ctx, id)
		if err != nil {
			return nil, err
		}
		return map[string]any{"conversation": conv}, nil
	default:
		return nil, message.ErrUnsupportedDataType
	}
}

// HandleNotification declines all broadcasts.
func (c *ConversationContext) HandleNotification(context.Context, *message.Notification) (bool, error) {
	return false, nil
}
