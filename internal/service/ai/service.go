package ai

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/yeehaa123/personal-brain-sub006/internal/config"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
)

// Usage reports token consumption for one completion.
type Usage struct {
	PromptTokens     int `json:"promptTokens"`
	CompletionTokens int `json:"completionTokens"`
	TotalTokens      int `json:"totalTokens"`
}

// Completion is the result of a single model call.
type Completion struct {
	Response string `json:"response"`
	Usage    *Usage `json:"usage,omitempty"`
}

// ModelInvocationError marks the one pipeline failure that aborts a query:
// without a model response there is no answer to return.
type ModelInvocationError struct {
	Err error
}

func (e *ModelInvocationError) Error() string {
	return fmt.Sprintf("model invocation failed: %v", e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// Service wraps the chat model behind a compiled prompt chain.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
}

// NewService creates the model service from configuration.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{chatModel: chatModel, chain: runnable}, nil
}

// Complete runs one model call with the assembled system and user prompts.
func (s *Service) Complete(ctx context.Context, systemPrompt, userPrompt string) (Completion, error) {
	response, err := s.chain.Invoke(ctx, map[string]any{
		"system": systemPrompt,
		"query":  userPrompt,
	})
	if err != nil {
		return Completion{}, &ModelInvocationError{Err: err}
	}

	completion := Completion{Response: response.Content}
	if response.ResponseMeta != nil && response.ResponseMeta.Usage != nil {
		completion.Usage = &Usage{
			PromptTokens:     response.ResponseMeta.Usage.PromptTokens,
			CompletionTokens: response.ResponseMeta.Usage.CompletionTokens,
			TotalTokens:      response.ResponseMeta.Usage.TotalTokens,
		}
	}
	log.Printf("[ai] completion length=%d", len(completion.Response))
	return completion, nil
}

const summarySystemPrompt = "You compress conversation history. Summarize the " +
	"exchanges into at most three sentences, keeping names, decisions and open questions."

// SummarizeTurns folds a block of turns into summary text for the memory
// store's summary tier.
func (s *Service) SummarizeTurns(ctx context.Context, turns []conversation.Turn) (string, error) {
	if len(turns) == 0 {
		return "", nil
	}

	var builder strings.Builder
	for _, turn := range turns {
		if turn.UserID == "assistant" {
			builder.WriteString("Assistant: ")
			builder.WriteString(turn.Response)
		} else {
			builder.WriteString("User: ")
			builder.WriteString(turn.Query)
		}
		builder.WriteString("\n")
	}

	completion, err := s.Complete(ctx, summarySystemPrompt, builder.String())
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(completion.Response), nil
}
