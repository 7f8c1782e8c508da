package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
)

// Summarizer compacts a contiguous block of turns into summary text.
// Summarization is lossy but bounded; the raw turns stay in the archive.
type Summarizer interface {
	Summarize(ctx context.Context, turns []conversation.Turn) (string, error)
}

// SummarizerFunc adapts a function to the Summarizer interface.
type SummarizerFunc func(ctx context.Context, turns []conversation.Turn) (string, error)

func (f SummarizerFunc) Summarize(ctx context.Context, turns []conversation.Turn) (string, error) {
	return f(ctx, turns)
}

// HeuristicSummarizer produces a deterministic summary from the turn queries.
// It is the fallback when no model-backed summarizer is configured.
type HeuristicSummarizer struct{}

const maxHeuristicTopics = 5

func (HeuristicSummarizer) Summarize(_ context.Context, turns []conversation.Turn) (string, error) {
	if len(turns) == 0 {
		return "", nil
	}

	seen := make(map[string]bool)
	var topics []string
	for _, turn := range turns {
		if turn.UserID == "assistant" {
			continue
		}
		topic := firstWords(turn.Query, 6)
		if topic == "" || seen[topic] {
			continue
		}
		seen[topic] = true
		topics = append(topics, topic)
		if len(topics) == maxHeuristicTopics {
			break
		}
	}

	if len(topics) == 0 {
		return fmt.Sprintf("%d earlier exchanges.", len(turns)), nil
	}
	return fmt.Sprintf("%d earlier exchanges covering: %s.", len(turns), strings.Join(topics, "; ")), nil
}

func firstWords(text string, n int) string {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) > n {
		fields = fields[:n]
	}
	return strings.Join(fields, " ")
}
