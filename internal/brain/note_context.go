package brain

import (
	"context"
	"log"
	"sort"
	"strings"
	"sync"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/coverage"
	"github.com/yeehaa123/personal-brain-sub006/internal/analysis/relevance"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/note"
)

// ContextNotes is the mediator id of the note context.
const ContextNotes = "notes"

// profileTagBoost nudges notes tagged with the owner's skills up the ranking.
const profileTagBoost = 0.05

// NoteContext owns note retrieval. Other contexts reach it through the
// mediator, never by direct reference.
type NoteContext struct {
	store    note.Store
	embedder embedding.Embedder

	mu        sync.RWMutex
	boostTags map[string]bool
}

// NewNoteContext creates the note context.
func NewNoteContext(store note.Store, embedder embedding.Embedder) *NoteContext {
	return &NoteContext{
		store:     store,
		embedder:  embedder,
		boostTags: make(map[string]bool),
	}
}

// SearchNotes retrieves notes for a query. With semantic enabled, notes with
// embeddings rank by cosine similarity to the query embedding and the rest by
// term coverage; without it, ranking is term coverage plus tag matches. An
// empty query ranks the candidates by recency.
func (c *NoteContext) SearchNotes(ctx context.Context, query string, tags []string, limit int, semantic bool) []note.Note {
	if limit <= 0 {
		limit = 10
	}

	candidates := c.store.List()
	if len(tags) > 0 {
		if tagged := c.store.FindByTags(tags); len(tagged) > 0 {
			candidates = tagged
		}
	}

	// An empty query carries no terms to score, so tag-only searches rank
	// the tag-filtered candidates by recency instead.
	if strings.TrimSpace(query) == "" {
		sort.SliceStable(candidates, func(i, j int) bool {
			return candidates[i].UpdatedAt.After(candidates[j].UpdatedAt)
		})
		if len(candidates) > limit {
			candidates = candidates[:limit]
		}
		return candidates
	}

	var queryVec []float64
	if semantic && c.embedder != nil && query != "" {
		vectors, err := c.embedder.EmbedStrings(ctx, []string{query})
		if err != nil {
			log.Printf("[notes] query embedding failed, falling back to term coverage: %v", err)
		} else if len(vectors) > 0 {
			queryVec = vectors[0]
		}
	}

	type scored struct {
		n     note.Note
		score float64
	}
	var ranked []scored
	for _, n := range candidates {
		score := c.scoreNote(query, queryVec, n)
		if score <= 0 {
			continue
		}
		ranked = append(ranked, scored{n: n, score: score})
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	out := make([]note.Note, len(ranked))
	for i, s := range ranked {
		out[i] = s.n
	}
	return out
}

// GetRecentNotes returns the most recently updated notes.
func (c *NoteContext) GetRecentNotes(limit int) []note.Note {
	return c.store.Recent(limit)
}

// GetRelatedNotes finds notes sharing tags or vocabulary with the given note.
func (c *NoteContext) GetRelatedNotes(ctx context.Context, noteID string, limit int) []note.Note {
	origin, ok := c.store.FindByID(noteID)
	if !ok {
		return nil
	}
	if limit <= 0 {
		limit = 5
	}

	related := c.SearchNotes(ctx, origin.Title+" "+origin.Content, origin.Tags, limit+1, true)
	out := related[:0]
	for _, n := range related {
		if n.ID != noteID {
			out = append(out, n)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}

// PutNote stores a note, embedding it first when an embedder is available.
func (c *NoteContext) PutNote(ctx context.Context, n note.Note) note.Note {
	if c.embedder != nil && len(n.Embedding) == 0 {
		if vectors, err := c.embedder.EmbedStrings(ctx, []string{n.Title + "\n" + n.Content}); err != nil {
			log.Printf("[notes] embedding failed for note %q: %v", n.Title, err)
		} else if len(vectors) > 0 {
			n.Embedding = vectors[0]
		}
	}
	return c.store.Put(n)
}

func (c *NoteContext) scoreNote(query string, queryVec []float64, n note.Note) float64 {
	var score float64
	if len(queryVec) > 0 && len(n.Embedding) > 0 {
		score = relevance.CosineSimilarity(queryVec, n.Embedding)
	} else {
		score = coverage.Score(query, n.Title+" "+n.Content)
	}

	c.mu.RLock()
	for _, tag := range n.Tags {
		if c.boostTags[strings.ToLower(tag)] {
			score += profileTagBoost
			break
		}
	}
	c.mu.RUnlock()
	return score
}

// HandleRequest implements the mediator contract.
func (c *NoteContext) HandleRequest(ctx context.Context, req *message.Request) (map[string]any, error) {
	switch req.DataType {
	case "notes.search":
		query, _ := req.Payload["query"].(string)
		tags := stringSlice(req.Payload["tags"])
		limit := intValue(req.Payload["limit"], 10)
		semantic, _ := req.Payload["semantic"].(bool)
		return map[string]any{"notes": c.SearchNotes(ctx, query, tags, limit, semantic)}, nil
	case "notes.recent":
		return map[string]any{"notes": c.GetRecentNotes(intValue(req.Payload["limit"], 5))}, nil
	case "notes.related":
		noteID, _ := req.Payload["noteId"].(string)
		return map[string]any{"notes": c.GetRelatedNotes(ctx, noteID, intValue(req.Payload["limit"], 5))}, nil
	default:
		return nil, message.ErrUnsupportedDataType
	}
}

// HandleNotification refreshes the profile-derived boost tags when the
// profile changes. All cross-context traffic arrives through the mediator.
func (c *NoteContext) HandleNotification(_ context.Context, n *message.Notification) (bool, error) {
	if n.NotificationType != NotificationProfileUpdated {
		return false, nil
	}

	tags := make(map[string]bool)
	for _, field := range []string{"skills", "interests"} {
		for _, v := range stringSlice(n.Payload[field]) {
			tags[strings.ToLower(v)] = true
		}
	}

	c.mu.Lock()
	c.boostTags = tags
	c.mu.Unlock()
	log.Printf("[notes] refreshed %d profile boost tags", len(tags))
	return true, nil
}

func stringSlice(v any) []string {
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, item := range vv {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func intValue(v any, fallback int) int {
	switch vv := v.(type) {
	case int:
		return vv
	case float64:
		return int(vv)
	default:
		return fallback
	}
}
