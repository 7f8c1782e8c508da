package brain

import (
	"context"
	"log"
	"strings"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/yeehaa123/personal-brain-sub006/internal/mediator"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
)

// ContextProfile is the mediator id of the profile context.
const ContextProfile = "profile"

// NotificationProfileUpdated is broadcast after every profile update.
const NotificationProfileUpdated = "profile.updated"

// NoteSearcher is the note-search delegate wired into the profile context by
// InitializeContextLinks.
type NoteSearcher func(ctx context.Context, query string, limit int) []note.Note

// ProfileContext owns the user profile.
type ProfileContext struct {
	store    profile.Store
	embedder embedding.Embedder
	bus      *mediator.Mediator

	searchNotes NoteSearcher
}

// NewProfileContext creates the profile context.
func NewProfileContext(store profile.Store, embedder embedding.Embedder, bus *mediator.Mediator) *ProfileContext {
	return &ProfileContext{store: store, embedder: embedder, bus: bus}
}

// GetProfile returns the stored profile, or nil when none exists.
func (c *ProfileContext) GetProfile() *profile.Profile {
	p, ok := c.store.Get()
	if !ok {
		return nil
	}
	return p
}

// UpdateProfile stores the profile, embedding it when possible, and notifies
// interested contexts through the mediator.
func (c *ProfileContext) UpdateProfile(ctx context.Context, p profile.Profile) profile.Profile {
	if c.embedder != nil && len(p.Embedding) == 0 {
		text := strings.Join([]string{p.Name, p.Headline, p.About, strings.Join(p.Skills, " ")}, "\n")
		if vectors, err := c.embedder.EmbedStrings(ctx, []string{text}); err != nil {
			log.Printf("[profile] embedding failed: %v", err)
		} else if len(vectors) > 0 {
			p.Embedding = vectors[0]
		}
	}

	updated := c.store.Update(p)

	notification := message.NewNotification(ContextProfile, NotificationProfileUpdated, map[string]any{
		"name":      updated.Name,
		"skills":    updated.Skills,
		"interests": updated.Interests,
	})
	acked, err := c.bus.SendNotification(ctx, notification)
	if err != nil {
		log.Printf("[profile] update notification failed: %v", err)
	} else {
		log.Printf("[profile] update acknowledged by %v", acked)
	}
	return updated
}

// RelatedNotes finds notes matching the profile skills via the note-search
// delegate. Returns nil until InitializeContextLinks wires the delegate.
func (c *ProfileContext) RelatedNotes(ctx context.Context, limit int) []note.Note {
	if c.searchNotes == nil {
		return nil
	}
	p := c.GetProfile()
	if p == nil {
		return nil
	}
	query := strings.Join(append(append([]string{}, p.Skills...), p.Interests...), " ")
	if strings.TrimSpace(query) == "" {
		return nil
	}
	return c.searchNotes(ctx, query, limit)
}

// SetNoteSearcher wires the note-search delegate. Safe to call repeatedly.
func (c *ProfileContext) SetNoteSearcher(fn NoteSearcher) {
	c.searchNotes = fn
}

// HandleRequest implements the mediator contract.
func (c *ProfileContext) HandleRequest(_ context.Context, req *message.Request) (map[string]any, error) {
	switch req.DataType {
	case "profile.get":
		return map[string]any{"profile": c.GetProfile()}, nil
	default:
		return nil, message.ErrUnsupportedDataType
	}
}

// HandleNotification declines all broadcasts; the profile context only
// produces notifications.
func (c *ProfileContext) HandleNotification(context.Context, *message.Notification) (bool, error) {
	return false, nil
}
