package brain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/cloudwego/eino/components/embedding"

	"github.com/yeehaa123/personal-brain-sub006/internal/mediator"
	"github.com/yeehaa123/personal-brain-sub006/internal/memory"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	noteModel "github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	profileModel "github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
)

// Deps are the collaborators the manager injects into its contexts. No
// singletons: the application root constructs everything once and passes it
// down.
type Deps struct {
	NoteStore         noteModel.Store
	ProfileStore      profileModel.Store
	ConversationStore conversation.Store
	Provider          SearchProvider
	Embedder          embedding.Embedder
	Summarizer        memory.Summarizer
	MemoryConfig      memory.Config
}

// Manager constructs and holds the four contexts, registers their mediator
// handlers, and tracks readiness.
type Manager struct {
	bus *mediator.Mediator

	notes        *NoteContext
	profile      *ProfileContext
	external     *ExternalSourceContext
	conversation *ConversationContext

	ready   bool
	initErr error

	linksMu     sync.Mutex
	linksWired  bool
	externalsOn atomic.Bool
}

// NewManager builds all four contexts. Ready() is true only when every
// context constructed without error; accessors surface the original failure
// otherwise.
func NewManager(bus *mediator.Mediator, deps Deps, externalEnabled bool) *Manager {
	m := &Manager{bus: bus}
	m.externalsOn.Store(externalEnabled)

	m.initErr = m.construct(deps)
	m.ready = m.initErr == nil
	if m.ready {
		bus.RegisterHandler(ContextNotes, m.notes)
		bus.RegisterHandler(ContextProfile, m.profile)
		bus.RegisterHandler(ContextExternal, m.external)
		bus.RegisterHandler(ContextConversation, m.conversation)
	}
	return m
}

func (m *Manager) construct(deps Deps) error {
	if deps.NoteStore == nil {
		return &ConfigurationError{Component: ContextNotes, Err: errors.New("note store is required")}
	}
	if deps.ProfileStore == nil {
		return &ConfigurationError{Component: ContextProfile, Err: errors.New("profile store is required")}
	}
	if deps.ConversationStore == nil {
		return &ConfigurationError{Component: ContextConversation, Err: errors.New("conversation store is required")}
	}

	m.notes = NewNoteContext(deps.NoteStore, deps.Embedder)
	m.profile = NewProfileContext(deps.ProfileStore, deps.Embedder, m.bus)
	m.external = NewExternalSourceContext(deps.Provider)
	m.conversation = NewConversationContext(
		memory.NewService(deps.ConversationStore, deps.Summarizer, deps.MemoryConfig))
	return nil
}

// Ready reports whether all four contexts constructed without error.
func (m *Manager) Ready() bool { return m.ready }

// Notes returns the note context, or a NotReadyError carrying the
// construction failure.
func (m *Manager) Notes() (*NoteContext, error) {
	if !m.ready {
		return nil, &NotReadyError{Cause: m.initErr}
	}
	return m.notes, nil
}

// Profile returns the profile context.
func (m *Manager) Profile() (*ProfileContext, error) {
	if !m.ready {
		return nil, &NotReadyError{Cause: m.initErr}
	}
	return m.profile, nil
}

// External returns the external-source context.
func (m *Manager) External() (*ExternalSourceContext, error) {
	if !m.ready {
		return nil, &NotReadyError{Cause: m.initErr}
	}
	return m.external, nil
}

// Conversation returns the conversation context.
func (m *Manager) Conversation() (*ConversationContext, error) {
	if !m.ready {
		return nil, &NotReadyError{Cause: m.initErr}
	}
	return m.conversation, nil
}

// InitializeContextLinks wires cross-context references, currently the
// profile context's note-search delegate. Idempotent.
func (m *Manager) InitializeContextLinks() {
	if !m.ready {
		return
	}
	m.linksMu.Lock()
	defer m.linksMu.Unlock()
	if m.linksWired {
		return
	}
	m.profile.SetNoteSearcher(func(ctx context.Context, query string, limit int) []noteModel.Note {
		return m.notes.SearchNotes(ctx, query, nil, limit, true)
	})
	m.linksWired = true
}

// SetExternalSourcesEnabled toggles external search. Pure state change.
func (m *Manager) SetExternalSourcesEnabled(enabled bool) {
	m.externalsOn.Store(enabled)
}

// GetExternalSourcesEnabled reports the toggle.
func (m *Manager) GetExternalSourcesEnabled() bool {
	return m.externalsOn.Load()
}
