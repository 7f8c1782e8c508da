package brain_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/mediator"
	"github.com/yeehaa123/personal-brain-sub006/internal/memory"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/external"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
	noteModel "github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	profileModel "github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
	"github.com/yeehaa123/personal-brain-sub006/internal/service/ai"
)

func newTestManager(t *testing.T) (*brain.Manager, *mediator.Mediator) {
	t.Helper()
	bus := mediator.New(time.Second)
	manager := brain.NewManager(bus, brain.Deps{
		NoteStore:         noteModel.NewMemoryStore(noteModel.Seed()),
		ProfileStore:      profileModel.NewMemoryStore(nil),
		ConversationStore: conversation.NewMemoryStore(),
		Provider:          &brain.StaticProvider{Results: []external.Result{{Title: "Go", Snippet: "go programming language", Source: "wiki"}}},
		Embedder:          &ai.HashEmbedder{},
		MemoryConfig:      memory.Config{ActiveCapacity: 10},
	}, true)
	if !manager.Ready() {
		t.Fatal("manager not ready with full deps")
	}
	return manager, bus
}

func TestManagerMissingDependency(t *testing.T) {
	bus := mediator.New(time.Second)
	manager := brain.NewManager(bus, brain.Deps{
		ProfileStore:      profileModel.NewMemoryStore(nil),
		ConversationStore: conversation.NewMemoryStore(),
	}, true)

	if manager.Ready() {
		t.Fatal("manager must not be ready without a note store")
	}

	_, err := manager.Notes()
	var notReady *brain.NotReadyError
	if !errors.As(err, &notReady) {
		t.Fatalf("expected NotReadyError, got %v", err)
	}
	var confErr *brain.ConfigurationError
	if !errors.As(err, &confErr) {
		t.Fatalf("expected wrapped ConfigurationError, got %v", err)
	}
	if _, err := manager.Conversation(); err == nil {
		t.Fatal("every accessor must fail when construction failed")
	}
}

func TestManagerExternalSourcesToggle(t *testing.T) {
	manager, _ := newTestManager(t)

	if !manager.GetExternalSourcesEnabled() {
		t.Fatal("expected external sources enabled at startup")
	}
	manager.SetExternalSourcesEnabled(false)
	if manager.GetExternalSourcesEnabled() {
		t.Fatal("toggle off did not stick")
	}
	manager.SetExternalSourcesEnabled(true)
	if !manager.GetExternalSourcesEnabled() {
		t.Fatal("toggle on did not stick")
	}
}

func TestInitializeContextLinksWiresNoteSearch(t *testing.T) {
	manager, _ := newTestManager(t)
	ctx := context.Background()

	profileCtx, err := manager.Profile()
	if err != nil {
		t.Fatalf("Profile err: %v", err)
	}
	profileCtx.UpdateProfile(ctx, profileModel.Profile{
		Name:   "Ada",
		Skills: []string{"reading", "projects"},
	})

	if got := profileCtx.RelatedNotes(ctx, 3); got != nil {
		t.Fatalf("delegate must be nil before wiring, got %d notes", len(got))
	}

	manager.InitializeContextLinks()
	manager.InitializeContextLinks() // idempotent

	if got := profileCtx.RelatedNotes(ctx, 3); len(got) == 0 {
		t.Fatal("expected related notes after wiring")
	}
}

func TestContextsAnswerMediatorRequests(t *testing.T) {
	manager, bus := newTestManager(t)
	manager.InitializeContextLinks()
	ctx := context.Background()

	req := message.NewRequest("test", brain.ContextNotes, "notes.recent", map[string]any{"limit": 2})
	resp, err := bus.SendRequest(ctx, req)
	if err != nil {
		t.Fatalf("SendRequest err: %v", err)
	}
	ack, ok := resp.(*message.Acknowledgment)
	if !ok {
		t.Fatalf("expected acknowledgment, got %T", resp)
	}
	if _, ok := ack.Payload["notes"]; !ok {
		t.Fatalf("missing notes in payload: %v", ack.Payload)
	}

	bad := message.NewRequest("test", brain.ContextProfile, "profile.unknown", nil)
	resp, err = bus.SendRequest(ctx, bad)
	if err != nil {
		t.Fatalf("SendRequest err: %v", err)
	}
	errMsg, ok := resp.(*message.ErrorResponse)
	if !ok {
		t.Fatalf("expected error response, got %T", resp)
	}
	if errMsg.Kind != message.KindUnsupportedDataType {
		t.Fatalf("unexpected kind: %s", errMsg.Kind)
	}
}

func TestProfileUpdateBroadcastReachesNotes(t *testing.T) {
	manager, _ := newTestManager(t)
	manager.InitializeContextLinks()
	ctx := context.Background()

	profileCtx, err := manager.Profile()
	if err != nil {
		t.Fatalf("Profile err: %v", err)
	}

	updated := profileCtx.UpdateProfile(ctx, profileModel.Profile{Name: "Ada", Skills: []string{"go"}})
	if updated.Name != "Ada" {
		t.Fatalf("unexpected profile: %+v", updated)
	}
	if len(updated.Embedding) == 0 {
		t.Fatal("expected profile embedding to be populated")
	}
	if got := profileCtx.GetProfile(); got == nil || got.Name != "Ada" {
		t.Fatalf("stored profile mismatch: %+v", got)
	}
}
