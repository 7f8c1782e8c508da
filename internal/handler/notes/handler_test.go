package notes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/mediator"
	"github.com/yeehaa123/personal-brain-sub006/internal/memory"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	noteModel "github.com/yeehaa123/personal-brain-sub006/internal/model/note"
	profileModel "github.com/yeehaa123/personal-brain-sub006/internal/model/profile"
	"github.com/yeehaa123/personal-brain-sub006/internal/service/ai"
)

func setupRouter(t *testing.T) *chi.Mux {
	t.Helper()
	bus := mediator.New(time.Second)
	manager := brain.NewManager(bus, brain.Deps{
		NoteStore:         noteModel.NewMemoryStore(noteModel.Seed()),
		ProfileStore:      profileModel.NewMemoryStore(nil),
		ConversationStore: conversation.NewMemoryStore(),
		Provider:          &brain.StaticProvider{},
		Embedder:          &ai.HashEmbedder{},
		MemoryConfig:      memory.Config{ActiveCapacity: 10},
	}, true)
	if !manager.Ready() {
		t.Fatal("manager not ready")
	}

	r := chi.NewRouter()
	New(manager).RegisterRoutes(r)
	return r
}

func TestListRecentNotes(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/notes?limit=2", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Notes []noteModel.Note `json:"notes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Notes) != 2 {
		t.Fatalf("expected 2 notes, got %d", len(body.Notes))
	}
}

func TestSearchNotesRequiresQueryOrTags(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/notes/search", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestSearchNotesByTag(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/notes/search?tags=project", nil)
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	var body struct {
		Notes []noteModel.Note `json:"notes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if len(body.Notes) == 0 {
		t.Fatal("expected tag match from seed notes")
	}
}

func TestCreateNote(t *testing.T) {
	r := setupRouter(t)

	payload, _ := json.Marshal(map[string]any{
		"title":   "Sourdough",
		"content": "starter hydration schedule",
		"tags":    []string{"recipe"},
	})
	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}
	var created noteModel.Note
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode err: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected generated note id")
	}
	if len(created.Embedding) == 0 {
		t.Fatal("expected note embedding to be populated on create")
	}
}

func TestCreateNoteRejectsEmpty(t *testing.T) {
	r := setupRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/notes", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}
