package conversation_test

import (
	"context"
	"testing"
	"time"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
)

func TestCreateConversationIdempotentPerRoom(t *testing.T) {
	store := conversation.NewMemoryStore()
	ctx := context.Background()

	first, err := store.CreateConversation(ctx, conversation.InterfaceChatRoom, "room-1")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}
	second, err := store.CreateConversation(ctx, conversation.InterfaceChatRoom, "room-1")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same conversation, got %s and %s", first.ID, second.ID)
	}

	other, err := store.CreateConversation(ctx, conversation.InterfaceCLI, "room-1")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("same room on a different interface must be a distinct conversation")
	}
}

func TestAddTurnOrdersByTimestamp(t *testing.T) {
	store := conversation.NewMemoryStore()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, conversation.InterfaceCLI, "room-2")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	base := time.Now().UTC()
	if _, err := store.AddTurn(ctx, conv.ID, conversation.Turn{Query: "second", UserID: "u", Timestamp: base.Add(time.Second)}); err != nil {
		t.Fatalf("AddTurn err: %v", err)
	}
	updated, err := store.AddTurn(ctx, conv.ID, conversation.Turn{Query: "first", UserID: "u", Timestamp: base})
	if err != nil {
		t.Fatalf("AddTurn err: %v", err)
	}

	if len(updated.ActiveTurns) != 2 {
		t.Fatalf("expected 2 active turns, got %d", len(updated.ActiveTurns))
	}
	if updated.ActiveTurns[0].Query != "first" || updated.ActiveTurns[1].Query != "second" {
		t.Fatalf("turns out of order: %q then %q", updated.ActiveTurns[0].Query, updated.ActiveTurns[1].Query)
	}
}

func TestAddTurnUnknownConversation(t *testing.T) {
	store := conversation.NewMemoryStore()

	if _, err := store.AddTurn(context.Background(), "missing", conversation.Turn{Query: "q", UserID: "u"}); err == nil {
		t.Fatal("expected error for unknown conversation")
	}
}

func TestMoveTurnsToArchive(t *testing.T) {
	store := conversation.NewMemoryStore()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, conversation.InterfaceCLI, "room-3")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	base := time.Now().UTC()
	for i, q := range []string{"a", "b", "c", "d"} {
		if _, err := store.AddTurn(ctx, conv.ID, conversation.Turn{Query: q, UserID: "u", Timestamp: base.Add(time.Duration(i) * time.Second)}); err != nil {
			t.Fatalf("AddTurn err: %v", err)
		}
	}

	updated, err := store.MoveTurnsToArchive(ctx, conv.ID, []int{0, 1})
	if err != nil {
		t.Fatalf("MoveTurnsToArchive err: %v", err)
	}

	if len(updated.ActiveTurns) != 2 || len(updated.ArchivedTurns) != 2 {
		t.Fatalf("unexpected tier sizes: active=%d archived=%d", len(updated.ActiveTurns), len(updated.ArchivedTurns))
	}
	if updated.ArchivedTurns[0].Query != "a" || updated.ArchivedTurns[1].Query != "b" {
		t.Fatalf("archive out of order: %q then %q", updated.ArchivedTurns[0].Query, updated.ArchivedTurns[1].Query)
	}
	if updated.ActiveTurns[0].Query != "c" {
		t.Fatalf("unexpected head of active tier: %q", updated.ActiveTurns[0].Query)
	}
}

func TestDeleteConversation(t *testing.T) {
	store := conversation.NewMemoryStore()
	ctx := context.Background()

	conv, err := store.CreateConversation(ctx, conversation.InterfaceCLI, "room-4")
	if err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	deleted, err := store.DeleteConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("DeleteConversation err: %v", err)
	}
	if !deleted {
		t.Fatal("expected deletion to report true")
	}

	again, err := store.DeleteConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("DeleteConversation err: %v", err)
	}
	if again {
		t.Fatal("second delete must report false")
	}

	got, err := store.GetConversation(ctx, conv.ID)
	if err != nil {
		t.Fatalf("GetConversation err: %v", err)
	}
	if got != nil {
		t.Fatal("conversation still present after delete")
	}

	byRoom, err := store.GetConversationByRoomID(ctx, "room-4", conversation.InterfaceCLI)
	if err != nil {
		t.Fatalf("GetConversationByRoomID err: %v", err)
	}
	if byRoom != nil {
		t.Fatal("room index still points at deleted conversation")
	}
}

func TestGetRecentConversationsFilters(t *testing.T) {
	store := conversation.NewMemoryStore()
	ctx := context.Background()

	if _, err := store.CreateConversation(ctx, conversation.InterfaceCLI, "cli-room"); err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}
	if _, err := store.CreateConversation(ctx, conversation.InterfaceChatRoom, "chat-room"); err != nil {
		t.Fatalf("CreateConversation err: %v", err)
	}

	list, err := store.GetRecentConversations(ctx, conversation.RecentOptions{InterfaceType: conversation.InterfaceCLI})
	if err != nil {
		t.Fatalf("GetRecentConversations err: %v", err)
	}
	if len(list) != 1 || list[0].RoomID != "cli-room" {
		t.Fatalf("unexpected filtered list: %v", list)
	}
}
