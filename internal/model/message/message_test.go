package message_test

import (
	"errors"
	"testing"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
)

func TestNewRequestPopulatesEnvelope(t *testing.T) {
	req := message.NewRequest("query", "notes", "notes.search", map[string]any{"q": "go"})

	if req.ID == "" {
		t.Fatal("expected generated message ID")
	}
	if req.SourceContext != "query" || req.TargetContext != "notes" {
		t.Fatalf("unexpected routing: %s -> %s", req.SourceContext, req.TargetContext)
	}
	if req.Category() != message.CategoryRequest {
		t.Fatalf("unexpected category: %s", req.Category())
	}
	if err := req.Validate(); err != nil {
		t.Fatalf("Validate err: %v", err)
	}
}

func TestValidateRejectsMissingID(t *testing.T) {
	req := message.NewRequest("query", "notes", "notes.search", nil)
	req.ID = ""

	if err := req.Validate(); !errors.Is(err, message.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestNewAcknowledgmentCorrelates(t *testing.T) {
	req := message.NewRequest("query", "profile", "profile.get", nil)
	ack := message.NewAcknowledgment(req, map[string]any{"name": "Ada"})

	if ack.InResponseTo != req.ID {
		t.Fatalf("ack correlates to %s, want %s", ack.InResponseTo, req.ID)
	}
	if ack.SourceContext != req.TargetContext || ack.TargetContext != req.SourceContext {
		t.Fatalf("ack routing not mirrored: %s -> %s", ack.SourceContext, ack.TargetContext)
	}
	if ack.Category() != message.CategoryAcknowledgment {
		t.Fatalf("unexpected category: %s", ack.Category())
	}
}

func TestNewErrorCarriesKind(t *testing.T) {
	req := message.NewRequest("query", "nowhere", "ping", nil)
	errMsg := message.NewError(req, message.KindNoHandler, "no handler registered")

	if errMsg.Kind != message.KindNoHandler {
		t.Fatalf("unexpected kind: %s", errMsg.Kind)
	}
	if errMsg.InResponseTo != req.ID {
		t.Fatalf("error correlates to %s, want %s", errMsg.InResponseTo, req.ID)
	}
	if errMsg.Category() != message.CategoryError {
		t.Fatalf("unexpected category: %s", errMsg.Category())
	}
}

func TestNewNotificationHasNoTarget(t *testing.T) {
	n := message.NewNotification("profile", "profile.updated", map[string]any{"name": "Ada"})

	if n.TargetContext != "" {
		t.Fatalf("notifications are broadcast, got target %q", n.TargetContext)
	}
	if n.NotificationType != "profile.updated" {
		t.Fatalf("unexpected type: %s", n.NotificationType)
	}
	if err := n.Validate(); err != nil {
		t.Fatalf("Validate err: %v", err)
	}
}
