package mediator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/yeehaa123/personal-brain-sub006/internal/mediator"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
)

type stubHandler struct {
	requestFn func(ctx context.Context, req *message.Request) (map[string]any, error)
	notifyFn  func(ctx context.Context, n *message.Notification) (bool, error)
}

func (s *stubHandler) HandleRequest(ctx context.Context, req *message.Request) (map[string]any, error) {
	if s.requestFn == nil {
		return nil, nil
	}
	return s.requestFn(ctx, req)
}

func (s *stubHandler) HandleNotification(ctx context.Context, n *message.Notification) (bool, error) {
	if s.notifyFn == nil {
		return false, nil
	}
	return s.notifyFn(ctx, n)
}

func TestSendRequestRoutesToHandler(t *testing.T) {
	m := mediator.New(time.Second)
	m.RegisterHandler("notes", &stubHandler{
		requestFn: func(_ context.Context, req *message.Request) (map[string]any, error) {
			return map[string]any{"echo": req.DataType}, nil
		},
	})

	req := message.NewRequest("query", "notes", "notes.search", nil)
	resp, err := m.SendRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("SendRequest err: %v", err)
	}

	ack, ok := resp.(*message.Acknowledgment)
	if !ok {
		t.Fatalf("expected acknowledgment, got %T", resp)
	}
	if ack.Payload["echo"] != "notes.search" {
		t.Fatalf("unexpected payload: %v", ack.Payload)
	}
}

func TestSendRequestNoHandler(t *testing.T) {
	m := mediator.New(time.Second)

	req := message.NewRequest("query", "missing", "anything", nil)
	resp, err := m.SendRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("routing failures must be messages, got err: %v", err)
	}

	errMsg, ok := resp.(*message.ErrorResponse)
	if !ok {
		t.Fatalf("expected error response, got %T", resp)
	}
	if errMsg.Kind != message.KindNoHandler {
		t.Fatalf("unexpected kind: %s", errMsg.Kind)
	}
	if errMsg.InResponseTo != req.ID {
		t.Fatalf("error correlates to %s, want %s", errMsg.InResponseTo, req.ID)
	}
}

func TestSendRequestEmptyDataType(t *testing.T) {
	m := mediator.New(time.Second)
	m.RegisterHandler("notes", &stubHandler{
		requestFn: func(context.Context, *message.Request) (map[string]any, error) {
			t.Fatal("handler must not run for an empty data type")
			return nil, nil
		},
	})

	req := message.NewRequest("query", "notes", "", nil)
	resp, err := m.SendRequest(context.Background(), req)
	if err != nil {
		t.Fatalf("SendRequest err: %v", err)
	}

	errMsg, ok := resp.(*message.ErrorResponse)
	if !ok {
		t.Fatalf("expected error response, got %T", resp)
	}
	if errMsg.Kind != message.KindInvalidFormat {
		t.Fatalf("unexpected kind: %s", errMsg.Kind)
	}
	if errMsg.InResponseTo != req.ID {
		t.Fatalf("error correlates to %s, want %s", errMsg.InResponseTo, req.ID)
	}
}

func TestSendRequestMissingIDFailsFast(t *testing.T) {
	m := mediator.New(time.Second)
	req := message.NewRequest("query", "notes", "notes.search", nil)
	req.ID = ""

	if _, err := m.SendRequest(context.Background(), req); !errors.Is(err, message.ErrMissingID) {
		t.Fatalf("expected ErrMissingID, got %v", err)
	}
}

func TestSendRequestUnsupportedDataType(t *testing.T) {
	m := mediator.New(time.Second)
	m.RegisterHandler("notes", &stubHandler{
		requestFn: func(_ context.Context, req *message.Request) (map[string]any, error) {
			return nil, fmt.Errorf("%q: %w", req.DataType, message.ErrUnsupportedDataType)
		},
	})

	req := message.NewRequest("query", "notes", "notes.unknown", nil)
	resp, err := m.SendRequest(context.Background(), req)
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

func TestSendRequestHandlerPanic(t *testing.T) {
	m := mediator.New(time.Second)
	m.RegisterHandler("notes", &stubHandler{
		requestFn: func(context.Context, *message.Request) (map[string]any, error) {
			panic("boom")
		},
	})

	resp, err := m.SendRequest(context.Background(), message.NewRequest("query", "notes", "notes.search", nil))
	if err != nil {
		t.Fatalf("SendRequest err: %v", err)
	}
	if _, ok := resp.(*message.ErrorResponse); !ok {
		t.Fatalf("expected error response after panic, got %T", resp)
	}
}

func TestSendRequestTimeout(t *testing.T) {
	m := mediator.New(50 * time.Millisecond)
	m.RegisterHandler("slow", &stubHandler{
		requestFn: func(ctx context.Context, _ *message.Request) (map[string]any, error) {
			<-ctx.Done()
			time.Sleep(10 * time.Millisecond)
			return nil, ctx.Err()
		},
	})

	resp, err := m.SendRequest(context.Background(), message.NewRequest("query", "slow", "anything", nil))
	if err != nil {
		t.Fatalf("SendRequest err: %v", err)
	}
	if _, ok := resp.(*message.ErrorResponse); !ok {
		t.Fatalf("expected error response on timeout, got %T", resp)
	}
}

func TestSendNotificationCollectsAcks(t *testing.T) {
	m := mediator.New(time.Second)
	accept := func(context.Context, *message.Notification) (bool, error) { return true, nil }
	decline := func(context.Context, *message.Notification) (bool, error) { return false, nil }

	m.RegisterHandler("notes", &stubHandler{notifyFn: accept})
	m.RegisterHandler("profile", &stubHandler{notifyFn: decline})
	m.RegisterHandler("conversation", &stubHandler{notifyFn: accept})

	acked, err := m.SendNotification(context.Background(), message.NewNotification("profile", "profile.updated", nil))
	if err != nil {
		t.Fatalf("SendNotification err: %v", err)
	}

	if len(acked) != 2 || acked[0] != "conversation" || acked[1] != "notes" {
		t.Fatalf("unexpected acks: %v", acked)
	}
}

func TestSendNotificationHandlerErrorSkipsContext(t *testing.T) {
	m := mediator.New(time.Second)
	m.RegisterHandler("flaky", &stubHandler{
		notifyFn: func(context.Context, *message.Notification) (bool, error) {
			return false, errors.New("broken handler")
		},
	})
	m.RegisterHandler("steady", &stubHandler{
		notifyFn: func(context.Context, *message.Notification) (bool, error) { return true, nil },
	})

	acked, err := m.SendNotification(context.Background(), message.NewNotification("profile", "profile.updated", nil))
	if err != nil {
		t.Fatalf("SendNotification err: %v", err)
	}
	if len(acked) != 1 || acked[0] != "steady" {
		t.Fatalf("unexpected acks: %v", acked)
	}
}
