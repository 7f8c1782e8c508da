package mediator

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/yeehaa123/personal-brain-sub006/internal/model/message"
)

// Handler is the contract every registered context fulfils. HandleRequest
// returns the response payload for a request addressed to the context.
// HandleNotification reports whether the context accepted the broadcast.
// Handlers must be reentrant; the mediator does not serialize across senders.
type Handler interface {
	HandleRequest(ctx context.Context, req *message.Request) (map[string]any, error)
	HandleNotification(ctx context.Context, n *message.Notification) (bool, error)
}

// Mediator routes requests and notifications between named contexts so they
// never hold direct references to each other.
type Mediator struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	timeout  time.Duration
}

// DefaultTimeout bounds how long a single handler may run before the caller
// gets a synthesized error response.
const DefaultTimeout = 30 * time.Second

// New creates a mediator. A non-positive timeout falls back to DefaultTimeout.
func New(timeout time.Duration) *Mediator {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Mediator{
		handlers: make(map[string]Handler),
		timeout:  timeout,
	}
}

// RegisterHandler binds one handler per context id. Re-registration replaces
// the prior handler.
func (m *Mediator) RegisterHandler(contextID string, h Handler) {
	m.mu.Lock()
	if _, exists := m.handlers[contextID]; exists {
		log.Printf("[mediator] replacing handler for context=%s", contextID)
	}
	m.handlers[contextID] = h
	m.mu.Unlock()
}

// SendRequest routes a request to its target context and returns the handler
// response. Routing failures come back as typed error messages; the Go error
// is non-nil only for structurally invalid input, which is a caller bug.
func (m *Mediator) SendRequest(ctx context.Context, req *message.Request) (message.Message, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.TargetContext == "" {
		return nil, fmt.Errorf("request %s: target context is required", req.ID)
	}
	if req.DataType == "" {
		return message.NewError(req, message.KindInvalidFormat, "data type is required"), nil
	}

	m.mu.RLock()
	h, ok := m.handlers[req.TargetContext]
	m.mu.RUnlock()
	if !ok {
		return message.NewError(req, message.KindNoHandler,
			fmt.Sprintf("no handler registered for context %q", req.TargetContext)), nil
	}

	payload, err := m.invoke(ctx, h, req)
	if err != nil {
		return message.NewError(req, classify(err), err.Error()), nil
	}
	return message.NewAcknowledgment(req, payload), nil
}

// SendNotification broadcasts to every registered context whose handler
// accepts the notification and returns the context ids that acknowledged.
// Every recipient handler completes before the call returns.
func (m *Mediator) SendNotification(ctx context.Context, n *message.Notification) ([]string, error) {
	if err := n.Validate(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	targets := make(map[string]Handler, len(m.handlers))
	for id, h := range m.handlers {
		targets[id] = h
	}
	m.mu.RUnlock()

	var acked []string
	for id, h := range targets {
		accepted, err := m.deliver(ctx, h, n)
		if err != nil {
			log.Printf("[mediator] notification %s rejected by context=%s: %v", n.NotificationType, id, err)
			continue
		}
		if accepted {
			acked = append(acked, id)
		}
	}
	sort.Strings(acked)
	return acked, nil
}

// invoke runs a request handler under the mediator timeout, converting panics
// into errors so a misbehaving context cannot take down its caller.
func (m *Mediator) invoke(ctx context.Context, h Handler, req *message.Request) (payload map[string]any, err error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	type result struct {
		payload map[string]any
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("handler panic: %v", r)}
			}
		}()
		p, e := h.HandleRequest(ctx, req)
		done <- result{payload: p, err: e}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("request %s to %s: %w", req.DataType, req.TargetContext, ctx.Err())
	case res := <-done:
		return res.payload, res.err
	}
}

func (m *Mediator) deliver(ctx context.Context, h Handler, n *message.Notification) (accepted bool, err error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			accepted, err = false, fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h.HandleNotification(ctx, n)
}

func classify(err error) message.ErrorKind {
	if errors.Is(err, message.ErrUnsupportedDataType) {
		return message.KindUnsupportedDataType
	}
	return message.KindHandlerError
}
