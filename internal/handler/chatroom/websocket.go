package chatroom

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/yeehaa123/personal-brain-sub006/internal/brain"
	"github.com/yeehaa123/personal-brain-sub006/internal/model/conversation"
	queryService "github.com/yeehaa123/personal-brain-sub006/internal/service/query"
)

// WebSocketHandler serves chat-room connections. Each room maps to one
// conversation; every participant in the room shares its memory.
type WebSocketHandler struct {
	processor *queryService.Processor
	manager   *brain.Manager
	upgrader  websocket.Upgrader
}

// NewWebSocketHandler creates the chat-room handler.
func NewWebSocketHandler(processor *queryService.Processor, manager *brain.Manager) *WebSocketHandler {
	return &WebSocketHandler{
		processor: processor,
		manager:   manager,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterRoutes registers the websocket route.
func (h *WebSocketHandler) RegisterRoutes(r chi.Router) {
	r.Get("/ws/{roomID}", h.handleWebSocket)
}

type inboundMessage struct {
	Type      string          `json:"type"`
	RoomID    string          `json:"roomId"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// QueryMessage carries a participant question.
type QueryMessage struct {
	Text     string `json:"text"`
	UserID   string `json:"userId"`
	UserName string `json:"userName"`
}

// ConfigMessage adjusts room behavior mid-session.
type ConfigMessage struct {
	ExternalSources *bool `json:"externalSources,omitempty"`
}

type outgoingMessage struct {
	Type      string      `json:"type"`
	RoomID    string      `json:"roomId,omitempty"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp int64       `json:"timestamp"`
}

type wsConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// wsSession serializes writes to one connection. gorilla/websocket allows at
// most one concurrent writer, and the ping loop runs beside the read loop.
type wsSession struct {
	conn wsConn
	mu   sync.Mutex
}

func (s *wsSession) writeJSON(v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteJSON(v)
}

func (s *wsSession) ping() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn.WriteMessage(websocket.PingMessage, nil)
}

func (h *WebSocketHandler) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	roomID := chi.URLParam(r, "roomID")
	if roomID == "" {
		http.Error(w, "roomID is required", http.StatusBadRequest)
		return
	}
	if !h.manager.Ready() {
		http.Error(w, "brain is not ready", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[websocket] upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	log.Printf("[websocket] new connection for room: %s", roomID)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	session := &wsSession{conn: conn}
	go h.pingLoop(ctx, session)

	h.sendInfo(session, roomID, map[string]any{
		"type":            "connected",
		"room":            roomID,
		"externalSources": h.manager.GetExternalSourcesEnabled(),
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg inboundMessage
			if err := conn.ReadJSON(&msg); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					log.Printf("[websocket] read error: %v", err)
				}
				return
			}

			conn.SetReadDeadline(time.Now().Add(60 * time.Second))

			if msg.RoomID != "" && msg.RoomID != roomID {
				h.sendError(session, "room mismatch")
				continue
			}

			h.handleMessage(ctx, session, roomID, &msg)
		}
	}
}

func (h *WebSocketHandler) handleMessage(ctx context.Context, session *wsSession, roomID string, msg *inboundMessage) {
	switch msg.Type {
	case "query":
		h.handleQueryMessage(ctx, session, roomID, msg.Data)
	case "config":
		h.handleConfigMessage(session, roomID, msg.Data)
	default:
		h.sendError(session, "unsupported message type: "+msg.Type)
	}
}

func (h *WebSocketHandler) handleQueryMessage(ctx context.Context, session *wsSession, roomID string, raw json.RawMessage) {
	var query QueryMessage
	if err := json.Unmarshal(raw, &query); err != nil {
		h.sendError(session, "invalid query payload")
		return
	}
	if query.Text == "" {
		return
	}

	h.sendInfo(session, roomID, map[string]any{
		"type":     "user",
		"text":     query.Text,
		"userId":   query.UserID,
		"userName": query.UserName,
	})

	result, err := h.processor.Process(ctx, query.Text, queryService.Options{
		RoomID:        roomID,
		InterfaceType: conversation.InterfaceChatRoom,
		UserID:        query.UserID,
		UserName:      query.UserName,
	})
	if err != nil {
		log.Printf("[websocket] query failed room=%s: %v", roomID, err)
		h.sendError(session, "query processing failed")
		return
	}

	h.sendInfo(session, roomID, map[string]any{
		"type":                "answer",
		"text":                result.Answer,
		"citations":           result.Citations,
		"conversationId":      result.ConversationID,
		"usedExternalSources": result.UsedExternalSources,
		"isFinal":             true,
	})
}

func (h *WebSocketHandler) handleConfigMessage(session *wsSession, roomID string, raw json.RawMessage) {
	var cfg ConfigMessage
	if err := json.Unmarshal(raw, &cfg); err != nil {
		h.sendError(session, "invalid config payload")
		return
	}

	if cfg.ExternalSources != nil {
		h.manager.SetExternalSourcesEnabled(*cfg.ExternalSources)
	}

	log.Printf("[websocket] config applied room=%s externalSources=%t", roomID, h.manager.GetExternalSourcesEnabled())

	h.sendInfo(session, roomID, map[string]any{
		"type":            "config",
		"externalSources": h.manager.GetExternalSourcesEnabled(),
	})
}

func (h *WebSocketHandler) sendInfo(session *wsSession, roomID string, data map[string]any) {
	msg := outgoingMessage{
		Type:      "result",
		RoomID:    roomID,
		Data:      data,
		Timestamp: time.Now().Unix(),
	}
	if err := session.writeJSON(msg); err != nil {
		log.Printf("[websocket] write info failed: %v", err)
	}
}

func (h *WebSocketHandler) sendError(session *wsSession, message string) {
	msg := outgoingMessage{
		Type:      "error",
		Data:      map[string]string{"message": message},
		Timestamp: time.Now().Unix(),
	}
	if err := session.writeJSON(msg); err != nil {
		log.Printf("[websocket] write error failed: %v", err)
	}
}

func (h *WebSocketHandler) pingLoop(ctx context.Context, session *wsSession) {
	ticker := time.NewTicker(54 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := session.ping(); err != nil {
				return
			}
		}
	}
}
