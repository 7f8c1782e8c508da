package chatroom

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/gorilla/websocket"
)

// countingConn fails the test if two writes ever overlap, which is what the
// gorilla connection forbids.
type countingConn struct {
	t        *testing.T
	inWrite  atomic.Bool
	json     int
	pings    int
	lastJSON interface{}
}

func (c *countingConn) enter() {
	if !c.inWrite.CompareAndSwap(false, true) {
		c.t.Error("concurrent write on websocket connection")
	}
}

func (c *countingConn) leave() {
	c.inWrite.Store(false)
}

func (c *countingConn) WriteJSON(v interface{}) error {
	c.enter()
	defer c.leave()
	c.json++
	c.lastJSON = v
	return nil
}

func (c *countingConn) WriteMessage(messageType int, _ []byte) error {
	c.enter()
	defer c.leave()
	if messageType != websocket.PingMessage {
		c.t.Errorf("unexpected message type %d", messageType)
	}
	c.pings++
	return nil
}

func TestSessionSerializesWrites(t *testing.T) {
	conn := &countingConn{t: t}
	session := &wsSession{conn: conn}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := session.writeJSON(outgoingMessage{Type: "result"}); err != nil {
					t.Errorf("writeJSON err: %v", err)
				}
			}
		}()
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if err := session.ping(); err != nil {
					t.Errorf("ping err: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if conn.json != 400 || conn.pings != 400 {
		t.Fatalf("writes lost: json=%d pings=%d", conn.json, conn.pings)
	}
}

func TestSendErrorShape(t *testing.T) {
	conn := &countingConn{t: t}
	session := &wsSession{conn: conn}

	h := &WebSocketHandler{}
	h.sendError(session, "room mismatch")

	msg, ok := conn.lastJSON.(outgoingMessage)
	if !ok {
		t.Fatalf("unexpected payload type %T", conn.lastJSON)
	}
	if msg.Type != "error" {
		t.Fatalf("type = %q", msg.Type)
	}
	data, ok := msg.Data.(map[string]string)
	if !ok || data["message"] != "room mismatch" {
		t.Fatalf("unexpected data: %v", msg.Data)
	}
}
