// internal/socket/client.go
package socket

import (
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WebSocket connection constants
const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Signaling payloads carry SDP offers, so this is larger than a chat frame.
	maxMessageSize int64 = 64 * 1024
)

// ClientMessage represents an incoming message from a client
type ClientMessage struct {
	Action  string                 `json:"action"`
	Room    string                 `json:"room,omitempty"`
	Payload map[string]interface{} `json:"payload,omitempty"`
}

// ReadPump pumps messages from the WebSocket connection to the hub
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.touch()
		return nil
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.L().Warn("[Client] WebSocket error", zap.String("user", c.UserID), zap.Error(err))
			}
			break
		}
		c.HandleMessage(message)
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.Conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Coalesce queued messages into one frame, newline separated.
			n := len(c.Send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.Send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// HandleMessage processes one incoming frame.
func (c *Client) HandleMessage(message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		zap.L().Debug("[Client] Unparseable message", zap.String("user", c.UserID), zap.Error(err))
		c.sendError("", "malformed message")
		return
	}

	switch msg.Action {
	case "join":
		if msg.Room == "" {
			return
		}
		if err := c.Hub.JoinRoom(c, msg.Room); err != nil {
			c.sendError(msg.Action, err.Error())
			return
		}
		c.sendAck("joined", msg.Room)

	case "leave":
		if msg.Room != "" {
			c.Hub.LeaveRoom(c, msg.Room)
			c.sendAck("left", msg.Room)
		}

	case "ping":
		c.touch()
		c.send(MessagePong, map[string]interface{}{"time": time.Now().Unix()})

	case "pong":
		c.touch()

	default:
		fn, ok := c.Hub.handler(msg.Action)
		if !ok {
			zap.L().Debug("[Client] Unknown action", zap.String("action", msg.Action), zap.String("user", c.UserID))
			c.sendError(msg.Action, "unknown action")
			return
		}
		if err := fn(c, msg); err != nil {
			c.sendError(msg.Action, err.Error())
		}
	}
}

// InRoom reports whether the client has joined room.
func (c *Client) InRoom(room string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Rooms[room]
}

func (c *Client) touch() {
	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()
}

func (c *Client) sendAck(action, room string) {
	c.send(MessageAck, map[string]interface{}{
		"action": action,
		"room":   room,
	})
}

func (c *Client) sendError(action, reason string) {
	c.send(MessageError, map[string]interface{}{
		"action": action,
		"error":  reason,
	})
}

// send queues a reply straight onto the client's buffer. Replies are
// dropped when the buffer is full; the hub disconnects such clients on its
// next delivery.
func (c *Client) send(msgType MessageType, payload map[string]interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		return
	}
	defer func() {
		// Send may already be closed by the hub.
		_ = recover()
	}()
	select {
	case c.Send <- data:
	default:
		zap.L().Debug("[Client] Reply dropped", zap.String("type", string(msgType)), zap.String("user", c.UserID))
	}
}
