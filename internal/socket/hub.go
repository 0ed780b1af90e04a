// internal/socket/hub.go
package socket

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// Motion messages
	MessageMotionUpdated MessageType = "motion_updated"
	MessageFloorChanged  MessageType = "floor_changed"

	// Meeting form messages
	MessageHandRaised MessageType = "hand_raised"
	MessageSignal     MessageType = "signal"
	MessagePeerJoined MessageType = "peer_joined"
	MessagePeerLeft   MessageType = "peer_left"

	// User presence
	MessageUserOnline  MessageType = "user_online"
	MessageUserOffline MessageType = "user_offline"

	// System messages
	MessagePing  MessageType = "ping"
	MessagePong  MessageType = "pong"
	MessageAck   MessageType = "ack"
	MessageError MessageType = "error"
)

// Message represents a WebSocket message
type Message struct {
	Type      MessageType            `json:"type"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// Client represents a connected WebSocket client
type Client struct {
	ID       string
	UserID   string
	Conn     *websocket.Conn
	Hub      *Hub
	Send     chan []byte
	Rooms    map[string]bool // plenum:<id>, user:<id>
	mu       sync.Mutex
	lastPing time.Time
}

// ActionHandler handles a client action the hub does not know itself.
type ActionHandler func(client *Client, msg ClientMessage) error

// RoomAuthorizer decides whether a user may subscribe to a room.
type RoomAuthorizer func(userID, room string) bool

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients     map[*Client]bool
	userClients map[string]map[*Client]bool
	roomClients map[string]map[*Client]bool

	register      chan registration
	unregister    chan *Client
	roomBroadcast chan *RoomMessage
	directMessage chan *DirectMessage

	handlers  map[string]ActionHandler
	authorize RoomAuthorizer

	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once

	mu sync.RWMutex
}

// RoomMessage represents a message to be sent to a specific room
type RoomMessage struct {
	Room    string
	Message []byte
	Exclude string // User ID to exclude from broadcast
}

type registration struct {
	client *Client
	ack    chan struct{}
}

// DirectMessage represents a message to be sent to a specific user
type DirectMessage struct {
	UserID  string
	Message []byte
}

// PlenumRoom names the room that receives a plenum's motion traffic.
func PlenumRoom(plenumID string) string {
	return "plenum:" + plenumID
}

// UserRoom names a user's personal room.
func UserRoom(userID string) string {
	return "user:" + userID
}

// NewHub creates a new Hub
func NewHub() *Hub {
	return &Hub{
		clients:       make(map[*Client]bool),
		userClients:   make(map[string]map[*Client]bool),
		roomClients:   make(map[string]map[*Client]bool),
		register:      make(chan registration),
		unregister:    make(chan *Client),
		roomBroadcast: make(chan *RoomMessage, 256),
		directMessage: make(chan *DirectMessage, 256),
		handlers:      make(map[string]ActionHandler),
		stop:          make(chan struct{}),
		done:          make(chan struct{}),
	}
}

// SetRoomAuthorizer installs the check applied to "join" actions. Without
// one, clients may only join their own user room.
func (h *Hub) SetRoomAuthorizer(fn RoomAuthorizer) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.authorize = fn
}

// Handle registers a handler for a client action. Meeting forms use this for
// their signaling messages.
func (h *Hub) Handle(action string, fn ActionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.handlers[action] = fn
}

func (h *Hub) handler(action string) (ActionHandler, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	fn, ok := h.handlers[action]
	return fn, ok
}

// Run starts the hub's main loop. It returns after Stop.
func (h *Hub) Run() {
	zap.L().Info("[Hub] WebSocket hub started")
	defer close(h.done)

	pingTicker := time.NewTicker(30 * time.Second)
	defer pingTicker.Stop()

	for {
		select {
		case reg := <-h.register:
			h.registerClient(reg.client)
			close(reg.ack)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case rm := <-h.roomBroadcast:
			h.deliver(h.roomMembers(rm.Room, rm.Exclude), rm.Message)

		case dm := <-h.directMessage:
			h.deliver(h.userMembers(dm.UserID), dm.Message)

		case <-pingTicker.C:
			h.pingClients()

		case <-h.stop:
			h.closeAll()
			zap.L().Info("[Hub] WebSocket hub stopped")
			return
		}
	}
}

// Stop ends Run and closes every client's send channel. It is safe to call
// more than once; it blocks until Run has returned.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stop) })
	<-h.done
}

// Register hands a connected client to the hub and subscribes it to its
// user room. It returns once the hub has recorded the client.
func (h *Hub) Register(client *Client) {
	ack := make(chan struct{})
	select {
	case h.register <- registration{client: client, ack: ack}:
		<-ack
	case <-h.stop:
	}
}

// Unregister removes a client from the hub.
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.stop:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	first := h.userClients[client.UserID] == nil
	if first {
		h.userClients[client.UserID] = make(map[*Client]bool)
	}
	h.userClients[client.UserID][client] = true
	h.addToRoom(client, UserRoom(client.UserID))
	total := len(h.clients)
	h.mu.Unlock()

	zap.L().Info("[Hub] Client registered",
		zap.String("user", client.UserID), zap.String("client", client.ID), zap.Int("total_clients", total))

	if first {
		h.broadcastUserStatus(client.UserID, true)
	}
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)

	offline := false
	if clients, ok := h.userClients[client.UserID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.userClients, client.UserID)
			offline = true
		}
	}

	client.mu.Lock()
	for room := range client.Rooms {
		if clients, ok := h.roomClients[room]; ok {
			delete(clients, client)
			if len(clients) == 0 {
				delete(h.roomClients, room)
			}
		}
	}
	client.mu.Unlock()

	close(client.Send)
	total := len(h.clients)
	h.mu.Unlock()

	zap.L().Info("[Hub] Client disconnected",
		zap.String("user", client.UserID), zap.String("client", client.ID), zap.Int("total_clients", total))

	if offline {
		h.broadcastUserStatus(client.UserID, false)
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for client := range h.clients {
		close(client.Send)
	}
	h.clients = make(map[*Client]bool)
	h.userClients = make(map[string]map[*Client]bool)
	h.roomClients = make(map[string]map[*Client]bool)
}

func (h *Hub) roomMembers(room, exclude string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	var out []*Client
	for client := range h.roomClients[room] {
		if exclude != "" && client.UserID == exclude {
			continue
		}
		out = append(out, client)
	}
	return out
}

func (h *Hub) userMembers(userID string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.userClients[userID]))
	for client := range h.userClients[userID] {
		out = append(out, client)
	}
	return out
}

func (h *Hub) allMembers() []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	out := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		out = append(out, client)
	}
	return out
}

// deliver runs on the hub goroutine. Clients whose buffers are full are
// dropped.
func (h *Hub) deliver(clients []*Client, message []byte) {
	var slow []*Client
	for _, client := range clients {
		select {
		case client.Send <- message:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		zap.L().Warn("[Hub] Dropping slow client", zap.String("user", client.UserID), zap.String("client", client.ID))
		h.unregisterClient(client)
	}
}

func (h *Hub) pingClients() {
	data, err := encode(MessagePing, nil)
	if err != nil {
		return
	}
	h.deliver(h.allMembers(), data)
}

func (h *Hub) broadcastUserStatus(userID string, online bool) {
	msgType := MessageUserOffline
	if online {
		msgType = MessageUserOnline
	}
	data, err := encode(msgType, map[string]interface{}{"userId": userID})
	if err != nil {
		return
	}
	var others []*Client
	for _, client := range h.allMembers() {
		if client.UserID != userID {
			others = append(others, client)
		}
	}
	h.deliver(others, data)
}

func encode(msgType MessageType, payload map[string]interface{}) ([]byte, error) {
	data, err := json.Marshal(Message{Type: msgType, Payload: payload, Timestamp: time.Now()})
	if err != nil {
		zap.L().Error("[Hub] Failed to marshal message", zap.String("type", string(msgType)), zap.Error(err))
	}
	return data, err
}

// ============================================
// Public Methods for Room Management
// ============================================

// JoinRoom subscribes a client to a room after the authorizer approves it.
func (h *Hub) JoinRoom(client *Client, room string) error {
	h.mu.RLock()
	authorize := h.authorize
	h.mu.RUnlock()

	if room != UserRoom(client.UserID) && (authorize == nil || !authorize(client.UserID, room)) {
		return fmt.Errorf("not allowed to join room %s", room)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.clients[client] {
		return fmt.Errorf("client %s is not registered", client.ID)
	}
	h.addToRoom(client, room)

	zap.L().Debug("[Hub] Client joined room", zap.String("user", client.UserID), zap.String("room", room))
	return nil
}

// addToRoom expects h.mu to be held.
func (h *Hub) addToRoom(client *Client, room string) {
	client.mu.Lock()
	client.Rooms[room] = true
	client.mu.Unlock()

	if h.roomClients[room] == nil {
		h.roomClients[room] = make(map[*Client]bool)
	}
	h.roomClients[room][client] = true
}

// LeaveRoom removes a client from a room
func (h *Hub) LeaveRoom(client *Client, room string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	client.mu.Lock()
	delete(client.Rooms, room)
	client.mu.Unlock()

	if clients, ok := h.roomClients[room]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.roomClients, room)
		}
	}
}

// SendToUser sends a message to every connection of a user.
func (h *Hub) SendToUser(userID string, msgType MessageType, payload map[string]interface{}) {
	data, err := encode(msgType, payload)
	if err != nil {
		return
	}
	select {
	case h.directMessage <- &DirectMessage{UserID: userID, Message: data}:
	case <-h.stop:
	}
}

// SendToRoom sends a message to all clients in a room, except excludeUserID.
func (h *Hub) SendToRoom(room string, msgType MessageType, payload map[string]interface{}, excludeUserID string) {
	data, err := encode(msgType, payload)
	if err != nil {
		return
	}
	select {
	case h.roomBroadcast <- &RoomMessage{Room: room, Message: data, Exclude: excludeUserID}:
	case <-h.stop:
	}
}

// GetOnlineUsers returns the ids of connected users.
func (h *Hub) GetOnlineUsers() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	users := make([]string, 0, len(h.userClients))
	for userID := range h.userClients {
		users = append(users, userID)
	}
	return users
}

func (h *Hub) IsUserOnline(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.userClients[userID]
	return ok
}

// GetRoomClients returns the number of clients subscribed to a room.
func (h *Hub) GetRoomClients(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.roomClients[room])
}

func (h *Hub) GetConnectedClientsCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomPlenumID extracts the plenum id from a plenum room name.
func RoomPlenumID(room string) (string, bool) {
	id, ok := strings.CutPrefix(room, "plenum:")
	return id, ok && id != ""
}
