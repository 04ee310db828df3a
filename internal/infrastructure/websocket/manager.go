package websocket

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"propertigo/internal/domain/repository"
	"propertigo/pkg/logger"
)

// Client is one authenticated websocket connection plus the live queries
// opened on its behalf. All of its subscriptions are stopped when the
// connection goes away, so listeners never leak across account switches.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	roomSub *repository.RoomSubscription
	msgSubs map[string]*repository.MessageSubscription
	subMu   sync.Mutex
}

func NewClient(userID string, conn *websocket.Conn) *Client {
	return &Client{
		UserID:  userID,
		Conn:    conn,
		Send:    make(chan []byte, 256),
		msgSubs: make(map[string]*repository.MessageSubscription),
	}
}

// AttachRoomSub records the per-user room watch. A previous watch for the
// same connection is stopped first.
func (c *Client) AttachRoomSub(sub *repository.RoomSubscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.roomSub != nil {
		c.roomSub.Stop()
	}
	c.roomSub = sub
}

// AttachMessageSub records a per-room message watch keyed by room id,
// replacing any previous watch on the same room.
func (c *Client) AttachMessageSub(roomID string, sub *repository.MessageSubscription) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if prev, ok := c.msgSubs[roomID]; ok {
		prev.Stop()
	}
	c.msgSubs[roomID] = sub
}

// DetachMessageSub stops and forgets the watch for one room. No-op when the
// room was never watched.
func (c *Client) DetachMessageSub(roomID string) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if sub, ok := c.msgSubs[roomID]; ok {
		sub.Stop()
		delete(c.msgSubs, roomID)
	}
}

// StopAllSubs cancels every live query held by this connection. Stop is
// idempotent, so racing disconnect paths are safe.
func (c *Client) StopAllSubs() {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.roomSub != nil {
		c.roomSub.Stop()
		c.roomSub = nil
	}
	for roomID, sub := range c.msgSubs {
		sub.Stop()
		delete(c.msgSubs, roomID)
	}
}

// Manager tracks all active connections, one per user.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
	mutex      sync.RWMutex
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's main loop in a goroutine.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.mutex.Lock()
				if old, ok := m.clients[client.UserID]; ok {
					// New device wins; the stale connection drops its
					// listeners so the account switch does not leak them.
					old.StopAllSubs()
					close(old.Send)
				}
				m.clients[client.UserID] = client
				m.mutex.Unlock()
				logger.Info("websocket client registered: %s", client.UserID)

			case client := <-m.Unregister:
				m.mutex.Lock()
				if current, ok := m.clients[client.UserID]; ok && current == client {
					delete(m.clients, client.UserID)
					close(client.Send)
				}
				m.mutex.Unlock()
				client.StopAllSubs()
				logger.Info("websocket client unregistered: %s", client.UserID)

			case <-ctx.Done():
				return
			}
		}
	}()
}

// SendToUser pushes a frame to a user's connection, if any.
func (m *Manager) SendToUser(userID string, message []byte) {
	m.mutex.RLock()
	client, ok := m.clients[userID]
	m.mutex.RUnlock()

	if ok {
		select {
		case client.Send <- message:
		default:
			logger.Warn("dropping frame for slow websocket client %s", userID)
		}
	}
}

// WritePump sends queued frames to the connection until Send closes.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Error("websocket write for %s: %v", c.UserID, err)
			return
		}
	}
}
