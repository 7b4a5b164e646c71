package websocket

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"soulcircle/internal/infrastructure/metrics"
	"soulcircle/internal/usecase"
	"soulcircle/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendBuffer     = 256
)

// Services are the usecases a connection can reach.
type Services struct {
	Groups   *usecase.GroupUseCase
	Messages *usecase.MessageUseCase
	DMs      *usecase.DMUseCase
	Presence *usecase.PresenceUseCase
	Typing   *usecase.TypingUseCase
}

// Client is one WebSocket connection. A user may hold several.
type Client struct {
	ID       string
	UserID   string
	UserName string
	Conn     *websocket.Conn
	Send     chan []byte

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs map[string]func()
}

// Manager tracks live connections per user and runs disconnect hooks when a
// user's last connection closes.
type Manager struct {
	services Services

	clients    map[string]map[*Client]struct{}
	hooks      map[string]func()
	Register   chan *Client
	Unregister chan *Client
	done       chan struct{}
	mutex      sync.RWMutex
}

func NewManager(services Services) *Manager {
	return &Manager{
		services:   services,
		clients:    make(map[string]map[*Client]struct{}),
		hooks:      make(map[string]func()),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		done:       make(chan struct{}),
	}
}

// Start runs the manager's main loop until ctx is cancelled.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				m.addClient(client)

			case client := <-m.Unregister:
				m.removeClient(client)

			case <-ctx.Done():
				close(m.done)
				m.closeAll()
				return
			}
		}
	}()
}

func (m *Manager) addClient(client *Client) {
	m.mutex.Lock()
	if m.clients[client.UserID] == nil {
		m.clients[client.UserID] = make(map[*Client]struct{})
	}
	m.clients[client.UserID][client] = struct{}{}
	m.mutex.Unlock()

	metrics.IncWSActive()
	logger.Debug("Client registered: %s (%s)", client.UserID, client.ID)
}

func (m *Manager) removeClient(client *Client) {
	m.mutex.Lock()
	conns, ok := m.clients[client.UserID]
	if !ok {
		m.mutex.Unlock()
		return
	}
	if _, ok := conns[client]; !ok {
		m.mutex.Unlock()
		return
	}
	delete(conns, client)

	var hook func()
	if len(conns) == 0 {
		delete(m.clients, client.UserID)
		hook = m.hooks[client.UserID]
		delete(m.hooks, client.UserID)
	}
	m.mutex.Unlock()

	client.close()
	metrics.DecWSActive()
	logger.Debug("Client unregistered: %s (%s)", client.UserID, client.ID)

	if hook != nil {
		go hook()
	}
}

func (m *Manager) closeAll() {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, conns := range m.clients {
		for client := range conns {
			client.close()
			metrics.DecWSActive()
		}
	}
	m.clients = make(map[string]map[*Client]struct{})
}

// OnDisconnect registers fn to run once userID has no open connection left.
// A later registration replaces an earlier one.
func (m *Manager) OnDisconnect(userID string, fn func()) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.hooks[userID] = fn
}

func (m *Manager) CancelDisconnect(userID string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	delete(m.hooks, userID)
}

// Connections reports how many sockets userID has open.
func (m *Manager) Connections(userID string) int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients[userID])
}

// Serve takes ownership of an upgraded connection and blocks until it closes.
func (m *Manager) Serve(conn *websocket.Conn, userID, userName string) {
	ctx, cancel := context.WithCancel(context.Background())
	client := &Client{
		ID:       uuid.New().String(),
		UserID:   userID,
		UserName: userName,
		Conn:     conn,
		Send:     make(chan []byte, sendBuffer),
		ctx:      ctx,
		cancel:   cancel,
		subs:     make(map[string]func()),
	}

	select {
	case m.Register <- client:
	case <-m.done:
		conn.Close()
		cancel()
		return
	}
	go client.WritePump()
	client.ReadPump(m)
}

// close cancels every subscription of the client and stops its pumps.
func (c *Client) close() {
	c.mu.Lock()
	subs := c.subs
	c.subs = make(map[string]func())
	c.mu.Unlock()

	for _, stop := range subs {
		stop()
	}
	c.cancel()
}

// ReadPump reads frames until the connection fails, then unregisters.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		select {
		case m.Unregister <- c:
		case <-m.done:
		}
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket read error for %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump writes queued frames and keeps the connection alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
