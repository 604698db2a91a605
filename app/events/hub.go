package events

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/joefazee/optionsdesk/internal/logger"
	"github.com/joefazee/optionsdesk/internal/metrics"
	"github.com/joefazee/optionsdesk/models"
)

const (
	// writeWait is the maximum time to wait for a write to complete.
	writeWait = 10 * time.Second

	// pongWait is the maximum time to wait for a pong from the client.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	maxMessageSize = 4096

	sendBufferSize = 256
)

// Message types written to websocket clients.
const (
	MessageHello        = "hello"
	MessageEvent        = "event"
	MessageSubscribed   = "subscribed"
	MessageUnsubscribed = "unsubscribed"
)

// WildcardChannel matches every event.
const WildcardChannel = "*"

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// OptionChannel is the channel carrying every event of one option.
func OptionChannel(id uint64) string {
	return "option:" + strconv.FormatUint(id, 10)
}

// ChannelsFor lists the channels an event is delivered on: its type and,
// for option events, the option channel.
func ChannelsFor(e *models.Event) []string {
	channels := []string{string(e.Type)}
	if e.OptionID != nil {
		channels = append(channels, OptionChannel(*e.OptionID))
	}
	return channels
}

// ClientMessage is what the hub writes to a websocket.
type ClientMessage struct {
	Type     string        `json:"type"`
	Channels []string      `json:"channels,omitempty"`
	Event    *models.Event `json:"event,omitempty"`
}

// subscribeMsg is sent by clients to change their subscriptions.
type subscribeMsg struct {
	Action   string   `json:"action"`
	Channels []string `json:"channels"`
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	subs map[string]bool
	mu   sync.RWMutex

	// closed is guarded by hub.mu and set when send is closed.
	closed bool
}

type broadcastMsg struct {
	channels []string
	data     []byte
}

// Hub fans bus events out to websocket subscribers.
type Hub struct {
	clients    map[*client]bool
	broadcast  chan broadcastMsg
	register   chan *client
	unregister chan *client
	done       chan struct{}
	mu         sync.RWMutex
	logger     logger.Logger
	metrics    *metrics.Registry
}

func NewHub(log logger.Logger, m *metrics.Registry) *Hub {
	return &Hub{
		clients:    make(map[*client]bool),
		broadcast:  make(chan broadcastMsg, 256),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		logger:     log,
		metrics:    m,
	}
}

// Run handles registration and broadcasting until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				h.closeClient(c)
			}
			h.mu.Unlock()
			h.metrics.SetWebsocketClients(0)
			return nil

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebsocketClients(total)
			h.logger.Debug("ws client connected", map[string]interface{}{"total_clients": total})

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				h.closeClient(c)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.metrics.SetWebsocketClients(total)
			h.logger.Debug("ws client disconnected", map[string]interface{}{"total_clients": total})

		case msg := <-h.broadcast:
			h.mu.RLock()
			for c := range h.clients {
				if c.isSubscribed(msg.channels...) {
					select {
					case c.send <- msg.data:
					default:
						h.logger.Debug("ws dropping message for slow client", nil)
					}
				}
			}
			h.mu.RUnlock()
		}
	}
}

// closeClient must be called with h.mu held.
func (h *Hub) closeClient(c *client) {
	delete(h.clients, c)
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Dispatch is a Consumer that queues event for every subscribed client.
func (h *Hub) Dispatch(ctx context.Context, event *models.Event) error {
	data, err := json.Marshal(ClientMessage{Type: MessageEvent, Event: event})
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- broadcastMsg{channels: ChannelsFor(event), data: data}:
		return nil
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeWS godoc
// @Summary Stream desk events
// @Description Upgrades to a websocket. Send {"action":"subscribe","channels":["option:0","option.called"]} to filter; "*" matches everything and is the default.
// @Tags events
// @Router /api/v1/ws [get]
func (h *Hub) ServeWS(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error(err, map[string]interface{}{"action": "ws_upgrade"})
		return
	}

	cl := &client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, sendBufferSize),
		subs: map[string]bool{WildcardChannel: true},
	}

	select {
	case h.register <- cl:
	case <-h.done:
		_ = conn.Close()
		return
	}
	cl.reply(MessageHello, []string{WildcardChannel})

	go cl.writePump()
	go cl.readPump()
}

func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.logger.Error(err, map[string]interface{}{"action": "ws_read"})
			}
			return
		}

		var sub subscribeMsg
		if err := json.Unmarshal(message, &sub); err != nil || sub.Action == "" {
			continue
		}
		c.handleSubscription(sub)
	}
}

func (c *client) handleSubscription(msg subscribeMsg) {
	channels := make([]string, 0, len(msg.Channels))
	for _, ch := range msg.Channels {
		if ch = strings.TrimSpace(ch); ch != "" {
			channels = append(channels, ch)
		}
	}

	c.mu.Lock()
	switch msg.Action {
	case "subscribe":
		for _, ch := range channels {
			c.subs[ch] = true
		}
	case "unsubscribe":
		for _, ch := range channels {
			delete(c.subs, ch)
		}
	default:
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()

	if msg.Action == "subscribe" {
		c.reply(MessageSubscribed, channels)
	} else {
		c.reply(MessageUnsubscribed, channels)
	}
}

func (c *client) reply(kind string, channels []string) {
	data, err := json.Marshal(ClientMessage{Type: kind, Channels: channels})
	if err != nil {
		return
	}
	c.hub.mu.RLock()
	defer c.hub.mu.RUnlock()
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
	}
}

// isSubscribed matches exact channels and trailing-* prefixes such as "option.*".
func (c *client) isSubscribed(channels ...string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, channel := range channels {
		if c.subs[channel] {
			return true
		}
		for sub := range c.subs {
			if strings.HasSuffix(sub, "*") && strings.HasPrefix(channel, strings.TrimSuffix(sub, "*")) {
				return true
			}
		}
	}
	return false
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
