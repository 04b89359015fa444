package api

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/nerrad567/urchin-core/internal/brain"
	"github.com/nerrad567/urchin-core/internal/infrastructure/logging"
)

// Frame types.
const (
	WSTypeSubscribe   = "subscribe"
	WSTypeUnsubscribe = "unsubscribe"
	WSTypePing        = "ping"
	WSTypePong        = "pong"
	WSTypeEvent       = "event"
	WSTypeResponse    = "response"
	WSTypeError       = "error"
)

// Event channels. New clients are subscribed to both.
const (
	ChannelSensation = "sensation"
	ChannelUrge      = "urge"
)

const (
	wsSendBuffer   = 256
	wsReadLimit    = 4096
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	wsReadWait     = wsPingInterval + wsWriteWait
)

// WSMessage is one frame in either direction.
type WSMessage struct {
	Type      string `json:"type"`
	ID        string `json:"id,omitempty"`
	EventType string `json:"event_type,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// WSSubscribePayload names the channels of a subscribe or unsubscribe frame.
type WSSubscribePayload struct {
	Channels []string `json:"channels"`
}

// SensationEvent is the payload of a "sensation" event.
type SensationEvent struct {
	ID         string    `json:"id"`
	Topic      string    `json:"topic"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"received_at"`
}

// UrgeEvent is the payload of an "urge" event.
type UrgeEvent struct {
	Kind        string `json:"kind"`
	Priority    string `json:"priority"`
	Cause       string `json:"cause"`
	SensationID string `json:"sensation_id"`
	Topic       string `json:"topic"`
}

// Hub fans brain activity out to websocket clients. As a brain.Observer
// it runs on the dispatch goroutine, so delivery never blocks: a client
// whose buffer is full misses the event.
type Hub struct {
	logger *logging.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
}

var _ brain.Observer = (*Hub)(nil)

type wsClient struct {
	conn *websocket.Conn
	out  chan []byte

	mu   sync.Mutex
	subs map[string]bool
	gone bool
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// CORS is enforced by middleware; the API binds to loopback.
	CheckOrigin: func(*http.Request) bool { return true },
}

// NewHub creates an empty hub.
func NewHub(logger *logging.Logger) *Hub {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Hub{logger: logger, clients: make(map[*wsClient]struct{})}
}

// Run blocks until ctx is cancelled, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	<-ctx.Done()

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*wsClient]struct{})
	h.mu.Unlock()

	for c := range clients {
		c.close()
		c.conn.Close() //nolint:errcheck,gosec // shutting down
	}
}

// Sensed broadcasts a dispatched sensation.
func (h *Hub) Sensed(s brain.Sensation) {
	h.Broadcast(ChannelSensation, SensationEvent{
		ID:         s.ID,
		Topic:      s.Topic,
		Message:    s.Message,
		ReceivedAt: s.ReceivedAt.UTC(),
	})
}

// Selected broadcasts the urge chosen for a sensation.
func (h *Hub) Selected(s brain.Sensation, u brain.Urge) {
	h.Broadcast(ChannelUrge, UrgeEvent{
		Kind:        u.Kind(),
		Priority:    u.Priority().String(),
		Cause:       u.Cause(),
		SensationID: s.ID,
		Topic:       s.Topic,
	})
}

// Broadcast sends an event to every client subscribed to channel.
func (h *Hub) Broadcast(channel string, payload any) {
	data, err := encodeFrame(WSMessage{Type: WSTypeEvent, EventType: channel, Payload: payload})
	if err != nil {
		h.logger.Error("encoding websocket event", "channel", channel, "error", err)
		return
	}

	h.mu.Lock()
	clients := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.deliver(channel, data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

func (h *Hub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	n := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("websocket client connected", "clients", n)
}

func (h *Hub) remove(c *wsClient) {
	h.mu.Lock()
	delete(h.clients, c)
	n := len(h.clients)
	h.mu.Unlock()
	c.close()
	h.logger.Debug("websocket client disconnected", "clients", n)
}

func encodeFrame(msg WSMessage) ([]byte, error) {
	msg.Timestamp = time.Now().UTC().Format(time.RFC3339)
	return json.Marshal(msg)
}

// handleWebSocket upgrades the connection and subscribes the client to
// every channel.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &wsClient{
		conn: conn,
		out:  make(chan []byte, wsSendBuffer),
		subs: map[string]bool{ChannelSensation: true, ChannelUrge: true},
	}
	s.hub.add(c)

	go c.writer()
	go func() {
		c.reader(s.hub.logger)
		s.hub.remove(c)
	}()
}

// deliver queues data if the client wants channel. A full buffer drops it.
func (c *wsClient) deliver(channel string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gone || (channel != "" && !c.subs[channel]) {
		return
	}
	select {
	case c.out <- data:
	default:
	}
}

// close stops the writer. Safe to call more than once.
func (c *wsClient) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.gone {
		c.gone = true
		close(c.out)
	}
}

func (c *wsClient) reader(logger *logging.Logger) {
	defer c.conn.Close() //nolint:errcheck // already failing

	c.conn.SetReadLimit(wsReadLimit)
	extend := func(string) error { return c.conn.SetReadDeadline(time.Now().Add(wsReadWait)) }
	extend("") //nolint:errcheck,gosec // surfaces as a read error
	c.conn.SetPongHandler(extend)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		extend("") //nolint:errcheck,gosec // surfaces as a read error
		c.handle(data)
	}
}

func (c *wsClient) writer() {
	ping := time.NewTicker(wsPingInterval)
	defer func() {
		ping.Stop()
		c.conn.Close() //nolint:errcheck // already closing
	}()

	for {
		var kind int
		var data []byte
		select {
		case msg, ok := <-c.out:
			if !ok {
				//nolint:errcheck,gosec // connection is going away regardless
				c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(wsWriteWait))
				return
			}
			kind, data = websocket.TextMessage, msg
		case <-ping.C:
			kind = websocket.PingMessage
		}
		c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait)) //nolint:errcheck,gosec // write error caught below
		if err := c.conn.WriteMessage(kind, data); err != nil {
			return
		}
	}
}

func (c *wsClient) handle(data []byte) {
	var msg WSMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		c.reply("", WSTypeError, map[string]string{"message": "invalid JSON message"})
		return
	}

	switch msg.Type {
	case WSTypeSubscribe, WSTypeUnsubscribe:
		c.subscribe(msg)
	case WSTypePing:
		c.reply(msg.ID, WSTypePong, nil)
	default:
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "unknown message type: " + msg.Type})
	}
}

func (c *wsClient) subscribe(msg WSMessage) {
	var sub WSSubscribePayload
	raw, err := json.Marshal(msg.Payload)
	if err == nil {
		err = json.Unmarshal(raw, &sub)
	}
	if err != nil {
		c.reply(msg.ID, WSTypeError, map[string]string{"message": "invalid " + msg.Type + " payload"})
		return
	}

	on := msg.Type == WSTypeSubscribe
	c.mu.Lock()
	for _, ch := range sub.Channels {
		c.subs[ch] = on
	}
	c.mu.Unlock()

	key := "unsubscribed"
	if on {
		key = "subscribed"
	}
	c.reply(msg.ID, WSTypeResponse, map[string]any{key: sub.Channels})
}

func (c *wsClient) reply(id, kind string, payload any) {
	data, err := encodeFrame(WSMessage{Type: kind, ID: id, Payload: payload})
	if err != nil {
		return
	}
	c.deliver("", data)
}
