package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/amirphl/rsi-trader/internal/utils"
	"github.com/gorilla/websocket"
)

const (
	subscriberBuffer = 32
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Subscriber is one consumer of the signal stream.
type Subscriber struct {
	ID   string
	Chan chan []byte
}

// Hub fans encoded events out to websocket clients. A client that cannot
// keep up misses messages; it is never allowed to block the trading loop.
type Hub struct {
	subscribers map[string]*Subscriber
	mu          sync.RWMutex
	closed      bool
	nextID      atomic.Uint64
	onChange    func(count int)
}

// NewHub creates an empty hub. onChange, if set, is called with the new
// subscriber count after every subscribe or unsubscribe.
func NewHub(onChange func(count int)) *Hub {
	return &Hub{
		subscribers: make(map[string]*Subscriber),
		onChange:    onChange,
	}
}

// Subscribe adds a new subscriber and returns their channel
func (h *Hub) Subscribe(subscriberID string, bufferSize int) (<-chan []byte, error) {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil, fmt.Errorf("hub is closed")
	}
	if _, exists := h.subscribers[subscriberID]; exists {
		h.mu.Unlock()
		return nil, fmt.Errorf("subscriber %s already exists", subscriberID)
	}
	sub := &Subscriber{
		ID:   subscriberID,
		Chan: make(chan []byte, bufferSize),
	}
	h.subscribers[subscriberID] = sub
	count := len(h.subscribers)
	h.mu.Unlock()

	h.changed(count)
	return sub.Chan, nil
}

// Unsubscribe removes a subscriber and closes their channel
func (h *Hub) Unsubscribe(subscriberID string) error {
	h.mu.Lock()
	sub, exists := h.subscribers[subscriberID]
	if !exists {
		h.mu.Unlock()
		return fmt.Errorf("subscriber %s not found", subscriberID)
	}
	close(sub.Chan)
	delete(h.subscribers, subscriberID)
	count := len(h.subscribers)
	h.mu.Unlock()

	h.changed(count)
	return nil
}

// Broadcast encodes v as JSON and offers it to every subscriber without
// blocking.
func (h *Hub) Broadcast(v any) {
	msg, err := json.Marshal(v)
	if err != nil {
		utils.GetLogger().Printf("Hub | Failed to encode event: %v", err)
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, sub := range h.subscribers {
		select {
		case sub.Chan <- msg:
		default:
			utils.GetLogger().Printf("Hub | Subscriber %s channel is full, skipping event", sub.ID)
		}
	}
}

// SubscriberCount returns the number of active subscribers
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subscribers)
}

// Close closes all subscriber channels. Later subscriptions fail.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	for _, sub := range h.subscribers {
		close(sub.Chan)
	}
	h.subscribers = make(map[string]*Subscriber)
	h.mu.Unlock()

	h.changed(0)
}

func (h *Hub) changed(count int) {
	if h.onChange != nil {
		h.onChange(count)
	}
}

// ServeWS upgrades the request and streams events until the client goes away
// or the hub is closed.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		utils.GetLogger().Printf("Hub | WS upgrade error: %v", err)
		return
	}

	id := fmt.Sprintf("%s#%d", r.RemoteAddr, h.nextID.Add(1))
	ch, err := h.Subscribe(id, subscriberBuffer)
	if err != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	utils.GetLogger().Printf("Hub | Subscriber %s connected", id)

	done := make(chan struct{})
	go h.readPump(conn, done)
	h.writePump(conn, ch, done)

	// Unsubscribe fails harmlessly when Close already removed the subscriber.
	_ = h.Unsubscribe(id)
	conn.Close()
	utils.GetLogger().Printf("Hub | Subscriber %s disconnected", id)
}

// readPump discards client messages and signals done when the connection
// breaks. Reading is required for pong and close frames to be processed.
func (h *Hub) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) writePump(conn *websocket.Conn, ch <-chan []byte, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case msg, ok := <-ch:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
