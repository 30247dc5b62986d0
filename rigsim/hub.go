package rigsim

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	subscriberQueue = 100
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 54 * time.Second
)

// Command is an inbound event channel message.
type Command struct {
	Command             string  `json:"command"`
	ModelType           string  `json:"model_type,omitempty"`
	DetectionConfidence float64 `json:"detection_confidence,omitempty"`
}

// Ack answers one Command on the subscriber that sent it.
type Ack struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// CommandFunc executes an inbound command.
type CommandFunc func(Command) error

// Hub fans event channel messages out to websocket subscribers. A subscriber
// whose queue is full is dropped.
type Hub struct {
	logger    *slog.Logger
	upgrader  websocket.Upgrader
	onCommand CommandFunc

	mu     sync.Mutex
	subs   map[string]*subscriber
	closed bool
}

type subscriber struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
	done chan struct{}
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// NewHub returns an empty hub. onCommand may be nil.
func NewHub(logger *slog.Logger, onCommand CommandFunc) *Hub {
	return &Hub{
		logger:    logger,
		onCommand: onCommand,
		subs:      make(map[string]*subscriber),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// ServeHTTP upgrades the request and serves one subscriber until it leaves.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", "error", err)
		}
		return
	}
	sub := &subscriber{id: uuid.NewString(), conn: conn, send: make(chan []byte, subscriberQueue), done: make(chan struct{})}
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.subs[sub.id] = sub
	n := len(h.subs)
	h.mu.Unlock()
	if h.logger != nil {
		h.logger.Info("subscriber added", "id", sub.id, "total", n)
	}
	go h.writer(sub)
	h.reader(sub)
	h.remove(sub)
}

func (h *Hub) reader(sub *subscriber) {
	sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, data, err := sub.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.logger != nil {
				h.logger.Debug("subscriber read ended", "id", sub.id, "error", err)
			}
			return
		}
		sub.conn.SetReadDeadline(time.Now().Add(pongWait))
		var cmd Command
		if err := json.Unmarshal(data, &cmd); err != nil || cmd.Command == "" {
			continue
		}
		ack := Ack{Type: "ack", Command: cmd.Command, Success: true}
		if h.onCommand != nil {
			if err := h.onCommand(cmd); err != nil {
				ack.Success, ack.Error = false, err.Error()
			}
		}
		if raw, err := json.Marshal(ack); err == nil {
			h.deliver(sub, raw)
		}
	}
}

func (h *Hub) writer(sub *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sub.conn.Close()
	}()
	for {
		select {
		case msg := <-sub.send:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-sub.done:
			sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

// Broadcast queues msg for every subscriber.
func (h *Hub) Broadcast(msg []byte) {
	h.mu.Lock()
	subs := make([]*subscriber, 0, len(h.subs))
	for _, s := range h.subs {
		subs = append(subs, s)
	}
	h.mu.Unlock()
	for _, s := range subs {
		h.deliver(s, msg)
	}
}

func (h *Hub) deliver(s *subscriber, msg []byte) {
	select {
	case s.send <- msg:
	case <-s.done:
	default:
		if h.logger != nil {
			h.logger.Warn("subscriber queue full, dropping subscriber", "id", s.id)
		}
		h.remove(s)
	}
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	_, ok := h.subs[s.id]
	delete(h.subs, s.id)
	n := len(h.subs)
	h.mu.Unlock()
	s.stop()
	if ok && h.logger != nil {
		h.logger.Info("subscriber removed", "id", s.id, "total", n)
	}
}

// Count returns the number of connected subscribers.
func (h *Hub) Count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()
	for _, s := range subs {
		s.stop()
	}
}

// Drop disconnects every subscriber without closing the hub. Used to
// exercise client reconnects.
func (h *Hub) Drop() {
	h.mu.Lock()
	subs := h.subs
	h.subs = make(map[string]*subscriber)
	h.mu.Unlock()
	for _, s := range subs {
		s.stop()
		s.conn.Close()
	}
}
