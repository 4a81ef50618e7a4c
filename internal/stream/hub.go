package stream

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/roman-kulish/fhss-detector/internal/spectrum"
)

const (
	DefaultQueueSize        = 64
	DefaultSpectrumInterval = 100 * time.Millisecond

	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingInterval = 30 * time.Second
)

// MessageType tags every message sent to clients.
type MessageType string

const (
	MessageSpectrum  MessageType = "spectrum"
	MessageDetection MessageType = "detection"
	MessageError     MessageType = "error"
)

// Message is the envelope written to websocket clients.
type Message struct {
	Type MessageType `json:"type"`
	Data any         `json:"data"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// WithLogger sets the logger for the hub
func WithLogger(logger *slog.Logger) func(h *Hub) {
	return func(h *Hub) {
		h.logger = logger.With(slog.String("component", "stream"))
	}
}

// WithQueueSize sets the number of messages buffered per client
func WithQueueSize(size int) func(h *Hub) {
	return func(h *Hub) {
		h.queueSize = size
	}
}

// WithSpectrumInterval limits spectrum frames to one per interval; zero sends every frame
func WithSpectrumInterval(d time.Duration) func(h *Hub) {
	return func(h *Hub) {
		h.spectrumInterval = d
	}
}

// Hub broadcasts session events to websocket clients. A client that cannot
// keep up loses messages instead of slowing the pipeline down.
type Hub struct {
	upgrader         websocket.Upgrader
	queueSize        int
	spectrumInterval time.Duration

	mu      sync.RWMutex
	clients map[*client]struct{}

	lastSpectrum atomic.Int64
	dropped      atomic.Uint64

	logger *slog.Logger
}

// NewHub creates a hub with no clients.
func NewHub(options ...func(h *Hub)) *Hub {
	h := Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		queueSize:        DefaultQueueSize,
		spectrumInterval: DefaultSpectrumInterval,
		clients:          make(map[*client]struct{}),
		logger:           slog.New(slog.NewTextHandler(io.Discard, nil)), // nil logger
	}

	for _, option := range options {
		option(&h)
	}

	return &h
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Dropped returns the number of messages discarded for slow clients.
func (h *Hub) Dropped() uint64 {
	return h.dropped.Load()
}

// ServeHTTP upgrades the request and serves the client until it disconnects.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, h.queueSize),
	}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client connected", slog.String("remote", r.RemoteAddr), slog.Int("clients", count))

	go h.writePump(c)
	h.readPump(c)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
}

func (h *Hub) OnSpectrumUpdate(frame spectrum.Frame) {
	if h.spectrumInterval > 0 {
		now := frame.CapturedAt.UnixNano()
		last := h.lastSpectrum.Load()
		if last != 0 && now-last < int64(h.spectrumInterval) {
			return
		}
		h.lastSpectrum.Store(now)
	}

	h.broadcast(Message{Type: MessageSpectrum, Data: frame})
}

func (h *Hub) OnDroneDetected(detection spectrum.Detection) {
	h.broadcast(Message{Type: MessageDetection, Data: detection})
}

func (h *Hub) OnError(err error) {
	h.broadcast(Message{Type: MessageError, Data: err.Error()})
}

func (h *Hub) broadcast(message Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if len(h.clients) == 0 {
		return
	}

	payload, err := json.Marshal(message)
	if err != nil {
		h.logger.Error("failed to encode message", slog.Any("error", err))
		return
	}

	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.dropped.Add(1)
		}
	}
}

// unregister removes c; it reports false if the client was already gone.
func (h *Hub) unregister(c *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.clients[c]; !ok {
		return false
	}

	delete(h.clients, c)
	close(c.send)
	return true
}

// readPump drains control frames and detects disconnects.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
		h.logger.Info("client disconnected", slog.Int("clients", h.Clients()))
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Debug("websocket read error", slog.Any("error", err))
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				h.logger.Debug("websocket write error", slog.Any("error", err))
				return
			}

		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
