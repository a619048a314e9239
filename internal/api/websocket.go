package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"netwatch.dev/netwatch/internal/scan"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if strings.Contains(origin, "://localhost:") || strings.Contains(origin, "://127.0.0.1:") {
			return true
		}
		host := r.Host
		if strings.HasPrefix(origin, "http://") {
			return origin[len("http://"):] == host
		}
		if strings.HasPrefix(origin, "https://") {
			return origin[len("https://"):] == host
		}
		return false
	},
}

// wsClient is one connected scan-progress subscriber.
type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func (c *wsClient) writePump() {
	defer c.conn.Close()
	for message := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			break
		}
	}
}

func (c *wsClient) readPump(hub *wsHub) {
	defer func() { hub.unregister <- c }()
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			break
		}
	}
}

// wsHub broadcasts scan-progress snapshots to every connected client. There
// is a single topic, so no subscription bookkeeping is needed.
type wsHub struct {
	clients    map[*wsClient]bool
	register   chan *wsClient
	unregister chan *wsClient
	mu         sync.RWMutex
}

func newWSHub() *wsHub {
	return &wsHub{
		clients:    make(map[*wsClient]bool),
		register:   make(chan *wsClient),
		unregister: make(chan *wsClient),
	}
}

func (h *wsHub) run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()
		}
	}
}

func (h *wsHub) broadcast(snap scan.Snapshot) {
	body, err := json.Marshal(snap)
	if err != nil {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- body:
		default:
		}
	}
}

// broadcastLoop ticks every 500 ms and pushes the scan status to
// subscribers; a tick with no connected client skips the broadcast.
func (h *wsHub) broadcastLoop(scanner *scan.Engine) {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		h.mu.RLock()
		n := len(h.clients)
		h.mu.RUnlock()
		if n == 0 {
			continue
		}
		h.broadcast(scanner.Status())
	}
}

func (s *Server) handleScanWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logHandlerError(s.logger, r.URL.Path, err)
		return
	}
	client := &wsClient{conn: conn, send: make(chan []byte, 32)}
	s.ws.register <- client
	go client.writePump()
	go client.readPump(s.ws)
}
