package web

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
)

const defaultWriteTimeout = 2 * time.Second

// Hub fans state and attempt events out to connected websocket clients.
// Broadcast runs on the sync goroutine, so every write is bounded by
// WriteTimeout and a client that misses it is dropped.
type Hub struct {
	mu           sync.RWMutex
	clients      map[*websocket.Conn]bool
	log          zerolog.Logger
	WriteTimeout time.Duration
}

func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients:      make(map[*websocket.Conn]bool),
		log:          log,
		WriteTimeout: defaultWriteTimeout,
	}
}

func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	websocket.Handler(func(ws *websocket.Conn) {
		h.mu.Lock()
		h.clients[ws] = true
		h.mu.Unlock()

		defer func() {
			h.mu.Lock()
			delete(h.clients, ws)
			h.mu.Unlock()
			ws.Close()
		}()

		// Clients never send anything meaningful; reading detects disconnects.
		buf := make([]byte, 1024)
		for {
			if _, err := ws.Read(buf); err != nil {
				return
			}
		}
	}).ServeHTTP(w, r)
}

func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) Broadcast(data any) {
	msg, err := json.Marshal(data)
	if err != nil {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for ws := range h.clients {
		ws.SetWriteDeadline(time.Now().Add(h.WriteTimeout))
		if _, err := ws.Write(msg); err != nil {
			h.log.Debug().Err(err).Msg("ws write failed, dropping client")
			delete(h.clients, ws)
			ws.Close()
		}
	}
}
