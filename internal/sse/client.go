package sse

import (
	"net/http"
	"time"

	"github.com/Ken-1219/multiplayer-contexto-sub000/internal/model"
)

const (
	// Time between keepalive comments
	pingPeriod = 25 * time.Second

	// Buffer size for outgoing messages
	sendBufferSize = 64
)

// Client is one open event stream
type Client struct {
	playerID    model.PlayerID
	send        chan []byte
	connectedAt time.Time
}

// NewClient creates a new SSE client
func NewClient(playerID model.PlayerID) *Client {
	return &Client{
		playerID:    playerID,
		send:        make(chan []byte, sendBufferSize),
		connectedAt: time.Now(),
	}
}

// ServeSSE streams a game's events until the client goes away or the hub closes
func ServeSSE(w http.ResponseWriter, r *http.Request, manager *HubManager, gameID model.GameID, playerID model.PlayerID) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	client := NewClient(playerID)
	var hub *Hub
	// the janitor may close an empty hub between lookup and registration
	for attempt := 0; attempt < 3 && hub == nil; attempt++ {
		candidate := manager.GetOrCreateHub(gameID)
		if candidate.Register(client) {
			hub = candidate
		}
	}
	if hub == nil {
		http.Error(w, "event stream unavailable", http.StatusServiceUnavailable)
		return
	}
	defer hub.Unregister(client)

	// streams outlive the server's write timeout
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	_, _ = w.Write(formatSSEMessage("connected", `{"gameId":"`+string(gameID)+`"}`))
	flusher.Flush()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case message, ok := <-client.send:
			if !ok {
				return
			}
			if _, err := w.Write(message); err != nil {
				return
			}
			flusher.Flush()

		case <-ticker.C:
			if _, err := w.Write([]byte(": keepalive\n\n")); err != nil {
				return
			}
			flusher.Flush()

		case <-r.Context().Done():
			return
		}
	}
}
