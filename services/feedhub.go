// Package services provides business logic services
package services

import (
	"encoding/json"
	"log"
	"sync"
	"sync/atomic"

	"github.com/nats-io/nats.go"
)

// UploadsSubject is the NATS wildcard the hub listens on; the ingest handler
// publishes to "uploads.<deviceID>".
const UploadsSubject = "uploads.>"

// UploadEvent is broadcast to dashboard clients whenever a device uploads an
// image.
type UploadEvent struct {
	DeviceID  string `json:"deviceId"`
	URL       string `json:"url"`
	Timestamp int64  `json:"ts"`
	Analysis  string `json:"analysis,omitempty"`
}

// FeedMessage is a message sent to/from clients
type FeedMessage struct {
	Type string          `json:"type"` // upload, error, pong
	Data json.RawMessage `json:"data,omitempty"`
}

// FeedHub fans upload events arriving on the internal NATS bus out to the
// connected WebSocket dashboard clients.
type FeedHub struct {
	natsConn *nats.Conn
	sub      *nats.Subscription

	clients   map[*FeedClient]bool
	clientsMu sync.RWMutex

	register   chan *FeedClient
	unregister chan *FeedClient

	eventsSent uint64
}

// NewFeedHub creates a new feed hub. The NATS connection may be nil, in which
// case clients connect but never receive events (the server degrades rather
// than refusing to start).
func NewFeedHub(natsConn *nats.Conn) *FeedHub {
	return &FeedHub{
		natsConn:   natsConn,
		clients:    make(map[*FeedClient]bool),
		register:   make(chan *FeedClient),
		unregister: make(chan *FeedClient),
	}
}

// Register adds a client to the hub
func (h *FeedHub) Register(client *FeedClient) {
	h.register <- client
}

// Run starts the hub's main loop
func (h *FeedHub) Run() {
	log.Println("📺 Feed hub started")

	if h.natsConn != nil {
		sub, err := h.natsConn.Subscribe(UploadsSubject, func(msg *nats.Msg) {
			h.broadcast(msg.Data)
		})
		if err != nil {
			log.Printf("⚠️ Failed to subscribe to %s: %v", UploadsSubject, err)
		} else {
			h.sub = sub
		}
	}

	for {
		select {
		case client := <-h.register:
			h.clientsMu.Lock()
			h.clients[client] = true
			h.clientsMu.Unlock()
			log.Printf("📺 Client connected: %s", client.remoteAddr)

		case client := <-h.unregister:
			h.clientsMu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			h.clientsMu.Unlock()
			log.Printf("📺 Client disconnected: %s", client.remoteAddr)
		}
	}
}

// broadcast wraps an upload event and sends it to every connected client.
func (h *FeedHub) broadcast(data []byte) {
	msg := FeedMessage{
		Type: "upload",
		Data: data,
	}
	msgBytes, _ := json.Marshal(msg)

	h.clientsMu.RLock()
	delivered := false
	for client := range h.clients {
		select {
		case client.send <- msgBytes:
			delivered = true
		default:
			// Client buffer full, skip
		}
	}
	h.clientsMu.RUnlock()

	if delivered {
		atomic.AddUint64(&h.eventsSent, 1)
	}
}

// HubStats summarizes hub activity for the stats endpoint.
type HubStats struct {
	Clients    int    `json:"clients"`
	EventsSent uint64 `json:"eventsSent"`
	Subject    string `json:"subject"`
}

func (h *FeedHub) Stats() HubStats {
	h.clientsMu.RLock()
	clientCount := len(h.clients)
	h.clientsMu.RUnlock()

	return HubStats{
		Clients:    clientCount,
		EventsSent: atomic.LoadUint64(&h.eventsSent),
		Subject:    UploadsSubject,
	}
}
