package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"
)

const (
	eventChannelBuffer = 32
	sseHeartbeat       = 30 * time.Second
)

// client is one subscriber of a board's events, over SSE or a WebSocket.
type client struct {
	ch      chan string
	boardID string
}

// send queues data for the client without blocking.
func (c *client) send(data string) bool {
	select {
	case c.ch <- data:
		return true
	default:
		return false
	}
}

// Broadcaster fans board events out to the clients watching each board.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]map[*client]struct{}
}

// NewBroadcaster creates an empty broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		clients: make(map[string]map[*client]struct{}),
	}
}

// Register adds a client for a board and returns it.
func (b *Broadcaster) Register(boardID string) *client {
	c := &client{
		ch:      make(chan string, eventChannelBuffer),
		boardID: boardID,
	}
	b.mu.Lock()
	set, ok := b.clients[boardID]
	if !ok {
		set = make(map[*client]struct{})
		b.clients[boardID] = set
	}
	set[c] = struct{}{}
	b.mu.Unlock()
	return c
}

// Unregister removes a client and closes its channel.
func (b *Broadcaster) Unregister(c *client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	set := b.clients[c.boardID]
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.ch)
	if len(set) == 0 {
		delete(b.clients, c.boardID)
	}
}

// Broadcast sends raw data to all clients of a board. Slow clients whose
// buffer is full miss the message.
func (b *Broadcaster) Broadcast(boardID, data string) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for c := range b.clients[boardID] {
		c.send(data)
	}
}

// Publish encodes evt as JSON and broadcasts it.
func (b *Broadcaster) Publish(boardID string, evt any) {
	data, err := json.Marshal(evt)
	if err != nil {
		log.Printf("encode event for board %s: %v", boardID, err)
		return
	}
	b.Broadcast(boardID, string(data))
}

// ClientCount returns the number of connected clients for a board.
func (b *Broadcaster) ClientCount(boardID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[boardID])
}

// ServeSSE streams a board's events until the request ends.
func (b *Broadcaster) ServeSSE(w http.ResponseWriter, r *http.Request, boardID string, onConnect func(c *client)) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	c := b.Register(boardID)
	defer b.Unregister(c)

	if onConnect != nil {
		onConnect(c)
	}

	ticker := time.NewTicker(sseHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-c.ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}
