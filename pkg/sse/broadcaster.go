package sse

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mimi-overlay/mimi/pkg/logger"
)

// Client represents a connected SSE client
type Client struct {
	ID       string
	Writer   http.ResponseWriter
	Flusher  http.Flusher
	Done     chan bool
	LastSeen time.Time
	mutex    sync.Mutex // Protects concurrent writes to this client
}

// Broadcaster fans out event payloads to all connected SSE clients
type Broadcaster struct {
	logger    *logger.Logger
	clients   map[string]*Client
	mutex     sync.RWMutex
	broadcast chan []byte
	cleanup   *time.Ticker
	shutdown  chan struct{}
}

// NewBroadcaster creates a new SSE broadcaster
func NewBroadcaster(log *logger.Logger) *Broadcaster {
	b := &Broadcaster{
		logger:    log.WithComponent("sse-broadcaster"),
		clients:   make(map[string]*Client),
		broadcast: make(chan []byte, 1000),
		cleanup:   time.NewTicker(30 * time.Second),
		shutdown:  make(chan struct{}),
	}

	go b.broadcastLoop()
	go b.cleanupLoop()

	return b
}

// AddClient registers a new SSE client
func (b *Broadcaster) AddClient(client *Client) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	b.clients[client.ID] = client

	b.logger.Debug("SSE client connected", zap.String("clientId", client.ID))
}

// RemoveClient removes an SSE client
func (b *Broadcaster) RemoveClient(clientID string) {
	b.mutex.Lock()
	defer b.mutex.Unlock()

	if client, exists := b.clients[clientID]; exists {
		select {
		case <-client.Done:
			// already closed
		default:
			close(client.Done)
		}
		delete(b.clients, clientID)

		b.logger.Debug("SSE client disconnected", zap.String("clientId", clientID))
	}
}

// Broadcast queues a payload for delivery to every connected client. A full
// queue drops the payload rather than blocking the caller.
func (b *Broadcaster) Broadcast(data []byte) {
	select {
	case b.broadcast <- data:
	default:
		b.logger.Warn("Broadcast channel full, dropping message")
	}
}

// broadcastLoop delivers queued payloads to all connected clients
func (b *Broadcaster) broadcastLoop() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in broadcastLoop", zap.Any("panic", r))
			go b.broadcastLoop()
		}
	}()

	for {
		select {
		case <-b.shutdown:
			b.logger.Info("Broadcast loop shutting down")
			return
		case data := <-b.broadcast:
			b.mutex.RLock()
			clients := make([]*Client, 0, len(b.clients))
			for _, client := range b.clients {
				clients = append(clients, client)
			}
			b.mutex.RUnlock()

			for _, client := range clients {
				select {
				case <-client.Done:
					b.RemoveClient(client.ID)
				default:
					if err := b.sendToClient(client, data); err != nil {
						b.logger.Warn("Failed to send to client",
							zap.String("clientId", client.ID),
							zap.Error(err))
						b.RemoveClient(client.ID)
					}
				}
			}
		}
	}
}

// sendToClient writes one SSE data frame to a specific client
func (b *Broadcaster) sendToClient(client *Client, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in sendToClient", zap.Any("panic", r))
			err = fmt.Errorf("panic recovered: %v", r)
		}
	}()

	if client == nil || client.Writer == nil || client.Flusher == nil {
		return fmt.Errorf("client is not writable")
	}

	client.mutex.Lock()
	defer client.mutex.Unlock()

	select {
	case <-client.Done:
		return fmt.Errorf("client connection closed")
	default:
	}

	sseData := fmt.Sprintf("data: %s\n\n", data)
	n, err := client.Writer.Write([]byte(sseData))
	if err != nil {
		return fmt.Errorf("write failed: %w", err)
	}
	if n != len(sseData) {
		return fmt.Errorf("incomplete write: wrote %d/%d bytes", n, len(sseData))
	}

	client.Flusher.Flush()
	client.LastSeen = time.Now()
	return nil
}

// cleanupLoop removes stale connections
func (b *Broadcaster) cleanupLoop() {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Recovered from panic in cleanupLoop", zap.Any("panic", r))
			go b.cleanupLoop()
		}
	}()

	for {
		select {
		case <-b.shutdown:
			b.logger.Info("Cleanup loop shutting down")
			return
		case <-b.cleanup.C:
			b.mutex.Lock()
			now := time.Now()
			for clientID, client := range b.clients {
				if now.Sub(client.LastSeen) > 60*time.Second {
					b.logger.Debug("Removing stale SSE client",
						zap.String("clientId", clientID))
					close(client.Done)
					delete(b.clients, clientID)
				}
			}
			b.mutex.Unlock()
		}
	}
}

// GetClientCount returns the number of connected clients
func (b *Broadcaster) GetClientCount() int {
	b.mutex.RLock()
	defer b.mutex.RUnlock()
	return len(b.clients)
}

// Close shuts down the broadcaster and disconnects all clients
func (b *Broadcaster) Close() {
	b.logger.Debug("Shutting down SSE broadcaster")

	close(b.shutdown)
	b.cleanup.Stop()

	b.mutex.Lock()
	defer b.mutex.Unlock()

	for clientID, client := range b.clients {
		b.logger.Debug("Force closing SSE client", zap.String("clientId", clientID))
		close(client.Done)
	}
	b.clients = make(map[string]*Client)

	b.logger.Debug("SSE broadcaster shutdown complete")
}

// HandleSSE serves an SSE connection, streaming broadcast payloads until
// the client goes away.
func (b *Broadcaster) HandleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		b.logger.Error("SSE: client does not support flushing")
		http.Error(w, "Server-Sent Events not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	clientID := fmt.Sprintf("%s-%d", r.RemoteAddr, time.Now().UnixNano())
	client := &Client{
		ID:       clientID,
		Writer:   w,
		Flusher:  flusher,
		Done:     make(chan bool),
		LastSeen: time.Now(),
	}

	b.AddClient(client)
	defer b.RemoveClient(clientID)

	// Initial comment line so the client knows the stream is live
	fmt.Fprintf(w, ": connected\n\n")
	flusher.Flush()

	select {
	case <-r.Context().Done():
	case <-client.Done:
	}
}
