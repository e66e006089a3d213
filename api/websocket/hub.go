package websocket

import (
	"sync"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/OldStager01/crop-yield-predictor/pkg/config"
)

type broadcastMessage struct {
	item string
	data []byte
}

type Hub struct {
	clients    map[*Client]bool
	broadcast  chan broadcastMessage
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once
	mu         sync.RWMutex
	settings   *Settings
	onCount    func(int)
}

func NewHub(cfg *config.WebSocketConfig) *Hub {
	settings := NewSettings(cfg)

	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan broadcastMessage, settings.BroadcastBuffer),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		settings:   settings,
	}
}

// OnClientCount registers a callback invoked with the client total after
// every connect and disconnect. Call before Run.
func (h *Hub) OnClientCount(fn func(int)) {
	h.onCount = fn
}

func (h *Hub) Settings() *Settings {
	return h.settings
}

func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				client.closeSend()
			}
			h.mu.Unlock()
			h.reportCount()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()
			logger.Infof("WebSocket client connected (total: %d)", h.ClientCount())
			h.reportCount()

		case client := <-h.unregister:
			h.remove(client)
			logger.Infof("WebSocket client disconnected (total: %d)", h.ClientCount())
			h.reportCount()

		case msg := <-h.broadcast:
			h.deliver(msg)
		}
	}
}

// Stop disconnects every client and ends Run.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) deliver(msg broadcastMessage) {
	var slow []*Client

	h.mu.RLock()
	for client := range h.clients {
		if !client.Wants(msg.item) {
			continue
		}
		if _, full := client.enqueue(msg.data); full {
			slow = append(slow, client)
		}
	}
	h.mu.RUnlock()

	for _, client := range slow {
		logger.Warn("WebSocket client too slow, disconnecting")
		h.remove(client)
	}
	if len(slow) > 0 {
		h.reportCount()
	}
}

func (h *Hub) remove(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[client]; ok {
		delete(h.clients, client)
		client.closeSend()
	}
}

func (h *Hub) reportCount() {
	if h.onCount != nil {
		h.onCount(h.ClientCount())
	}
}

// Broadcast queues data for every client whose filter accepts item.
func (h *Hub) Broadcast(item string, data []byte) {
	select {
	case h.broadcast <- broadcastMessage{item: item, data: data}:
	default:
		logger.Warn("Broadcast channel full, dropping message")
	}
}

func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Full reports whether the configured connection cap has been reached.
func (h *Hub) Full() bool {
	return h.settings.MaxConnections > 0 && h.ClientCount() >= h.settings.MaxConnections
}

func (h *Hub) Register(client *Client) {
	select {
	case h.register <- client:
	case <-h.done:
		client.closeSend()
	}
}

func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}
