package websocket

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/OldStager01/crop-yield-predictor/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	mu   sync.RWMutex
	item string

	// sendMu guards send against a close racing a queue from the read loop.
	sendMu sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, item string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		send: make(chan []byte, hub.settings.ClientBuffer),
		item: item,
	}
}

// Wants reports whether a message about item passes the client's filter.
// An empty filter accepts everything.
func (c *Client) Wants(item string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.item == "" || c.item == item
}

func (c *Client) Item() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.item
}

// enqueue queues data without blocking. full is true when the client is
// still open but its buffer has no room.
func (c *Client) enqueue(data []byte) (queued, full bool) {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false, false
	}
	select {
	case c.send <- data:
		return true, false
	default:
		return false, true
	}
}

// closeSend closes the send channel once; WritePump then ends the connection.
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

func (c *Client) setItem(item string) {
	c.mu.Lock()
	c.item = item
	c.mu.Unlock()
}

func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	settings := c.hub.settings
	c.conn.SetReadLimit(settings.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(settings.PongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Errorf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err == nil {
			c.handleMessage(&msg)
		}
	}
}

func (c *Client) WritePump() {
	settings := c.hub.settings
	ticker := time.NewTicker(settings.PingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(settings.WriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) handleMessage(msg *IncomingMessage) {
	switch msg.Type {
	case "subscribe":
		if msg.Item != "" {
			c.setItem(msg.Item)
			logger.Debugf("Client subscribed to item: %s", msg.Item)
			c.sendConfirmation("subscribed", msg.Item)
		}
	case "unsubscribe":
		previous := c.Item()
		c.setItem("")
		logger.Debug("Client cleared item subscription")
		c.sendConfirmation("unsubscribed", previous)
	}
}

func (c *Client) sendConfirmation(action, item string) {
	data, err := NewMessage(MessageTypeSubscriptionUpdate, item, SubscriptionData{
		Action: action,
		Item:   item,
	}).JSON()
	if err != nil {
		logger.Errorf("Failed to marshal confirmation: %v", err)
		return
	}
	if _, full := c.enqueue(data); full {
		logger.Warn("Client send channel full, dropping confirmation")
	}
}

// ServeWebSocket upgrades the request; ?item= sets the initial filter.
func ServeWebSocket(hub *Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		if hub.Full() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "too many live feed connections"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Errorf("WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(hub, conn, c.Query("item"))
		hub.Register(client)

		go client.WritePump()
		go client.ReadPump()
	}
}
