package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/konveksi/admin-gateway/internal/progress"
	"github.com/konveksi/admin-gateway/pkg/logger"
)

const (
	// Messages a client may send per second before being ignored
	maxMessagesPerSecond = 10

	sendBufferSize = 16
)

// Event types pushed to dashboards.
const (
	EventProgress = "progress"
	EventPong     = "pong"
)

// Event is the JSON frame written to subscribers.
type Event struct {
	Type    string      `json:"type"`
	OrderID int64       `json:"oId"`
	Data    interface{} `json:"data,omitempty"`
}

// ClientMessage is what a dashboard may send; only "ping" is understood.
type ClientMessage struct {
	Type string `json:"type"`
}

// Client is one dashboard tab watching one order.
type Client struct {
	Hub     *Hub
	Conn    *Conn
	OrderID int64
	ActorID int64
	Send    chan []byte

	rateMu        sync.Mutex
	messageCount  int
	lastResetTime time.Time
}

func NewClient(hub *Hub, conn *Conn, orderID, actorID int64) *Client {
	return &Client{
		Hub:     hub,
		Conn:    conn,
		OrderID: orderID,
		ActorID: actorID,
		Send:    make(chan []byte, sendBufferSize),
	}
}

type broadcastMessage struct {
	orderID int64
	data    []byte
}

type directMessage struct {
	client *Client
	data   []byte
}

// Hub fans progress summaries out to the clients watching each order.
// Room membership is owned by the Run goroutine.
type Hub struct {
	rooms      map[int64]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	broadcast  chan broadcastMessage
	direct     chan directMessage

	mu       sync.RWMutex
	watchers map[int64]int
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[int64]map[*Client]struct{}),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan broadcastMessage, 1024),
		direct:     make(chan directMessage, 256),
		watchers:   make(map[int64]int),
	}
}

// Run serves the hub until ctx is cancelled, then disconnects everyone.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			for orderID, room := range h.rooms {
				for client := range room {
					h.drop(orderID, client)
				}
			}
			return

		case client := <-h.register:
			room, ok := h.rooms[client.OrderID]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.OrderID] = room
			}
			room[client] = struct{}{}
			h.setWatchers(client.OrderID, len(room))
			logger.Info("Progress subscriber registered", map[string]interface{}{
				"order_id":    client.OrderID,
				"actor_id":    client.ActorID,
				"subscribers": len(room),
			})

		case client := <-h.unregister:
			if room, ok := h.rooms[client.OrderID]; ok {
				if _, ok := room[client]; ok {
					h.drop(client.OrderID, client)
					logger.Info("Progress subscriber unregistered", map[string]interface{}{
						"order_id": client.OrderID,
						"actor_id": client.ActorID,
					})
				}
			}

		case message := <-h.direct:
			if _, ok := h.rooms[message.client.OrderID][message.client]; ok {
				select {
				case message.client.Send <- message.data:
				default:
				}
			}

		case message := <-h.broadcast:
			for client := range h.rooms[message.orderID] {
				select {
				case client.Send <- message.data:
				default:
					h.drop(message.orderID, client)
					logger.Warn("Subscriber send buffer full, disconnecting", map[string]interface{}{
						"order_id": message.orderID,
						"actor_id": client.ActorID,
					})
				}
			}
		}
	}
}

// drop removes client from its room and closes its send channel. Only
// called from Run.
func (h *Hub) drop(orderID int64, client *Client) {
	room := h.rooms[orderID]
	delete(room, client)
	close(client.Send)
	if len(room) == 0 {
		delete(h.rooms, orderID)
	}
	h.setWatchers(orderID, len(room))
}

func (h *Hub) setWatchers(orderID int64, n int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if n == 0 {
		delete(h.watchers, orderID)
		return
	}
	h.watchers[orderID] = n
}

// PublishProgress pushes a summary to everyone watching orderID. Messages
// are dropped rather than blocking the caller when the hub is saturated.
func (h *Hub) PublishProgress(orderID int64, summary progress.Summary) {
	if h.Subscribers(orderID) == 0 {
		return
	}
	data, err := json.Marshal(Event{Type: EventProgress, OrderID: orderID, Data: summary})
	if err != nil {
		logger.Error("Failed to marshal progress event", err, map[string]interface{}{
			"order_id": orderID,
		})
		return
	}

	select {
	case h.broadcast <- broadcastMessage{orderID: orderID, data: data}:
	default:
		logger.Warn("Broadcast channel full, progress event dropped", map[string]interface{}{
			"order_id": orderID,
		})
	}
}

// Register adds a client to its order's room.
func (h *Hub) Register(client *Client) {
	h.register <- client
}

func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// Subscribers reports how many clients currently watch orderID.
func (h *Hub) Subscribers(orderID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.watchers[orderID]
}

// HandleClientMessage answers pings; anything else is ignored.
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	client.rateMu.Lock()
	now := time.Now()
	if now.Sub(client.lastResetTime) >= time.Second {
		client.messageCount = 0
		client.lastResetTime = now
	}
	client.messageCount++
	count := client.messageCount
	client.rateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"order_id": client.OrderID,
			"actor_id": client.ActorID,
			"count":    count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"actor_id": client.ActorID,
			"error":    err.Error(),
		})
		return
	}

	if msg.Type == "ping" {
		data, _ := json.Marshal(Event{Type: EventPong, OrderID: client.OrderID})
		select {
		case h.direct <- directMessage{client: client, data: data}:
		default:
		}
	}
}
