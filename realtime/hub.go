package realtime

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
)

// Message is the envelope pushed to connected clients.
type Message struct {
	Type    string      `json:"type"` // e.g. "NOTIFICATION_CREATED"
	Payload interface{} `json:"payload"`
}

// Hub fans notification events out to websocket clients. Rooms are keyed by
// user ID, so one user with several tabs open gets every message once per tab.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	rooms  map[string]map[*Client]bool
	mu     sync.RWMutex
	logger *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		rooms:      make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.Register:
			h.mu.Lock()
			if _, ok := h.rooms[client.Room]; !ok {
				h.rooms[client.Room] = make(map[*Client]bool)
			}
			h.rooms[client.Room][client] = true
			h.logger.Debug("websocket client registered",
				slog.String("room", client.Room),
				slog.Int("clients_in_room", len(h.rooms[client.Room])))
			h.mu.Unlock()

		case client := <-h.Unregister:
			h.mu.Lock()
			if roomClients, ok := h.rooms[client.Room]; ok {
				if _, okClient := roomClients[client]; okClient {
					client.closeSend()
					delete(roomClients, client)
					if len(roomClients) == 0 {
						delete(h.rooms, client.Room)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendToUser pushes a message to every connection of the given user.
// A slow or full client is skipped rather than blocking the caller.
func (h *Hub) SendToUser(userID int, msg Message) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	room := userRoom(userID)
	roomClients, ok := h.rooms[room]
	if !ok {
		return
	}

	messageBytes, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("failed to marshal websocket message",
			slog.String("room", room), slog.Any("error", err))
		return
	}

	for client := range roomClients {
		client.Mu.Lock()
		if client.IsClosed {
			client.Mu.Unlock()
			continue
		}
		select {
		case client.Send <- messageBytes:
		default:
			h.logger.Warn("websocket client send buffer full, skipping",
				slog.String("room", room))
		}
		client.Mu.Unlock()
	}
}

func userRoom(userID int) string {
	return "user_" + strconv.Itoa(userID)
}

// UserRoom names the hub room for a user's connections.
func UserRoom(userID int) string {
	return userRoom(userID)
}
