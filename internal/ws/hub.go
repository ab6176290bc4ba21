package ws

import (
	"fmt"
	"sync"

	"logileet/internal/shared/util"
)

// AdminRoom is the global channel every connected admin observer joins.
const AdminRoom = "admins"

func DeliveryRoom(deliveryID string) string { return "delivery-" + deliveryID }
func UserRoom(userID string) string         { return "user-" + userID }

// wsConn is the slice of a websocket connection the hub needs; tests
// substitute an in-memory recorder.
type wsConn interface {
	WriteJSON(v interface{}) error
	WriteMessage(messageType int, data []byte) error
}

// Client is one connected subscriber. Writes are serialized per connection
// because gorilla conns allow only one concurrent writer.
type Client struct {
	UserID string
	Role   string

	conn wsConn
	mu   sync.Mutex
}

func NewClient(conn wsConn, userID, role string) *Client {
	return &Client{conn: conn, UserID: userID, Role: role}
}

func (c *Client) send(v interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

// writeMessage sends a control or raw frame under the same lock as json
// emissions; pings must never interleave with hub writes.
func (c *Client) writeMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(messageType, data)
}

// Event is the envelope every hub emission is wrapped in.
type Event struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// Hub is the room-based broadcast layer: one room per delivery, one per
// user, plus the admin channel. Delivery is at-most-once and fire-and-forget;
// a dead subscriber is dropped, never retried.
type Hub struct {
	mu     sync.RWMutex
	rooms  map[string]map[*Client]struct{}
	logger *util.Logger
}

func NewHub(logger *util.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]map[*Client]struct{}),
		logger: logger,
	}
}

// Register joins the client to its personal room and, for admins, the
// global admin channel.
func (h *Hub) Register(c *Client) {
	h.Join(UserRoom(c.UserID), c)
	if c.Role == "admin" {
		h.Join(AdminRoom, c)
	}
}

// Unregister removes the client from every room it joined.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for room, members := range h.rooms {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[*Client]struct{})
		h.rooms[room] = members
	}
	members[c] = struct{}{}
}

func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.rooms[room]; ok {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}
}

// RoomSize reports current membership, mainly for diagnostics.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Emit fans an event out to every member of a room. Write failures mark the
// connection dead and evict it; they are never reported to the emitter.
func (h *Hub) Emit(room, event string, payload interface{}) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		members = append(members, c)
	}
	h.mu.RUnlock()

	envelope := Event{Event: event, Data: payload}
	for _, c := range members {
		if err := c.send(envelope); err != nil {
			h.logger.Warn("Hub.Emit", fmt.Sprintf("dropping dead subscriber %s in %s: %v", c.UserID, room, err))
			h.Unregister(c)
		}
	}
}

// EmitExcept behaves like Emit but skips one client, used when re-broadcasting
// a message back into the room it came from.
func (h *Hub) EmitExcept(room, event string, payload interface{}, skip *Client) {
	h.mu.RLock()
	members := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		if c != skip {
			members = append(members, c)
		}
	}
	h.mu.RUnlock()

	envelope := Event{Event: event, Data: payload}
	for _, c := range members {
		if err := c.send(envelope); err != nil {
			h.Unregister(c)
		}
	}
}

// --- domain.Broadcaster ---

func (h *Hub) ToDelivery(deliveryID, event string, payload interface{}) {
	h.Emit(DeliveryRoom(deliveryID), event, payload)
}

func (h *Hub) ToUser(userID, event string, payload interface{}) {
	h.Emit(UserRoom(userID), event, payload)
}

func (h *Hub) ToAdmins(event string, payload interface{}) {
	h.Emit(AdminRoom, event, payload)
}
