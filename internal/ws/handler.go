package ws

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"logileet/internal/shared/jwt"
	"logileet/internal/shared/util"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

const (
	authTimeout  = 5 * time.Second
	pingInterval = 30 * time.Second
	readDeadline = 60 * time.Second
)

type AuthMessage struct {
	Type  string `json:"type"`
	Token string `json:"token"`
}

type WSResponse struct {
	Type    string      `json:"type"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type clientMessage struct {
	Type       string          `json:"type"`
	DeliveryID string          `json:"deliveryId,omitempty"`
	Location   json.RawMessage `json:"location,omitempty"`
	Status     string          `json:"status,omitempty"`
	Timestamp  string          `json:"timestamp,omitempty"`
}

// Handler upgrades HTTP connections, authenticates them, and bridges the
// socket protocol to hub rooms.
type Handler struct {
	hub    *Hub
	tokens *jwt.Manager
	logger *util.Logger
}

func NewHandler(hub *Hub, tokens *jwt.Manager, logger *util.Logger) *Handler {
	return &Handler{hub: hub, tokens: tokens, logger: logger}
}

func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /ws", h.HandleConnection)
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	instance := "WSHandler.HandleConnection"

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(instance, fmt.Sprintf("upgrade failed: %v", err))
		return
	}
	defer conn.Close()

	claims := h.authenticateWithTimeout(conn)
	if claims == nil {
		return
	}

	client := NewClient(conn, claims.UserID, claims.Role)
	h.hub.Register(client)
	defer h.hub.Unregister(client)

	_ = client.send(WSResponse{Type: "auth_success", Message: "authenticated"})
	h.logger.Info(instance, fmt.Sprintf("user connected: %s (%s)", claims.UserID, claims.Role))

	stopPing := make(chan struct{})
	go h.startPingPong(conn, client, stopPing)
	defer close(stopPing)

	h.readLoop(conn, client)

	h.logger.Info(instance, fmt.Sprintf("user disconnected: %s", claims.UserID))
}

// authenticateWithTimeout expects the first message to be
// {type: "auth", token: "Bearer <jwt>"} within the auth window.
// Unauthenticated connections never join a room.
func (h *Handler) authenticateWithTimeout(conn *websocket.Conn) *jwt.Claims {
	authTimer := time.NewTimer(authTimeout)
	defer authTimer.Stop()

	authChan := make(chan string, 1)

	go func() {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var authMsg AuthMessage
		if err := json.Unmarshal(msg, &authMsg); err != nil {
			return
		}
		if authMsg.Type == "auth" {
			authChan <- authMsg.Token
		}
	}()

	select {
	case tokenStr := <-authChan:
		tokenStr = strings.TrimPrefix(tokenStr, "Bearer ")
		claims, err := h.tokens.Parse(tokenStr)
		if err != nil {
			_ = conn.WriteJSON(WSResponse{Type: "error", Message: "invalid token"})
			return nil
		}
		return claims
	case <-authTimer.C:
		_ = conn.WriteJSON(WSResponse{Type: "error", Message: "authentication timeout"})
		return nil
	}
}

// startPingPong keeps the connection alive. Pings go through the client's
// write lock; the connection allows only one concurrent writer and the hub
// may be fanning out to it at the same time.
func (h *Handler) startPingPong(conn *websocket.Conn, client *Client, stop chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(readDeadline))
	})
	_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

	for {
		select {
		case <-ticker.C:
			if err := client.writeMessage(websocket.PingMessage, []byte{}); err != nil {
				return
			}
		case <-stop:
			return
		}
	}
}

// readLoop processes subscription management and live re-broadcast messages
// from the client until the connection drops.
func (h *Handler) readLoop(conn *websocket.Conn, client *Client) {
	instance := "WSHandler.readLoop"

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Warn(instance, fmt.Sprintf("read error: %v", err))
			}
			return
		}

		var m clientMessage
		if err := json.Unmarshal(msg, &m); err != nil {
			continue
		}

		switch m.Type {
		case "join-delivery":
			if m.DeliveryID != "" {
				h.hub.Join(DeliveryRoom(m.DeliveryID), client)
			}
		case "leave-delivery":
			if m.DeliveryID != "" {
				h.hub.Leave(DeliveryRoom(m.DeliveryID), client)
			}
		case "driver-location-update":
			// Live relay only; the persisted path is the tracking API.
			if m.DeliveryID == "" {
				continue
			}
			h.hub.EmitExcept(DeliveryRoom(m.DeliveryID), "location-update", map[string]interface{}{
				"deliveryId": m.DeliveryID,
				"location":   m.Location,
				"status":     m.Status,
				"driverId":   client.UserID,
				"timestamp":  time.Now().UTC(),
			}, client)
		case "delivery-status-update":
			if m.DeliveryID == "" {
				continue
			}
			h.hub.EmitExcept(DeliveryRoom(m.DeliveryID), "status-update", map[string]interface{}{
				"deliveryId": m.DeliveryID,
				"status":     m.Status,
				"driverId":   client.UserID,
				"timestamp":  time.Now().UTC(),
			}, client)
		default:
			h.logger.Warn(instance, "unknown message type: "+m.Type)
		}
	}
}
