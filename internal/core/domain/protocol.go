package domain

import "time"

const (
	TypeHandshake    = "handshake"
	TypeRoomJoin     = "room.join"
	TypeRoomLeave    = "room.leave"
	TypePing         = "ping"
	TypeNotification = "notification"
	TypeError        = "error"
)

// ClientFrame is what a connected client sends over the websocket.
type ClientFrame struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id,omitempty"`
}

// HandshakeResponse is sent once on connect
type HandshakeResponse struct {
	Type         string      `json:"type"` // "handshake"
	UserID       string      `json:"user_id"`
	ConnectionID string      `json:"connection_id"`
	GatewayKind  GatewayKind `json:"gateway_kind"`
}

// NotificationFrame is pushed to a recipient whose routing decision was
// "notify" and who is online on this node.
type NotificationFrame struct {
	Type      string    `json:"type"` // "notification"
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id,omitempty"`
	SenderID  string    `json:"sender_id"`
	Kind      string    `json:"kind"`
	Preview   string    `json:"preview,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ErrorMessage is WS-safe error
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Code    string `json:"code"`
	Message string `json:"message"`
}
