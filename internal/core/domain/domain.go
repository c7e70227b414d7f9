package domain

import (
	"time"

	"github.com/google/uuid"
)

// GatewayKind identifies the class of transport channel a connection
// belongs to: direct one-to-one chats vs. multi-party rooms.
type GatewayKind string

const (
	GatewayPrivate GatewayKind = "private"
	GatewayGroup   GatewayKind = "group"
)

func ParseGatewayKind(s string) GatewayKind {
	if s == string(GatewayPrivate) {
		return GatewayPrivate
	}
	return GatewayGroup
}

// PresenceStatus is a read-only snapshot of one user's connection state,
// exposed for diagnostics.
type PresenceStatus struct {
	Online         bool        `json:"online"`
	GatewayKind    GatewayKind `json:"gateway_kind,omitempty"`
	CurrentRoomID  string      `json:"current_room_id,omitempty"`
	ConnectedAt    time.Time   `json:"connected_at"`
	LastActivityAt time.Time   `json:"last_activity_at"`
}

// ChatEvent is what a notification-producing collaborator posts when
// something happened in a room (or a direct chat when RoomID is empty).
type ChatEvent struct {
	RoomID       string   `json:"room_id,omitempty"`
	SenderID     string   `json:"sender_id"`
	RecipientIDs []string `json:"recipient_ids"`
	Kind         string   `json:"kind"`
	Preview      string   `json:"preview,omitempty"`
}

// Notification is one routed, per-recipient inbox entry.
type Notification struct {
	ID          uuid.UUID  `json:"id"`
	RecipientID string     `json:"recipient_id"`
	RoomID      string     `json:"room_id,omitempty"`
	SenderID    string     `json:"sender_id"`
	Kind        string     `json:"kind"`
	Preview     string     `json:"preview,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
}
