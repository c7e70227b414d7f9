package contracts

import (
	"lookout/internal/core/domain"
	"time"
)

// Presence is the process-local registry of live connections and room
// viewership. It is the single source of truth for the routing decision:
// collaborators never hold presence state of their own.
type Presence interface {
	// SetOnline creates or replaces the entry for userID. Last writer wins;
	// any room membership left behind by a previous connection is cleared.
	SetOnline(userID, connectionID string, kind domain.GatewayKind)
	// SetOffline cascades the room leave and deletes the entry.
	// No-op when the user has no entry.
	SetOffline(userID string)
	// Disconnect is SetOffline guarded by connection identity: it only
	// evicts when connID is still the user's live connection, so a stale
	// teardown cannot remove a reconnected user.
	Disconnect(userID, connID string)
	// UpdateActivity refreshes the entry's last-activity timestamp.
	UpdateActivity(userID string)

	IsOnline(userID string) bool
	SocketFor(userID string) (string, bool)
	Status(userID string) (domain.PresenceStatus, bool)
	Count() int

	// JoinRoom switches the user into roomID atomically. No-op without a
	// presence entry; idempotent when already viewing roomID.
	JoinRoom(userID, roomID string)
	// LeaveRoom removes the user from roomID only if it is their current
	// room, guarding against stale out-of-order leaves.
	LeaveRoom(userID, roomID string)
	IsUserInRoom(userID, roomID string) bool
	UsersInRoom(roomID string) []string

	// ShouldNotify answers whether an event scoped to roomID (optional,
	// empty means no room context) should produce a notification for userID.
	ShouldNotify(userID, roomID string) bool

	// CleanupInactive evicts every entry idle longer than threshold and
	// returns the number removed.
	CleanupInactive(threshold time.Duration) int
}
