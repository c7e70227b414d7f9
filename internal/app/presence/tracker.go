package presence

import (
	"lookout/internal/core/domain"
	"sync"
	"time"
)

// entry is the live-connection record for one user. A user has at most one
// entry and at most one current room.
type entry struct {
	connectionID   string
	gatewayKind    domain.GatewayKind
	connectedAt    time.Time
	lastActivityAt time.Time
	currentRoomID  string // empty when not viewing any room
}

// Tracker is the process-local presence registry: who is connected, which
// room each user is actively viewing, and whether an event should reach
// them as a notification. Both maps are two views of one consistent state
// and are guarded by a single mutex; a room set exists iff it is non-empty.
//
// Construct with New and inject the instance; there is no package-level
// singleton.
type Tracker struct {
	mu      sync.RWMutex
	entries map[string]*entry
	rooms   map[string]map[string]struct{}
	now     func() time.Time
}

func New() *Tracker {
	return &Tracker{
		entries: make(map[string]*entry),
		rooms:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

// SetOnline creates or replaces the entry for userID with fresh timestamps
// and no current room. Reconnects without a clean disconnect replace the
// entry wholesale; any room membership the old connection left behind is
// cleared here so no ghost viewer survives the takeover.
func (t *Tracker) SetOnline(userID, connectionID string, kind domain.GatewayKind) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if old, ok := t.entries[userID]; ok && old.currentRoomID != "" {
		t.removeFromRoom(old.currentRoomID, userID)
	}
	now := t.now()
	t.entries[userID] = &entry{
		connectionID:   connectionID,
		gatewayKind:    kind,
		connectedAt:    now,
		lastActivityAt: now,
	}
}

// SetOffline cascades the room leave for the user's current room, then
// deletes the entry. No-op when the user has no entry.
func (t *Tracker) SetOffline(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.evict(userID)
}

// Disconnect runs the SetOffline sequence only if connID is still the
// user's current connection. A slow-closing old connection tearing down
// after a reconnect must not evict the replacement entry.
func (t *Tracker) Disconnect(userID, connID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok || e.connectionID != connID {
		return
	}
	t.evict(userID)
}

// evict runs the full disconnect sequence. Caller holds t.mu.
func (t *Tracker) evict(userID string) {
	e, ok := t.entries[userID]
	if !ok {
		return
	}
	if e.currentRoomID != "" {
		t.removeFromRoom(e.currentRoomID, userID)
	}
	delete(t.entries, userID)
}

func (t *Tracker) UpdateActivity(userID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if e, ok := t.entries[userID]; ok {
		e.lastActivityAt = t.now()
	}
}

func (t *Tracker) IsOnline(userID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.entries[userID]
	return ok
}

func (t *Tracker) SocketFor(userID string) (string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if e, ok := t.entries[userID]; ok {
		return e.connectionID, true
	}
	return "", false
}

func (t *Tracker) Status(userID string) (domain.PresenceStatus, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[userID]
	if !ok {
		return domain.PresenceStatus{}, false
	}
	return domain.PresenceStatus{
		Online:         true,
		GatewayKind:    e.gatewayKind,
		CurrentRoomID:  e.currentRoomID,
		ConnectedAt:    e.connectedAt,
		LastActivityAt: e.lastActivityAt,
	}, true
}

func (t *Tracker) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.entries)
}

// JoinRoom switches the user into roomID as one atomic step: the old
// membership (if any) is removed and the new one added under the same lock
// acquisition, so no reader can observe the user in neither room. No-op
// without a presence entry; idempotent when already viewing roomID.
func (t *Tracker) JoinRoom(userID, roomID string) {
	if roomID == "" {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok {
		return
	}
	if e.currentRoomID == roomID {
		return
	}
	if e.currentRoomID != "" {
		t.removeFromRoom(e.currentRoomID, userID)
	}
	if t.rooms[roomID] == nil {
		t.rooms[roomID] = make(map[string]struct{})
	}
	t.rooms[roomID][userID] = struct{}{}
	e.currentRoomID = roomID
}

// LeaveRoom clears the membership only when roomID is the user's current
// room, so a stale leave arriving after a room switch is a no-op.
func (t *Tracker) LeaveRoom(userID, roomID string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[userID]
	if !ok || e.currentRoomID != roomID {
		return
	}
	t.removeFromRoom(roomID, userID)
	e.currentRoomID = ""
}

// removeFromRoom drops userID from roomID's viewer set and deletes the set
// the instant it becomes empty. Caller holds t.mu.
func (t *Tracker) removeFromRoom(roomID, userID string) {
	viewers, ok := t.rooms[roomID]
	if !ok {
		return
	}
	delete(viewers, userID)
	if len(viewers) == 0 {
		delete(t.rooms, roomID)
	}
}

func (t *Tracker) IsUserInRoom(userID, roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	_, ok := t.rooms[roomID][userID]
	return ok
}

func (t *Tracker) UsersInRoom(roomID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	viewers := t.rooms[roomID]
	users := make([]string, 0, len(viewers))
	for uid := range viewers {
		users = append(users, uid)
	}
	return users
}

// RoomCount reports the number of rooms with at least one active viewer.
// Since empty sets are deleted eagerly this equals the map size.
func (t *Tracker) RoomCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rooms)
}

// ShouldNotify is the routing decision: offline users are always notified,
// a user viewing exactly the event's room is suppressed, everyone else is
// notified. Pure read over the current snapshot; never mutates.
func (t *Tracker) ShouldNotify(userID, roomID string) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[userID]
	if !ok {
		return true
	}
	if roomID != "" && e.currentRoomID == roomID {
		return false
	}
	return true
}

// CleanupInactive evicts every entry whose last activity is older than
// now-threshold, running the full disconnect sequence for each under one
// exclusive lock so concurrent traffic never sees a half-swept state.
// Returns the number of entries removed.
func (t *Tracker) CleanupInactive(threshold time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-threshold)
	var stale []string
	for uid, e := range t.entries {
		if e.lastActivityAt.Before(cutoff) {
			stale = append(stale, uid)
		}
	}
	for _, uid := range stale {
		t.evict(uid)
	}
	return len(stale)
}
