package presence

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"lookout/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetOnlineAndStatus(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)

	require.True(t, tr.IsOnline("u1"))
	require.Equal(t, 1, tr.Count())

	conn, ok := tr.SocketFor("u1")
	require.True(t, ok)
	assert.Equal(t, "conn-1", conn)

	st, ok := tr.Status("u1")
	require.True(t, ok)
	assert.Equal(t, domain.GatewayGroup, st.GatewayKind)
	assert.Empty(t, st.CurrentRoomID)
	assert.False(t, st.ConnectedAt.IsZero())
}

func TestSetOnlineReplacesEntry(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayPrivate)
	tr.SetOnline("u1", "conn-2", domain.GatewayGroup)

	require.Equal(t, 1, tr.Count())
	conn, _ := tr.SocketFor("u1")
	assert.Equal(t, "conn-2", conn)
}

// A reconnect without a clean disconnect must not leave a ghost viewer in
// the old room's set.
func TestSetOnlineClearsStaleRoomMembership(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")
	require.True(t, tr.IsUserInRoom("u1", "r1"))

	tr.SetOnline("u1", "conn-2", domain.GatewayGroup)

	assert.False(t, tr.IsUserInRoom("u1", "r1"))
	assert.Empty(t, tr.UsersInRoom("r1"))
	assert.Equal(t, 0, tr.RoomCount())
	st, _ := tr.Status("u1")
	assert.Empty(t, st.CurrentRoomID)
}

func TestStaleDisconnectKeepsReconnectedUser(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.SetOnline("u1", "conn-2", domain.GatewayGroup)

	// The old connection's teardown fires after the reconnect.
	tr.Disconnect("u1", "conn-1")
	require.True(t, tr.IsOnline("u1"))

	tr.Disconnect("u1", "conn-2")
	assert.False(t, tr.IsOnline("u1"))
}

func TestSetOfflineUnknownUserIsNoop(t *testing.T) {
	tr := New()
	tr.SetOffline("ghost")
	assert.Equal(t, 0, tr.Count())
}

func TestOfflineUserAlwaysNotified(t *testing.T) {
	tr := New()
	assert.True(t, tr.ShouldNotify("u1", "r1"))
	assert.True(t, tr.ShouldNotify("u1", ""))
}

func TestRoomSuppression(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")

	assert.False(t, tr.ShouldNotify("u1", "r1"), "viewer of the event's room must be suppressed")
	assert.True(t, tr.ShouldNotify("u1", "r2"))
	assert.True(t, tr.ShouldNotify("u1", ""), "no room context means notify")
}

func TestExclusiveRoomMembership(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")
	tr.JoinRoom("u1", "r2")

	assert.False(t, tr.IsUserInRoom("u1", "r1"))
	assert.True(t, tr.IsUserInRoom("u1", "r2"))
	assert.NotContains(t, tr.UsersInRoom("r1"), "u1")

	st, _ := tr.Status("u1")
	assert.Equal(t, "r2", st.CurrentRoomID)
}

func TestJoinRoomWithoutPresenceIsNoop(t *testing.T) {
	tr := New()
	tr.JoinRoom("u1", "r1")
	assert.Empty(t, tr.UsersInRoom("r1"))
	assert.Equal(t, 0, tr.RoomCount())
}

func TestJoinRoomIdempotent(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")
	tr.JoinRoom("u1", "r1")
	assert.Equal(t, []string{"u1"}, tr.UsersInRoom("r1"))
}

func TestEmptyRoomGarbageCollected(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.SetOnline("u2", "conn-2", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")
	tr.JoinRoom("u2", "r1")

	tr.LeaveRoom("u1", "r1")
	assert.Equal(t, 1, tr.RoomCount())

	tr.LeaveRoom("u2", "r1")
	assert.Empty(t, tr.UsersInRoom("r1"))
	assert.Equal(t, 0, tr.RoomCount(), "room entry must die with its last viewer")
}

func TestStaleLeaveIsNoop(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")
	tr.JoinRoom("u1", "r2")

	// Out-of-order leave for the room the user already switched away from.
	tr.LeaveRoom("u1", "r1")
	assert.True(t, tr.IsUserInRoom("u1", "r2"))
	st, _ := tr.Status("u1")
	assert.Equal(t, "r2", st.CurrentRoomID)
}

func TestDisconnectCascades(t *testing.T) {
	tr := New()
	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")

	tr.SetOffline("u1")

	assert.False(t, tr.IsOnline("u1"))
	assert.False(t, tr.IsUserInRoom("u1", "r1"))
	assert.NotContains(t, tr.UsersInRoom("r1"), "u1")
	assert.Equal(t, 0, tr.RoomCount())
	assert.True(t, tr.ShouldNotify("u1", "r1"))
}

func TestCleanupInactive(t *testing.T) {
	now := time.Now()
	tr := New()
	tr.now = func() time.Time { return now }

	tr.SetOnline("idle", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("idle", "r1")
	tr.SetOnline("active", "conn-2", domain.GatewayGroup)
	tr.JoinRoom("active", "r1")

	// idle goes silent, active keeps heartbeating.
	now = now.Add(31 * time.Minute)
	tr.UpdateActivity("active")

	removed := tr.CleanupInactive(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.False(t, tr.IsOnline("idle"))
	assert.True(t, tr.IsOnline("active"))
	assert.False(t, tr.IsUserInRoom("idle", "r1"), "sweep must cascade into the room index")
	assert.Equal(t, []string{"active"}, tr.UsersInRoom("r1"))
}

func TestCleanupInactiveEmptiesRooms(t *testing.T) {
	now := time.Now()
	tr := New()
	tr.now = func() time.Time { return now }

	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("u1", "r1")

	now = now.Add(time.Hour)
	removed := tr.CleanupInactive(30 * time.Minute)

	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, tr.Count())
	assert.Equal(t, 0, tr.RoomCount())
}

func TestUpdateActivityRefreshesStamp(t *testing.T) {
	now := time.Now()
	tr := New()
	tr.now = func() time.Time { return now }

	tr.SetOnline("u1", "conn-1", domain.GatewayGroup)
	now = now.Add(time.Minute)
	tr.UpdateActivity("u1")

	st, _ := tr.Status("u1")
	assert.Equal(t, now, st.LastActivityAt)
	assert.True(t, st.ConnectedAt.Before(st.LastActivityAt))

	// Unknown users are ignored.
	tr.UpdateActivity("ghost")
	assert.Equal(t, 1, tr.Count())
}

// After a storm of concurrent joins, leaves, disconnects and sweeps, every
// surviving entry's current room and the room index must agree exactly.
func TestConcurrentOperationsKeepInvariants(t *testing.T) {
	tr := New()
	const users = 64
	const rooms = 8
	const iterations = 200

	var wg sync.WaitGroup
	for i := 0; i < users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			uid := fmt.Sprintf("u%d", n)
			tr.SetOnline(uid, fmt.Sprintf("conn-%d", n), domain.GatewayGroup)
			for j := 0; j < iterations; j++ {
				room := fmt.Sprintf("r%d", (n+j)%rooms)
				switch j % 5 {
				case 0, 1:
					tr.JoinRoom(uid, room)
				case 2:
					tr.LeaveRoom(uid, room)
				case 3:
					tr.UpdateActivity(uid)
					tr.ShouldNotify(uid, room)
				case 4:
					tr.SetOffline(uid)
					tr.SetOnline(uid, fmt.Sprintf("conn-%d-%d", n, j), domain.GatewayGroup)
				}
			}
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			tr.CleanupInactive(time.Hour)
			tr.Count()
		}
	}()
	wg.Wait()

	tr.mu.RLock()
	defer tr.mu.RUnlock()
	for uid, e := range tr.entries {
		memberships := 0
		for roomID, viewers := range tr.rooms {
			if _, ok := viewers[uid]; ok {
				memberships++
				require.Equal(t, e.currentRoomID, roomID, "user %s found in a room that is not their current room", uid)
			}
		}
		if e.currentRoomID == "" {
			require.Zero(t, memberships, "user %s has no current room but appears in the index", uid)
		} else {
			require.Equal(t, 1, memberships, "user %s must be in exactly their current room", uid)
		}
	}
	for roomID, viewers := range tr.rooms {
		require.NotEmpty(t, viewers, "empty room %s must have been deleted", roomID)
		for uid := range viewers {
			_, ok := tr.entries[uid]
			require.True(t, ok, "room %s holds a viewer %s with no presence entry", roomID, uid)
		}
	}
}
