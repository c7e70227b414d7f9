package worker

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"lookout/internal/app/presence"
	"lookout/internal/core/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSweeperEvictsSilentUsers(t *testing.T) {
	tr := presence.New()
	tr.SetOnline("silent", "conn-1", domain.GatewayGroup)
	tr.JoinRoom("silent", "r1")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	s := NewSweeper(slog.Default(), tr, 10*time.Millisecond, 30*time.Millisecond)
	go s.Run(ctx)

	require.Eventually(t, func() bool {
		return !tr.IsOnline("silent")
	}, time.Second, 5*time.Millisecond, "silent user must be swept once past the threshold")
	assert.Empty(t, tr.UsersInRoom("r1"))
}

func TestSweeperSparesActiveUsers(t *testing.T) {
	tr := presence.New()
	tr.SetOnline("active", "conn-1", domain.GatewayGroup)

	ctx, cancel := context.WithCancel(context.Background())

	s := NewSweeper(slog.Default(), tr, 5*time.Millisecond, time.Hour)
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	assert.True(t, tr.IsOnline("active"))
}
