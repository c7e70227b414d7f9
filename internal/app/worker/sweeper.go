package worker

import (
	"context"
	"log/slog"
	"time"

	"lookout/internal/core/contracts"
)

// Sweeper periodically evicts presence entries whose owners disconnected
// without signaling (crash, network loss) and cascades the eviction into
// the room index.
type Sweeper struct {
	log       *slog.Logger
	presence  contracts.Presence
	interval  time.Duration
	threshold time.Duration
}

func NewSweeper(log *slog.Logger, presence contracts.Presence, interval, threshold time.Duration) *Sweeper {
	return &Sweeper{
		log:       log,
		presence:  presence,
		interval:  interval,
		threshold: threshold,
	}
}

// Run blocks on the sweep ticker until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.InfoContext(ctx, "worker - sweeper - starting",
		"interval", s.interval.String(), "threshold", s.threshold.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("worker - sweeper - stopped")
			return ctx.Err()
		case <-ticker.C:
			if removed := s.presence.CleanupInactive(s.threshold); removed > 0 {
				s.log.Info("worker - sweeper - evicted stale presence entries",
					"removed", removed, "online", s.presence.Count())
			}
		}
	}
}
