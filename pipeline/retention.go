package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"
)

type Sweeper interface {
	Sweep(olderThan time.Duration) (int, error)
}

// RunRetention sweeps images older than retention every interval until ctx
// is cancelled.
func RunRetention(ctx context.Context, sweeper Sweeper, retention, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed, err := sweeper.Sweep(retention)
			if err != nil {
				logger.Error("image retention sweep failed", zap.Error(err))
				continue
			}
			if removed > 0 {
				logger.Info("expired images removed", zap.Int("count", removed))
			}
		}
	}
}
