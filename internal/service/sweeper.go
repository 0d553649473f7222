package service

import (
	"context"
	"time"

	"github.com/Skotchmaster/auth_service/internal/logging"
)

// RunSweeper deletes expired refresh tokens every interval until ctx ends.
// Lazy expiry on read still applies; this only bounds table growth.
func (s *AuthService) RunSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	l := logging.FromContext(ctx).With("svc", "refresh_sweeper")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.SweepExpiredSessions(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				l.Error("sweep_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("expired_sessions_removed", "count", n)
			}
		}
	}
}
