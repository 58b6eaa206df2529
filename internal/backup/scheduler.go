package backup

import (
	"context"
	"time"

	"github.com/dmitrijs2005/chatkeeper/internal/logging"
)

// DefaultInterval is how often scheduled backups run when nothing else is
// configured.
const DefaultInterval = 24 * time.Hour

// Scheduler periodically snapshots the store files. Failures are logged
// and the loop keeps running; a broken backup never takes the app down.
type Scheduler struct {
	mgr      *Manager
	interval time.Duration
	log      logging.Logger
}

func NewScheduler(mgr *Manager, interval time.Duration, log logging.Logger) *Scheduler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{mgr: mgr, interval: interval, log: log}
}

// Run blocks until ctx is canceled. If no snapshot exists yet, one is taken
// immediately; after that, one per tick. Callers run this in its own
// goroutine.
func (s *Scheduler) Run(ctx context.Context) {
	if infos, err := s.mgr.List(); err == nil && len(infos) == 0 {
		s.runOnce(ctx)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if _, err := s.mgr.Create(ctx); err != nil {
		s.log.Warn(ctx, "scheduled backup failed", "error", err)
	}
}
