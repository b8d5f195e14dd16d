// Package scheduler runs the periodic expiry sweep.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper is the job the scheduler drives, satisfied by the bookings
// service.
type Sweeper interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Scheduler invokes the sweep on a fixed interval until its context is
// cancelled. One sweep runs immediately at startup so a long interval
// never delays overdue expirations across restarts.
type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	log      *zap.Logger
}

func New(sweeper Sweeper, interval time.Duration, log *zap.Logger) *Scheduler {
	return &Scheduler{sweeper: sweeper, interval: interval, log: log}
}

// Run blocks until ctx is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	s.sweep(ctx)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			s.log.Info("expiry scheduler stopped")
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	n, err := s.sweeper.ExpireOverdue(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", zap.Error(err))
		return
	}
	s.log.Debug("expiry sweep completed", zap.Int("expired", n))
}
