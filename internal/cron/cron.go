package cron

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	// Connections left open this long are considered abandoned.
	staleAfter = 12 * time.Hour
	// Ended connections are kept this long for the privacy export.
	retainEnded = 30 * 24 * time.Hour
)

// Connections is a table of meeting form connections, such as jitsi2
// speakers or deft peers.
type Connections interface {
	EndStale(ctx context.Context, before time.Time) (int64, error)
	PurgeEnded(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler handles scheduled tasks
type Scheduler struct {
	cron   *cron.Cron
	tables map[string]Connections
	now    func() time.Time
}

// NewScheduler creates a scheduler sweeping the given connection tables,
// keyed by a name used in logs.
func NewScheduler(tables map[string]Connections) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		tables: tables,
		now:    time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	// Every 10 minutes - end abandoned connections
	s.cron.AddFunc("*/10 * * * *", func() {
		zap.L().Debug("[Cron] Running stale connection sweep...")
		s.endStale()
	})

	// Every Sunday at midnight - purge old ended connections
	s.cron.AddFunc("0 0 * * 0", func() {
		zap.L().Info("[Cron] Running connection cleanup...")
		s.purgeEnded()
	})

	s.cron.Start()
	zap.L().Info("[Cron] Scheduler started")
}

// Stop stops the scheduler and waits for running jobs.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	zap.L().Info("[Cron] Scheduler stopped")
}

func (s *Scheduler) endStale() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	before := s.now().Add(-staleAfter)
	for name, table := range s.tables {
		n, err := table.EndStale(ctx, before)
		if err != nil {
			zap.L().Error("[Cron] Failed to end stale connections", zap.String("table", name), zap.Error(err))
			continue
		}
		if n > 0 {
			zap.L().Info("[Cron] Ended stale connections", zap.String("table", name), zap.Int64("count", n))
		}
	}
}

func (s *Scheduler) purgeEnded() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	before := s.now().Add(-retainEnded)
	for name, table := range s.tables {
		n, err := table.PurgeEnded(ctx, before)
		if err != nil {
			zap.L().Error("[Cron] Failed to purge connections", zap.String("table", name), zap.Error(err))
			continue
		}
		zap.L().Info("[Cron] Purged ended connections", zap.String("table", name), zap.Int64("count", n))
	}
}
