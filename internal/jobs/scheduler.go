// Package jobs runs the periodic cache maintenance.
package jobs

import (
	"context"
	"log"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	projectsdomain "github.com/vulcano-studio/vulcano-backend/internal/projects/domain"
)

// Schedules, with seconds.
const (
	WarmCategoriesSpec = "0 */10 * * * *"
	FlushStatsSpec     = "0 0 0 * * *"
	SweepLimiterSpec   = "0 */15 * * * *"

	jobTimeout  = time.Minute
	limiterIdle = 30 * time.Minute
)

type CategoryWarmer interface {
	WarmCategories(ctx context.Context) ([]projectsdomain.Count, error)
}

type StatsFlusher interface {
	Flush(ctx context.Context) (int, error)
}

type Sweeper interface {
	Sweep(idle time.Duration) int
}

type Deps struct {
	Categories CategoryWarmer
	Stats      StatsFlusher
	Limiter    Sweeper
}

type Scheduler struct {
	cron *cron.Cron
	deps Deps
	log  *slog.Logger
}

func NewScheduler(deps Deps, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithSeconds()),
		deps: deps,
		log:  logger,
	}
}

// Register adds every job whose dependency is present.
func (s *Scheduler) Register() error {
	jobs := []struct {
		spec string
		run  func()
		on   bool
	}{
		{WarmCategoriesSpec, s.WarmCategories, s.deps.Categories != nil},
		{FlushStatsSpec, s.FlushStats, s.deps.Stats != nil},
		{SweepLimiterSpec, s.SweepLimiter, s.deps.Limiter != nil},
	}
	for _, j := range jobs {
		if !j.on {
			continue
		}
		if _, err := s.cron.AddFunc(j.spec, j.run); err != nil {
			return err
		}
	}
	return nil
}

func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

func (s *Scheduler) Start() {
	s.cron.Start()
	log.Printf("cron scheduler started with %d jobs", s.Len())
}

// Stop prevents new runs and waits for running ones until ctx ends.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.log.Warn("cron jobs still running at shutdown")
	}
}

func (s *Scheduler) WarmCategories() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	counts, err := s.deps.Categories.WarmCategories(ctx)
	if err != nil {
		s.log.Error("warm category counts", "err", err)
		return
	}
	s.log.Debug("category counts warmed", "categories", len(counts))
}

func (s *Scheduler) FlushStats() {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	n, err := s.deps.Stats.Flush(ctx)
	if err != nil {
		s.log.Error("flush user statistics", "err", err)
		return
	}
	s.log.Info("user statistics flushed", "keys", n)
}

func (s *Scheduler) SweepLimiter() {
	if n := s.deps.Limiter.Sweep(limiterIdle); n > 0 {
		s.log.Debug("idle rate-limit buckets dropped", "count", n)
	}
}
