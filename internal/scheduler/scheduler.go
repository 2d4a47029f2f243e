package scheduler

import (
	"context"
	"time"

	"clickwar/internal/api"
	"clickwar/internal/constants"
	"clickwar/internal/middleware"
	"clickwar/internal/service"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// limiterIdle is how long an IP may stay quiet before its limiter is dropped.
const limiterIdle = 30 * time.Minute

type job struct {
	name string
	next func(time.Time) time.Time
	run  func(ctx context.Context)
}

// Scheduler runs the periodic maintenance jobs: duel settlement, shield and
// cache sweeps, and the daily and weekly resets.
type Scheduler struct {
	jobs   []job
	now    service.Clock
	logger zerolog.Logger

	cancel context.CancelFunc
	group  *errgroup.Group
}

func New(
	duels *service.DuelEngine,
	shields *service.ShieldTracker,
	seasons *service.SeasonService,
	geo *api.GeoClient,
	limiter *middleware.IPLimiter,
	now service.Clock,
	logger zerolog.Logger,
) *Scheduler {
	s := &Scheduler{now: now, logger: logger.With().Str("component", "scheduler").Logger()}

	s.jobs = []job{
		{
			name: "duel-sweep",
			next: Every(constants.DuelSweepInterval),
			run:  duels.Sweep,
		},
		{
			name: "shield-sweep",
			next: Every(constants.ShieldSweepInterval),
			run: func(ctx context.Context) {
				n, err := shields.SweepExpired(ctx)
				if err != nil {
					s.logger.Error().Err(err).Msg("failed to sweep shields")
					return
				}
				s.logger.Debug().
					Int64("shields", n).
					Int("geo_entries", geo.PurgeExpired()).
					Int("limiters", limiter.Prune(limiterIdle)).
					Msg("sweep complete")
			},
		},
		{
			name: "daily-reset",
			next: NextMidnight,
			run: func(ctx context.Context) {
				n, err := seasons.DailyReset(ctx)
				if err != nil {
					s.logger.Error().Err(err).Msg("daily reset failed")
					return
				}
				s.logger.Info().Int64("cleared", n).Msg("daily reset complete")
			},
		},
		{
			name: "weekly-reset",
			next: NextMonday,
			run: func(ctx context.Context) {
				res, err := seasons.WeeklyReset(ctx)
				if err != nil {
					s.logger.Error().Err(err).Msg("weekly reset failed")
					return
				}
				s.logger.Info().Str("season", res.Season).Int64("archived_challenges", res.ArchivedRows).Msg("weekly reset complete")
			},
		},
	}
	return s
}

// Start launches every job on its own goroutine. Jobs stop when Stop is
// called or parent is cancelled.
func (s *Scheduler) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	g, ctx := errgroup.WithContext(ctx)
	s.cancel = cancel
	s.group = g

	for _, j := range s.jobs {
		j := j
		g.Go(func() error {
			s.loop(ctx, j)
			return nil
		})
	}
	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.group.Wait()
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context, j job) {
	for {
		now := s.now()
		wait := j.next(now).Sub(now)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		start := time.Now()
		j.run(ctx)
		s.logger.Debug().Str("job", j.name).Dur("took", time.Since(start)).Msg("job ran")
	}
}

// Every returns a schedule firing d after the previous run.
func Every(d time.Duration) func(time.Time) time.Time {
	return func(t time.Time) time.Time { return t.Add(d) }
}

// NextMidnight is the next 00:00 UTC strictly after t.
func NextMidnight(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, time.UTC)
}

// NextMonday is the next Monday 00:00 UTC strictly after t.
func NextMonday(t time.Time) time.Time {
	midnight := NextMidnight(t)
	days := (int(time.Monday) - int(midnight.Weekday()) + 7) % 7
	return midnight.AddDate(0, 0, days)
}
