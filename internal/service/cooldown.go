package service

import (
	"context"
	"time"

	"clickwar/internal/config"
	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
)

type Clock func() time.Time

func SystemClock() Clock {
	return func() time.Time { return time.Now().UTC() }
}

// CooldownTracker answers launch eligibility from the stored timestamp and
// the clock alone.
type CooldownTracker struct {
	store  *repository.Store
	window time.Duration
	now    Clock
	logger zerolog.Logger
}

func NewCooldownTracker(store *repository.Store, cfg *config.Config, now Clock, logger zerolog.Logger) *CooldownTracker {
	return &CooldownTracker{store: store, window: cfg.MissileCooldown, now: now, logger: logger}
}

func (t *CooldownTracker) Window() time.Duration {
	return t.window
}

// Check returns whether country may launch and, if not, how long it must wait.
func (t *CooldownTracker) Check(ctx context.Context, l *repository.Ledger, country string) (bool, time.Duration, error) {
	last, err := l.LastLaunch(ctx, country)
	if err != nil {
		return false, 0, err
	}
	now := t.now()
	if domain.CanLaunch(last, now, t.window) {
		return true, 0, nil
	}
	return false, domain.CooldownRemaining(last, now, t.window), nil
}

func (t *CooldownTracker) RecordLaunch(ctx context.Context, l *repository.Ledger, country string) error {
	now := t.now()
	return l.SetLastLaunch(ctx, country, &now)
}

// Reset clears one country's cooldown; repeating it is harmless.
func (t *CooldownTracker) Reset(ctx context.Context, country string) error {
	if err := t.store.Ledger().SetLastLaunch(ctx, country, nil); err != nil {
		t.logger.Error().Err(err).Str("country", country).Msg("failed to reset missile cooldown")
		return err
	}
	t.logger.Info().Str("country", country).Msg("missile cooldown reset")
	return nil
}

// ExpireStale drops launch records older than a day.
func (t *CooldownTracker) ExpireStale(ctx context.Context) (int64, error) {
	n, err := t.store.Ledger().ClearLaunchesBefore(ctx, t.now().Add(-constants.StaleMissileAge))
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to expire stale missile cooldowns")
		return 0, err
	}
	t.logger.Info().Int64("cleared", n).Msg("daily missile cooldowns reset")
	return n, nil
}
