package service

import (
	"context"
	"time"

	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
)

type ShieldTracker struct {
	store  *repository.Store
	now    Clock
	logger zerolog.Logger
}

func NewShieldTracker(store *repository.Store, now Clock, logger zerolog.Logger) *ShieldTracker {
	return &ShieldTracker{store: store, now: now, logger: logger}
}

func (t *ShieldTracker) Grant(ctx context.Context, l *repository.Ledger, country string, duration time.Duration) error {
	return l.PutShield(ctx, domain.Shield{
		Code:      country,
		Active:    true,
		ExpiresAt: t.now().Add(duration),
	})
}

func (t *ShieldTracker) IsShielded(ctx context.Context, l *repository.Ledger, country string) (bool, error) {
	s, err := l.Shield(ctx, country)
	if err != nil {
		return false, err
	}
	return s.IsShielded(t.now()), nil
}

// Remaining is zero when country is not shielded.
func (t *ShieldTracker) Remaining(ctx context.Context, country string) (time.Duration, error) {
	s, err := t.store.Ledger().Shield(ctx, country)
	if err != nil {
		return 0, err
	}
	return s.Remaining(t.now()), nil
}

// SweepExpired clears stale flags. IsShielded does not depend on it.
func (t *ShieldTracker) SweepExpired(ctx context.Context) (int64, error) {
	n, err := t.store.Ledger().ClearExpiredShields(ctx, t.now())
	if err != nil {
		t.logger.Error().Err(err).Msg("failed to remove expired shields")
		return 0, err
	}
	if n > 0 {
		t.logger.Info().Int64("cleared", n).Msg("removed expired shields")
	}
	return n, nil
}
