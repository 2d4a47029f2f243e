package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clickwar/internal/db"
	"clickwar/internal/domain"
)

func (l *Ledger) LastLaunch(ctx context.Context, code string) (*time.Time, error) {
	last, err := l.q.GetLastMissile(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get last missile for %s: %w", code, err)
	}
	return nullMillis(last), nil
}

// SetLastLaunch upserts the cooldown record; a nil time clears it.
func (l *Ledger) SetLastLaunch(ctx context.Context, code string, at *time.Time) error {
	var last sql.NullInt64
	if at != nil {
		last = sql.NullInt64{Int64: toMillis(*at), Valid: true}
	}
	if err := l.q.UpsertLastMissile(ctx, db.UpsertLastMissileParams{
		CountryCode: code,
		LastMissile: last,
	}); err != nil {
		return fmt.Errorf("failed to set last missile for %s: %w", code, err)
	}
	return nil
}

func (l *Ledger) ClearLaunchesBefore(ctx context.Context, before time.Time) (int64, error) {
	n, err := l.q.ClearStaleMissiles(ctx, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("failed to clear stale missiles: %w", err)
	}
	return n, nil
}

// Shield returns nil when no shield was ever granted.
func (l *Ledger) Shield(ctx context.Context, code string) (*domain.Shield, error) {
	row, err := l.q.GetShield(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get shield for %s: %w", code, err)
	}
	return &domain.Shield{
		Code:      row.CountryCode,
		Active:    row.ShieldActive,
		ExpiresAt: fromMillis(row.ShieldExpires),
	}, nil
}

func (l *Ledger) PutShield(ctx context.Context, shield domain.Shield) error {
	if err := l.q.UpsertShield(ctx, db.UpsertShieldParams{
		CountryCode:   shield.Code,
		ShieldActive:  shield.Active,
		ShieldExpires: toMillis(shield.ExpiresAt),
	}); err != nil {
		return fmt.Errorf("failed to put shield for %s: %w", shield.Code, err)
	}
	return nil
}

func (l *Ledger) ClearExpiredShields(ctx context.Context, now time.Time) (int64, error) {
	n, err := l.q.ClearExpiredShields(ctx, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to clear expired shields: %w", err)
	}
	return n, nil
}
