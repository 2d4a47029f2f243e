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

// AddClicks credits a country, creating its balance on first touch.
func (l *Ledger) AddClicks(ctx context.Context, code string, amount int64, now time.Time) (int64, error) {
	clicks, err := l.q.AddCountryClicks(ctx, db.AddCountryClicksParams{
		CountryCode: code,
		Clicks:      amount,
		CreatedAt:   toMillis(now),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to credit %s: %w", code, err)
	}
	return clicks, nil
}

// Debit removes amount only if the balance covers it. It reports
// domain.ErrInsufficient otherwise, leaving the row untouched.
func (l *Ledger) Debit(ctx context.Context, code string, amount int64) (int64, error) {
	clicks, err := l.q.DebitCountryClicks(ctx, db.DebitCountryClicksParams{
		Amount:      amount,
		CountryCode: code,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrInsufficient
	}
	if err != nil {
		return 0, fmt.Errorf("failed to debit %s: %w", code, err)
	}
	return clicks, nil
}

// Damage subtracts up to damage clicks, clamping at zero.
func (l *Ledger) Damage(ctx context.Context, code string, damage int64) (int64, error) {
	clicks, err := l.q.DamageCountryClicks(ctx, db.DamageCountryClicksParams{
		Damage:      damage,
		CountryCode: code,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrUnknownTarget
	}
	if err != nil {
		return 0, fmt.Errorf("failed to damage %s: %w", code, err)
	}
	return clicks, nil
}

// Balance returns nil when the country has never clicked.
func (l *Ledger) Balance(ctx context.Context, code string) (*domain.CountryBalance, error) {
	row, err := l.q.GetCountryClicks(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get balance for %s: %w", code, err)
	}
	return &domain.CountryBalance{
		Code:      row.CountryCode,
		Clicks:    row.Clicks,
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}

func (l *Ledger) Balances(ctx context.Context) ([]domain.CountryBalance, error) {
	rows, err := l.q.ListCountryClicks(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list balances: %w", err)
	}
	result := make([]domain.CountryBalance, len(rows))
	for i, r := range rows {
		result[i] = domain.CountryBalance{
			Code:      r.CountryCode,
			Clicks:    r.Clicks,
			CreatedAt: fromMillis(r.CreatedAt),
		}
	}
	return result, nil
}

// GlobalCount is derived from the balances rather than tracked separately.
func (l *Ledger) GlobalCount(ctx context.Context) (int64, error) {
	total, err := l.q.SumCountryClicks(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to sum clicks: %w", err)
	}
	return total, nil
}

func (l *Ledger) AddStats(ctx context.Context, code string, delta domain.StatsDelta, now time.Time) error {
	err := l.q.AddCountryStats(ctx, db.AddCountryStatsParams{
		CountryCode:           code,
		ChallengesWon:         delta.ChallengesWon,
		ChallengesLost:        delta.ChallengesLost,
		TotalMissilesLaunched: delta.MissilesLaunched,
		TotalDamageTaken:      delta.DamageTaken,
		LastActivity:          toMillis(now),
	})
	if err != nil {
		return fmt.Errorf("failed to update stats for %s: %w", code, err)
	}
	return nil
}

// Stats returns nil when nothing has been recorded yet.
func (l *Ledger) Stats(ctx context.Context, code string) (*domain.CountryStats, error) {
	row, err := l.q.GetCountryStats(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stats for %s: %w", code, err)
	}
	return &domain.CountryStats{
		Code:             row.CountryCode,
		ChallengesWon:    row.ChallengesWon,
		ChallengesLost:   row.ChallengesLost,
		MissilesLaunched: row.TotalMissilesLaunched,
		DamageTaken:      row.TotalDamageTaken,
		LastActivity:     fromMillis(row.LastActivity),
	}, nil
}
