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

func toChallenge(row db.CountryChallenge) domain.Challenge {
	c := domain.Challenge{
		ID:                row.ID,
		ChallengerCountry: row.ChallengerCountry,
		ChallengedCountry: row.ChallengedCountry,
		BetAmount:         row.BetAmount,
		Status:            domain.ChallengeStatus(row.Status),
		CreatedAt:         fromMillis(row.CreatedAt),
		StartedAt:         nullMillis(row.StartedAt),
		CompletedAt:       nullMillis(row.CompletedAt),
		WinnerCountry:     row.WinnerCountry.String,
	}
	if row.ChallengerClicks.Valid {
		v := row.ChallengerClicks.Int64
		c.ChallengerClicks = &v
	}
	if row.ChallengedClicks.Valid {
		v := row.ChallengedClicks.Int64
		c.ChallengedClicks = &v
	}
	return c
}

func (l *Ledger) InsertChallenge(ctx context.Context, c domain.Challenge) (int64, error) {
	id, err := l.q.InsertChallenge(ctx, db.InsertChallengeParams{
		ChallengerCountry: c.ChallengerCountry,
		ChallengedCountry: c.ChallengedCountry,
		BetAmount:         c.BetAmount,
		CreatedAt:         toMillis(c.CreatedAt),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to insert challenge %s->%s: %w", c.ChallengerCountry, c.ChallengedCountry, err)
	}
	return id, nil
}

// Challenge returns domain.ErrChallengeMissing for unknown ids.
func (l *Ledger) Challenge(ctx context.Context, id int64) (*domain.Challenge, error) {
	row, err := l.q.GetChallenge(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrChallengeMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get challenge %d: %w", id, err)
	}
	c := toChallenge(row)
	return &c, nil
}

func (l *Ledger) OpenChallenges(ctx context.Context, code string) ([]domain.Challenge, error) {
	rows, err := l.q.ListOpenChallengesForCountry(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to list challenges for %s: %w", code, err)
	}
	result := make([]domain.Challenge, len(rows))
	for i, r := range rows {
		result[i] = toChallenge(r)
	}
	return result, nil
}

func (l *Ledger) PendingChallengesBefore(ctx context.Context, before time.Time) ([]domain.Challenge, error) {
	rows, err := l.q.ListPendingChallengesBefore(ctx, toMillis(before))
	if err != nil {
		return nil, fmt.Errorf("failed to list pending challenges: %w", err)
	}
	result := make([]domain.Challenge, len(rows))
	for i, r := range rows {
		result[i] = toChallenge(r)
	}
	return result, nil
}

// Activate moves a pending challenge to active. It reports false when the
// row was no longer pending.
func (l *Ledger) Activate(ctx context.Context, id int64, startedAt time.Time) (bool, error) {
	n, err := l.q.ActivateChallenge(ctx, db.ActivateChallengeParams{
		StartedAt: toMillis(startedAt),
		ID:        id,
	})
	if err != nil {
		return false, fmt.Errorf("failed to activate challenge %d: %w", id, err)
	}
	return n == 1, nil
}

// Complete marks an active challenge completed. It reports false when the
// row was no longer active.
func (l *Ledger) Complete(ctx context.Context, id int64, winner string, tallies domain.Tallies, at time.Time) (bool, error) {
	n, err := l.q.CompleteChallenge(ctx, db.CompleteChallengeParams{
		CompletedAt:      toMillis(at),
		WinnerCountry:    sql.NullString{String: winner, Valid: winner != ""},
		ChallengerClicks: sql.NullInt64{Int64: tallies.Challenger, Valid: true},
		ChallengedClicks: sql.NullInt64{Int64: tallies.Challenged, Valid: true},
		ID:               id,
	})
	if err != nil {
		return false, fmt.Errorf("failed to complete challenge %d: %w", id, err)
	}
	return n == 1, nil
}

func (l *Ledger) Expire(ctx context.Context, id int64, at time.Time) (bool, error) {
	n, err := l.q.ExpireChallenge(ctx, db.ExpireChallengeParams{
		CompletedAt: toMillis(at),
		ID:          id,
	})
	if err != nil {
		return false, fmt.Errorf("failed to expire challenge %d: %w", id, err)
	}
	return n == 1, nil
}

// ArchiveChallengesBefore never touches pending or active rows.
func (l *Ledger) ArchiveChallengesBefore(ctx context.Context, before time.Time) (int64, error) {
	n, err := l.q.ArchiveCompletedChallenges(ctx, toMillis(before))
	if err != nil {
		return 0, fmt.Errorf("failed to archive challenges: %w", err)
	}
	return n, nil
}
