package db

import (
	"context"
	"database/sql"
)

const challengeColumns = `id, challenger_country, challenged_country, bet_amount, status, created_at,
    started_at, completed_at, winner_country, challenger_clicks, challenged_clicks`

func scanChallenge(row interface{ Scan(...interface{}) error }) (CountryChallenge, error) {
	var i CountryChallenge
	err := row.Scan(
		&i.ID,
		&i.ChallengerCountry,
		&i.ChallengedCountry,
		&i.BetAmount,
		&i.Status,
		&i.CreatedAt,
		&i.StartedAt,
		&i.CompletedAt,
		&i.WinnerCountry,
		&i.ChallengerClicks,
		&i.ChallengedClicks,
	)
	return i, err
}

func (q *Queries) listChallenges(ctx context.Context, query string, args ...interface{}) ([]CountryChallenge, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountryChallenge
	for rows.Next() {
		i, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertChallenge = `
INSERT INTO country_challenges (challenger_country, challenged_country, bet_amount, status, created_at)
VALUES (?, ?, ?, 'pending', ?)
RETURNING id
`

type InsertChallengeParams struct {
	ChallengerCountry string
	ChallengedCountry string
	BetAmount         int64
	CreatedAt         int64
}

func (q *Queries) InsertChallenge(ctx context.Context, arg InsertChallengeParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, insertChallenge,
		arg.ChallengerCountry,
		arg.ChallengedCountry,
		arg.BetAmount,
		arg.CreatedAt,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getChallenge = `
SELECT ` + challengeColumns + ` FROM country_challenges WHERE id = ?
`

func (q *Queries) GetChallenge(ctx context.Context, id int64) (CountryChallenge, error) {
	return scanChallenge(q.db.QueryRowContext(ctx, getChallenge, id))
}

const listOpenChallengesForCountry = `
SELECT ` + challengeColumns + ` FROM country_challenges
WHERE (challenger_country = ? OR challenged_country = ?)
  AND status IN ('pending', 'active')
ORDER BY created_at DESC, id DESC
`

func (q *Queries) ListOpenChallengesForCountry(ctx context.Context, countryCode string) ([]CountryChallenge, error) {
	return q.listChallenges(ctx, listOpenChallengesForCountry, countryCode, countryCode)
}

const listPendingChallengesBefore = `
SELECT ` + challengeColumns + ` FROM country_challenges
WHERE status = 'pending' AND created_at < ?
ORDER BY id
`

func (q *Queries) ListPendingChallengesBefore(ctx context.Context, before int64) ([]CountryChallenge, error) {
	return q.listChallenges(ctx, listPendingChallengesBefore, before)
}

const activateChallenge = `
UPDATE country_challenges SET status = 'active', started_at = ?
WHERE id = ? AND status = 'pending'
`

type ActivateChallengeParams struct {
	StartedAt int64
	ID        int64
}

func (q *Queries) ActivateChallenge(ctx context.Context, arg ActivateChallengeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, activateChallenge, arg.StartedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const completeChallenge = `
UPDATE country_challenges
SET status = 'completed', completed_at = ?, winner_country = ?, challenger_clicks = ?, challenged_clicks = ?
WHERE id = ? AND status = 'active'
`

type CompleteChallengeParams struct {
	CompletedAt      int64
	WinnerCountry    sql.NullString
	ChallengerClicks sql.NullInt64
	ChallengedClicks sql.NullInt64
	ID               int64
}

func (q *Queries) CompleteChallenge(ctx context.Context, arg CompleteChallengeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, completeChallenge,
		arg.CompletedAt,
		arg.WinnerCountry,
		arg.ChallengerClicks,
		arg.ChallengedClicks,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const expireChallenge = `
UPDATE country_challenges SET status = 'expired', completed_at = ?
WHERE id = ? AND status = 'pending'
`

type ExpireChallengeParams struct {
	CompletedAt int64
	ID          int64
}

func (q *Queries) ExpireChallenge(ctx context.Context, arg ExpireChallengeParams) (int64, error) {
	result, err := q.db.ExecContext(ctx, expireChallenge, arg.CompletedAt, arg.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const archiveCompletedChallenges = `
UPDATE country_challenges SET status = 'archived'
WHERE status IN ('completed', 'expired') AND created_at < ?
`

func (q *Queries) ArchiveCompletedChallenges(ctx context.Context, before int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, archiveCompletedChallenges, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
