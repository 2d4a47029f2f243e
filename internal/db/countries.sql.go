package db

import (
	"context"
)

const addCountryClicks = `
INSERT INTO country_clicks (country_code, clicks, created_at)
VALUES (?, ?, ?)
ON CONFLICT (country_code) DO UPDATE SET clicks = country_clicks.clicks + excluded.clicks
RETURNING clicks
`

type AddCountryClicksParams struct {
	CountryCode string
	Clicks      int64
	CreatedAt   int64
}

// AddCountryClicks creates the row lazily and credits it in one statement.
func (q *Queries) AddCountryClicks(ctx context.Context, arg AddCountryClicksParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, addCountryClicks, arg.CountryCode, arg.Clicks, arg.CreatedAt)
	var clicks int64
	err := row.Scan(&clicks)
	return clicks, err
}

const debitCountryClicks = `
UPDATE country_clicks SET clicks = clicks - ?
WHERE country_code = ? AND clicks >= ?
RETURNING clicks
`

type DebitCountryClicksParams struct {
	Amount      int64
	CountryCode string
}

// DebitCountryClicks returns sql.ErrNoRows when the balance cannot cover Amount.
func (q *Queries) DebitCountryClicks(ctx context.Context, arg DebitCountryClicksParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, debitCountryClicks, arg.Amount, arg.CountryCode, arg.Amount)
	var clicks int64
	err := row.Scan(&clicks)
	return clicks, err
}

const damageCountryClicks = `
UPDATE country_clicks SET clicks = MAX(0, clicks - ?)
WHERE country_code = ?
RETURNING clicks
`

type DamageCountryClicksParams struct {
	Damage      int64
	CountryCode string
}

func (q *Queries) DamageCountryClicks(ctx context.Context, arg DamageCountryClicksParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, damageCountryClicks, arg.Damage, arg.CountryCode)
	var clicks int64
	err := row.Scan(&clicks)
	return clicks, err
}

const getCountryClicks = `
SELECT country_code, clicks, created_at FROM country_clicks WHERE country_code = ?
`

func (q *Queries) GetCountryClicks(ctx context.Context, countryCode string) (CountryClick, error) {
	row := q.db.QueryRowContext(ctx, getCountryClicks, countryCode)
	var i CountryClick
	err := row.Scan(&i.CountryCode, &i.Clicks, &i.CreatedAt)
	return i, err
}

const listCountryClicks = `
SELECT country_code, clicks, created_at FROM country_clicks
ORDER BY clicks DESC, country_code ASC
`

func (q *Queries) ListCountryClicks(ctx context.Context) ([]CountryClick, error) {
	rows, err := q.db.QueryContext(ctx, listCountryClicks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CountryClick
	for rows.Next() {
		var i CountryClick
		if err := rows.Scan(&i.CountryCode, &i.Clicks, &i.CreatedAt); err != nil {
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

const sumCountryClicks = `
SELECT COALESCE(SUM(clicks), 0) FROM country_clicks
`

func (q *Queries) SumCountryClicks(ctx context.Context) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumCountryClicks)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const addCountryStats = `
INSERT INTO country_stats (
    country_code, challenges_won, challenges_lost, total_missiles_launched, total_damage_taken, last_activity
) VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (country_code) DO UPDATE SET
    challenges_won = country_stats.challenges_won + excluded.challenges_won,
    challenges_lost = country_stats.challenges_lost + excluded.challenges_lost,
    total_missiles_launched = country_stats.total_missiles_launched + excluded.total_missiles_launched,
    total_damage_taken = country_stats.total_damage_taken + excluded.total_damage_taken,
    last_activity = excluded.last_activity
`

type AddCountryStatsParams struct {
	CountryCode           string
	ChallengesWon         int64
	ChallengesLost        int64
	TotalMissilesLaunched int64
	TotalDamageTaken      int64
	LastActivity          int64
}

func (q *Queries) AddCountryStats(ctx context.Context, arg AddCountryStatsParams) error {
	_, err := q.db.ExecContext(ctx, addCountryStats,
		arg.CountryCode,
		arg.ChallengesWon,
		arg.ChallengesLost,
		arg.TotalMissilesLaunched,
		arg.TotalDamageTaken,
		arg.LastActivity,
	)
	return err
}

const getCountryStats = `
SELECT country_code, challenges_won, challenges_lost, total_missiles_launched, total_damage_taken, last_activity
FROM country_stats WHERE country_code = ?
`

func (q *Queries) GetCountryStats(ctx context.Context, countryCode string) (CountryStat, error) {
	row := q.db.QueryRowContext(ctx, getCountryStats, countryCode)
	var i CountryStat
	err := row.Scan(
		&i.CountryCode,
		&i.ChallengesWon,
		&i.ChallengesLost,
		&i.TotalMissilesLaunched,
		&i.TotalDamageTaken,
		&i.LastActivity,
	)
	return i, err
}
