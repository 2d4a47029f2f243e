package db

import (
	"context"
	"database/sql"
)

const getLastMissile = `
SELECT last_missile FROM country_missiles WHERE country_code = ?
`

func (q *Queries) GetLastMissile(ctx context.Context, countryCode string) (sql.NullInt64, error) {
	row := q.db.QueryRowContext(ctx, getLastMissile, countryCode)
	var last sql.NullInt64
	err := row.Scan(&last)
	return last, err
}

const upsertLastMissile = `
INSERT INTO country_missiles (country_code, last_missile)
VALUES (?, ?)
ON CONFLICT (country_code) DO UPDATE SET last_missile = excluded.last_missile
`

type UpsertLastMissileParams struct {
	CountryCode string
	LastMissile sql.NullInt64
}

func (q *Queries) UpsertLastMissile(ctx context.Context, arg UpsertLastMissileParams) error {
	_, err := q.db.ExecContext(ctx, upsertLastMissile, arg.CountryCode, arg.LastMissile)
	return err
}

const clearStaleMissiles = `
UPDATE country_missiles SET last_missile = NULL
WHERE last_missile IS NOT NULL AND last_missile < ?
`

func (q *Queries) ClearStaleMissiles(ctx context.Context, before int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearStaleMissiles, before)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

const getShield = `
SELECT country_code, shield_active, shield_expires FROM country_shields WHERE country_code = ?
`

func (q *Queries) GetShield(ctx context.Context, countryCode string) (CountryShield, error) {
	row := q.db.QueryRowContext(ctx, getShield, countryCode)
	var i CountryShield
	err := row.Scan(&i.CountryCode, &i.ShieldActive, &i.ShieldExpires)
	return i, err
}

const upsertShield = `
INSERT INTO country_shields (country_code, shield_active, shield_expires)
VALUES (?, ?, ?)
ON CONFLICT (country_code) DO UPDATE SET
    shield_active = excluded.shield_active,
    shield_expires = excluded.shield_expires
`

type UpsertShieldParams struct {
	CountryCode   string
	ShieldActive  bool
	ShieldExpires int64
}

func (q *Queries) UpsertShield(ctx context.Context, arg UpsertShieldParams) error {
	_, err := q.db.ExecContext(ctx, upsertShield, arg.CountryCode, arg.ShieldActive, arg.ShieldExpires)
	return err
}

const clearExpiredShields = `
UPDATE country_shields SET shield_active = 0
WHERE shield_active = 1 AND shield_expires <= ?
`

func (q *Queries) ClearExpiredShields(ctx context.Context, now int64) (int64, error) {
	result, err := q.db.ExecContext(ctx, clearExpiredShields, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
