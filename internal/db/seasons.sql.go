package db

import (
	"context"
)

const listArchiveRows = `
SELECT cc.country_code, cc.clicks,
       COALESCE(cs.challenges_won, 0),
       COALESCE(cs.challenges_lost, 0),
       COALESCE(cs.total_missiles_launched, 0)
FROM country_clicks cc
LEFT JOIN country_stats cs ON cc.country_code = cs.country_code
ORDER BY cc.clicks DESC, cc.country_code ASC
`

type ArchiveRow struct {
	CountryCode           string
	Clicks                int64
	ChallengesWon         int64
	ChallengesLost        int64
	TotalMissilesLaunched int64
}

func (q *Queries) ListArchiveRows(ctx context.Context) ([]ArchiveRow, error) {
	rows, err := q.db.QueryContext(ctx, listArchiveRows)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ArchiveRow
	for rows.Next() {
		var i ArchiveRow
		if err := rows.Scan(
			&i.CountryCode,
			&i.Clicks,
			&i.ChallengesWon,
			&i.ChallengesLost,
			&i.TotalMissilesLaunched,
		); err != nil {
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

const upsertSeasonalRanking = `
INSERT INTO seasonal_rankings (
    season_name, country_code, clicks, rank, challenges_won, challenges_lost, total_missiles_launched, archived_at
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (season_name, country_code) DO UPDATE SET
    clicks = excluded.clicks,
    rank = excluded.rank,
    challenges_won = excluded.challenges_won,
    challenges_lost = excluded.challenges_lost,
    total_missiles_launched = excluded.total_missiles_launched,
    archived_at = excluded.archived_at
`

func (q *Queries) UpsertSeasonalRanking(ctx context.Context, arg SeasonalRanking) error {
	_, err := q.db.ExecContext(ctx, upsertSeasonalRanking,
		arg.SeasonName,
		arg.CountryCode,
		arg.Clicks,
		arg.Rank,
		arg.ChallengesWon,
		arg.ChallengesLost,
		arg.TotalMissilesLaunched,
		arg.ArchivedAt,
	)
	return err
}

const listSeasonalRankings = `
SELECT season_name, country_code, clicks, rank, challenges_won, challenges_lost, total_missiles_launched, archived_at
FROM seasonal_rankings
WHERE season_name = ?
ORDER BY clicks DESC, country_code ASC
`

func (q *Queries) ListSeasonalRankings(ctx context.Context, seasonName string) ([]SeasonalRanking, error) {
	rows, err := q.db.QueryContext(ctx, listSeasonalRankings, seasonName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SeasonalRanking
	for rows.Next() {
		var i SeasonalRanking
		if err := rows.Scan(
			&i.SeasonName,
			&i.CountryCode,
			&i.Clicks,
			&i.Rank,
			&i.ChallengesWon,
			&i.ChallengesLost,
			&i.TotalMissilesLaunched,
			&i.ArchivedAt,
		); err != nil {
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

const latestSeasonName = `
SELECT season_name FROM seasonal_rankings
GROUP BY season_name
ORDER BY MAX(archived_at) DESC, season_name DESC
LIMIT 1
`

func (q *Queries) LatestSeasonName(ctx context.Context) (string, error) {
	row := q.db.QueryRowContext(ctx, latestSeasonName)
	var name string
	err := row.Scan(&name)
	return name, err
}

const upsertSeasonSnapshot = `
INSERT INTO season_snapshots (id, season_name, state_blob, raw_size, final_hash, created_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (season_name) DO UPDATE SET
    state_blob = excluded.state_blob,
    raw_size = excluded.raw_size,
    final_hash = excluded.final_hash,
    created_at = excluded.created_at
`

func (q *Queries) UpsertSeasonSnapshot(ctx context.Context, arg SeasonSnapshot) error {
	_, err := q.db.ExecContext(ctx, upsertSeasonSnapshot,
		arg.ID,
		arg.SeasonName,
		arg.StateBlob,
		arg.RawSize,
		arg.FinalHash,
		arg.CreatedAt,
	)
	return err
}

const getSeasonSnapshot = `
SELECT id, season_name, state_blob, raw_size, final_hash, created_at
FROM season_snapshots WHERE season_name = ?
`

func (q *Queries) GetSeasonSnapshot(ctx context.Context, seasonName string) (SeasonSnapshot, error) {
	row := q.db.QueryRowContext(ctx, getSeasonSnapshot, seasonName)
	var i SeasonSnapshot
	err := row.Scan(&i.ID, &i.SeasonName, &i.StateBlob, &i.RawSize, &i.FinalHash, &i.CreatedAt)
	return i, err
}
