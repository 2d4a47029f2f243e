package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"clickwar/internal/db"
	"clickwar/internal/domain"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
)

type SeasonRepository struct {
	queries *db.Queries
	db      *sql.DB
	logger  zerolog.Logger
}

func NewSeasonRepository(sqlDB *sql.DB, queries *db.Queries, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{
		queries: queries,
		db:      sqlDB,
		logger:  logger,
	}
}

// CurrentStandings joins balances with stats, ranked by clicks.
func (r *SeasonRepository) CurrentStandings(ctx context.Context) ([]domain.SeasonEntry, error) {
	rows, err := r.queries.ListArchiveRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list standings: %w", err)
	}
	result := make([]domain.SeasonEntry, len(rows))
	for i, row := range rows {
		result[i] = domain.SeasonEntry{
			Rank:             i + 1,
			Code:             row.CountryCode,
			Clicks:           row.Clicks,
			Tier:             domain.TierFor(row.Clicks),
			ChallengesWon:    row.ChallengesWon,
			ChallengesLost:   row.ChallengesLost,
			MissilesLaunched: row.TotalMissilesLaunched,
		}
	}
	return result, nil
}

// Save writes every ranking row and the snapshot in one transaction;
// re-archiving the same season overwrites it.
func (r *SeasonRepository) Save(ctx context.Context, season string, entries []domain.SeasonEntry, snap domain.SeasonSnapshot, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	qtx := r.queries.WithTx(tx)

	for _, e := range entries {
		err := qtx.UpsertSeasonalRanking(ctx, db.SeasonalRanking{
			SeasonName:            season,
			CountryCode:           e.Code,
			Clicks:                e.Clicks,
			Rank:                  int64(e.Rank),
			ChallengesWon:         e.ChallengesWon,
			ChallengesLost:        e.ChallengesLost,
			TotalMissilesLaunched: e.MissilesLaunched,
			ArchivedAt:            toMillis(at),
		})
		if err != nil {
			return fmt.Errorf("failed to upsert season ranking %s/%s: %w", season, e.Code, err)
		}
	}

	id := snap.ID
	if id == "" {
		id, err = gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
	}
	err = qtx.UpsertSeasonSnapshot(ctx, db.SeasonSnapshot{
		ID:         id,
		SeasonName: season,
		StateBlob:  snap.Blob,
		RawSize:    int64(snap.RawSize),
		FinalHash:  snap.Hash,
		CreatedAt:  toMillis(at),
	})
	if err != nil {
		return fmt.Errorf("failed to upsert season snapshot %s: %w", season, err)
	}

	return tx.Commit()
}

func (r *SeasonRepository) Rankings(ctx context.Context, season string) ([]domain.SeasonEntry, error) {
	rows, err := r.queries.ListSeasonalRankings(ctx, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list season %s: %w", season, err)
	}
	result := make([]domain.SeasonEntry, len(rows))
	for i, row := range rows {
		result[i] = domain.SeasonEntry{
			Rank:             i + 1,
			Code:             row.CountryCode,
			Clicks:           row.Clicks,
			Tier:             domain.TierFor(row.Clicks),
			ChallengesWon:    row.ChallengesWon,
			ChallengesLost:   row.ChallengesLost,
			MissilesLaunched: row.TotalMissilesLaunched,
		}
	}
	return result, nil
}

// Latest returns "" when no season was ever archived.
func (r *SeasonRepository) Latest(ctx context.Context) (string, error) {
	name, err := r.queries.LatestSeasonName(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest season: %w", err)
	}
	return name, nil
}

func (r *SeasonRepository) Snapshot(ctx context.Context, season string) (*domain.SeasonSnapshot, error) {
	row, err := r.queries.GetSeasonSnapshot(ctx, season)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSeasonMissing
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get snapshot %s: %w", season, err)
	}
	return &domain.SeasonSnapshot{
		ID:        row.ID,
		Season:    row.SeasonName,
		Blob:      row.StateBlob,
		RawSize:   int(row.RawSize),
		Hash:      row.FinalHash,
		CreatedAt: fromMillis(row.CreatedAt),
	}, nil
}
