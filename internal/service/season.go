package service

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/pierrec/lz4/v4"
	"github.com/rs/zerolog"
	"lukechampine.com/blake3"
)

type SeasonLeaderboard struct {
	Season   string               `json:"season"`
	Rankings []domain.SeasonEntry `json:"rankings"`
}

type ArchiveResult struct {
	Season       string `json:"season"`
	Countries    int    `json:"countries"`
	Hash         string `json:"hash"`
	RawSize      int    `json:"rawSize"`
	StoredSize   int    `json:"storedSize"`
	ArchivedRows int64  `json:"archivedChallenges"`
}

type SeasonService struct {
	repo      *repository.SeasonRepository
	store     *repository.Store
	cooldowns *CooldownTracker
	publisher domain.Publisher
	now       Clock
	logger    zerolog.Logger
}

func NewSeasonService(repo *repository.SeasonRepository, store *repository.Store, cooldowns *CooldownTracker, publisher domain.Publisher, now Clock, logger zerolog.Logger) *SeasonService {
	return &SeasonService{repo: repo, store: store, cooldowns: cooldowns, publisher: publisher, now: now, logger: logger}
}

func SeasonName(t time.Time) string {
	return "Season-" + t.Format("2006-01-02")
}

// Archive freezes current standings under today's season name. Archiving
// twice on one day overwrites the earlier copy.
func (s *SeasonService) Archive(ctx context.Context) (*ArchiveResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	now := s.now()
	season := SeasonName(now)

	entries, err := s.repo.CurrentStandings(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read standings")
		return nil, err
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("failed to encode season %s: %w", season, err)
	}
	blob, err := compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress season %s: %w", season, err)
	}
	snap := domain.SeasonSnapshot{Season: season, Blob: blob, RawSize: len(raw), Hash: hashState(raw)}

	if err := s.repo.Save(ctx, season, entries, snap, now); err != nil {
		s.logger.Error().Err(err).Str("season", season).Msg("failed to archive season")
		return nil, err
	}

	s.logger.Info().
		Str("season", season).
		Int("countries", len(entries)).
		Int("raw_size", len(raw)).
		Int("stored_size", len(blob)).
		Str("hash", snap.Hash).
		Msg("season archived")

	return &ArchiveResult{
		Season:     season,
		Countries:  len(entries),
		Hash:       snap.Hash,
		RawSize:    len(raw),
		StoredSize: len(blob),
	}, nil
}

// WeeklyReset archives the season, retires old finished challenges and
// tells clients a new season began. Pending and active challenges are
// left alone.
func (s *SeasonService) WeeklyReset(ctx context.Context) (*ArchiveResult, error) {
	res, err := s.Archive(ctx)
	if err != nil {
		return nil, err
	}

	n, err := s.store.Ledger().ArchiveChallengesBefore(ctx, s.now().Add(-constants.ArchiveChallengeAge))
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to archive old challenges")
		return nil, err
	}
	res.ArchivedRows = n

	s.logger.Info().Str("season", res.Season).Int64("archived_challenges", n).Msg("weekly reset complete")
	s.publisher.Publish(domain.Event{
		Type: domain.EventSeasonReset,
		Data: domain.SeasonResetData{
			Season:    res.Season,
			Message:   "New season has started! Leaderboards reset.",
			Timestamp: s.now(),
		},
	})
	return res, nil
}

// DailyReset clears missile cooldowns older than a day.
func (s *SeasonService) DailyReset(ctx context.Context) (int64, error) {
	return s.cooldowns.ExpireStale(ctx)
}

func (s *SeasonService) Current(ctx context.Context) (string, error) {
	name, err := s.repo.Latest(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read current season")
		return "", err
	}
	if name == "" {
		return constants.DefaultSeason, nil
	}
	return name, nil
}

// Leaderboard returns the archived rankings; an empty name means the latest.
func (s *SeasonService) Leaderboard(ctx context.Context, name string) (*SeasonLeaderboard, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	if name == "" {
		var err error
		if name, err = s.Current(ctx); err != nil {
			return nil, err
		}
	}
	rankings, err := s.repo.Rankings(ctx, name)
	if err != nil {
		s.logger.Error().Err(err).Str("season", name).Msg("failed to read season rankings")
		return nil, err
	}
	if len(rankings) == 0 && name != constants.DefaultSeason {
		return nil, domain.ErrSeasonMissing
	}
	return &SeasonLeaderboard{Season: name, Rankings: rankings}, nil
}

// Snapshot decodes a stored season and checks it against its hash.
func (s *SeasonService) Snapshot(ctx context.Context, name string) ([]domain.SeasonEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	snap, err := s.repo.Snapshot(ctx, name)
	if err != nil {
		return nil, err
	}
	raw, err := decompress(snap.Blob)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress season %s: %w", name, err)
	}
	if got := hashState(raw); got != snap.Hash {
		s.logger.Error().Str("season", name).Str("want", snap.Hash).Str("got", got).Msg("season snapshot hash mismatch")
		return nil, fmt.Errorf("season %s snapshot is corrupt", name)
	}
	var entries []domain.SeasonEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("failed to decode season %s: %w", name, err)
	}
	return entries, nil
}

func compress(src []byte) ([]byte, error) {
	var buf bytes.Buffer
	zw := lz4.NewWriter(&buf)
	if _, err := zw.Write(src); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(src []byte) ([]byte, error) {
	return io.ReadAll(lz4.NewReader(bytes.NewReader(src)))
}

func hashState(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
