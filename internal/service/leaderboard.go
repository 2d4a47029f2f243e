package service

import (
	"context"
	"sync"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

type Leaderboard struct {
	Total       int                    `json:"total"`
	GlobalCount int64                  `json:"globalCount"`
	Top10       []domain.RankedCountry `json:"top10"`
	FullRanking []domain.RankedCountry `json:"fullRanking"`
	Stale       bool                   `json:"stale"`
}

type CountryInfo struct {
	Country     string              `json:"country"`
	Clicks      int64               `json:"clicks"`
	Tier        domain.Tier         `json:"tier"`
	Stats       domain.CountryStats `json:"stats"`
	IsShielded  bool                `json:"isShielded"`
	ShieldEndMs int64               `json:"shieldRemainingMs"`
	CreatedAt   *time.Time          `json:"created_at,omitempty"`
}

// LeaderboardService serves read-only aggregates. Reads fall back to the
// last good ranking when the store is unavailable.
type LeaderboardService struct {
	store     *repository.Store
	shields   *ShieldTracker
	publisher domain.Publisher
	now       Clock
	logger    zerolog.Logger

	mu     sync.RWMutex
	cached []domain.RankedCountry
	total  int64
}

func NewLeaderboardService(store *repository.Store, shields *ShieldTracker, publisher domain.Publisher, now Clock, logger zerolog.Logger) *LeaderboardService {
	return &LeaderboardService{store: store, shields: shields, publisher: publisher, now: now, logger: logger}
}

// Ranking reports stale=true when it served the cache.
func (s *LeaderboardService) Ranking(ctx context.Context) ([]domain.RankedCountry, int64, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	l := s.store.Ledger()
	var balances []domain.CountryBalance
	var total int64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		balances, err = l.Balances(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = l.GlobalCount(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		s.mu.RLock()
		cached, cachedTotal := s.cached, s.total
		s.mu.RUnlock()
		if cached != nil {
			s.logger.Warn().Err(err).Msg("ranking read failed, serving cached ranking")
			return cached, cachedTotal, true, nil
		}
		s.logger.Error().Err(err).Msg("ranking read failed")
		return nil, 0, false, err
	}

	ranked := make([]domain.RankedCountry, len(balances))
	for i, b := range balances {
		ranked[i] = domain.RankedCountry{
			Rank:   i + 1,
			Code:   b.Code,
			Clicks: b.Clicks,
			Tier:   domain.TierFor(b.Clicks),
		}
	}

	s.mu.Lock()
	s.cached, s.total = ranked, total
	s.mu.Unlock()

	return ranked, total, false, nil
}

func (s *LeaderboardService) Leaderboard(ctx context.Context) (*Leaderboard, error) {
	ranked, total, stale, err := s.Ranking(ctx)
	if err != nil {
		return nil, err
	}
	top := ranked
	if len(top) > constants.LeaderboardTop {
		top = top[:constants.LeaderboardTop]
	}
	return &Leaderboard{
		Total:       len(ranked),
		GlobalCount: total,
		Top10:       top,
		FullRanking: ranked,
		Stale:       stale,
	}, nil
}

// BroadcastRankings pushes the current ordering to every live client.
func (s *LeaderboardService) BroadcastRankings(ctx context.Context) {
	ranked, total, _, err := s.Ranking(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("skipping ranking broadcast")
		return
	}
	s.publisher.Publish(domain.Event{
		Type: domain.EventRankingUpdate,
		Data: domain.RankingUpdateData{OrderedBalances: ranked, GlobalCount: total},
	})
}

// Country describes one country; missing reports domain.ErrCountryMissing
// unless allowMissing is set, in which case zero values are returned.
func (s *LeaderboardService) Country(ctx context.Context, code string, allowMissing bool) (*CountryInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	l := s.store.Ledger()
	balance, err := l.Balance(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("country", code).Msg("failed to load balance")
		return nil, err
	}
	if balance == nil && !allowMissing {
		return nil, domain.ErrCountryMissing
	}
	stats, err := l.Stats(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("country", code).Msg("failed to load stats")
		return nil, err
	}
	remaining, err := s.shields.Remaining(ctx, code)
	if err != nil {
		s.logger.Error().Err(err).Str("country", code).Msg("failed to load shield")
		return nil, err
	}

	info := &CountryInfo{
		Country:     code,
		IsShielded:  remaining > 0,
		ShieldEndMs: remaining.Milliseconds(),
		Stats:       domain.CountryStats{Code: code, LastActivity: s.now()},
	}
	if balance != nil {
		info.Clicks = balance.Clicks
		created := balance.CreatedAt
		info.CreatedAt = &created
		info.Stats.LastActivity = balance.CreatedAt
	}
	if stats != nil {
		info.Stats = *stats
	}
	info.Tier = domain.TierFor(info.Clicks)
	return info, nil
}
