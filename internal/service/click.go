package service

import (
	"context"
	"sync"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
)

type ClickResult struct {
	Country string `json:"country"`
	Added   int64  `json:"added"`
	Clicks  int64  `json:"clicks"`
	Boosted bool   `json:"boosted"`
}

type BoostStatus struct {
	Active      bool  `json:"active"`
	RemainingMs int64 `json:"remainingMs"`
	Multiplier  int   `json:"multiplier"`
}

// ClickService credits clicks and owns the process-wide boost window.
type ClickService struct {
	store     *repository.Store
	publisher domain.Publisher
	now       Clock
	logger    zerolog.Logger

	mu         sync.RWMutex
	boostUntil time.Time
}

func NewClickService(store *repository.Store, publisher domain.Publisher, now Clock, logger zerolog.Logger) *ClickService {
	return &ClickService{store: store, publisher: publisher, now: now, logger: logger}
}

func (s *ClickService) Click(ctx context.Context, country string) (*ClickResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	country = domain.NormalizeCountry(country)
	boost := s.Boost()
	added := int64(1)
	if boost.Active {
		added = constants.BoostMultiplier
	}

	total, err := s.store.Ledger().AddClicks(ctx, country, added, s.now())
	if err != nil {
		s.logger.Error().Err(err).Str("country", country).Msg("failed to record click")
		return nil, err
	}
	s.logger.Debug().Str("country", country).Int64("added", added).Int64("clicks", total).Msg("click recorded")

	return &ClickResult{Country: country, Added: added, Clicks: total, Boosted: boost.Active}, nil
}

func (s *ClickService) GlobalCount(ctx context.Context) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	total, err := s.store.Ledger().GlobalCount(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to read global count")
		return 0, err
	}
	return total, nil
}

func (s *ClickService) Countries(ctx context.Context) ([]domain.CountryBalance, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	balances, err := s.store.Ledger().Balances(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list country clicks")
		return nil, err
	}
	return balances, nil
}

// ActivateBoost opens or extends the global boost window.
func (s *ClickService) ActivateBoost() BoostStatus {
	s.mu.Lock()
	s.boostUntil = s.now().Add(constants.BoostDuration)
	s.mu.Unlock()

	s.logger.Info().Dur("duration", constants.BoostDuration).Msg("click boost activated")
	s.publisher.Publish(domain.Event{
		Type: domain.EventBoost,
		Data: domain.BoostData{Active: true, ExpiresIn: int(constants.BoostDuration / time.Second)},
	})
	return s.Boost()
}

// SpawnGolden announces a golden target found by country to every client.
func (s *ClickService) SpawnGolden(country string) domain.GoldenSpawnData {
	spawn := domain.GoldenSpawnData{Country: domain.NormalizeCountry(country), SpawnedAt: s.now()}
	s.logger.Info().Str("country", spawn.Country).Msg("golden spawn broadcast")
	s.publisher.Publish(domain.Event{Type: domain.EventGoldenSpawn, Data: spawn})
	return spawn
}

func (s *ClickService) Boost() BoostStatus {
	s.mu.RLock()
	until := s.boostUntil
	s.mu.RUnlock()

	left := until.Sub(s.now())
	if left <= 0 {
		return BoostStatus{Multiplier: 1}
	}
	return BoostStatus{Active: true, RemainingMs: left.Milliseconds(), Multiplier: constants.BoostMultiplier}
}
