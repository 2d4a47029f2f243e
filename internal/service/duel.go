package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"clickwar/internal/config"
	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
)

// DuelClick is the caller's own tally next to both sides' totals.
type DuelClick struct {
	Clicks  int64          `json:"clicks"`
	Tallies domain.Tallies `json:"tallies"`
}

type CreatedChallenge struct {
	Challenge   domain.Challenge `json:"challenge"`
	TierWarning string           `json:"tierWarning,omitempty"`
}

// duelSession holds the live tallies of one active challenge. Tallies are
// never persisted until settlement.
type duelSession struct {
	mu        sync.Mutex
	challenge domain.Challenge
	startedAt time.Time
	tallies   domain.Tallies
	settled   bool
	settledAt time.Time
	result    domain.DuelResult
}

// DuelEngine runs the challenge lifecycle: escrow on create and accept,
// a fixed click window, and exactly-once settlement.
type DuelEngine struct {
	store       *repository.Store
	leaderboard *LeaderboardService
	publisher   domain.Publisher
	pendingTTL  time.Duration
	now         Clock
	logger      zerolog.Logger

	mu       sync.Mutex
	sessions map[int64]*duelSession
}

func NewDuelEngine(store *repository.Store, leaderboard *LeaderboardService, publisher domain.Publisher, cfg *config.Config, now Clock, logger zerolog.Logger) *DuelEngine {
	return &DuelEngine{
		store:       store,
		leaderboard: leaderboard,
		publisher:   publisher,
		pendingTTL:  cfg.PendingChallengeTTL,
		now:         now,
		logger:      logger,
		sessions:    make(map[int64]*duelSession),
	}
}

// Create escrows the challenger's bet and records a pending challenge.
func (e *DuelEngine) Create(ctx context.Context, challenger, challenged string, bet int64) (*CreatedChallenge, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if challenged == "" {
		return nil, domain.ErrMissingTarget
	}
	if bet <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	challenger = domain.NormalizeCountry(challenger)
	challenged = domain.NormalizeCountry(challenged)
	if challenger == challenged {
		return nil, domain.ErrSelfTarget
	}

	var out CreatedChallenge
	err := e.store.InTx(ctx, func(l *repository.Ledger) error {
		opponent, err := l.Balance(ctx, challenged)
		if err != nil {
			return err
		}
		if opponent == nil {
			return domain.ErrUnknownCountry
		}
		left, err := l.Debit(ctx, challenger, bet)
		if err != nil {
			return err
		}

		c := domain.Challenge{
			ChallengerCountry: challenger,
			ChallengedCountry: challenged,
			BetAmount:         bet,
			Status:            domain.ChallengePending,
			CreatedAt:         e.now(),
		}
		if c.ID, err = l.InsertChallenge(ctx, c); err != nil {
			return err
		}
		out.Challenge = c

		if domain.TierGap(left+bet, opponent.Clicks) >= constants.TierWarningGap {
			out.TierWarning = "opponent is " + domain.TierFor(opponent.Clicks).Name +
				", you are " + domain.TierFor(left+bet).Name
		}
		return nil
	})
	if err != nil {
		e.logRejection(err, "challenge creation", 0, challenger)
		return nil, err
	}

	e.logger.Info().
		Int64("challenge_id", out.Challenge.ID).
		Str("challenger", challenger).
		Str("challenged", challenged).
		Int64("bet", bet).
		Msg("challenge created")

	e.publisher.Publish(domain.Event{Type: domain.EventNewChallenge, Data: out.Challenge})
	e.leaderboard.BroadcastRankings(ctx)

	return &out, nil
}

// Accept escrows the challenged country's bet and opens the click window.
func (e *DuelEngine) Accept(ctx context.Context, id int64, acceptor string) (*domain.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	acceptor = domain.NormalizeCountry(acceptor)

	var accepted domain.Challenge
	err := e.store.InTx(ctx, func(l *repository.Ledger) error {
		c, err := l.Challenge(ctx, id)
		if errors.Is(err, domain.ErrChallengeMissing) {
			return domain.ErrNotPending
		}
		if err != nil {
			return err
		}
		if c.Status != domain.ChallengePending {
			return domain.ErrNotPending
		}
		if c.ChallengedCountry != acceptor {
			return domain.ErrWrongAcceptor
		}
		if _, err := l.Debit(ctx, acceptor, c.BetAmount); err != nil {
			return err
		}
		now := e.now()
		ok, err := l.Activate(ctx, id, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrNotPending
		}
		c.Status = domain.ChallengeActive
		c.StartedAt = &now
		accepted = *c
		return nil
	})
	if err != nil {
		e.logRejection(err, "challenge accept", id, acceptor)
		return nil, err
	}

	e.mu.Lock()
	e.sessions[id] = &duelSession{challenge: accepted, startedAt: *accepted.StartedAt}
	e.mu.Unlock()

	e.logger.Info().Int64("challenge_id", id).Str("acceptor", acceptor).Msg("duel started")

	e.publisher.Publish(domain.Event{
		Type: domain.EventChallengeStart,
		Data: domain.ChallengeStartData{
			ChallengeID:       id,
			ChallengerCountry: accepted.ChallengerCountry,
			ChallengedCountry: accepted.ChallengedCountry,
			StartTime:         *accepted.StartedAt,
			DurationSeconds:   int(constants.DuelDuration / time.Second),
		},
	})
	e.leaderboard.BroadcastRankings(ctx)

	return &accepted, nil
}

// RecordClick adds one click to country's side. A click arriving after the
// window closes settles the duel instead and is rejected.
func (e *DuelEngine) RecordClick(ctx context.Context, id int64, country string) (DuelClick, error) {
	country = domain.NormalizeCountry(country)
	s := e.session(id)
	if s == nil {
		return DuelClick{}, domain.ErrDuelNotActive
	}

	s.mu.Lock()
	if s.settled {
		s.mu.Unlock()
		return DuelClick{}, domain.ErrDuelNotActive
	}
	if !s.challenge.IsParticipant(country) {
		s.mu.Unlock()
		return DuelClick{}, domain.ErrNotParticipant
	}
	if e.now().Sub(s.startedAt) >= constants.DuelDuration {
		s.mu.Unlock()
		if _, err := e.settle(ctx, s); err != nil {
			return DuelClick{}, err
		}
		return DuelClick{}, domain.ErrDuelExpired
	}
	var own int64
	if country == s.challenge.ChallengerCountry {
		s.tallies.Challenger++
		own = s.tallies.Challenger
	} else {
		s.tallies.Challenged++
		own = s.tallies.Challenged
	}
	out := DuelClick{Clicks: own, Tallies: s.tallies}
	s.mu.Unlock()

	return out, nil
}

// End settles a duel on a participant's request once its window has closed.
// The winner always comes from the recorded tallies.
func (e *DuelEngine) End(ctx context.Context, id int64, country string) (*domain.DuelResult, error) {
	country = domain.NormalizeCountry(country)
	s := e.session(id)
	if s == nil {
		return nil, domain.ErrDuelNotActive
	}
	if !s.challenge.IsParticipant(country) {
		return nil, domain.ErrNotParticipant
	}
	if e.remaining(s) > 0 {
		return nil, domain.ErrDuelInProgress
	}
	return e.settle(ctx, s)
}

// ForceSettle settles immediately regardless of the window.
func (e *DuelEngine) ForceSettle(ctx context.Context, id int64) (*domain.DuelResult, error) {
	s := e.session(id)
	if s == nil {
		return nil, domain.ErrDuelNotActive
	}
	return e.settle(ctx, s)
}

func (e *DuelEngine) settle(ctx context.Context, s *duelSession) (*domain.DuelResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	s.mu.Lock()
	if s.settled {
		res := s.result
		s.mu.Unlock()
		return &res, nil
	}

	c := s.challenge
	tallies := s.tallies
	winner, loser := constants.TieWinner, ""
	switch {
	case tallies.Challenger > tallies.Challenged:
		winner, loser = c.ChallengerCountry, c.ChallengedCountry
	case tallies.Challenged > tallies.Challenger:
		winner, loser = c.ChallengedCountry, c.ChallengerCountry
	}
	prize := c.BetAmount
	if winner != constants.TieWinner {
		prize = 2 * c.BetAmount
	}

	err := e.store.InTx(ctx, func(l *repository.Ledger) error {
		now := e.now()
		ok, err := l.Complete(ctx, c.ID, winner, tallies, now)
		if err != nil {
			return err
		}
		if !ok {
			return domain.ErrDuelNotActive
		}
		if winner == constants.TieWinner {
			if _, err := l.AddClicks(ctx, c.ChallengerCountry, c.BetAmount, now); err != nil {
				return err
			}
			_, err := l.AddClicks(ctx, c.ChallengedCountry, c.BetAmount, now)
			return err
		}
		if _, err := l.AddClicks(ctx, winner, prize, now); err != nil {
			return err
		}
		if err := l.AddStats(ctx, winner, domain.StatsDelta{ChallengesWon: 1}, now); err != nil {
			return err
		}
		return l.AddStats(ctx, loser, domain.StatsDelta{ChallengesLost: 1}, now)
	})
	if err != nil && !errors.Is(err, domain.ErrDuelNotActive) {
		s.mu.Unlock()
		e.logger.Error().Err(err).Int64("challenge_id", c.ID).Msg("failed to settle duel")
		return nil, err
	}
	alreadyClosed := err != nil

	s.settled = true
	s.settledAt = e.now()
	s.result = domain.DuelResult{
		ChallengeID:       c.ID,
		ChallengerCountry: c.ChallengerCountry,
		ChallengedCountry: c.ChallengedCountry,
		Status:            domain.ChallengeCompleted,
		Tallies:           &tallies,
		Winner:            winner,
		Prize:             prize,
		BetAmount:         c.BetAmount,
	}
	res := s.result
	s.mu.Unlock()

	if alreadyClosed {
		// the durable row was closed elsewhere; nothing was paid here
		e.logger.Warn().Int64("challenge_id", c.ID).Msg("duel already closed in store")
		e.mu.Lock()
		delete(e.sessions, c.ID)
		e.mu.Unlock()
		return e.Result(ctx, c.ID)
	}

	e.logger.Info().
		Int64("challenge_id", c.ID).
		Str("winner", winner).
		Int64("challenger_clicks", tallies.Challenger).
		Int64("challenged_clicks", tallies.Challenged).
		Int64("prize", prize).
		Msg("duel settled")

	e.publisher.Publish(domain.Event{
		Type: domain.EventChallengeEnd,
		Data: domain.ChallengeEndData{
			ChallengeID:       c.ID,
			ChallengerCountry: c.ChallengerCountry,
			ChallengedCountry: c.ChallengedCountry,
			Winner:            winner,
			Tallies:           tallies,
			Prize:             prize,
		},
	})
	e.leaderboard.BroadcastRankings(ctx)

	return &res, nil
}

// Result reads a live or recently settled session, falling back to the
// durable row once the session is gone. Tallies may be absent then. A
// session whose window has closed is settled first.
func (e *DuelEngine) Result(ctx context.Context, id int64) (*domain.DuelResult, error) {
	if s := e.session(id); s != nil {
		s.mu.Lock()
		if s.settled {
			res := s.result
			s.mu.Unlock()
			return &res, nil
		}
		if e.remainingLocked(s) == 0 {
			s.mu.Unlock()
			return e.settle(ctx, s)
		}
		defer s.mu.Unlock()
		tallies := s.tallies
		return &domain.DuelResult{
			ChallengeID:       s.challenge.ID,
			ChallengerCountry: s.challenge.ChallengerCountry,
			ChallengedCountry: s.challenge.ChallengedCountry,
			Status:            domain.ChallengeActive,
			Tallies:           &tallies,
			BetAmount:         s.challenge.BetAmount,
			RemainingMs:       e.remainingLocked(s).Milliseconds(),
		}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	c, err := e.store.Ledger().Challenge(ctx, id)
	if err != nil {
		if domain.KindOf(err) == domain.KindStorage {
			e.logger.Error().Err(err).Int64("challenge_id", id).Msg("failed to load challenge")
		}
		return nil, err
	}
	res := &domain.DuelResult{
		ChallengeID:       c.ID,
		ChallengerCountry: c.ChallengerCountry,
		ChallengedCountry: c.ChallengedCountry,
		Status:            c.Status,
		Winner:            c.WinnerCountry,
		BetAmount:         c.BetAmount,
	}
	if c.ChallengerClicks != nil && c.ChallengedClicks != nil {
		res.Tallies = &domain.Tallies{Challenger: *c.ChallengerClicks, Challenged: *c.ChallengedClicks}
	}
	switch {
	case c.WinnerCountry == constants.TieWinner:
		res.Prize = c.BetAmount
	case c.WinnerCountry != "":
		res.Prize = 2 * c.BetAmount
	}
	return res, nil
}

func (e *DuelEngine) ListForCountry(ctx context.Context, country string) ([]domain.Challenge, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	country = domain.NormalizeCountry(country)
	challenges, err := e.store.Ledger().OpenChallenges(ctx, country)
	if err != nil {
		e.logger.Error().Err(err).Str("country", country).Msg("failed to list challenges")
		return nil, err
	}
	return challenges, nil
}

// Sweep settles duels whose window closed without a further click, drops
// settled sessions past retention and, when enabled, refunds pending
// challenges nobody accepted in time.
func (e *DuelEngine) Sweep(ctx context.Context) {
	now := e.now()

	e.mu.Lock()
	sessions := make([]*duelSession, 0, len(e.sessions))
	for _, s := range e.sessions {
		sessions = append(sessions, s)
	}
	e.mu.Unlock()

	var expired []*duelSession
	var retired []int64
	for _, s := range sessions {
		s.mu.Lock()
		switch {
		case s.settled && now.Sub(s.settledAt) >= constants.DuelResultRetention:
			retired = append(retired, s.challenge.ID)
		case !s.settled && now.Sub(s.startedAt) >= constants.DuelDuration:
			expired = append(expired, s)
		}
		s.mu.Unlock()
	}

	if len(retired) > 0 {
		e.mu.Lock()
		for _, id := range retired {
			delete(e.sessions, id)
		}
		e.mu.Unlock()
	}

	for _, s := range expired {
		if _, err := e.settle(ctx, s); err != nil {
			e.logger.Warn().Err(err).Int64("challenge_id", s.challenge.ID).Msg("sweep could not settle duel")
		}
	}

	if e.pendingTTL > 0 {
		if _, err := e.ExpirePending(ctx); err != nil {
			e.logger.Warn().Err(err).Msg("pending challenge expiry failed")
		}
	}
}

// ExpirePending refunds and closes pending challenges older than the
// configured TTL.
func (e *DuelEngine) ExpirePending(ctx context.Context) (int, error) {
	if e.pendingTTL <= 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	now := e.now()
	stale, err := e.store.Ledger().PendingChallengesBefore(ctx, now.Add(-e.pendingTTL))
	if err != nil {
		return 0, err
	}

	expired := 0
	for _, c := range stale {
		refunded := false
		err := e.store.InTx(ctx, func(l *repository.Ledger) error {
			ok, err := l.Expire(ctx, c.ID, now)
			if err != nil || !ok {
				return err
			}
			if _, err := l.AddClicks(ctx, c.ChallengerCountry, c.BetAmount, now); err != nil {
				return err
			}
			refunded = true
			return nil
		})
		if err != nil {
			return expired, err
		}
		if refunded {
			expired++
			e.logger.Info().Int64("challenge_id", c.ID).Str("challenger", c.ChallengerCountry).Msg("pending challenge expired and refunded")
		}
	}
	return expired, nil
}

func (e *DuelEngine) session(id int64) *duelSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sessions[id]
}

func (e *DuelEngine) remaining(s *duelSession) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return e.remainingLocked(s)
}

func (e *DuelEngine) remainingLocked(s *duelSession) time.Duration {
	left := constants.DuelDuration - e.now().Sub(s.startedAt)
	if left < 0 {
		return 0
	}
	return left
}

func (e *DuelEngine) logRejection(err error, op string, id int64, country string) {
	if domain.KindOf(err) == domain.KindStorage {
		e.logger.Error().Err(err).Int64("challenge_id", id).Str("country", country).Msgf("%s failed", op)
		return
	}
	e.logger.Info().Err(err).Int64("challenge_id", id).Str("country", country).Msgf("%s rejected", op)
}
