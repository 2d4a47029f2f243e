package service

import (
	"context"
	"errors"
	"time"

	"clickwar/internal/constants"
	"clickwar/internal/domain"
	"clickwar/internal/repository"

	"github.com/rs/zerolog"
)

type LaunchResult struct {
	Attacker               string    `json:"attacker"`
	Target                 string    `json:"target"`
	Damage                 int64     `json:"damage"`
	TargetNewBalance       int64     `json:"targetNewBalance"`
	AttackerRemainingClick int64     `json:"attackerRemainingClicks"`
	ShieldUntil            time.Time `json:"shieldUntil"`
	Timestamp              time.Time `json:"timestamp"`
}

type MissileStatus struct {
	Country         string           `json:"country"`
	CanLaunch       bool             `json:"canLaunch"`
	Remaining       domain.Breakdown `json:"cooldownRemaining"`
	RemainingMs     int64            `json:"cooldownRemainingMs"`
	CooldownMinutes int              `json:"cooldownMinutes"`
	MissileCost     int64            `json:"missileCost"`
	IsShielded      bool             `json:"isShielded"`
	ShieldMs        int64            `json:"shieldRemainingMs"`
}

// MissileEngine resolves strikes. Every check and mutation of a launch runs
// inside one store transaction, so concurrent launches from one attacker
// cannot both pass the cooldown check.
type MissileEngine struct {
	store       *repository.Store
	cooldowns   *CooldownTracker
	shields     *ShieldTracker
	leaderboard *LeaderboardService
	publisher   domain.Publisher
	now         Clock
	logger      zerolog.Logger
}

func NewMissileEngine(store *repository.Store, cooldowns *CooldownTracker, shields *ShieldTracker, leaderboard *LeaderboardService, publisher domain.Publisher, now Clock, logger zerolog.Logger) *MissileEngine {
	return &MissileEngine{
		store:       store,
		cooldowns:   cooldowns,
		shields:     shields,
		leaderboard: leaderboard,
		publisher:   publisher,
		now:         now,
		logger:      logger,
	}
}

func (e *MissileEngine) Launch(ctx context.Context, attacker, target string, amount int64) (*LaunchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.RequestTimeout)
	defer cancel()

	if target == "" {
		return nil, domain.ErrMissingTarget
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	attacker = domain.NormalizeCountry(attacker)
	target = domain.NormalizeCountry(target)
	if attacker == target {
		return nil, domain.ErrSelfTarget
	}

	var res LaunchResult
	err := e.store.InTx(ctx, func(l *repository.Ledger) error {
		balance, err := l.Balance(ctx, attacker)
		if err != nil {
			return err
		}
		if balance == nil || balance.Clicks < constants.MissileCost {
			return domain.ErrInsufficient
		}

		ok, remaining, err := e.cooldowns.Check(ctx, l, attacker)
		if err != nil {
			return err
		}
		if !ok {
			return &domain.CooldownError{Remaining: remaining}
		}

		shielded, err := e.shields.IsShielded(ctx, l, target)
		if err != nil {
			return err
		}
		if shielded {
			return domain.ErrShielded
		}

		victim, err := l.Balance(ctx, target)
		if err != nil {
			return err
		}
		if victim == nil {
			return domain.ErrUnknownTarget
		}

		damage := domain.AppliedDamage(amount, victim.Clicks)
		newBalance, err := l.Damage(ctx, target, damage)
		if err != nil {
			return err
		}
		left, err := l.Debit(ctx, attacker, constants.MissileCost)
		if err != nil {
			return err
		}
		if err := e.cooldowns.RecordLaunch(ctx, l, attacker); err != nil {
			return err
		}
		if err := e.shields.Grant(ctx, l, target, constants.ShieldDuration); err != nil {
			return err
		}

		now := e.now()
		if err := l.AddStats(ctx, attacker, domain.StatsDelta{MissilesLaunched: 1}, now); err != nil {
			return err
		}
		if err := l.AddStats(ctx, target, domain.StatsDelta{DamageTaken: damage}, now); err != nil {
			return err
		}

		res = LaunchResult{
			Attacker:               attacker,
			Target:                 target,
			Damage:                 damage,
			TargetNewBalance:       newBalance,
			AttackerRemainingClick: left,
			ShieldUntil:            now.Add(constants.ShieldDuration),
			Timestamp:              now,
		}
		return nil
	})
	if err != nil {
		var cd *domain.CooldownError
		switch {
		case errors.As(err, &cd):
			e.logger.Info().Str("attacker", attacker).Dur("remaining", cd.Remaining).Msg("missile rejected, cooldown active")
		case domain.KindOf(err) == domain.KindStorage:
			e.logger.Error().Err(err).Str("attacker", attacker).Str("target", target).Msg("missile launch failed")
		default:
			e.logger.Info().Err(err).Str("attacker", attacker).Str("target", target).Msg("missile rejected")
		}
		return nil, err
	}

	e.logger.Info().
		Str("attacker", attacker).
		Str("target", target).
		Int64("requested", amount).
		Int64("damage", res.Damage).
		Int64("target_balance", res.TargetNewBalance).
		Msg("missile launched")

	e.publisher.Publish(domain.Event{
		Type: domain.EventMissileAttack,
		Data: domain.MissileAttackData{
			Attacker:         res.Attacker,
			Target:           res.Target,
			Damage:           res.Damage,
			TargetNewBalance: res.TargetNewBalance,
			Timestamp:        res.Timestamp,
		},
	})
	e.leaderboard.BroadcastRankings(ctx)

	return &res, nil
}

func (e *MissileEngine) Status(ctx context.Context, country string) (*MissileStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.DatabaseTimeout)
	defer cancel()

	country = domain.NormalizeCountry(country)
	ok, remaining, err := e.cooldowns.Check(ctx, e.store.Ledger(), country)
	if err != nil {
		e.logger.Error().Err(err).Str("country", country).Msg("failed to check missile cooldown")
		return nil, err
	}
	shield, err := e.shields.Remaining(ctx, country)
	if err != nil {
		e.logger.Error().Err(err).Str("country", country).Msg("failed to check shield")
		return nil, err
	}

	return &MissileStatus{
		Country:         country,
		CanLaunch:       ok,
		Remaining:       domain.BreakdownOf(remaining),
		RemainingMs:     remaining.Milliseconds(),
		CooldownMinutes: int(e.cooldowns.Window() / time.Minute),
		MissileCost:     constants.MissileCost,
		IsShielded:      shield > 0,
		ShieldMs:        shield.Milliseconds(),
	}, nil
}

// ResetCooldown is the operator override for one country.
func (e *MissileEngine) ResetCooldown(ctx context.Context, country string) error {
	if country == "" {
		return domain.ErrMissingTarget
	}
	return e.cooldowns.Reset(ctx, domain.NormalizeCountry(country))
}
