package server

import (
	"time"

	"clickwar/internal/domain"
	"clickwar/internal/service"
)

type Empty struct{}

type CreateChallengeRequest struct {
	ChallengedCountry string `json:"challengedCountry"`
	BetAmount         int64  `json:"betAmount"`
}

type CreateChallengeResponse struct {
	Message     string           `json:"message"`
	ChallengeID int64            `json:"challengeId"`
	Challenge   domain.Challenge `json:"challenge"`
	TierWarning string           `json:"tierWarning,omitempty"`
}

type ChallengeRequest struct {
	ChallengeID int64 `json:"challengeId"`
}

type AcceptChallengeResponse struct {
	Message           string    `json:"message"`
	ChallengeID       int64     `json:"challengeId"`
	ChallengerCountry string    `json:"challengerCountry"`
	ChallengedCountry string    `json:"challengedCountry"`
	StartTime         time.Time `json:"startTime"`
	DurationSeconds   int       `json:"durationSeconds"`
}

type DuelClickResponse struct {
	ChallengeID int64          `json:"challengeId"`
	Clicks      int64          `json:"clicks"`
	Tallies     domain.Tallies `json:"tallies"`
}

type ListChallengesResponse struct {
	Country    string             `json:"country"`
	Challenges []domain.Challenge `json:"challenges"`
}

type LaunchMissileRequest struct {
	Target string `json:"target"`
	Amount int64  `json:"amount"`
}

type LaunchMissileResponse struct {
	Success                 bool      `json:"success"`
	Attacker                string    `json:"attacker"`
	Target                  string    `json:"target"`
	Damage                  int64     `json:"damage"`
	Cost                    int64     `json:"cost"`
	TargetNewBalance        int64     `json:"targetNewBalance"`
	AttackerRemainingClicks int64     `json:"attackerRemainingClicks"`
	ShieldMinutes           int       `json:"shieldMinutes"`
	Timestamp               time.Time `json:"timestamp"`
}

type MissileStatusResponse struct {
	service.MissileStatus
	CurrentClicks int64 `json:"currentClicks"`
}

type CountryRequest struct {
	Code string `json:"code"`
}

type SeasonRequest struct {
	Name string `json:"name"`
}

type SeasonResponse struct {
	Season string `json:"season"`
}
