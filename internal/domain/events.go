package domain

import "time"

const (
	EventNewChallenge   = "newChallenge"
	EventChallengeStart = "challengeStart"
	EventChallengeEnd   = "challengeEnd"
	EventMissileAttack  = "missileAttack"
	EventRankingUpdate  = "rankingUpdate"
	EventSeasonReset    = "seasonReset"
	EventBoost          = "boost"
	EventGoldenSpawn    = "goldenSpawn"
)

type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type ChallengeStartData struct {
	ChallengeID       int64     `json:"challengeId"`
	ChallengerCountry string    `json:"challengerCountry"`
	ChallengedCountry string    `json:"challengedCountry"`
	StartTime         time.Time `json:"startTime"`
	DurationSeconds   int       `json:"durationSeconds"`
}

type Tallies struct {
	Challenger int64 `json:"challenger"`
	Challenged int64 `json:"challenged"`
}

type ChallengeEndData struct {
	ChallengeID       int64   `json:"challengeId"`
	ChallengerCountry string  `json:"challengerCountry"`
	ChallengedCountry string  `json:"challengedCountry"`
	Winner            string  `json:"winner"`
	Tallies           Tallies `json:"tallies"`
	Prize             int64   `json:"prize"`
}

type MissileAttackData struct {
	Attacker         string    `json:"attacker"`
	Target           string    `json:"target"`
	Damage           int64     `json:"damage"`
	TargetNewBalance int64     `json:"targetNewBalance"`
	Timestamp        time.Time `json:"timestamp"`
}

type RankingUpdateData struct {
	OrderedBalances []RankedCountry `json:"orderedBalances"`
	GlobalCount     int64           `json:"globalCount"`
}

type SeasonResetData struct {
	Season    string    `json:"season"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

type BoostData struct {
	Active    bool `json:"active"`
	ExpiresIn int  `json:"expiresIn"`
}

type GoldenSpawnData struct {
	Country   string    `json:"country"`
	SpawnedAt time.Time `json:"spawnedAt"`
}

// Publisher is the only way business logic reaches connected clients.
type Publisher interface {
	Publish(evt Event)
}

// DuelResult is the readable state of a duel, live or settled.
type DuelResult struct {
	ChallengeID       int64           `json:"challengeId"`
	ChallengerCountry string          `json:"challengerCountry"`
	ChallengedCountry string          `json:"challengedCountry"`
	Status            ChallengeStatus `json:"status"`
	Tallies           *Tallies        `json:"tallies,omitempty"`
	Winner            string          `json:"winner,omitempty"`
	Prize             int64           `json:"prize"`
	BetAmount         int64           `json:"betAmount"`
	RemainingMs       int64           `json:"remainingMs"`
}
