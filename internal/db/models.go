package db

import (
	"database/sql"
)

// Timestamps are unix milliseconds.

type CountryClick struct {
	CountryCode string
	Clicks      int64
	CreatedAt   int64
}

type CountryShield struct {
	CountryCode   string
	ShieldActive  bool
	ShieldExpires int64
}

type CountryChallenge struct {
	ID                int64
	ChallengerCountry string
	ChallengedCountry string
	BetAmount         int64
	Status            string
	CreatedAt         int64
	StartedAt         sql.NullInt64
	CompletedAt       sql.NullInt64
	WinnerCountry     sql.NullString
	ChallengerClicks  sql.NullInt64
	ChallengedClicks  sql.NullInt64
}

type CountryStat struct {
	CountryCode           string
	ChallengesWon         int64
	ChallengesLost        int64
	TotalMissilesLaunched int64
	TotalDamageTaken      int64
	LastActivity          int64
}

type SeasonalRanking struct {
	SeasonName            string
	CountryCode           string
	Clicks                int64
	Rank                  int64
	ChallengesWon         int64
	ChallengesLost        int64
	TotalMissilesLaunched int64
	ArchivedAt            int64
}

type SeasonSnapshot struct {
	ID         string
	SeasonName string
	StateBlob  []byte
	RawSize    int64
	FinalHash  string
	CreatedAt  int64
}
