package domain

import (
	"strings"
	"time"

	"clickwar/internal/constants"
)

type CountryBalance struct {
	Code      string    `json:"country_code"`
	Clicks    int64     `json:"clicks"`
	CreatedAt time.Time `json:"created_at"`
}

type RankedCountry struct {
	Rank   int    `json:"rank"`
	Code   string `json:"country_code"`
	Clicks int64  `json:"clicks"`
	Tier   Tier   `json:"tier"`
}

type Shield struct {
	Code      string
	Active    bool
	ExpiresAt time.Time
}

type ChallengeStatus string

const (
	ChallengePending   ChallengeStatus = "pending"
	ChallengeActive    ChallengeStatus = "active"
	ChallengeCompleted ChallengeStatus = "completed"
	// never-accepted challenge refunded by the pending TTL sweep
	ChallengeExpired ChallengeStatus = "expired"
	// completed challenge moved out of the weekly view
	ChallengeArchived ChallengeStatus = "archived"
)

type Challenge struct {
	ID                int64           `json:"id"`
	ChallengerCountry string          `json:"challenger_country"`
	ChallengedCountry string          `json:"challenged_country"`
	BetAmount         int64           `json:"bet_amount"`
	Status            ChallengeStatus `json:"status"`
	CreatedAt         time.Time       `json:"created_at"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	WinnerCountry     string          `json:"winner_country,omitempty"`
	ChallengerClicks  *int64          `json:"challenger_clicks,omitempty"`
	ChallengedClicks  *int64          `json:"challenged_clicks,omitempty"`
}

func (c *Challenge) IsParticipant(country string) bool {
	return country == c.ChallengerCountry || country == c.ChallengedCountry
}

type CountryStats struct {
	Code             string    `json:"country_code"`
	ChallengesWon    int64     `json:"challenges_won"`
	ChallengesLost   int64     `json:"challenges_lost"`
	MissilesLaunched int64     `json:"total_missiles_launched"`
	DamageTaken      int64     `json:"total_damage_taken"`
	LastActivity     time.Time `json:"last_activity"`
}

// StatsDelta is additive; zero fields leave the column untouched.
type StatsDelta struct {
	ChallengesWon    int64
	ChallengesLost   int64
	MissilesLaunched int64
	DamageTaken      int64
}

type SeasonEntry struct {
	Rank             int    `json:"rank"`
	Code             string `json:"country_code"`
	Clicks           int64  `json:"clicks"`
	Tier             Tier   `json:"tier"`
	ChallengesWon    int64  `json:"challenges_won"`
	ChallengesLost   int64  `json:"challenges_lost"`
	MissilesLaunched int64  `json:"total_missiles_launched"`
}

type SeasonSnapshot struct {
	ID        string
	Season    string
	Blob      []byte
	RawSize   int
	Hash      string
	CreatedAt time.Time
}

// NormalizeCountry upper-cases a code and maps blanks to the unknown sentinel.
func NormalizeCountry(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return constants.UnknownCountry
	}
	return code
}

func ValidCountryCode(code string) bool {
	if len(code) != 2 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}
