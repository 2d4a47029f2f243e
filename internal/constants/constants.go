package constants

import "time"

const (
	MissileCost            = 50
	MaxDamageNum           = 1
	MaxDamageDen           = 2
	DefaultMissileCooldown = 30 * time.Minute
	ShieldDuration         = 120 * time.Minute
	StaleMissileAge        = 24 * time.Hour
)

const (
	DuelDuration        = 30 * time.Second
	DuelResultRetention = 10 * time.Second
	ArchiveChallengeAge = 7 * 24 * time.Hour
)

const (
	UnknownCountry = "XX"
	TieWinner      = "TIE"
	DefaultSeason  = "Season-Rookie"
)

const (
	BoostDuration   = 60 * time.Second
	BoostMultiplier = 2
)

const (
	LeaderboardTop = 10
	TierWarningGap = 2
)

const (
	GeoCacheTTL        = 6 * time.Hour
	ExternalAPITimeout = 5 * time.Second
	DatabaseTimeout    = 5 * time.Second
	RequestTimeout     = 15 * time.Second
)

const (
	DBMaxOpenConns    = 16
	DBMaxIdleConns    = 4
	DBConnMaxLifetime = 1 * time.Hour
	DBMaxIdleTime     = 10 * time.Minute
	DBBusyTimeoutMs   = 5000
)

const (
	ShieldSweepInterval = 1 * time.Hour
	DuelSweepInterval   = 2 * time.Second
)

const (
	WSSendBuffer   = 64
	WSWriteTimeout = 10 * time.Second
	WSReadTimeout  = 60 * time.Second
	WSPingInterval = 54 * time.Second
	WSMaxMessage   = 4096
)

const (
	ShutdownTimeout = 5 * time.Second
)
