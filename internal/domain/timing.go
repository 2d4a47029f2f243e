package domain

import (
	"time"

	"clickwar/internal/constants"
)

// CanLaunch reports whether a country whose last launch was at last may fire at now.
func CanLaunch(last *time.Time, now time.Time, window time.Duration) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= window
}

// CooldownRemaining is zero once CanLaunch is true.
func CooldownRemaining(last *time.Time, now time.Time, window time.Duration) time.Duration {
	if CanLaunch(last, now, window) {
		return 0
	}
	return window - now.Sub(*last)
}

type Breakdown struct {
	Hours   int `json:"hours"`
	Minutes int `json:"minutes"`
	Seconds int `json:"seconds"`
}

func BreakdownOf(d time.Duration) Breakdown {
	if d < 0 {
		d = 0
	}
	return Breakdown{
		Hours:   int(d / time.Hour),
		Minutes: int((d % time.Hour) / time.Minute),
		Seconds: int((d % time.Minute) / time.Second),
	}
}

// IsShielded trusts the expiry time, not the stored flag.
func (s *Shield) IsShielded(now time.Time) bool {
	return s != nil && s.Active && now.Before(s.ExpiresAt)
}

func (s *Shield) Remaining(now time.Time) time.Duration {
	if !s.IsShielded(now) {
		return 0
	}
	return s.ExpiresAt.Sub(now)
}

// MaxDamage caps a strike at floor(balance * num / den) without leaving
// integer arithmetic.
func MaxDamage(balance, num, den int64) int64 {
	if balance <= 0 || num <= 0 || den <= 0 {
		return 0
	}
	return balance/den*num + balance%den*num/den
}

func AppliedDamage(requested, balance int64) int64 {
	limit := MaxDamage(balance, constants.MaxDamageNum, constants.MaxDamageDen)
	if requested < limit {
		return requested
	}
	return limit
}
