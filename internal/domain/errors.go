package domain

import (
	"errors"
	"fmt"
	"time"
)

type Kind int

const (
	KindStorage Kind = iota
	KindValidation
	KindResource
	KindBlocked
	KindAuthorization
	KindNotFound
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindResource:
		return "resource"
	case KindBlocked:
		return "blocked"
	case KindAuthorization:
		return "authorization"
	case KindNotFound:
		return "not_found"
	default:
		return "storage"
	}
}

type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

var (
	ErrSelfTarget       = &Error{Kind: KindValidation, Msg: "cannot target your own country"}
	ErrMissingTarget    = &Error{Kind: KindValidation, Msg: "missing target country"}
	ErrInvalidAmount    = &Error{Kind: KindValidation, Msg: "amount must be a positive integer"}
	ErrUnknownCountry   = &Error{Kind: KindValidation, Msg: "country has no recorded clicks"}
	ErrDuelExpired      = &Error{Kind: KindValidation, Msg: "duel time has expired"}
	ErrDuelInProgress   = &Error{Kind: KindValidation, Msg: "duel is still in progress"}
	ErrInsufficient     = &Error{Kind: KindResource, Msg: "not enough clicks"}
	ErrOnCooldown       = &Error{Kind: KindBlocked, Msg: "missile on cooldown"}
	ErrShielded         = &Error{Kind: KindBlocked, Msg: "target has a shield"}
	ErrWrongAcceptor    = &Error{Kind: KindAuthorization, Msg: "not authorized to accept this challenge"}
	ErrNotParticipant   = &Error{Kind: KindAuthorization, Msg: "country is not a participant in this duel"}
	ErrChallengeMissing = &Error{Kind: KindNotFound, Msg: "challenge not found"}
	ErrNotPending       = &Error{Kind: KindNotFound, Msg: "challenge not found or already accepted"}
	ErrDuelNotActive    = &Error{Kind: KindNotFound, Msg: "duel not found or not active"}
	ErrUnknownTarget    = &Error{Kind: KindNotFound, Msg: "no clicks recorded for target"}
	ErrCountryMissing   = &Error{Kind: KindNotFound, Msg: "country not found"}
	ErrSeasonMissing    = &Error{Kind: KindNotFound, Msg: "season not found"}
)

type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("%s: %s remaining", ErrOnCooldown.Msg, e.Remaining.Round(time.Second))
}

func (e *CooldownError) Unwrap() error { return ErrOnCooldown }

// KindOf classifies err; anything that is not a business rule failure is a storage fault.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindStorage
}
