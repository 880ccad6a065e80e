package issuance

import (
	"strings"
	"time"

	"github.com/SeakMengs/CertGate/internal/model"
)

type CodeState int

const (
	CodeStateActive CodeState = iota
	CodeStateExpired
	CodeStateExhausted
	CodeStateDeactivated
	CodeStateInvalid
)

func (s CodeState) String() string {
	switch s {
	case CodeStateActive:
		return "active"
	case CodeStateExpired:
		return "expired"
	case CodeStateExhausted:
		return "exhausted"
	case CodeStateDeactivated:
		return "deactivated"
	case CodeStateInvalid:
		return "invalid"
	}
	return "unknown"
}

// Err maps a non-active state to its caller-facing error. Active maps to nil.
func (s CodeState) Err() error {
	switch s {
	case CodeStateActive:
		return nil
	case CodeStateExpired:
		return ErrExpired
	case CodeStateExhausted:
		return ErrExhausted
	case CodeStateDeactivated:
		return ErrDeactivated
	default:
		return ErrSecretMismatch
	}
}

// Evaluate is the access code state machine. It is a pure function of the
// persisted row, the submitted secret and the clock; repeated calls without
// intervening writes return the same state.
//
// Precedence, most severe first:
//  1. Invalid: no row, or the submitted secret does not case-insensitively
//     match the stored code. Never persisted.
//  2. Deactivated
//  3. Expired
//  4. Exhausted
//  5. Active — the only state that permits redemption
func Evaluate(code *model.AccessCode, submittedSecret string, now time.Time) CodeState {
	if code == nil || code.ID == "" {
		return CodeStateInvalid
	}

	if !strings.EqualFold(code.Code, submittedSecret) {
		return CodeStateInvalid
	}

	if !code.IsActive {
		return CodeStateDeactivated
	}

	if code.ExpiresAt != nil && now.After(*code.ExpiresAt) {
		return CodeStateExpired
	}

	if code.MaxUses != nil && code.CurrentUses >= *code.MaxUses {
		return CodeStateExhausted
	}

	return CodeStateActive
}
