package issuance

import (
	"errors"
	"testing"
	"time"

	"github.com/SeakMengs/CertGate/internal/model"
)

func intPtr(v int) *int {
	return &v
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func testCode(mutate func(*model.AccessCode)) *model.AccessCode {
	code := &model.AccessCode{
		BaseModel:   model.BaseModel{ID: "ac-1"},
		TemplateID:  "tpl-1",
		Code:        "ABCD2345",
		UniqueLink:  "link12345678",
		CurrentUses: 0,
		IsActive:    true,
	}
	if mutate != nil {
		mutate(code)
	}
	return code
}

func TestEvaluate(t *testing.T) {
	now := time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)
	yesterday := now.Add(-24 * time.Hour)
	tomorrow := now.Add(24 * time.Hour)

	tests := []struct {
		name   string
		code   *model.AccessCode
		secret string
		want   CodeState
	}{
		{"Nil code is invalid", nil, "ABCD2345", CodeStateInvalid},
		{"Empty row is invalid", &model.AccessCode{}, "ABCD2345", CodeStateInvalid},
		{"Wrong secret is invalid", testCode(nil), "WRONG234", CodeStateInvalid},
		{"Exact secret is active", testCode(nil), "ABCD2345", CodeStateActive},
		{"Secret match is case-insensitive", testCode(nil), "abcd2345", CodeStateActive},
		{
			"Deactivated",
			testCode(func(c *model.AccessCode) { c.IsActive = false }),
			"ABCD2345", CodeStateDeactivated,
		},
		{
			"Deactivated wins over expired",
			testCode(func(c *model.AccessCode) {
				c.IsActive = false
				c.ExpiresAt = timePtr(yesterday)
			}),
			"ABCD2345", CodeStateDeactivated,
		},
		{
			"Expired",
			testCode(func(c *model.AccessCode) { c.ExpiresAt = timePtr(yesterday) }),
			"ABCD2345", CodeStateExpired,
		},
		{
			"Expired regardless of remaining uses",
			testCode(func(c *model.AccessCode) {
				c.ExpiresAt = timePtr(yesterday)
				c.MaxUses = intPtr(100)
				c.CurrentUses = 0
			}),
			"ABCD2345", CodeStateExpired,
		},
		{
			"Future expiry is active",
			testCode(func(c *model.AccessCode) { c.ExpiresAt = timePtr(tomorrow) }),
			"ABCD2345", CodeStateActive,
		},
		{
			"Exhausted at cap",
			testCode(func(c *model.AccessCode) {
				c.MaxUses = intPtr(3)
				c.CurrentUses = 3
			}),
			"ABCD2345", CodeStateExhausted,
		},
		{
			"Exhausted past cap",
			testCode(func(c *model.AccessCode) {
				c.MaxUses = intPtr(3)
				c.CurrentUses = 5
			}),
			"ABCD2345", CodeStateExhausted,
		},
		{
			"One use left is active",
			testCode(func(c *model.AccessCode) {
				c.MaxUses = intPtr(3)
				c.CurrentUses = 2
			}),
			"ABCD2345", CodeStateActive,
		},
		{
			"Unlimited uses is active",
			testCode(func(c *model.AccessCode) { c.CurrentUses = 1_000_000 }),
			"ABCD2345", CodeStateActive,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Evaluate(tt.code, tt.secret, now)
			if got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Evaluate is pure: repeated calls without intervening writes agree.
func TestEvaluateIdempotent(t *testing.T) {
	now := time.Now()
	code := testCode(func(c *model.AccessCode) {
		c.MaxUses = intPtr(1)
	})

	first := Evaluate(code, "ABCD2345", now)
	for range 10 {
		if got := Evaluate(code, "ABCD2345", now); got != first {
			t.Fatalf("Evaluate() changed from %v to %v without a write", first, got)
		}
	}
}

func TestCodeStateErr(t *testing.T) {
	tests := []struct {
		state CodeState
		want  error
	}{
		{CodeStateActive, nil},
		{CodeStateExpired, ErrExpired},
		{CodeStateExhausted, ErrExhausted},
		{CodeStateDeactivated, ErrDeactivated},
		{CodeStateInvalid, ErrSecretMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.state.String(), func(t *testing.T) {
			if got := tt.state.Err(); !errors.Is(got, tt.want) {
				t.Errorf("Err() = %v, want %v", got, tt.want)
			}
		})
	}
}
