package issuance

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/SeakMengs/CertGate/internal/constant"
)

// NumberExistsFunc reports whether a certificate number is already taken.
type NumberExistsFunc func(ctx context.Context, number string) (bool, error)

var maxNumberSuffix = big.NewInt(1_000_000)

// GenerateCertificateNumber draws CERT-{year}-{6-digit zero-padded random}
// values until one is free, giving up after the configured attempt budget
// with ErrCodeGenerationExhausted.
func GenerateCertificateNumber(ctx context.Context, now time.Time, exists NumberExistsFunc) (string, error) {
	for range constant.MaxCodeGenerationAttempts {
		suffix, err := rand.Int(rand.Reader, maxNumberSuffix)
		if err != nil {
			return "", fmt.Errorf("failed to draw certificate number: %w", err)
		}

		number := fmt.Sprintf("CERT-%d-%06d", now.Year(), suffix.Int64())

		taken, err := exists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("failed to check certificate number uniqueness: %w", err)
		}
		if !taken {
			return number, nil
		}
	}

	return "", ErrCodeGenerationExhausted
}

// GenerateUniqueString draws values from gen until one is free, with the same
// attempt budget. Used for access code secrets and link slugs.
func GenerateUniqueString(ctx context.Context, gen func() (string, error), exists NumberExistsFunc) (string, error) {
	for range constant.MaxCodeGenerationAttempts {
		value, err := gen()
		if err != nil {
			return "", err
		}

		taken, err := exists(ctx, value)
		if err != nil {
			return "", err
		}
		if !taken {
			return value, nil
		}
	}

	return "", ErrCodeGenerationExhausted
}
