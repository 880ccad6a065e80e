package util

import (
	"github.com/SeakMengs/CertGate/internal/constant"
	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Generate an access code secret from the restricted alphabet.
// Ambiguous glyphs (I, O, 0, 1) never appear so codes survive being read aloud.
func GenerateAccessCodeSecret() (string, error) {
	return gonanoid.Generate(constant.AccessCodeAlphabet, constant.AccessCodeLength)
}

// Generate a public link slug for an access code.
func GenerateUniqueLink() (string, error) {
	return gonanoid.New(constant.UniqueLinkLength)
}
