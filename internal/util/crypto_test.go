package util

import (
	"strings"
	"testing"

	"github.com/SeakMengs/CertGate/internal/constant"
)

func TestGenerateAccessCodeSecret(t *testing.T) {
	for range 100 {
		code, err := GenerateAccessCodeSecret()
		if err != nil {
			t.Fatalf("GenerateAccessCodeSecret() error = %v", err)
		}
		if len(code) != constant.AccessCodeLength {
			t.Errorf("expected %d characters, got %q", constant.AccessCodeLength, code)
		}
		for _, r := range code {
			if !strings.ContainsRune(constant.AccessCodeAlphabet, r) {
				t.Errorf("code %q contains %q which is outside the allowed alphabet", code, r)
			}
		}
	}
}

func TestGenerateUniqueLink(t *testing.T) {
	link, err := GenerateUniqueLink()
	if err != nil {
		t.Fatalf("GenerateUniqueLink() error = %v", err)
	}
	if len(link) != constant.UniqueLinkLength {
		t.Errorf("expected %d characters, got %q", constant.UniqueLinkLength, link)
	}
}
