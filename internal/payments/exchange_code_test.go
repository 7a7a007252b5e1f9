package payments

import (
	"strings"
	"testing"
)

func TestGenerateExchangeCode(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateExchangeCode(8)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 8 {
			t.Fatalf("expected 8 characters, got %q", code)
		}
		for _, r := range code {
			if !strings.ContainsRune(exchangeCodeAlphabet, r) {
				t.Fatalf("character %q outside alphabet", r)
			}
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatalf("codes are not random")
	}

	if _, err := GenerateExchangeCode(0); err == nil {
		t.Fatalf("zero length must be rejected")
	}
}
