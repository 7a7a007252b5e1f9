package payments

import (
	"crypto/rand"
	"fmt"
)

const exchangeCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GenerateExchangeCode returns a random handover code of the given length.
// The alphabet skips lookalike characters since buyers read the code out
// loud at the door.
func GenerateExchangeCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("exchange code length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("read random bytes: %w", err)
	}
	for i, b := range buf {
		buf[i] = exchangeCodeAlphabet[int(b)%len(exchangeCodeAlphabet)]
	}
	return string(buf), nil
}
