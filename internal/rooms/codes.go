package rooms

import (
	"crypto/rand"
	"math/big"
)

const codeLength = 4

const codeDigits = "0123456789"

// GenerateCode returns a random 4-digit room code. Uniqueness among live
// rooms is the store's job; callers retry on conflict.
func GenerateCode() (string, error) {
	code := make([]byte, codeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeDigits))))
		if err != nil {
			return "", err
		}
		code[i] = codeDigits[n.Int64()]
	}
	return string(code), nil
}

// ValidCode reports whether s looks like a room code: exactly four
// decimal digits.
func ValidCode(s string) bool {
	if len(s) != codeLength {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
