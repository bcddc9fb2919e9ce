package utils

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// codeAlphabet is the 32-symbol set for referral codes. I, L, O and U are
// excluded as visually ambiguous.
const codeAlphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

const (
	codePrefix    = "BEAR"
	codeSuffixLen = 4
)

// GenerateReferralCode returns "BEAR" plus 4 random symbols from the code
// alphabet. Uniqueness is enforced by the referral_code unique index, not by
// regenerate-on-collision.
func GenerateReferralCode() (string, error) {
	buf := make([]byte, codeSuffixLen)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	var b strings.Builder
	b.WriteString(codePrefix)
	for _, c := range buf {
		b.WriteByte(codeAlphabet[int(c)%len(codeAlphabet)])
	}
	return b.String(), nil
}

// NormalizeReferralCode uppercases and trims a user-supplied code.
func NormalizeReferralCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// NormalizeEmail lowercases and trims an email for lookups and writes.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
