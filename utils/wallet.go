package utils

import "strings"

// base58Alphabet is the Bitcoin/Solana base58 set (no 0, O, I, l).
const base58Alphabet = "123456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz"

// IsValidSolanaAddress checks the base58 shape of a wallet address
// (32–44 characters). Shape only — addresses are stored as untrusted strings,
// no on-chain or signature verification.
func IsValidSolanaAddress(addr string) bool {
	if len(addr) < 32 || len(addr) > 44 {
		return false
	}
	for _, r := range addr {
		if !strings.ContainsRune(base58Alphabet, r) {
			return false
		}
	}
	return true
}
