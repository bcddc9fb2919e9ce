package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIsValidSolanaAddress(t *testing.T) {
	valid44 := strings.Repeat("A1", 22) // 44 chars, all base58
	require.True(t, IsValidSolanaAddress(valid44))
	require.True(t, IsValidSolanaAddress(strings.Repeat("x", 32)))

	require.False(t, IsValidSolanaAddress("not-base58!!"))
	require.False(t, IsValidSolanaAddress(strings.Repeat("A", 31)))  // too short
	require.False(t, IsValidSolanaAddress(strings.Repeat("A", 45)))  // too long
	require.False(t, IsValidSolanaAddress(strings.Repeat("A", 43)+"0")) // 0 not in base58
	require.False(t, IsValidSolanaAddress(strings.Repeat("A", 43)+"l")) // l not in base58
	require.False(t, IsValidSolanaAddress(""))
}
