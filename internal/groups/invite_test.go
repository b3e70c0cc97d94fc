package groups

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInviteCode(t *testing.T) {
	code, err := NewInviteCode()
	require.NoError(t, err)
	assert.Len(t, code, inviteLength)

	for _, r := range code {
		assert.True(t, strings.ContainsRune(inviteAlphabet, r), "unexpected character %q", r)
	}
}

func TestNewInviteCodeAvoidsAmbiguousCharacters(t *testing.T) {
	for _, forbidden := range []string{"0", "O", "1", "I", "L"} {
		assert.NotContains(t, inviteAlphabet, forbidden)
	}
}

func TestNewInviteCodeDistribution(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 200; i++ {
		code, err := NewInviteCode()
		require.NoError(t, err)
		assert.False(t, seen[code], "collision after %d codes", i)
		seen[code] = true
	}
}

func TestNormalizeInviteCode(t *testing.T) {
	assert.Equal(t, "ABC234XYZW", NormalizeInviteCode("  abc234xyzw "))
	assert.Equal(t, "", NormalizeInviteCode("   "))
}
