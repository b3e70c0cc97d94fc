package groups

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// inviteAlphabet omits characters that are easy to misread or mishear
// when a code is shared aloud (0/O, 1/I/L).
const inviteAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// inviteLength keeps codes short enough to dictate while leaving the
// collision probability negligible (31^10 possibilities).
const inviteLength = 10

// NewInviteCode returns a random invite code drawn from the unambiguous
// alphabet.
func NewInviteCode() (string, error) {
	var b strings.Builder
	b.Grow(inviteLength)

	limit := big.NewInt(int64(len(inviteAlphabet)))
	for i := 0; i < inviteLength; i++ {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate invite code: %w", err)
		}
		b.WriteByte(inviteAlphabet[n.Int64()])
	}

	return b.String(), nil
}

// NormalizeInviteCode maps user-typed input onto the generated form:
// trimmed and uppercased.
func NormalizeInviteCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
