package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// cheap keeps the suite fast; production uses Default.
var cheap = Params{Memory: 1024, Time: 1, Parallelism: 1, KeyLen: 32}

func TestHashVerify_RoundTrip(t *testing.T) {
	phc, err := Hash(cheap, "s1")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(phc, "$argon2id$v=19$m=1024,t=1,p=1$"))

	require.True(t, Verify("s1", phc))
	require.False(t, Verify("s2", phc))
	require.False(t, Verify("", phc))
}

func TestHash_SaltedPerCall(t *testing.T) {
	a, err := Hash(cheap, "same")
	require.NoError(t, err)
	b, err := Hash(cheap, "same")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestHash_EmptyRejected(t *testing.T) {
	_, err := Hash(cheap, "")
	require.Error(t, err)
}

func TestVerify_Malformed(t *testing.T) {
	for _, phc := range []string{
		"",
		"plain-text-secret",
		"$argon2i$v=19$m=1024,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=18$m=1024,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$ZGs",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$ZGs",
		"$argon2id$v=19$m=1024,t=1,p=1$c2FsdA$",
	} {
		require.False(t, Verify("s1", phc), phc)
	}
}
