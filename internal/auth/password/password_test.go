package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashVerifyRoundTrip(t *testing.T) {
	encoded, err := Hash("Str0ng!Pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$v=19$m=65536,t=1,p=4$"), encoded)

	assert.True(t, Verify("Str0ng!Pass", encoded))
	assert.False(t, Verify("wrong", encoded))
}

func TestHashesAreSalted(t *testing.T) {
	first, err := Hash("Str0ng!Pass")
	require.NoError(t, err)
	second, err := Hash("Str0ng!Pass")
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestVerifyUsesEncodedParams(t *testing.T) {
	cheap := Params{Memory: 8 * 1024, Time: 1, Threads: 1, KeyLen: 16, SaltLen: 8}
	encoded, err := cheap.Hash("Str0ng!Pass")
	require.NoError(t, err)

	assert.True(t, Verify("Str0ng!Pass", encoded))
	assert.True(t, DefaultParams.NeedsRehash(encoded))
	assert.False(t, cheap.NeedsRehash(encoded))
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"",
		"plain",
		"$argon2i$v=19$m=1,t=1,p=1$YWJj$YWJj",
		"$argon2id$v=18$m=1,t=1,p=1$YWJj$YWJj",
		"$argon2id$v=19$m=x,t=1,p=1$YWJj$YWJj",
		"$argon2id$v=19$m=0,t=1,p=1$YWJj$YWJj",
		"$argon2id$v=19$m=1,t=1,p=1$$YWJj",
		"$argon2id$v=19$m=1,t=1,p=1$YWJj$!!",
	} {
		assert.False(t, Verify("secret", encoded), encoded)
		assert.True(t, DefaultParams.NeedsRehash(encoded), encoded)
	}
}
