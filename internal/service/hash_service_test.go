package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cheapArgon2 keeps tests fast; the format and logic are the same.
var cheapArgon2 = Argon2Params{Time: 1, MemoryKiB: 8 * 1024, Threads: 1, KeyLen: 32, SaltLen: 16}

func TestArgon2HashService_HashAndVerify(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	hash, err := svc.Hash("Str0ng-Card-Pass")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := svc.Verify("Str0ng-Card-Pass", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.Verify("wrong-password", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestArgon2HashService_DefaultParams(t *testing.T) {
	hash, err := NewArgon2HashService().Hash("test")
	require.NoError(t, err)
	assert.Contains(t, hash, "$m=65536,t=1,p=4$")
}

func TestArgon2HashService_VerifiesHashesFromOtherParams(t *testing.T) {
	old, err := NewArgon2HashServiceWithParams(cheapArgon2).Hash("owner-password")
	require.NoError(t, err)

	stronger := cheapArgon2
	stronger.Time = 2
	stronger.KeyLen = 24

	ok, err := NewArgon2HashServiceWithParams(stronger).Verify("owner-password", old)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestArgon2HashService_UniqueSalts(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	h1, err := svc.Hash("owner-password")
	require.NoError(t, err)
	h2, err := svc.Hash("owner-password")
	require.NoError(t, err)

	assert.NotEqual(t, h1, h2)
}

func TestArgon2HashService_EdgePasswords(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	for _, pw := range []string{"", strings.Repeat("a", 1000), "пароль-密码"} {
		hash, err := svc.Hash(pw)
		require.NoError(t, err)

		ok, err := svc.Verify(pw, hash)
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestArgon2HashService_VerifyMalformed(t *testing.T) {
	svc := NewArgon2HashServiceWithParams(cheapArgon2)

	tests := []struct {
		name string
		hash string
	}{
		{"not phc", "not-a-valid-hash"},
		{"other algorithm", "$bcrypt$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"old version", "$argon2id$v=16$m=65536,t=1,p=4$c2FsdA$aGFzaA"},
		{"bad params", "$argon2id$v=19$m=x,t=1,p=4$c2FsdA$aGFzaA"},
		{"empty salt", "$argon2id$v=19$m=65536,t=1,p=4$$aGFzaA"},
		{"bad key", "$argon2id$v=19$m=65536,t=1,p=4$c2FsdA$!!!"},
		{"missing leading dollar", "argon2id$v=19$m=65536,t=1,p=4$c2FsdA$aGFzaA$x"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Verify("password", tt.hash)
			assert.ErrorIs(t, err, ErrMalformedHash)
		})
	}
}
