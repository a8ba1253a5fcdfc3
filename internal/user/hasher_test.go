package user

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_RoundTrip(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	hash, algo, err := h.Hash("hunter22-correct")
	require.NoError(t, err)

	assert.Equal(t, "bcrypt:4", algo)
	assert.NotEqual(t, "hunter22-correct", hash)
	assert.True(t, h.Verify(hash, "hunter22-correct"))
	assert.False(t, h.Verify(hash, "hunter22-Correct"))
	assert.False(t, h.Verify(hash, ""))
}

func TestBcryptHasher_SaltsEachHash(t *testing.T) {
	h := BcryptHasher{Cost: bcrypt.MinCost}

	a, _, err := h.Hash("same-password")
	require.NoError(t, err)
	b, _, err := h.Hash("same-password")
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
}

func TestBcryptHasher_VerifyMalformedHash(t *testing.T) {
	h := BcryptHasher{}
	assert.False(t, h.Verify("not-a-bcrypt-hash", "whatever"))
	assert.False(t, h.Verify("", "whatever"))
}

func TestBcryptHasher_NeedsRehash(t *testing.T) {
	low := BcryptHasher{Cost: bcrypt.MinCost}
	hash, _, err := low.Hash("password-one")
	require.NoError(t, err)

	tests := []struct {
		name   string
		hasher BcryptHasher
		hash   string
		want   bool
	}{
		{"same cost", low, hash, false},
		{"higher configured cost", BcryptHasher{Cost: bcrypt.MinCost + 1}, hash, true},
		{"garbage", low, "garbage", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.hasher.NeedsRehash(tt.hash))
		})
	}
}

func TestBcryptHasher_DefaultCost(t *testing.T) {
	assert.Equal(t, 12, BcryptHasher{}.cost())
}
