package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordHasher_HashIsSaltedAndVerifies(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)

	first, err := h.Hash("Password123")
	require.NoError(t, err)
	second, err := h.Hash("Password123")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.NotEqual(t, "Password123", first)
	assert.True(t, h.Verify("Password123", first))
	assert.True(t, h.Verify("Password123", second))
}

func TestPasswordHasher_Verify(t *testing.T) {
	t.Parallel()

	h := NewPasswordHasher(bcrypt.MinCost)
	digest, err := h.Hash("correct horse")
	require.NoError(t, err)

	tests := []struct {
		name   string
		plain  string
		digest string
		want   bool
	}{
		{"Match", "correct horse", digest, true},
		{"Wrong password", "battery staple", digest, false},
		{"Empty password", "", digest, false},
		{"Malformed digest", "correct horse", "not-a-bcrypt-digest", false},
		{"Empty digest", "correct horse", "", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, h.Verify(tt.plain, tt.digest))
		})
	}
}

func TestNewPasswordHasher_FallsBackToDefaultCost(t *testing.T) {
	t.Parallel()

	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(0).cost)
	assert.Equal(t, bcrypt.DefaultCost, NewPasswordHasher(99).cost)
	assert.Equal(t, 12, NewPasswordHasher(12).cost)
}
