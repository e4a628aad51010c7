package secrets

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	dErrors "dsnap/pkg/domain-errors"
)

func TestHasher(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)

	t.Run("hash then verify", func(t *testing.T) {
		hash, err := h.Hash("correct-horse")
		require.NoError(t, err)
		assert.NotEqual(t, "correct-horse", hash)
		assert.NoError(t, h.Verify("correct-horse", hash))
	})

	t.Run("wrong password is unauthorized", func(t *testing.T) {
		hash, err := h.Hash("correct-horse")
		require.NoError(t, err)
		err = h.Verify("battery-staple", hash)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	t.Run("malformed hash is internal", func(t *testing.T) {
		err := h.Verify("correct-horse", "not-a-hash")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})

	t.Run("empty and oversized passwords are rejected", func(t *testing.T) {
		_, err := h.Hash("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = h.Hash(strings.Repeat("x", 73))
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
	})

	t.Run("verify nothing always fails", func(t *testing.T) {
		assert.True(t, dErrors.HasCode(h.VerifyNothing("anything"), dErrors.CodeUnauthorized))
	})
}

func TestGenerate(t *testing.T) {
	a, err := Generate()
	require.NoError(t, err)
	b, err := Generate()
	require.NoError(t, err)
	assert.Len(t, a, 32)
	assert.NotEqual(t, a, b)
}
