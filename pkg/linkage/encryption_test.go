package linkage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenCipher(t *testing.T) {
	c, err := NewTokenCipher("test-encryption-key-32-characters")
	require.NoError(t, err)

	t.Run("EncryptDecrypt", func(t *testing.T) {
		encrypted, err := c.Encrypt("imgur-access-token")
		require.NoError(t, err)
		assert.NotEqual(t, "imgur-access-token", encrypted)

		decrypted, err := c.Decrypt(encrypted)
		require.NoError(t, err)
		assert.Equal(t, "imgur-access-token", decrypted)
	})

	t.Run("NonceIsRandom", func(t *testing.T) {
		a, err := c.Encrypt("same")
		require.NoError(t, err)
		b, err := c.Encrypt("same")
		require.NoError(t, err)
		assert.NotEqual(t, a, b)
	})

	t.Run("EmptyStaysEmpty", func(t *testing.T) {
		encrypted, err := c.Encrypt("")
		require.NoError(t, err)
		assert.Empty(t, encrypted)

		decrypted, err := c.Decrypt("")
		require.NoError(t, err)
		assert.Empty(t, decrypted)
	})

	t.Run("WrongKey", func(t *testing.T) {
		encrypted, err := c.Encrypt("secret")
		require.NoError(t, err)

		other, err := NewTokenCipher("another-encryption-key-value")
		require.NoError(t, err)
		_, err = other.Decrypt(encrypted)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := c.Decrypt("not base64!")
		assert.Error(t, err)
		_, err = c.Decrypt("c2hvcnQ=")
		assert.Error(t, err)
	})
}

func TestNewTokenCipherShortKey(t *testing.T) {
	_, err := NewTokenCipher("short")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 16 characters")
}
