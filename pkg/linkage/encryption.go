package linkage

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"io"

	"golang.org/x/crypto/pbkdf2"
)

// TokenCipher encrypts provider tokens at rest with AES-256-GCM
type TokenCipher struct {
	aead cipher.AEAD
}

// NewTokenCipher derives a 32-byte key from secret with PBKDF2
func NewTokenCipher(secret string) (*TokenCipher, error) {
	if err := ValidateEncryptionKey(secret); err != nil {
		return nil, err
	}

	key := pbkdf2.Key([]byte(secret), []byte("social-post-linkage-token"), 10000, 32, sha256.New)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return &TokenCipher{aead: gcm}, nil
}

// Encrypt returns base64(nonce || ciphertext). Empty input stays empty.
func (c *TokenCipher) Encrypt(plaintext string) (string, error) {
	if plaintext == "" {
		return "", nil
	}

	nonce := make([]byte, c.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

func (c *TokenCipher) Decrypt(encoded string) (string, error) {
	if encoded == "" {
		return "", nil
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("failed to decode base64: %w", err)
	}

	nonceSize := c.aead.NonceSize()
	if len(data) < nonceSize {
		return "", fmt.Errorf("ciphertext too short")
	}

	plaintext, err := c.aead.Open(nil, data[:nonceSize], data[nonceSize:], nil)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt: %w", err)
	}
	return string(plaintext), nil
}

// ValidateEncryptionKey validates that an encryption key is suitable for use
func ValidateEncryptionKey(key string) error {
	if len(key) < 16 {
		return fmt.Errorf("encryption key must be at least 16 characters long")
	}
	return nil
}
