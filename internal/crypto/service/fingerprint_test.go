package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

func TestNewFingerprint(t *testing.T) {
	t.Run("valid 32-byte key", func(t *testing.T) {
		key := make([]byte, 32)
		_, err := rand.Read(key)
		require.NoError(t, err)

		fp, err := NewFingerprint(key)
		assert.NoError(t, err)
		assert.NotNil(t, fp)
	})

	t.Run("invalid key size", func(t *testing.T) {
		fp, err := NewFingerprint(make([]byte, 16))
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
		assert.Nil(t, fp)
	})

	t.Run("nil key", func(t *testing.T) {
		fp, err := NewFingerprint(nil)
		assert.ErrorIs(t, err, cryptoDomain.ErrInvalidKeySize)
		assert.Nil(t, fp)
	})
}

func TestFingerprintService_Fingerprint(t *testing.T) {
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	fp, err := NewFingerprint(key)
	require.NoError(t, err)

	t.Run("deterministic for the same value", func(t *testing.T) {
		first := fp.Fingerprint("alice@example.com")
		second := fp.Fingerprint("alice@example.com")

		assert.Equal(t, first, second)
		assert.Equal(t, sha256.Size, len(first))
	})

	t.Run("normalizes case and surrounding whitespace", func(t *testing.T) {
		canonical := fp.Fingerprint("alice@example.com")

		assert.Equal(t, canonical, fp.Fingerprint("Alice@Example.COM"))
		assert.Equal(t, canonical, fp.Fingerprint("  alice@example.com  "))
		assert.Equal(t, canonical, fp.Fingerprint("\tALICE@EXAMPLE.COM\n"))
	})

	t.Run("interior whitespace is preserved", func(t *testing.T) {
		assert.NotEqual(t, fp.Fingerprint("acme gmbh"), fp.Fingerprint("acmegmbh"))
	})

	t.Run("different values produce different fingerprints", func(t *testing.T) {
		assert.NotEqual(t, fp.Fingerprint("alice@example.com"), fp.Fingerprint("bob@example.com"))
	})

	t.Run("empty and blank values return nil", func(t *testing.T) {
		assert.Nil(t, fp.Fingerprint(""))
		assert.Nil(t, fp.Fingerprint("   "))
		assert.Nil(t, fp.Fingerprint("\t\n"))
	})

	t.Run("matches a direct HMAC-SHA256 over the normalized value", func(t *testing.T) {
		mac := hmac.New(sha256.New, key)
		mac.Write([]byte("alice@example.com"))
		expected := mac.Sum(nil)

		assert.Equal(t, expected, fp.Fingerprint(" Alice@example.com "))
	})

	t.Run("different keys produce different fingerprints", func(t *testing.T) {
		otherKey := make([]byte, 32)
		_, err := rand.Read(otherKey)
		require.NoError(t, err)

		other, err := NewFingerprint(otherKey)
		require.NoError(t, err)

		assert.NotEqual(t, fp.Fingerprint("alice@example.com"), other.Fingerprint("alice@example.com"))
	})
}
