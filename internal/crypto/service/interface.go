// Package service provides cryptographic services for workspace envelope
// encryption. Implements AEAD ciphers (AES-256-GCM, ChaCha20-Poly1305) for
// DEK wrapping and field encryption, plus HMAC-based blind-index
// fingerprints.
package service

import (
	"github.com/google/uuid"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

// AEAD seals and opens byte payloads, binding associated data into the
// authentication tag.
type AEAD interface {
	// Encrypt seals plaintext under a fresh random nonce. The aad is
	// authenticated but not encrypted and may be nil.
	Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error)

	// Decrypt opens ciphertext. The aad must match what Encrypt was given
	// or authentication fails.
	Decrypt(ciphertext, nonce, aad []byte) ([]byte, error)
}

// AEADManager builds AEAD instances bound to a key and algorithm.
type AEADManager interface {
	// CreateCipher returns a cipher over key for the named algorithm. The
	// key length is validated before the algorithm name.
	CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error)
}

// KeyManager wraps and unwraps workspace DEKs under the process master key.
type KeyManager interface {
	// CreateWorkspaceKey generates a fresh 32-byte DEK for the workspace and
	// wraps it under the keyring's master key. Returns the persistable
	// record and the plaintext DEK; the caller owns zeroing the latter.
	CreateWorkspaceKey(
		keyring *cryptoDomain.Keyring,
		workspaceID uuid.UUID,
		alg cryptoDomain.Algorithm,
	) (cryptoDomain.WorkspaceKey, []byte, error)

	// UnwrapWorkspaceKey recovers the plaintext DEK from a stored record.
	// Any authentication failure is a decryption error and must never be
	// treated as the record being absent.
	UnwrapWorkspaceKey(
		key *cryptoDomain.WorkspaceKey,
		keyring *cryptoDomain.Keyring,
	) ([]byte, error)
}

// Fingerprinter derives deterministic blind-index fingerprints from
// plaintext values for exact-match search over encrypted columns.
type Fingerprinter interface {
	// Fingerprint returns the 32-byte digest of the normalized value, or nil
	// when the value normalizes to empty.
	Fingerprint(value string) []byte
}
