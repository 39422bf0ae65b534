package domain

import "context"

// KMSKeeper abstracts a KMS-backed secrets keeper used to unwrap the
// keyring's environment values. *secrets.Keeper from gocloud.dev implements
// it; tests substitute fakes.
type KMSKeeper interface {
	// Decrypt decrypts a KMS ciphertext.
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
	// Encrypt encrypts plaintext under the KMS key. Used by the keygen
	// command to emit environment-ready wrapped keys.
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	// Close releases any resources held by the keeper.
	Close() error
}
