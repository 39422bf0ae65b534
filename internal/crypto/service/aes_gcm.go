package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
)

// AESGCMCipher is the AES-256-GCM implementation of the AEAD interface. It is
// the cipher behind every v1 field token and the default for wrapping
// workspace DEKs under the master key.
//
// Instances are stateless and safe for concurrent use. Every encryption draws
// its own 12-byte nonce from crypto/rand and appends the 16-byte GCM tag to
// the ciphertext, so sealed output is always plaintext length plus 16.
type AESGCMCipher struct {
	aead cipher.AEAD
}

// NewAESGCM builds the cipher from a 32-byte key. Anything but a 256-bit key
// is rejected before touching the AES key schedule.
func NewAESGCM(key []byte) (*AESGCMCipher, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("aes-gcm key must be 32 bytes, got %d", len(key))
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize AES: %w", err)
	}

	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize GCM mode: %w", err)
	}

	return &AESGCMCipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce and returns the sealed
// bytes together with that nonce. Nonces are never reused with a key; the
// caller stores the nonce next to the ciphertext for decryption.
//
// The AAD is authenticated but not encrypted. Field encryption binds the
// owning workspace ID this way, so a ciphertext lifted into another
// workspace's row fails authentication even before key separation is
// considered. Pass nil when nothing needs binding.
func (a *AESGCMCipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, a.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to draw nonce: %w", err)
	}

	ciphertext = a.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt opens sealed bytes with the nonce and AAD from encryption. The tag
// check covers ciphertext and AAD together; on any mismatch no plaintext
// comes back, only an error.
//
// The nonce must be exactly 12 bytes. Callers decrypting parsed tokens rely
// on the token parser having validated component lengths already.
func (a *AESGCMCipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != a.aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be exactly %d bytes", a.aead.NonceSize())
	}
	plaintext, err := a.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to open ciphertext: %w", err)
	}
	return plaintext, nil
}
