package service

import (
	"crypto/cipher"
	"crypto/rand"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// ChaCha20Poly1305Cipher is the alternative wrap algorithm for workspace
// DEKs, selected with DEK_WRAP_ALGORITHM=chacha20-poly1305 on hosts without
// hardware AES. Field tokens themselves always use AES-GCM.
//
// The standard 12-byte nonce variant is used with a 32-byte key and a
// 16-byte tag, matching AES-GCM's component sizes so wrapped keys share a
// single storage layout regardless of algorithm.
type ChaCha20Poly1305Cipher struct {
	aead cipher.AEAD
}

// NewChaCha20Poly1305 builds the cipher from a 32-byte key, rejecting any
// other size up front.
func NewChaCha20Poly1305(key []byte) (*ChaCha20Poly1305Cipher, error) {
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("chacha20-poly1305 key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create ChaCha20-Poly1305 cipher: %w", err)
	}

	return &ChaCha20Poly1305Cipher{aead: aead}, nil
}

// Encrypt seals plaintext under a fresh random nonce, authenticating the
// optional AAD alongside it. The nonce comes back with the sealed bytes and
// must be stored for decryption.
func (c *ChaCha20Poly1305Cipher) Encrypt(plaintext, aad []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to draw nonce: %w", err)
	}

	ciphertext = c.aead.Seal(nil, nonce, plaintext, aad)
	return ciphertext, nonce, nil
}

// Decrypt opens sealed bytes with the nonce and AAD from encryption. Tag
// verification covers ciphertext and AAD together; a mismatch in either
// yields an error and no plaintext. The nonce length is validated up front
// because wrapped-key nonces arrive from storage.
func (c *ChaCha20Poly1305Cipher) Decrypt(ciphertext, nonce, aad []byte) ([]byte, error) {
	if len(nonce) != c.aead.NonceSize() {
		return nil, fmt.Errorf("nonce must be exactly %d bytes", c.aead.NonceSize())
	}
	plaintext, err := c.aead.Open(nil, nonce, ciphertext, aad)
	if err != nil {
		return nil, fmt.Errorf("failed to open ciphertext: %w", err)
	}
	return plaintext, nil
}
