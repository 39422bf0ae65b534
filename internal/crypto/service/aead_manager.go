package service

import (
	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

// AEADManagerService builds AEAD cipher instances from raw key material. It
// sits between the key manager and the concrete ciphers so the wrap algorithm
// stays a per-record property instead of a process-wide constant.
type AEADManagerService struct{}

// NewAEADManager returns the stateless cipher factory.
func NewAEADManager() *AEADManagerService {
	return &AEADManagerService{}
}

// CreateCipher returns the cipher for alg keyed with key. The key length is
// checked once here, so the ciphers behind the switch can assume 32 bytes.
func (am *AEADManagerService) CreateCipher(key []byte, alg cryptoDomain.Algorithm) (AEAD, error) {
	if len(key) != cryptoDomain.KeySize {
		return nil, cryptoDomain.ErrInvalidKeySize
	}

	switch alg {
	case cryptoDomain.AESGCM:
		return NewAESGCM(key)
	case cryptoDomain.ChaCha20:
		return NewChaCha20Poly1305(key)
	default:
		return nil, cryptoDomain.ErrUnsupportedAlgorithm
	}
}
