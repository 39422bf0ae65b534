package service

import (
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

// KeyManagerService wraps and unwraps workspace DEKs under the process
// master key.
//
// Envelope encryption here has two tiers: the master key wraps per-workspace
// DEKs, and the DEKs encrypt field values. Wrapping authenticates the
// workspace ID as AAD, so a wrapped key copied onto another workspace's row
// fails to open instead of decrypting foreign data.
type KeyManagerService struct {
	aeadManager AEADManager
}

// NewKeyManager returns a KeyManagerService that builds its wrap ciphers
// through aeadManager.
func NewKeyManager(aeadManager AEADManager) *KeyManagerService {
	return &KeyManagerService{
		aeadManager: aeadManager,
	}
}

// wrapAAD returns the additional authenticated data binding a wrapped DEK to
// its workspace.
func wrapAAD(workspaceID uuid.UUID) []byte {
	return []byte(workspaceID.String())
}

// CreateWorkspaceKey generates a fresh 32-byte DEK for workspaceID and wraps
// it under the keyring's master key with alg.
//
// The returned WorkspaceKey record is safe to persist. The second return
// value is the plaintext DEK for immediate use; the caller must zero it once
// the field work is done.
func (km *KeyManagerService) CreateWorkspaceKey(
	keyring *cryptoDomain.Keyring,
	workspaceID uuid.UUID,
	alg cryptoDomain.Algorithm,
) (cryptoDomain.WorkspaceKey, []byte, error) {
	dekKey := make([]byte, cryptoDomain.KeySize)
	if _, err := rand.Read(dekKey); err != nil {
		return cryptoDomain.WorkspaceKey{}, nil, fmt.Errorf("failed to generate DEK: %w", err)
	}

	aead, err := km.aeadManager.CreateCipher(keyring.MasterKey, alg)
	if err != nil {
		return cryptoDomain.WorkspaceKey{}, nil, err
	}

	// The workspace ID rides along as AAD so the wrapped key only opens for
	// the workspace it was minted for.
	encryptedKey, nonce, err := aead.Encrypt(dekKey, wrapAAD(workspaceID))
	if err != nil {
		cryptoDomain.Zero(dekKey)
		return cryptoDomain.WorkspaceKey{}, nil, fmt.Errorf("failed to wrap DEK: %w", err)
	}

	key := cryptoDomain.WorkspaceKey{
		WorkspaceID:  workspaceID,
		Algorithm:    alg,
		EncryptedKey: encryptedKey,
		Nonce:        nonce,
		Version:      1,
		CreatedAt:    time.Now().UTC(),
	}

	return key, dekKey, nil
}

// UnwrapWorkspaceKey recovers the plaintext DEK from a stored record.
//
// The record's own algorithm selects the cipher, so rows wrapped under an
// earlier DEK_WRAP_ALGORITHM setting keep opening after the default changes.
// Authentication failures come back as ErrDecryptionFailed with no detail
// about which check failed. The recovered DEK lives in memory only and must
// never be persisted.
func (km *KeyManagerService) UnwrapWorkspaceKey(
	key *cryptoDomain.WorkspaceKey,
	keyring *cryptoDomain.Keyring,
) ([]byte, error) {
	aead, err := km.aeadManager.CreateCipher(keyring.MasterKey, key.Algorithm)
	if err != nil {
		return nil, err
	}

	dekKey, err := aead.Decrypt(key.EncryptedKey, key.Nonce, wrapAAD(key.WorkspaceID))
	if err != nil {
		return nil, cryptoDomain.ErrDecryptionFailed
	}

	return dekKey, nil
}
