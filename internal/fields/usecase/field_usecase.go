package usecase

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/tickbase/fieldvault/internal/crypto/usecase"
)

type fieldUseCase struct {
	keyUseCase    cryptoUseCase.WorkspaceKeyUseCase
	aeadManager   cryptoService.AEADManager
	fingerprinter cryptoService.Fingerprinter
	keyring       *cryptoDomain.Keyring
	strictDecrypt bool
}

// fieldAAD binds a field token to its owning workspace. A token replayed
// under another workspace fails authentication even if the DEK bytes were
// somehow shared.
func fieldAAD(workspaceID uuid.UUID) []byte {
	return []byte(workspaceID.String())
}

// Encrypt seals a plaintext field value under the workspace's DEK and returns
// the encoded token.
func (f *fieldUseCase) Encrypt(ctx context.Context, workspaceID uuid.UUID, value string) (string, error) {
	// 1. Nothing to seal for empty values
	if value == "" {
		return "", nil
	}

	// 2. Already-encrypted values pass through unchanged. This covers both
	// current tokens and v0 tokens the backfill has not migrated yet;
	// double-wrapping a v0 token would strand it behind two key layers.
	if cryptoDomain.IsFieldToken(value) {
		return value, nil
	}

	// 3. Obtain the workspace DEK and seal
	dek, err := f.keyUseCase.GetDEK(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(dek)

	aead, err := f.aeadManager.CreateCipher(dek, cryptoDomain.AESGCM)
	if err != nil {
		return "", err
	}

	sealed, nonce, err := aead.Encrypt([]byte(value), fieldAAD(workspaceID))
	if err != nil {
		return "", fmt.Errorf("failed to encrypt field value: %w", err)
	}

	return cryptoDomain.NewFieldToken(nonce, sealed).String(), nil
}

// Decrypt recovers the plaintext from an encoded token.
func (f *fieldUseCase) Decrypt(ctx context.Context, workspaceID uuid.UUID, value string) (string, error) {
	// 1. Empty values stay empty
	if value == "" {
		return "", nil
	}

	// 2. Values that never claim to be tokens are legacy plaintext. They
	// pass through unless the deployment has finished migrating and opted
	// into rejecting unencrypted data.
	if !cryptoDomain.HasTokenPrefix(value) {
		if f.strictDecrypt {
			return "", cryptoDomain.ErrPlaintextNotAllowed
		}
		return value, nil
	}

	// 3. A value with the token prefix must parse; a mangled token is a
	// decryption failure, never plaintext.
	token, err := cryptoDomain.ParseFieldToken(value)
	if err != nil {
		return "", err
	}

	switch token.Version {
	case cryptoDomain.TokenVersionV1:
		return f.decryptV1(ctx, workspaceID, token)
	case cryptoDomain.TokenVersionV0:
		return f.decryptV0(token)
	default:
		return "", fmt.Errorf("%w: %q", cryptoDomain.ErrUnknownTokenVersion, token.Version)
	}
}

// decryptV1 opens a current-scheme token under the workspace DEK.
func (f *fieldUseCase) decryptV1(ctx context.Context, workspaceID uuid.UUID, token *cryptoDomain.FieldToken) (string, error) {
	dek, err := f.keyUseCase.GetDEK(ctx, workspaceID)
	if err != nil {
		return "", err
	}
	defer cryptoDomain.Zero(dek)

	aead, err := f.aeadManager.CreateCipher(dek, cryptoDomain.AESGCM)
	if err != nil {
		return "", err
	}

	plaintext, err := aead.Decrypt(token.Sealed(), token.IV, fieldAAD(workspaceID))
	if err != nil {
		return "", cryptoDomain.ErrDecryptionFailed
	}

	return string(plaintext), nil
}

// decryptV0 opens a retired-scheme token under the global legacy keys,
// trying the current legacy key first, then its predecessor.
func (f *fieldUseCase) decryptV0(token *cryptoDomain.FieldToken) (string, error) {
	if !f.keyring.HasLegacyKeys() {
		return "", cryptoDomain.ErrLegacyKeyNotConfigured
	}

	for _, legacyKey := range f.keyring.LegacyKeys {
		aead, err := f.aeadManager.CreateCipher(legacyKey, cryptoDomain.AESGCM)
		if err != nil {
			return "", err
		}

		// The old scheme predates workspace binding, so no AAD.
		plaintext, err := aead.Decrypt(token.Sealed(), token.IV, nil)
		if err == nil {
			return string(plaintext), nil
		}
	}

	return "", cryptoDomain.ErrDecryptionFailed
}

// Fingerprint derives the deterministic blind-index digest for a value.
func (f *fieldUseCase) Fingerprint(value string) []byte {
	return f.fingerprinter.Fingerprint(value)
}

// NewFieldUseCase creates a new FieldUseCase instance.
//
// With strictDecrypt enabled, Decrypt rejects values that carry no token
// prefix instead of passing them through. Enable it only after the backfill
// has migrated every record.
func NewFieldUseCase(
	keyUseCase cryptoUseCase.WorkspaceKeyUseCase,
	aeadManager cryptoService.AEADManager,
	fingerprinter cryptoService.Fingerprinter,
	keyring *cryptoDomain.Keyring,
	strictDecrypt bool,
) FieldUseCase {
	return &fieldUseCase{
		keyUseCase:    keyUseCase,
		aeadManager:   aeadManager,
		fingerprinter: fingerprinter,
		keyring:       keyring,
		strictDecrypt: strictDecrypt,
	}
}
