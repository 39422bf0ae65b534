// Package usecase owns the business logic around workspace data encryption
// keys: provisioning on first use, read-through caching, and the concurrent
// first-use race when several requests touch a brand new workspace at once.
package usecase

import (
	"context"

	"github.com/google/uuid"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
)

// WorkspaceKeyRepository is the persistence contract for wrapped workspace
// keys, implemented for PostgreSQL (native UUID and BYTEA, INSERT .. ON
// CONFLICT DO NOTHING) and MySQL (BINARY(16) and VARBINARY, INSERT IGNORE).
// Both implementations join an open transaction carried by the context
// (database.GetTx) and fall back to the pool otherwise.
//
// Create must be an atomic insert-or-conflict: when a row for the workspace
// already exists it returns an error matching apperrors.ErrConflict and
// leaves the existing row untouched. The first successful writer is
// canonical:
//
//	err := repo.Create(ctx, &key)
//	if errors.Is(err, apperrors.ErrConflict) {
//	    // another writer won the race, read back the canonical row
//	    canonical, err := repo.Get(ctx, key.WorkspaceID)
//	    ...
//	}
//
// Get returns an error matching cryptoDomain.ErrWorkspaceKeyNotFound (and
// therefore apperrors.ErrNotFound) when no row exists. Any other driver
// failure wraps apperrors.ErrStore.
type WorkspaceKeyRepository interface {
	// Create stores a new wrapped workspace key. The key must be fully
	// populated: WorkspaceID, Algorithm, EncryptedKey, Nonce, Version and
	// CreatedAt. The insert never overwrites an existing row.
	Create(ctx context.Context, key *cryptoDomain.WorkspaceKey) error

	// Get retrieves the wrapped key record for a workspace.
	Get(ctx context.Context, workspaceID uuid.UUID) (*cryptoDomain.WorkspaceKey, error)
}

// WorkspaceKeyUseCase is the only path the rest of the application uses to
// reach DEK material. It owns the read-through cache, the unwrap step, and
// lazy key provisioning, so callers never observe wrapped key bytes or
// storage details.
//
// GetDEK for the same workspace returns the same key material for the
// lifetime of the workspace, regardless of caller, process, or cache state.
// Concurrent first-use calls for a new workspace converge on a single
// persisted key; locally generated material that loses the insert race is
// discarded and never returned. A key that exists but cannot be unwrapped is
// an error matching apperrors.ErrDecryption, never a trigger to mint a
// replacement, since a replacement would silently orphan every value
// encrypted under the original key.
type WorkspaceKeyUseCase interface {
	// GetDEK returns the plaintext data encryption key for a workspace,
	// creating and persisting one on first use. The returned 32-byte slice
	// is a private copy; callers should zero it with cryptoDomain.Zero once
	// the key material is no longer needed:
	//
	//	dek, err := useCase.GetDEK(ctx, workspaceID)
	//	if err != nil {
	//	    return err
	//	}
	//	defer cryptoDomain.Zero(dek)
	GetDEK(ctx context.Context, workspaceID uuid.UUID) ([]byte, error)
}
