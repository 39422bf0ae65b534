package usecase

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
	apperrors "github.com/tickbase/fieldvault/internal/errors"
	"github.com/tickbase/fieldvault/internal/keycache"
	"github.com/tickbase/fieldvault/internal/metrics"
)

// dekCacheName identifies the DEK cache in cache access metrics.
const dekCacheName = "workspace_dek"

type workspaceKeyUseCase struct {
	keyRepo         WorkspaceKeyRepository
	keyManager      cryptoService.KeyManager
	keyring         *cryptoDomain.Keyring
	cache           *keycache.Cache
	businessMetrics metrics.BusinessMetrics
	dekAlgorithm    cryptoDomain.Algorithm
	group           singleflight.Group
}

// GetDEK returns the plaintext DEK for a workspace, creating and persisting a
// new one on first use.
func (w *workspaceKeyUseCase) GetDEK(ctx context.Context, workspaceID uuid.UUID) ([]byte, error) {
	// 1. Serve from cache when a fresh entry exists
	if dek, ok := w.cache.Get(workspaceID); ok {
		w.businessMetrics.RecordCacheAccess(ctx, dekCacheName, "hit")
		return dek, nil
	}
	w.businessMetrics.RecordCacheAccess(ctx, dekCacheName, "miss")

	// 2. Collapse concurrent misses for the same workspace into one load
	v, err, _ := w.group.Do(workspaceID.String(), func() (interface{}, error) {
		return w.loadDEK(ctx, workspaceID)
	})
	if err != nil {
		return nil, err
	}

	// 3. Copy out: singleflight hands every waiter the same backing slice
	shared := v.([]byte)
	dek := make([]byte, len(shared))
	copy(dek, shared)
	return dek, nil
}

// loadDEK fetches and unwraps the workspace key, provisioning one when the
// workspace has none yet. The result is cached before returning.
func (w *workspaceKeyUseCase) loadDEK(ctx context.Context, workspaceID uuid.UUID) ([]byte, error) {
	// 1. Read the wrapped key from the store
	key, err := w.keyRepo.Get(ctx, workspaceID)
	if err == nil {
		// An existing key that fails to unwrap is a hard error. Minting a
		// replacement here would orphan every value encrypted under it.
		dek, err := w.keyManager.UnwrapWorkspaceKey(key, w.keyring)
		if err != nil {
			return nil, err
		}
		w.cache.Set(workspaceID, dek)
		return dek, nil
	}
	if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	// 2. First use: generate, wrap, and persist a new key
	return w.createDEK(ctx, workspaceID)
}

// createDEK provisions a workspace key, honoring insert-or-conflict: when a
// concurrent writer wins the insert, the local key material is discarded and
// the canonical row is read back.
func (w *workspaceKeyUseCase) createDEK(ctx context.Context, workspaceID uuid.UUID) ([]byte, error) {
	key, dek, err := w.keyManager.CreateWorkspaceKey(w.keyring, workspaceID, w.dekAlgorithm)
	if err != nil {
		return nil, err
	}

	err = w.keyRepo.Create(ctx, &key)
	if err == nil {
		w.cache.Set(workspaceID, dek)
		return dek, nil
	}

	// The locally generated DEK lost the race (or the insert failed outright)
	// and must never be returned to a caller.
	cryptoDomain.Zero(dek)
	if !errors.Is(err, apperrors.ErrConflict) {
		return nil, err
	}

	canonical, err := w.keyRepo.Get(ctx, workspaceID)
	if err != nil {
		return nil, err
	}

	canonicalDEK, err := w.keyManager.UnwrapWorkspaceKey(canonical, w.keyring)
	if err != nil {
		return nil, err
	}

	w.cache.Set(workspaceID, canonicalDEK)
	return canonicalDEK, nil
}

// NewWorkspaceKeyUseCase creates a new WorkspaceKeyUseCase instance.
//
// New workspace keys are wrapped with dekAlgorithm; existing keys are
// unwrapped with whatever algorithm their stored record names.
func NewWorkspaceKeyUseCase(
	keyRepo WorkspaceKeyRepository,
	keyManager cryptoService.KeyManager,
	keyring *cryptoDomain.Keyring,
	cache *keycache.Cache,
	businessMetrics metrics.BusinessMetrics,
	dekAlgorithm cryptoDomain.Algorithm,
) WorkspaceKeyUseCase {
	return &workspaceKeyUseCase{
		keyRepo:         keyRepo,
		keyManager:      keyManager,
		keyring:         keyring,
		cache:           cache,
		businessMetrics: businessMetrics,
		dekAlgorithm:    dekAlgorithm,
	}
}
