package usecase

import (
	"context"
	"crypto/rand"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
	apperrors "github.com/tickbase/fieldvault/internal/errors"
	"github.com/tickbase/fieldvault/internal/keycache"
	"github.com/tickbase/fieldvault/internal/metrics"
)

// fakeKeyStore is an in-memory WorkspaceKeyRepository with first-writer-wins
// insert semantics and per-method call counting.
type fakeKeyStore struct {
	mu      sync.Mutex
	keys    map[uuid.UUID]cryptoDomain.WorkspaceKey
	gets    int
	creates int

	// missFirstGets makes the first N Get calls report not-found regardless
	// of stored rows, simulating a concurrent writer committing between a
	// caller's read and its insert attempt.
	missFirstGets int

	getErr    error
	createErr error
}

func newFakeKeyStore() *fakeKeyStore {
	return &fakeKeyStore{keys: make(map[uuid.UUID]cryptoDomain.WorkspaceKey)}
}

func (f *fakeKeyStore) Create(_ context.Context, key *cryptoDomain.WorkspaceKey) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.creates++
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.keys[key.WorkspaceID]; ok {
		return apperrors.ErrConflict
	}
	f.keys[key.WorkspaceID] = *key
	return nil
}

func (f *fakeKeyStore) Get(_ context.Context, workspaceID uuid.UUID) (*cryptoDomain.WorkspaceKey, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.gets++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.missFirstGets > 0 {
		f.missFirstGets--
		return nil, cryptoDomain.ErrWorkspaceKeyNotFound
	}
	key, ok := f.keys[workspaceID]
	if !ok {
		return nil, cryptoDomain.ErrWorkspaceKeyNotFound
	}
	return &key, nil
}

// snapshot returns the stored row without counting a Get.
func (f *fakeKeyStore) snapshot(workspaceID uuid.UUID) (cryptoDomain.WorkspaceKey, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key, ok := f.keys[workspaceID]
	return key, ok
}

func (f *fakeKeyStore) counts() (gets, creates int) {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.gets, f.creates
}

func testKeyring(t *testing.T) *cryptoDomain.Keyring {
	t.Helper()

	masterKey := make([]byte, cryptoDomain.KeySize)
	_, err := rand.Read(masterKey)
	require.NoError(t, err)

	return &cryptoDomain.Keyring{MasterKey: masterKey}
}

func newTestUseCase(t *testing.T, store WorkspaceKeyRepository, keyring *cryptoDomain.Keyring, cache *keycache.Cache) WorkspaceKeyUseCase {
	t.Helper()

	keyManager := cryptoService.NewKeyManager(cryptoService.NewAEADManager())
	return NewWorkspaceKeyUseCase(
		store,
		keyManager,
		keyring,
		cache,
		metrics.NewNoOpBusinessMetrics(),
		cryptoDomain.AESGCM,
	)
}

// unwrapStored unwraps the persisted row directly, bypassing the use case.
func unwrapStored(t *testing.T, store *fakeKeyStore, keyring *cryptoDomain.Keyring, workspaceID uuid.UUID) []byte {
	t.Helper()

	key, ok := store.snapshot(workspaceID)
	require.True(t, ok, "expected a persisted workspace key")

	keyManager := cryptoService.NewKeyManager(cryptoService.NewAEADManager())
	dek, err := keyManager.UnwrapWorkspaceKey(&key, keyring)
	require.NoError(t, err)
	return dek
}

func TestWorkspaceKeyUseCaseGetDEK(t *testing.T) {
	ctx := context.Background()

	t.Run("first use creates and persists a key", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		dek, err := useCase.GetDEK(ctx, workspaceID)

		require.NoError(t, err)
		assert.Len(t, dek, cryptoDomain.KeySize)

		gets, creates := store.counts()
		assert.Equal(t, 1, gets)
		assert.Equal(t, 1, creates)

		stored, ok := store.snapshot(workspaceID)
		require.True(t, ok)
		assert.Equal(t, workspaceID, stored.WorkspaceID)
		assert.Equal(t, cryptoDomain.AESGCM, stored.Algorithm)
		assert.Equal(t, uint(1), stored.Version)

		// The persisted row unwraps to exactly the key that was handed out.
		assert.Equal(t, unwrapStored(t, store, keyring, workspaceID), dek)
	})

	t.Run("repeated calls return identical key material", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		first, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)
		second, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("store is not consulted while the cache is fresh", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		for range 5 {
			_, err := useCase.GetDEK(ctx, workspaceID)
			require.NoError(t, err)
		}

		gets, creates := store.counts()
		assert.Equal(t, 1, gets, "only the initial miss should reach the store")
		assert.Equal(t, 1, creates)
	})

	t.Run("cache expiry refetches without changing the key", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)

		now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		var mu sync.Mutex
		clock := func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			return now
		}
		useCase := newTestUseCase(t, store, keyring, keycache.NewWithClock(10*time.Minute, clock))
		workspaceID := uuid.Must(uuid.NewV7())

		first, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)

		mu.Lock()
		now = now.Add(10*time.Minute + time.Second)
		mu.Unlock()

		second, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)

		assert.Equal(t, first, second, "expiry must refresh the cache, not rotate the key")

		gets, creates := store.counts()
		assert.Equal(t, 2, gets, "expired entry should trigger a second store read")
		assert.Equal(t, 1, creates)
	})

	t.Run("different workspaces get independent keys", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))

		first, err := useCase.GetDEK(ctx, uuid.Must(uuid.NewV7()))
		require.NoError(t, err)
		second, err := useCase.GetDEK(ctx, uuid.Must(uuid.NewV7()))
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
	})

	t.Run("existing key that cannot be unwrapped is an error", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		corrupted := make([]byte, cryptoDomain.KeySize+16)
		_, err := rand.Read(corrupted)
		require.NoError(t, err)
		store.keys[workspaceID] = cryptoDomain.WorkspaceKey{
			WorkspaceID:  workspaceID,
			Algorithm:    cryptoDomain.AESGCM,
			EncryptedKey: corrupted,
			Nonce:        make([]byte, 12),
			Version:      1,
			CreatedAt:    time.Now().UTC(),
		}

		dek, err := useCase.GetDEK(ctx, workspaceID)

		assert.ErrorIs(t, err, apperrors.ErrDecryption)
		assert.Nil(t, dek)

		// A broken key must never be papered over with a fresh one.
		_, creates := store.counts()
		assert.Equal(t, 0, creates)
	})

	t.Run("store read failures propagate", func(t *testing.T) {
		store := newFakeKeyStore()
		store.getErr = apperrors.Wrapf(apperrors.ErrStore, "connection refused")
		useCase := newTestUseCase(t, store, testKeyring(t), keycache.New(10*time.Minute))

		dek, err := useCase.GetDEK(ctx, uuid.Must(uuid.NewV7()))

		assert.ErrorIs(t, err, apperrors.ErrStore)
		assert.Nil(t, dek)
	})

	t.Run("store write failures propagate", func(t *testing.T) {
		store := newFakeKeyStore()
		store.createErr = apperrors.Wrapf(apperrors.ErrStore, "connection reset")
		useCase := newTestUseCase(t, store, testKeyring(t), keycache.New(10*time.Minute))

		dek, err := useCase.GetDEK(ctx, uuid.Must(uuid.NewV7()))

		assert.ErrorIs(t, err, apperrors.ErrStore)
		assert.Nil(t, dek)
	})

	t.Run("errors are not cached", func(t *testing.T) {
		store := newFakeKeyStore()
		store.getErr = apperrors.Wrapf(apperrors.ErrStore, "connection refused")
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		_, err := useCase.GetDEK(ctx, workspaceID)
		require.ErrorIs(t, err, apperrors.ErrStore)

		store.mu.Lock()
		store.getErr = nil
		store.mu.Unlock()

		dek, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)
		assert.Len(t, dek, cryptoDomain.KeySize)
	})

	t.Run("insert conflict yields the canonical key", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		workspaceID := uuid.Must(uuid.NewV7())

		// Seed the row a concurrent writer would have committed, then make
		// the first read miss so this instance walks the create path.
		keyManager := cryptoService.NewKeyManager(cryptoService.NewAEADManager())
		canonicalKey, canonicalDEK, err := keyManager.CreateWorkspaceKey(keyring, workspaceID, cryptoDomain.AESGCM)
		require.NoError(t, err)
		store.keys[workspaceID] = canonicalKey
		store.missFirstGets = 1

		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))

		dek, err := useCase.GetDEK(ctx, workspaceID)

		require.NoError(t, err)
		assert.Equal(t, canonicalDEK, dek, "the losing writer must adopt the canonical key")

		gets, creates := store.counts()
		assert.Equal(t, 2, gets, "miss, then read-back after the conflict")
		assert.Equal(t, 1, creates)

		// The canonical key is now cached: no further store traffic.
		again, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)
		assert.Equal(t, canonicalDEK, again)
		gets, _ = store.counts()
		assert.Equal(t, 2, gets)
	})

	t.Run("returned key is a private copy", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		first, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)
		original := make([]byte, len(first))
		copy(original, first)

		cryptoDomain.Zero(first)

		second, err := useCase.GetDEK(ctx, workspaceID)
		require.NoError(t, err)
		assert.Equal(t, original, second, "zeroing a caller's copy must not corrupt the cache")
	})
}

func TestWorkspaceKeyUseCaseConcurrentFirstUse(t *testing.T) {
	ctx := context.Background()

	t.Run("concurrent callers converge on one key", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		useCase := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		const callers = 16
		results := make([][]byte, callers)
		errs := make([]error, callers)

		var wg sync.WaitGroup
		for i := range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[i], errs[i] = useCase.GetDEK(ctx, workspaceID)
			}()
		}
		wg.Wait()

		for i := range callers {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0], results[i])
		}

		_, creates := store.counts()
		assert.Equal(t, 1, creates, "in-process callers should share a single create")
		assert.Equal(t, results[0], unwrapStored(t, store, keyring, workspaceID))
	})

	t.Run("separate instances sharing a store converge on one key", func(t *testing.T) {
		store := newFakeKeyStore()
		keyring := testKeyring(t)
		first := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		second := newTestUseCase(t, store, keyring, keycache.New(10*time.Minute))
		workspaceID := uuid.Must(uuid.NewV7())

		const callersPerInstance = 8
		results := make([][]byte, 2*callersPerInstance)
		errs := make([]error, 2*callersPerInstance)

		var wg sync.WaitGroup
		for i := range callersPerInstance {
			wg.Add(2)
			go func() {
				defer wg.Done()
				results[i], errs[i] = first.GetDEK(ctx, workspaceID)
			}()
			go func() {
				defer wg.Done()
				j := callersPerInstance + i
				results[j], errs[j] = second.GetDEK(ctx, workspaceID)
			}()
		}
		wg.Wait()

		for i := range results {
			require.NoError(t, errs[i])
			assert.Equal(t, results[0], results[i], "every caller across both instances must see the canonical key")
		}

		assert.Equal(t, results[0], unwrapStored(t, store, keyring, workspaceID))
	})
}

// countingMetrics records cache access outcomes for assertions.
type countingMetrics struct {
	metrics.NoOpBusinessMetrics

	mu     sync.Mutex
	access map[string]int
}

func (c *countingMetrics) RecordCacheAccess(_ context.Context, cache, result string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.access == nil {
		c.access = make(map[string]int)
	}
	c.access[cache+":"+result]++
}

func TestWorkspaceKeyUseCaseCacheMetrics(t *testing.T) {
	ctx := context.Background()
	store := newFakeKeyStore()
	keyring := testKeyring(t)
	recorder := &countingMetrics{}
	keyManager := cryptoService.NewKeyManager(cryptoService.NewAEADManager())
	useCase := NewWorkspaceKeyUseCase(
		store,
		keyManager,
		keyring,
		keycache.New(10*time.Minute),
		recorder,
		cryptoDomain.AESGCM,
	)
	workspaceID := uuid.Must(uuid.NewV7())

	_, err := useCase.GetDEK(ctx, workspaceID)
	require.NoError(t, err)
	_, err = useCase.GetDEK(ctx, workspaceID)
	require.NoError(t, err)

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	assert.Equal(t, 1, recorder.access["workspace_dek:miss"])
	assert.Equal(t, 1, recorder.access["workspace_dek:hit"])
}
