package app

import (
	"context"
	"fmt"
	"log/slog"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	cryptoRepository "github.com/tickbase/fieldvault/internal/crypto/repository"
	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
	cryptoUseCase "github.com/tickbase/fieldvault/internal/crypto/usecase"
	"github.com/tickbase/fieldvault/internal/keycache"
)

// KMSService returns the keeper factory for KMS-wrapped key material.
func (c *Container) KMSService() cryptoService.KMSService {
	c.kmsOnce.Do(func() {
		c.kmsService = cryptoService.NewKMSService()
	})
	return c.kmsService
}

// Keyring returns the process keyring. Loading is fail-fast: a missing or
// malformed key renders the whole container unusable for crypto work.
func (c *Container) Keyring() (*cryptoDomain.Keyring, error) {
	return c.keyring.get(c.loadKeyring)
}

// AEADManager returns the cipher construction service.
func (c *Container) AEADManager() cryptoService.AEADManager {
	c.aeadOnce.Do(func() {
		c.aeadManager = cryptoService.NewAEADManager()
	})
	return c.aeadManager
}

// KeyManager returns the DEK wrap and unwrap service.
func (c *Container) KeyManager() cryptoService.KeyManager {
	c.keyManagerOnce.Do(func() {
		c.keyManager = cryptoService.NewKeyManager(c.AEADManager())
	})
	return c.keyManager
}

// DEKCache returns the in-memory workspace DEK cache.
func (c *Container) DEKCache() *keycache.Cache {
	c.dekCacheOnce.Do(func() {
		c.dekCache = keycache.New(c.config.DEKCacheTTL)
	})
	return c.dekCache
}

// WorkspaceKeyRepository returns the workspace key store for the configured
// database driver.
func (c *Container) WorkspaceKeyRepository() (cryptoUseCase.WorkspaceKeyRepository, error) {
	return c.workspaceKeyRepository.get(c.newWorkspaceKeyRepository)
}

// WorkspaceKeyUseCase returns the workspace key use case.
func (c *Container) WorkspaceKeyUseCase() (cryptoUseCase.WorkspaceKeyUseCase, error) {
	return c.workspaceKeyUseCase.get(c.newWorkspaceKeyUseCase)
}

// loadKeyring builds the keyring from environment variables. Without a KMS
// key URI the values are raw base64 keys; with one, each value is a KMS
// ciphertext decrypted through the keeper before use.
func (c *Container) loadKeyring() (*cryptoDomain.Keyring, error) {
	if c.config.KMSKeyURI == "" {
		keyring, err := cryptoDomain.LoadKeyringFromEnv()
		if err != nil {
			return nil, fmt.Errorf("failed to load keyring: %w", err)
		}
		return keyring, nil
	}

	ctx := context.Background()
	keeper, err := c.KMSService().OpenKeeper(ctx, c.config.KMSKeyURI)
	if err != nil {
		return nil, fmt.Errorf("failed to open KMS keeper: %w", err)
	}
	defer func() {
		if closeErr := keeper.Close(); closeErr != nil {
			c.Logger().Warn("failed to close KMS keeper", slog.Any("error", closeErr))
		}
	}()

	keyring, err := cryptoDomain.LoadKeyringFromKMS(ctx, keeper)
	if err != nil {
		return nil, fmt.Errorf("failed to load keyring through KMS: %w", err)
	}
	return keyring, nil
}

func (c *Container) newWorkspaceKeyRepository() (cryptoUseCase.WorkspaceKeyRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for workspace key repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return cryptoRepository.NewPostgreSQLWorkspaceKeyRepository(db), nil
	case "mysql":
		return cryptoRepository.NewMySQLWorkspaceKeyRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

// newWorkspaceKeyUseCase validates the wrap algorithm before touching any
// infrastructure, so a bad DEK_WRAP_ALGORITHM fails without a database.
func (c *Container) newWorkspaceKeyUseCase() (cryptoUseCase.WorkspaceKeyUseCase, error) {
	algorithm, err := cryptoDomain.ParseAlgorithm(c.config.DEKWrapAlgorithm)
	if err != nil {
		return nil, fmt.Errorf("invalid DEK wrap algorithm %q: %w", c.config.DEKWrapAlgorithm, err)
	}

	keyRepository, err := c.WorkspaceKeyRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace key repository for workspace key use case: %w", err)
	}

	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for workspace key use case: %w", err)
	}

	businessMetrics, err := c.BusinessMetrics()
	if err != nil {
		return nil, fmt.Errorf("failed to get business metrics for workspace key use case: %w", err)
	}

	baseUseCase := cryptoUseCase.NewWorkspaceKeyUseCase(
		keyRepository,
		c.KeyManager(),
		keyring,
		c.DEKCache(),
		businessMetrics,
		algorithm,
	)

	if c.config.MetricsEnabled {
		return cryptoUseCase.NewWorkspaceKeyUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
