package app

import (
	"fmt"

	backfillRepository "github.com/tickbase/fieldvault/internal/backfill/repository"
	backfillUseCase "github.com/tickbase/fieldvault/internal/backfill/usecase"
)

// BackfillRepository returns the backfill record store for the configured
// database driver.
func (c *Container) BackfillRepository() (backfillUseCase.BackfillRepository, error) {
	return c.backfillRepository.get(c.newBackfillRepository)
}

// BackfillUseCase returns the use case driving field migration runs.
func (c *Container) BackfillUseCase() (backfillUseCase.BackfillUseCase, error) {
	return c.backfillUseCase.get(c.newBackfillUseCase)
}

func (c *Container) newBackfillRepository() (backfillUseCase.BackfillRepository, error) {
	db, err := c.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database for backfill repository: %w", err)
	}

	switch c.config.DBDriver {
	case "postgres":
		return backfillRepository.NewPostgreSQLBackfillRepository(db), nil
	case "mysql":
		return backfillRepository.NewMySQLBackfillRepository(db), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", c.config.DBDriver)
	}
}

func (c *Container) newBackfillUseCase() (backfillUseCase.BackfillUseCase, error) {
	txManager, err := c.TxManager()
	if err != nil {
		return nil, fmt.Errorf("failed to get tx manager for backfill use case: %w", err)
	}

	backfillRepo, err := c.BackfillRepository()
	if err != nil {
		return nil, fmt.Errorf("failed to get backfill repository for backfill use case: %w", err)
	}

	fieldUseCase, err := c.FieldUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get field use case for backfill use case: %w", err)
	}

	baseUseCase := backfillUseCase.NewBackfillUseCase(
		txManager,
		backfillRepo,
		fieldUseCase,
		c.config.BackfillConcurrency,
		c.config.BackfillRateLimit,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for backfill use case: %w", err)
		}
		return backfillUseCase.NewBackfillUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}
