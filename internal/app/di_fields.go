package app

import (
	"fmt"

	cryptoService "github.com/tickbase/fieldvault/internal/crypto/service"
	fieldsHTTP "github.com/tickbase/fieldvault/internal/fields/http"
	fieldsUseCase "github.com/tickbase/fieldvault/internal/fields/usecase"
)

// Fingerprinter returns the blind-index fingerprint service.
func (c *Container) Fingerprinter() (cryptoService.Fingerprinter, error) {
	return c.fingerprinter.get(c.newFingerprinter)
}

// FieldUseCase returns the field encryption use case.
func (c *Container) FieldUseCase() (fieldsUseCase.FieldUseCase, error) {
	return c.fieldUseCase.get(c.newFieldUseCase)
}

// FieldHandler returns the HTTP handler for field encryption operations.
func (c *Container) FieldHandler() (*fieldsHTTP.FieldHandler, error) {
	return c.fieldHandler.get(c.newFieldHandler)
}

func (c *Container) newFingerprinter() (cryptoService.Fingerprinter, error) {
	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for fingerprinter: %w", err)
	}

	fingerprinter, err := cryptoService.NewFingerprint(keyring.IndexKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create fingerprint service: %w", err)
	}
	return fingerprinter, nil
}

func (c *Container) newFieldUseCase() (fieldsUseCase.FieldUseCase, error) {
	keyUseCase, err := c.WorkspaceKeyUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get workspace key use case for field use case: %w", err)
	}

	fingerprinter, err := c.Fingerprinter()
	if err != nil {
		return nil, fmt.Errorf("failed to get fingerprinter for field use case: %w", err)
	}

	keyring, err := c.Keyring()
	if err != nil {
		return nil, fmt.Errorf("failed to get keyring for field use case: %w", err)
	}

	baseUseCase := fieldsUseCase.NewFieldUseCase(
		keyUseCase,
		c.AEADManager(),
		fingerprinter,
		keyring,
		c.config.RequireEncryptedFields,
	)

	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for field use case: %w", err)
		}
		return fieldsUseCase.NewFieldUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

func (c *Container) newFieldHandler() (*fieldsHTTP.FieldHandler, error) {
	fieldUseCase, err := c.FieldUseCase()
	if err != nil {
		return nil, fmt.Errorf("failed to get field use case for field handler: %w", err)
	}

	return fieldsHTTP.NewFieldHandler(fieldUseCase, c.Logger()), nil
}
