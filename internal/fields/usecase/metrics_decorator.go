package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tickbase/fieldvault/internal/metrics"
)

// fieldUseCaseWithMetrics decorates FieldUseCase with metrics instrumentation.
type fieldUseCaseWithMetrics struct {
	next    FieldUseCase
	metrics metrics.BusinessMetrics
}

// NewFieldUseCaseWithMetrics wraps a FieldUseCase with metrics recording.
func NewFieldUseCaseWithMetrics(useCase FieldUseCase, m metrics.BusinessMetrics) FieldUseCase {
	return &fieldUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// Encrypt records metrics for field encryption operations.
func (f *fieldUseCaseWithMetrics) Encrypt(ctx context.Context, workspaceID uuid.UUID, value string) (string, error) {
	start := time.Now()
	token, err := f.next.Encrypt(ctx, workspaceID, value)

	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "fields", "field_encrypt", status)
	f.metrics.RecordDuration(ctx, "fields", "field_encrypt", time.Since(start), status)

	return token, err
}

// Decrypt records metrics for field decryption operations.
func (f *fieldUseCaseWithMetrics) Decrypt(ctx context.Context, workspaceID uuid.UUID, value string) (string, error) {
	start := time.Now()
	plaintext, err := f.next.Decrypt(ctx, workspaceID, value)

	status := "success"
	if err != nil {
		status = "error"
	}

	f.metrics.RecordOperation(ctx, "fields", "field_decrypt", status)
	f.metrics.RecordDuration(ctx, "fields", "field_decrypt", time.Since(start), status)

	return plaintext, err
}

// Fingerprint records metrics for fingerprint derivations.
func (f *fieldUseCaseWithMetrics) Fingerprint(value string) []byte {
	start := time.Now()
	digest := f.next.Fingerprint(value)

	f.metrics.RecordOperation(context.Background(), "fields", "field_fingerprint", "success")
	f.metrics.RecordDuration(context.Background(), "fields", "field_fingerprint", time.Since(start), "success")

	return digest
}
