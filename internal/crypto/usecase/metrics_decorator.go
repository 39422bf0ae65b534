package usecase

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/tickbase/fieldvault/internal/metrics"
)

// workspaceKeyUseCaseWithMetrics decorates WorkspaceKeyUseCase with metrics
// instrumentation.
type workspaceKeyUseCaseWithMetrics struct {
	next    WorkspaceKeyUseCase
	metrics metrics.BusinessMetrics
}

// NewWorkspaceKeyUseCaseWithMetrics wraps a WorkspaceKeyUseCase with metrics
// recording.
func NewWorkspaceKeyUseCaseWithMetrics(useCase WorkspaceKeyUseCase, m metrics.BusinessMetrics) WorkspaceKeyUseCase {
	return &workspaceKeyUseCaseWithMetrics{
		next:    useCase,
		metrics: m,
	}
}

// GetDEK records metrics for DEK retrieval operations.
func (w *workspaceKeyUseCaseWithMetrics) GetDEK(ctx context.Context, workspaceID uuid.UUID) ([]byte, error) {
	start := time.Now()
	dek, err := w.next.GetDEK(ctx, workspaceID)

	status := "success"
	if err != nil {
		status = "error"
	}

	w.metrics.RecordOperation(ctx, "keys", "dek_get", status)
	w.metrics.RecordDuration(ctx, "keys", "dek_get", time.Since(start), status)

	return dek, err
}
