package usecase

import (
	"context"
	"time"

	backfillDomain "github.com/tickbase/fieldvault/internal/backfill/domain"
	"github.com/tickbase/fieldvault/internal/metrics"
)

// backfillUseCaseWithMetrics wraps BackfillUseCase with business metrics.
type backfillUseCaseWithMetrics struct {
	next    BackfillUseCase
	metrics metrics.BusinessMetrics
}

// Run delegates to the wrapped use case and records metrics.
func (u *backfillUseCaseWithMetrics) Run(ctx context.Context, spec *backfillDomain.FieldSpec, dryRun bool) (*backfillDomain.Result, error) {
	start := time.Now()
	result, err := u.next.Run(ctx, spec, dryRun)

	status := "success"
	if err != nil {
		status = "error"
	}
	u.metrics.RecordOperation(ctx, "backfill", "backfill_run", status)
	u.metrics.RecordDuration(ctx, "backfill", "backfill_run", time.Since(start), status)

	return result, err
}

// NewBackfillUseCaseWithMetrics creates a metrics decorator around a
// BackfillUseCase.
func NewBackfillUseCaseWithMetrics(next BackfillUseCase, businessMetrics metrics.BusinessMetrics) BackfillUseCase {
	return &backfillUseCaseWithMetrics{
		next:    next,
		metrics: businessMetrics,
	}
}
