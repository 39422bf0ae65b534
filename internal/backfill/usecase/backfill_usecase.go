package usecase

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	backfillDomain "github.com/tickbase/fieldvault/internal/backfill/domain"
	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	"github.com/tickbase/fieldvault/internal/database"
	apperrors "github.com/tickbase/fieldvault/internal/errors"
	fieldsUseCase "github.com/tickbase/fieldvault/internal/fields/usecase"
)

// backfillUseCase implements the BackfillUseCase interface.
type backfillUseCase struct {
	txManager    database.TxManager
	backfillRepo BackfillRepository
	fieldUseCase fieldsUseCase.FieldUseCase
	concurrency  int
	limiter      *rate.Limiter
}

// Run migrates every pending record matched by the spec, page by page.
func (u *backfillUseCase) Run(ctx context.Context, spec *backfillDomain.FieldSpec, dryRun bool) (*backfillDomain.Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	result := &backfillDomain.Result{}
	var mu sync.Mutex

	afterID := ""
	for {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		ids, err := u.backfillRepo.ListPending(ctx, spec, afterID, spec.BatchSize)
		if err != nil {
			return result, err
		}
		if len(ids) == 0 {
			return result, nil
		}

		group, groupCtx := errgroup.WithContext(ctx)
		group.SetLimit(u.concurrency)
		for _, recordID := range ids {
			group.Go(func() error {
				if err := u.limiter.Wait(groupCtx); err != nil {
					return err
				}
				return u.processRecord(groupCtx, spec, recordID, dryRun, &mu, result)
			})
		}
		if err := group.Wait(); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return result, ctxErr
			}
			return result, err
		}

		// The cursor moves past failed records too. Their errors are already
		// collected, and retrying them in the same run would loop forever.
		afterID = ids[len(ids)-1]
	}
}

// processRecord migrates a single record inside its own transaction. Data
// errors are appended to the result; only cancellation propagates, so one
// broken record never takes the run down.
func (u *backfillUseCase) processRecord(ctx context.Context, spec *backfillDomain.FieldSpec, recordID string, dryRun bool, mu *sync.Mutex, result *backfillDomain.Result) error {
	mu.Lock()
	result.Scanned++
	mu.Unlock()

	err := u.txManager.WithTx(ctx, func(txCtx context.Context) error {
		record, err := u.backfillRepo.ClaimPending(txCtx, spec, recordID)
		if err != nil {
			if apperrors.Is(err, apperrors.ErrNotFound) {
				mu.Lock()
				result.Skipped++
				mu.Unlock()
				return nil
			}
			return err
		}

		if alreadyMigrated(record) {
			mu.Lock()
			result.Skipped++
			mu.Unlock()
			return nil
		}

		// Decrypt tolerates plaintext and legacy tokens alike, so the same
		// path migrates both.
		plaintext, err := u.fieldUseCase.Decrypt(ctx, record.WorkspaceID, record.Source)
		if err != nil {
			return err
		}

		// The encryption step runs on the outer context on purpose. A
		// workspace key minted inside this transaction would roll back with
		// the record while surviving in the process cache, and every later
		// value encrypted from that cache would be unrecoverable.
		token, err := u.fieldUseCase.Encrypt(ctx, record.WorkspaceID, plaintext)
		if err != nil {
			return err
		}

		var fingerprint []byte
		if spec.FingerprintColumn != "" {
			fingerprint = u.fieldUseCase.Fingerprint(plaintext)
		}

		if !dryRun {
			if err := u.backfillRepo.SaveEncrypted(txCtx, spec, record.ID, token, fingerprint); err != nil {
				return err
			}
		}

		mu.Lock()
		result.Processed++
		mu.Unlock()
		return nil
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		mu.Lock()
		result.Errors = append(result.Errors, backfillDomain.RecordError{RecordID: recordID, Message: err.Error()})
		mu.Unlock()
	}
	return nil
}

// alreadyMigrated reports whether a claimed record needs no work: the target
// is populated, the source was cleared, or the source already carries a
// current-scheme token.
func alreadyMigrated(record *backfillDomain.PendingRecord) bool {
	if record.Target != "" || record.Source == "" {
		return true
	}
	token, err := cryptoDomain.ParseFieldToken(record.Source)
	return err == nil && token.Version == cryptoDomain.TokenVersionV1
}

// NewBackfillUseCase creates a new backfill use case.
//
// concurrency bounds the number of records migrated in parallel within a
// batch. recordsPerSecond paces the run across the whole table; zero means
// unlimited.
func NewBackfillUseCase(
	txManager database.TxManager,
	backfillRepo BackfillRepository,
	fieldUseCase fieldsUseCase.FieldUseCase,
	concurrency int,
	recordsPerSecond float64,
) BackfillUseCase {
	if concurrency < 1 {
		concurrency = 1
	}
	limit := rate.Inf
	if recordsPerSecond > 0 {
		limit = rate.Limit(recordsPerSecond)
	}
	return &backfillUseCase{
		txManager:    txManager,
		backfillRepo: backfillRepo,
		fieldUseCase: fieldUseCase,
		concurrency:  concurrency,
		limiter:      rate.NewLimiter(limit, concurrency),
	}
}
