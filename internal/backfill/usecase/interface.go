// Package usecase implements the business logic for migrating plaintext
// columns to encrypted ones. A run walks a table in ID order, re-encrypts
// each pending record under its workspace key, and collects per-record
// failures without ever aborting the batch, so a run over millions of rows
// survives a handful of poisoned ones.
package usecase

import (
	"context"

	backfillDomain "github.com/tickbase/fieldvault/internal/backfill/domain"
)

// BackfillRepository reads and updates the records targeted by a backfill
// run, implemented for PostgreSQL and MySQL. Table and column names come
// from a validated FieldSpec; record values are always bound as query
// parameters.
type BackfillRepository interface {
	// ListPending returns the next page of record IDs, in ascending textual
	// order, still holding a non-empty source column and an empty target
	// column. Only IDs strictly greater than afterID are returned, so the
	// caller can resume after the last ID of each page. An empty page means
	// no records remain.
	ListPending(ctx context.Context, spec *backfillDomain.FieldSpec, afterID string, limit int) ([]string, error)

	// ClaimPending locks a record and returns its current column values. It
	// must run inside a transaction (database.GetTx) for the row lock to
	// outlive the call. The re-read is what makes the run idempotent: a
	// record another worker already migrated comes back with a populated
	// target. A record that vanished since listing is apperrors.ErrNotFound.
	ClaimPending(ctx context.Context, spec *backfillDomain.FieldSpec, recordID string) (*backfillDomain.PendingRecord, error)

	// SaveEncrypted writes the encrypted token, the fingerprint when the
	// spec names a fingerprint column, and clears the source column, all in
	// one statement keyed by record ID, inside the transaction carried by
	// the context. No row updated is apperrors.ErrNotFound.
	SaveEncrypted(ctx context.Context, spec *backfillDomain.FieldSpec, recordID string, token string, fingerprint []byte) error
}

// BackfillUseCase drives a migration run. Re-running over the same table is
// safe: records whose target is populated or whose source already carries a
// current-scheme token are skipped, never double-encrypted. A single
// record's failure is recorded in the Result and never aborts the run:
//
//	result, err := useCase.Run(ctx, spec, false)
//	if err != nil {
//	    return err
//	}
//	for _, recordErr := range result.Errors {
//	    log.Warn("record failed", "id", recordErr.RecordID)
//	}
type BackfillUseCase interface {
	// Run migrates every pending record matched by the spec, validating the
	// spec before any work. With dryRun set it claims, decrypts, and
	// re-encrypts records but writes nothing back, which verifies key
	// coverage before a real run. Context cancellation stops between
	// records and returns the partial Result together with the context's
	// error.
	Run(ctx context.Context, spec *backfillDomain.FieldSpec, dryRun bool) (*backfillDomain.Result, error)
}
