package domain

import (
	"github.com/google/uuid"
)

// PendingRecord is one row eligible for migration, read back under lock
// inside the record's transaction.
type PendingRecord struct {
	// ID is the record's primary key rendered as a string.
	ID string
	// WorkspaceID scopes encryption to the owning tenant.
	WorkspaceID uuid.UUID
	// Source is the current column value: plaintext or a retired token.
	Source string
	// Target is the encrypted column value, non-empty once migrated.
	Target string
}

// RecordError captures one record's failure without aborting the run.
type RecordError struct {
	// RecordID identifies the failed record.
	RecordID string
	// Message is the failure description. Record errors are reported, never
	// silently dropped: an operator rerun should find the same records
	// still pending.
	Message string
}

// Result summarizes a backfill run.
type Result struct {
	// Scanned is the number of records the run examined.
	Scanned int
	// Processed is the number of records successfully re-encrypted.
	Processed int
	// Skipped counts records that needed no work: already migrated,
	// concurrently claimed, or already carrying a current token.
	Skipped int
	// Errors lists per-record failures. len(Errors)+Processed+Skipped equals
	// Scanned when the run completes without cancellation.
	Errors []RecordError
}
