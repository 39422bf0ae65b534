// Package domain defines the entities for the field encryption backfill.
//
// A backfill run walks one table column by cursor, re-encrypts every value
// that is not yet a current-scheme token, and records per-record failures
// without stopping. The FieldSpec names the table and columns involved; it
// is operator input and validated accordingly.
package domain

import (
	validation "github.com/jellydator/validation"

	customValidation "github.com/tickbase/fieldvault/internal/validation"
)

// FieldSpec describes one encrypted column migration: where the plaintext
// lives, where the token goes, and how records are identified and scoped.
type FieldSpec struct {
	// Table is the table holding the column to migrate.
	Table string
	// IDColumn is the primary key column, used as the pagination cursor.
	// Values are treated as opaque strings and compared with the column's
	// native ordering.
	IDColumn string
	// WorkspaceIDColumn holds the owning workspace UUID for each record.
	WorkspaceIDColumn string
	// SourceColumn holds the current value: plaintext or a retired-scheme
	// token. Cleared once the record is migrated.
	SourceColumn string
	// TargetColumn receives the current-scheme token.
	TargetColumn string
	// FingerprintColumn receives the blind-index digest. Empty means the
	// field is not searchable and no fingerprint is written.
	FingerprintColumn string
	// BatchSize is the number of records fetched per cursor page.
	BatchSize int
}

// Validate checks that the spec names sane identifiers and a workable batch
// size. Identifier validation is the injection guard: every name here is
// interpolated into SQL, so only plain identifiers are allowed through.
func (s *FieldSpec) Validate() error {
	return customValidation.WrapValidationError(validation.ValidateStruct(s,
		validation.Field(&s.Table,
			validation.Required,
			customValidation.Identifier,
		),
		validation.Field(&s.IDColumn,
			validation.Required,
			customValidation.Identifier,
		),
		validation.Field(&s.WorkspaceIDColumn,
			validation.Required,
			customValidation.Identifier,
		),
		validation.Field(&s.SourceColumn,
			validation.Required,
			customValidation.Identifier,
		),
		validation.Field(&s.TargetColumn,
			validation.Required,
			customValidation.Identifier,
			validation.By(s.distinctFromSource),
		),
		validation.Field(&s.FingerprintColumn,
			customValidation.Identifier,
		),
		validation.Field(&s.BatchSize,
			validation.Required,
			validation.Min(1),
			validation.Max(10000),
		),
	))
}

// distinctFromSource rejects specs that would write the token over the value
// it was derived from inside a single UPDATE.
func (s *FieldSpec) distinctFromSource(value interface{}) error {
	target, _ := value.(string)
	if target != "" && target == s.SourceColumn {
		return validation.NewError(
			"validation_distinct_columns",
			"must differ from the source column",
		)
	}
	return nil
}
