// Package repository implements record-store access for the backfill worker.
//
// Identifiers in every query come from a FieldSpec the use case has already
// validated, so they are interpolated directly; only values travel as
// placeholders. ID columns are compared and ordered as text: the cursor
// needs a consistent total order, not a numeric one.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	backfillDomain "github.com/tickbase/fieldvault/internal/backfill/domain"
	"github.com/tickbase/fieldvault/internal/database"
	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

// PostgreSQLBackfillRepository implements record-store access for PostgreSQL.
// Uses transaction support via database.GetTx().
type PostgreSQLBackfillRepository struct {
	db *sql.DB
}

// ListPending returns the IDs of records after the cursor whose source column
// holds a value and whose target column is still empty, ordered by ID.
func (p *PostgreSQLBackfillRepository) ListPending(
	ctx context.Context,
	spec *backfillDomain.FieldSpec,
	afterID string,
	limit int,
) ([]string, error) {
	querier := database.GetTx(ctx, p.db)

	query := fmt.Sprintf(
		`SELECT %s::text FROM %s
		 WHERE %s IS NOT NULL AND %s <> ''
		   AND (%s IS NULL OR %s = '')
		   AND %s::text > $1
		 ORDER BY %s::text
		 LIMIT $2`,
		spec.IDColumn, spec.Table,
		spec.SourceColumn, spec.SourceColumn,
		spec.TargetColumn, spec.TargetColumn,
		spec.IDColumn,
		spec.IDColumn,
	)

	rows, err := querier.QueryContext(ctx, query, afterID, limit)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to list pending records: %v", err)
	}
	defer func() { _ = rows.Close() }()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to scan pending record id: %v", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to list pending records: %v", err)
	}

	return ids, nil
}

// ClaimPending re-reads one record under a row lock inside the caller's
// transaction. The returned values reflect committed state, so a record
// another worker already migrated comes back with its target populated and
// the caller can skip it.
func (p *PostgreSQLBackfillRepository) ClaimPending(
	ctx context.Context,
	spec *backfillDomain.FieldSpec,
	recordID string,
) (*backfillDomain.PendingRecord, error) {
	querier := database.GetTx(ctx, p.db)

	query := fmt.Sprintf(
		`SELECT %s::text, %s, COALESCE(%s, ''), COALESCE(%s, '')
		 FROM %s
		 WHERE %s::text = $1
		 FOR UPDATE`,
		spec.IDColumn, spec.WorkspaceIDColumn,
		spec.SourceColumn, spec.TargetColumn,
		spec.Table,
		spec.IDColumn,
	)

	var record backfillDomain.PendingRecord
	err := querier.QueryRowContext(ctx, query, recordID).Scan(
		&record.ID,
		&record.WorkspaceID,
		&record.Source,
		&record.Target,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "record %s no longer exists", recordID)
		}
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to claim record %s: %v", recordID, err)
	}

	return &record, nil
}

// SaveEncrypted writes the token (and fingerprint when the spec names a
// column) and clears the source column in one UPDATE.
func (p *PostgreSQLBackfillRepository) SaveEncrypted(
	ctx context.Context,
	spec *backfillDomain.FieldSpec,
	recordID string,
	token string,
	fingerprint []byte,
) error {
	querier := database.GetTx(ctx, p.db)

	var (
		query string
		args  []any
	)
	if spec.FingerprintColumn != "" {
		query = fmt.Sprintf(
			`UPDATE %s SET %s = $1, %s = $2, %s = '' WHERE %s::text = $3`,
			spec.Table, spec.TargetColumn, spec.FingerprintColumn, spec.SourceColumn, spec.IDColumn,
		)
		args = []any{token, fingerprint, recordID}
	} else {
		query = fmt.Sprintf(
			`UPDATE %s SET %s = $1, %s = '' WHERE %s::text = $2`,
			spec.Table, spec.TargetColumn, spec.SourceColumn, spec.IDColumn,
		)
		args = []any{token, recordID}
	}

	result, err := querier.ExecContext(ctx, query, args...)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrStore, "failed to save encrypted record %s: %v", recordID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrStore, "failed to save encrypted record %s: %v", recordID, err)
	}
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "record %s no longer exists", recordID)
	}

	return nil
}

// NewPostgreSQLBackfillRepository creates a new PostgreSQL backfill repository.
func NewPostgreSQLBackfillRepository(db *sql.DB) *PostgreSQLBackfillRepository {
	return &PostgreSQLBackfillRepository{db: db}
}
