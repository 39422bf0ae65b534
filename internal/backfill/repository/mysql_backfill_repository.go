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

// MySQLBackfillRepository implements record-store access for MySQL.
// Workspace IDs are stored as BINARY(16); ID columns are cast to CHAR for
// the textual cursor comparison.
type MySQLBackfillRepository struct {
	db *sql.DB
}

// ListPending returns the IDs of records after the cursor whose source column
// holds a value and whose target column is still empty, ordered by ID.
func (m *MySQLBackfillRepository) ListPending(
	ctx context.Context,
	spec *backfillDomain.FieldSpec,
	afterID string,
	limit int,
) ([]string, error) {
	querier := database.GetTx(ctx, m.db)

	query := fmt.Sprintf(
		`SELECT CAST(%s AS CHAR) FROM %s
		 WHERE %s IS NOT NULL AND %s <> ''
		   AND (%s IS NULL OR %s = '')
		   AND CAST(%s AS CHAR) > ?
		 ORDER BY CAST(%s AS CHAR)
		 LIMIT ?`,
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
// transaction.
func (m *MySQLBackfillRepository) ClaimPending(
	ctx context.Context,
	spec *backfillDomain.FieldSpec,
	recordID string,
) (*backfillDomain.PendingRecord, error) {
	querier := database.GetTx(ctx, m.db)

	query := fmt.Sprintf(
		`SELECT CAST(%s AS CHAR), %s, COALESCE(%s, ''), COALESCE(%s, '')
		 FROM %s
		 WHERE CAST(%s AS CHAR) = ?
		 FOR UPDATE`,
		spec.IDColumn, spec.WorkspaceIDColumn,
		spec.SourceColumn, spec.TargetColumn,
		spec.Table,
		spec.IDColumn,
	)

	var record backfillDomain.PendingRecord
	var workspaceIDBytes []byte

	err := querier.QueryRowContext(ctx, query, recordID).Scan(
		&record.ID,
		&workspaceIDBytes,
		&record.Source,
		&record.Target,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "record %s no longer exists", recordID)
		}
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to claim record %s: %v", recordID, err)
	}

	if err := record.WorkspaceID.UnmarshalBinary(workspaceIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal workspace id")
	}

	return &record, nil
}

// SaveEncrypted writes the token (and fingerprint when the spec names a
// column) and clears the source column in one UPDATE.
func (m *MySQLBackfillRepository) SaveEncrypted(
	ctx context.Context,
	spec *backfillDomain.FieldSpec,
	recordID string,
	token string,
	fingerprint []byte,
) error {
	querier := database.GetTx(ctx, m.db)

	var (
		query string
		args  []any
	)
	if spec.FingerprintColumn != "" {
		query = fmt.Sprintf(
			`UPDATE %s SET %s = ?, %s = ?, %s = '' WHERE CAST(%s AS CHAR) = ?`,
			spec.Table, spec.TargetColumn, spec.FingerprintColumn, spec.SourceColumn, spec.IDColumn,
		)
		args = []any{token, fingerprint, recordID}
	} else {
		query = fmt.Sprintf(
			`UPDATE %s SET %s = ?, %s = '' WHERE CAST(%s AS CHAR) = ?`,
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

// NewMySQLBackfillRepository creates a new MySQL backfill repository.
func NewMySQLBackfillRepository(db *sql.DB) *MySQLBackfillRepository {
	return &MySQLBackfillRepository{db: db}
}
