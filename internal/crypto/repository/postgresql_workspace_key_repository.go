package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	cryptoDomain "github.com/tickbase/fieldvault/internal/crypto/domain"
	"github.com/tickbase/fieldvault/internal/database"
	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

// PostgreSQLWorkspaceKeyRepository implements workspace key persistence for PostgreSQL.
// Uses native UUID and BYTEA types with transaction support via database.GetTx().
type PostgreSQLWorkspaceKeyRepository struct {
	db *sql.DB
}

// Create inserts a new workspace key, letting the first writer win.
//
// The insert uses ON CONFLICT DO NOTHING against the workspace_id primary key.
// When a concurrent writer already inserted a key for the workspace, no row is
// written and ErrConflict is returned; the caller must discard its local DEK
// and read back the canonical row.
func (p *PostgreSQLWorkspaceKeyRepository) Create(
	ctx context.Context,
	key *cryptoDomain.WorkspaceKey,
) error {
	querier := database.GetTx(ctx, p.db)

	query := `INSERT INTO workspace_keys (workspace_id, algorithm, encrypted_key, nonce, version, created_at)
			  VALUES ($1, $2, $3, $4, $5, $6)
			  ON CONFLICT (workspace_id) DO NOTHING`

	result, err := querier.ExecContext(
		ctx,
		query,
		key.WorkspaceID,
		key.Algorithm,
		key.EncryptedKey,
		key.Nonce,
		key.Version,
		key.CreatedAt,
	)
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrStore, "failed to create workspace key: %v", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Wrapf(apperrors.ErrStore, "failed to create workspace key: %v", err)
	}
	if rows == 0 {
		return apperrors.ErrConflict
	}

	return nil
}

// Get retrieves a workspace key by workspace ID.
func (p *PostgreSQLWorkspaceKeyRepository) Get(
	ctx context.Context,
	workspaceID uuid.UUID,
) (*cryptoDomain.WorkspaceKey, error) {
	querier := database.GetTx(ctx, p.db)

	query := `SELECT workspace_id, algorithm, encrypted_key, nonce, version, created_at
			  FROM workspace_keys
			  WHERE workspace_id = $1`

	var key cryptoDomain.WorkspaceKey
	err := querier.QueryRowContext(ctx, query, workspaceID).Scan(
		&key.WorkspaceID,
		&key.Algorithm,
		&key.EncryptedKey,
		&key.Nonce,
		&key.Version,
		&key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, cryptoDomain.ErrWorkspaceKeyNotFound
		}
		return nil, apperrors.Wrapf(apperrors.ErrStore, "failed to get workspace key: %v", err)
	}

	return &key, nil
}

// NewPostgreSQLWorkspaceKeyRepository creates a new PostgreSQL workspace key repository.
func NewPostgreSQLWorkspaceKeyRepository(db *sql.DB) *PostgreSQLWorkspaceKeyRepository {
	return &PostgreSQLWorkspaceKeyRepository{db: db}
}
