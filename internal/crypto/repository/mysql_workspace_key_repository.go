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

// MySQLWorkspaceKeyRepository implements workspace key persistence for MySQL.
// Uses BINARY(16) for UUIDs and BLOB for binary data with transaction support.
type MySQLWorkspaceKeyRepository struct {
	db *sql.DB
}

// Create inserts a new workspace key, letting the first writer win.
//
// The insert uses INSERT IGNORE against the workspace_id primary key. When a
// concurrent writer already inserted a key for the workspace, no row is written
// and ErrConflict is returned; the caller must discard its local DEK and read
// back the canonical row.
func (m *MySQLWorkspaceKeyRepository) Create(
	ctx context.Context,
	key *cryptoDomain.WorkspaceKey,
) error {
	querier := database.GetTx(ctx, m.db)

	query := `INSERT IGNORE INTO workspace_keys (workspace_id, algorithm, encrypted_key, nonce, version, created_at)
			  VALUES (?, ?, ?, ?, ?, ?)`

	workspaceID, err := key.WorkspaceID.MarshalBinary()
	if err != nil {
		return apperrors.Wrap(err, "failed to marshal workspace id")
	}

	result, err := querier.ExecContext(
		ctx,
		query,
		workspaceID,
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
func (m *MySQLWorkspaceKeyRepository) Get(
	ctx context.Context,
	workspaceID uuid.UUID,
) (*cryptoDomain.WorkspaceKey, error) {
	querier := database.GetTx(ctx, m.db)

	query := `SELECT workspace_id, algorithm, encrypted_key, nonce, version, created_at
			  FROM workspace_keys
			  WHERE workspace_id = ?`

	id, err := workspaceID.MarshalBinary()
	if err != nil {
		return nil, apperrors.Wrap(err, "failed to marshal workspace id")
	}

	var key cryptoDomain.WorkspaceKey
	var workspaceIDBytes []byte

	err = querier.QueryRowContext(ctx, query, id).Scan(
		&workspaceIDBytes,
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

	if err := key.WorkspaceID.UnmarshalBinary(workspaceIDBytes); err != nil {
		return nil, apperrors.Wrap(err, "failed to unmarshal workspace id")
	}

	return &key, nil
}

// NewMySQLWorkspaceKeyRepository creates a new MySQL workspace key repository.
func NewMySQLWorkspaceKeyRepository(db *sql.DB) *MySQLWorkspaceKeyRepository {
	return &MySQLWorkspaceKeyRepository{db: db}
}
