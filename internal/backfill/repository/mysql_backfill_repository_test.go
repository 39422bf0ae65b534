package repository

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

func TestMySQLBackfillRepository_ListPending(t *testing.T) {
	ctx := context.Background()

	t.Run("returns ids in cursor order", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectQuery(`(?s)SELECT CAST\(id AS CHAR\) FROM clients.*WHERE email IS NOT NULL AND email <> ''.*\(email_enc IS NULL OR email_enc = ''\).*ORDER BY CAST\(id AS CHAR\).*LIMIT`).
			WithArgs("", 100).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).
				AddRow("rec-001").
				AddRow("rec-002"))

		ids, err := repo.ListPending(ctx, testSpec(), "", 100)

		require.NoError(t, err)
		assert.Equal(t, []string{"rec-001", "rec-002"}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("empty page means no pending records", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectQuery(`SELECT CAST\(id AS CHAR\) FROM clients`).
			WithArgs("rec-042", 50).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		ids, err := repo.ListPending(ctx, testSpec(), "rec-042", 50)

		require.NoError(t, err)
		assert.Empty(t, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("query failures wrap the store error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectQuery(`SELECT CAST\(id AS CHAR\) FROM clients`).
			WillReturnError(sql.ErrConnDone)

		ids, err := repo.ListPending(ctx, testSpec(), "", 100)

		assert.ErrorIs(t, err, apperrors.ErrStore)
		assert.Nil(t, ids)
	})
}

func TestMySQLBackfillRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()

	t.Run("returns the locked record", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)
		workspaceID := uuid.Must(uuid.NewV7())
		workspaceIDBytes, err := workspaceID.MarshalBinary()
		require.NoError(t, err)

		mock.ExpectQuery(`(?s)SELECT CAST\(id AS CHAR\), workspace_id, COALESCE\(email, ''\), COALESCE\(email_enc, ''\).*FROM clients.*FOR UPDATE`).
			WithArgs("rec-001").
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "source", "target"}).
				AddRow("rec-001", workspaceIDBytes, "alice@example.com", ""))

		record, err := repo.ClaimPending(ctx, testSpec(), "rec-001")

		require.NoError(t, err)
		assert.Equal(t, "rec-001", record.ID)
		assert.Equal(t, workspaceID, record.WorkspaceID)
		assert.Equal(t, "alice@example.com", record.Source)
		assert.Empty(t, record.Target)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rejects malformed workspace id bytes", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("rec-001").
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "source", "target"}).
				AddRow("rec-001", []byte{0x01, 0x02}, "alice@example.com", ""))

		record, err := repo.ClaimPending(ctx, testSpec(), "rec-001")

		assert.Error(t, err)
		assert.Nil(t, record)
	})

	t.Run("missing record is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectQuery(`FOR UPDATE`).
			WithArgs("rec-404").
			WillReturnRows(sqlmock.NewRows([]string{"id", "workspace_id", "source", "target"}))

		record, err := repo.ClaimPending(ctx, testSpec(), "rec-404")

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
		assert.Nil(t, record)
	})
}

func TestMySQLBackfillRepository_SaveEncrypted(t *testing.T) {
	ctx := context.Background()
	token := "enc:v1:aXZpdml2aXZpdg==:Y2lwaGVydGV4dA==:dGFndGFndGFndGFndGFn"
	fingerprint := []byte{0xab, 0xcd}

	t.Run("writes token and fingerprint and clears the source", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectExec(`UPDATE clients SET email_enc = \?, email_fpr = \?, email = '' WHERE CAST\(id AS CHAR\) = \?`).
			WithArgs(token, fingerprint, "rec-001").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveEncrypted(ctx, testSpec(), "rec-001", token, fingerprint)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("omits the fingerprint column when the spec has none", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)
		spec := testSpec()
		spec.FingerprintColumn = ""

		mock.ExpectExec(`UPDATE clients SET email_enc = \?, email = '' WHERE CAST\(id AS CHAR\) = \?`).
			WithArgs(token, "rec-001").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveEncrypted(ctx, spec, "rec-001", token, nil)

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("zero updated rows is not found", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectExec(`UPDATE clients SET email_enc`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveEncrypted(ctx, testSpec(), "rec-404", token, fingerprint)

		assert.ErrorIs(t, err, apperrors.ErrNotFound)
	})

	t.Run("exec failures wrap the store error", func(t *testing.T) {
		db, mock := newMockDB(t)
		repo := NewMySQLBackfillRepository(db)

		mock.ExpectExec(`UPDATE clients SET email_enc`).
			WillReturnError(sql.ErrConnDone)

		err := repo.SaveEncrypted(ctx, testSpec(), "rec-001", token, fingerprint)

		assert.ErrorIs(t, err, apperrors.ErrStore)
	})
}
