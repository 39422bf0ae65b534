package database

import (
	"context"
	"database/sql"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tickbase/fieldvault/internal/errors"
)

func newMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestWithTx(t *testing.T) {
	t.Run("commits and carries the tx in context", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		var sawTx bool
		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			_, sawTx = ctx.Value(txKey{}).(*sql.Tx)
			return nil
		})

		require.NoError(t, err)
		assert.True(t, sawTx, "fn should see the transaction in its context")
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rolls back when fn fails", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback()

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			return assert.AnError
		})

		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin failure never runs fn", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin().WillReturnError(assert.AnError)

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			t.Fatal("fn must not run when begin fails")
			return nil
		})

		assert.ErrorIs(t, err, apperrors.ErrStore)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("commit failure is a store error", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit().WillReturnError(assert.AnError)

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			return nil
		})

		assert.ErrorIs(t, err, apperrors.ErrStore)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback failure keeps the fn error visible", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectRollback().WillReturnError(assert.AnError)

		fnErr := apperrors.New("fn failed")
		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			return fnErr
		})

		assert.ErrorIs(t, err, fnErr)
		assert.ErrorIs(t, err, assert.AnError)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGetTx(t *testing.T) {
	t.Run("inside WithTx it returns the transaction", func(t *testing.T) {
		db, mock := newMockDB(t)
		mock.ExpectBegin()
		mock.ExpectCommit()

		err := NewTxManager(db).WithTx(context.Background(), func(ctx context.Context) error {
			assert.IsType(t, &sql.Tx{}, GetTx(ctx, db))
			return nil
		})

		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("outside a transaction it falls back to the pool", func(t *testing.T) {
		db, _ := newMockDB(t)

		querier := GetTx(context.Background(), db)
		assert.Equal(t, db, querier)
	})
}
