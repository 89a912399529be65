package db

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/yungbote/supportchat-backend/internal/pkg/dbctx"
)

func TestTransactRetriesDeadlocks(t *testing.T) {
	gdb, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)
	dbc := dbctx.Context{Ctx: context.Background()}

	calls := 0
	err = Transact(dbc, gdb, func(inner dbctx.Context) error {
		calls++
		require.NotNil(t, inner.Tx)
		if calls < 3 {
			return &pgconn.PgError{Code: "40P01"}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Transact(dbc, gdb, func(dbctx.Context) error {
		calls++
		return &pgconn.PgError{Code: "40001"}
	})
	assert.True(t, IsRetryable(err))
	assert.Equal(t, txAttempts, calls)

	calls = 0
	boom := errors.New("boom")
	err = Transact(dbc, gdb, func(dbctx.Context) error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestTransactNestedRunsOnce(t *testing.T) {
	gdb, err := OpenSQLite(":memory:", nil)
	require.NoError(t, err)

	calls := 0
	err = gdb.Transaction(func(tx *gorm.DB) error {
		return Transact(dbctx.Context{Ctx: context.Background(), Tx: tx}, gdb, func(dbctx.Context) error {
			calls++
			return &pgconn.PgError{Code: "40P01"}
		})
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
