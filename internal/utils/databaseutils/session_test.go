package databaseutils

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSQLExecutor_FallsBackToDB(t *testing.T) {
	db := &sql.DB{}

	executor := GetSQLExecutor(context.Background(), db)

	assert.Same(t, db, executor)
}

func TestGetSQLExecutor_UsesTransactionFromContext(t *testing.T) {
	tx := &sql.Tx{}
	ctx := context.WithValue(context.Background(), txKey{}, tx)

	executor := GetSQLExecutor(ctx, &sql.DB{})

	assert.Same(t, tx, executor)
}

func TestGetSQLExecutor_PanicsOnForeignValue(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey{}, "not a tx")

	assert.Panics(t, func() { GetSQLExecutor(ctx, &sql.DB{}) })
}

func TestDoTransactionally_JoinsExistingTransaction(t *testing.T) {
	tx := &sql.Tx{}
	ctx := context.WithValue(context.Background(), txKey{}, tx)
	session := NewSession(nil, nil)

	var seen SQLExecutor
	err := session.DoTransactionally(ctx, func(txCtx context.Context) error {
		seen = GetSQLExecutor(txCtx, nil)
		return nil
	})

	require.NoError(t, err)
	assert.Same(t, tx, seen)
}

func TestGenericDoTransactionally_ReturnsZeroOnError(t *testing.T) {
	ctx := context.WithValue(context.Background(), txKey{}, &sql.Tx{})
	session := NewSession(nil, nil)
	boom := errors.New("boom")

	got, err := DoTransactionally(ctx, session, func(context.Context) (int, error) {
		return 42, boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Zero(t, got)
}
