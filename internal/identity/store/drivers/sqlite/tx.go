package sqlite

import (
	"context"
	"database/sql"

	"github.com/fairmarket/identity/internal/identity/store"
)

type txStore struct {
	tx *sql.Tx
}

func newTx(tx *sql.Tx) *txStore {
	return &txStore{tx: tx}
}

func (t *txStore) Commit() error   { return t.tx.Commit() }
func (t *txStore) Rollback() error { return t.tx.Rollback() }

func (t *txStore) Close() error { return nil } // nothing to close; the outer DB stays open

// Ping is a no-op for transactions; the connection already exists.
func (t *txStore) Ping(ctx context.Context) error { return nil }

func (t *txStore) Tx(ctx context.Context) (store.Tx, error) {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return nil, sql.ErrTxDone
}

func (t *txStore) WithTx(ctx context.Context, fn func(tx store.Tx) error) error {
	// Nested tx not supported; could emulate with SAVEPOINT if needed
	return sql.ErrTxDone
}

func (t *txStore) Admins() store.Admins       { return &adminsRepo{db: t.tx} }
func (t *txStore) Directory() store.Directory { return &directoryRepo{db: t.tx} }

func (t *txStore) ApplyMigrations() error { return nil } // migrations are applied before any tx starts
