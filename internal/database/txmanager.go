package database

import (
	"context"
	"database/sql"
	"fmt"
)

type txKey struct{}

// txState is the transaction carried by a context and how many savepoints deep it is.
type txState struct {
	tx    *sql.Tx
	depth int
}

func txFrom(ctx context.Context) (*txState, bool) {
	state, ok := ctx.Value(txKey{}).(*txState)
	return state, ok
}

// Querier is the query surface shared by *sql.DB and *sql.Tx, so repositories run the same
// statements inside and outside a transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxManager scopes credential writes, their audit entries and rotation batches to one
// transaction.
type TxManager interface {
	// WithTx runs fn inside a transaction carried by the context passed to fn. A call made
	// while a transaction is already in ctx runs fn under a savepoint of that transaction:
	// an error from fn undoes only fn's writes, and only the outermost call commits.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type sqlTxManager struct {
	db *sql.DB
}

// NewTxManager returns a TxManager beginning transactions on db.
func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

func (m *sqlTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if state, ok := txFrom(ctx); ok {
		return withSavepoint(ctx, state, fn)
	}

	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, &txState{tx: tx})); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v: %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// withSavepoint runs fn under a savepoint of the enclosing transaction. PostgreSQL and MySQL
// share the savepoint syntax.
func withSavepoint(ctx context.Context, parent *txState, fn func(ctx context.Context) error) error {
	state := &txState{tx: parent.tx, depth: parent.depth + 1}
	name := fmt.Sprintf("sp_%d", state.depth)

	if _, err := state.tx.ExecContext(ctx, "SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		if _, rbErr := state.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+name); rbErr != nil {
			return fmt.Errorf("rollback to savepoint failed: %v: %w", rbErr, err)
		}
		return err
	}

	if _, err := state.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+name); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}

// InTx reports whether ctx carries a transaction.
func InTx(ctx context.Context) bool {
	_, ok := txFrom(ctx)
	return ok
}

// GetTx returns the transaction carried by ctx, falling back to db.
func GetTx(ctx context.Context, db *sql.DB) Querier {
	if state, ok := txFrom(ctx); ok {
		return state.tx
	}
	return db
}
