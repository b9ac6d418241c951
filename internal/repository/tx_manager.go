package repository

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const txKey contextKey = "gorm_tx"

// txState travels in the context for the lifetime of one transaction.
type txState struct {
	tx          *gorm.DB
	afterCommit []func()
}

// TransactionManager manages database transactions via context injection.
type TransactionManager interface {
	// RunInTx runs fn in a transaction. A call made while the context already
	// carries a transaction joins it instead of opening a second one.
	RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error
}

type transactionManager struct {
	db *gorm.DB
}

func NewTransactionManager(db *gorm.DB) TransactionManager {
	return &transactionManager{db: db}
}

func (t *transactionManager) RunInTx(ctx context.Context, fn func(txCtx context.Context) error) error {
	if _, ok := ctx.Value(txKey).(*txState); ok {
		return fn(ctx)
	}

	state := &txState{}
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		state.tx = tx
		return fn(context.WithValue(ctx, txKey, state))
	})
	if err != nil {
		return err
	}
	for _, hook := range state.afterCommit {
		hook()
	}
	return nil
}

// AfterCommit defers fn until the transaction carried by ctx commits. It is
// dropped on rollback. Without a transaction fn runs immediately.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txKey).(*txState); ok {
		state.afterCommit = append(state.afterCommit, fn)
		return
	}
	fn()
}

// InTx reports whether ctx carries an open transaction.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey).(*txState)
	return ok
}

// GetDB extracts the transaction DB from context if present, otherwise returns root DB.
func GetDB(ctx context.Context, rootDB *gorm.DB) *gorm.DB {
	if state, ok := ctx.Value(txKey).(*txState); ok && state.tx != nil {
		return state.tx.WithContext(ctx)
	}
	return rootDB.WithContext(ctx)
}

// Savepoint runs fn under a savepoint of the transaction carried by ctx. An
// error from fn rolls back to the savepoint and leaves the outer transaction
// open. Without a transaction fn gets the root DB.
func Savepoint(ctx context.Context, rootDB *gorm.DB, fn func(db *gorm.DB) error) error {
	if !InTx(ctx) {
		return fn(rootDB.WithContext(ctx))
	}
	return GetDB(ctx, rootDB).Transaction(fn)
}
