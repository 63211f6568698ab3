package store

import (
	"context"
	"errors"
	"sync/atomic"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type contextKey int

const (
	transactionKey contextKey = iota
)

var (
	ErrTransactionClosed = errors.New("transaction already closed")

	txSequence atomic.Int64
)

// Tx is a gorm transaction carried in a context. Store calls made with that
// context join it until Commit or Rollback is called.
type Tx struct {
	id  int64
	db  *gorm.DB
	log *zap.SugaredLogger
}

func Commit(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, "commit", func(db *gorm.DB) *gorm.DB { return db.Commit() })
}

func Rollback(ctx context.Context) (context.Context, error) {
	return endTransaction(ctx, "rollback", func(db *gorm.DB) *gorm.DB { return db.Rollback() })
}

// FromContext returns the open transaction of ctx, nil when there is none.
func FromContext(ctx context.Context) *gorm.DB {
	if tx, found := ctx.Value(transactionKey).(*Tx); found && tx != nil {
		return tx.db
	}
	return nil
}

// newTransactionContext opens a transaction unless ctx already carries one,
// in which case the caller joins the outer transaction.
func newTransactionContext(ctx context.Context, db *gorm.DB) (context.Context, error) {
	if FromContext(ctx) != nil {
		return ctx, nil
	}

	tx := db.Session(&gorm.Session{Context: ctx}).Begin()
	if tx.Error != nil {
		return ctx, tx.Error
	}

	t := &Tx{id: txSequence.Add(1), db: tx, log: zap.S().Named("store")}
	t.log.Debugf("transaction %d started", t.id)
	return context.WithValue(ctx, transactionKey, t), nil
}

func endTransaction(ctx context.Context, op string, end func(*gorm.DB) *gorm.DB) (context.Context, error) {
	t, ok := ctx.Value(transactionKey).(*Tx)
	if !ok || t == nil {
		return ctx, nil
	}
	if t.db == nil {
		return ctx, ErrTransactionClosed
	}

	db := t.db
	t.db = nil
	newCtx := context.WithValue(ctx, transactionKey, (*Tx)(nil))

	if err := end(db).Error; err != nil {
		t.log.Errorf("failed to %s transaction %d: %v", op, t.id, err)
		return newCtx, err
	}
	t.log.Debugf("transaction %d %s", t.id, op)
	return newCtx, nil
}
