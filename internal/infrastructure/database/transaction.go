package database

import (
	"context"

	"gorm.io/gorm"
)

type txContextKey struct{}

// WithTx stores an open transaction on the context.
func WithTx(ctx context.Context, tx *gorm.DB) context.Context {
	return context.WithValue(ctx, txContextKey{}, tx)
}

// DB hands repositories either the ambient transaction or the root handle.
type DB struct {
	db *gorm.DB
}

// NewDB wraps a gorm handle.
func NewDB(db *gorm.DB) *DB {
	return &DB{db: db}
}

// GetTx returns the transaction stored on ctx, or the root handle bound to ctx.
func (d *DB) GetTx(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return tx
	}
	return d.db.WithContext(ctx)
}

// Transaction runs fn inside a database transaction. Nested calls reuse the outer transaction.
func (d *DB) Transaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txContextKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return d.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(WithTx(ctx, tx))
	})
}
