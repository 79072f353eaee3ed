package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Queryer is the part of pgxpool.Pool and pgx.Tx the repositories use.
type Queryer interface {
	Exec(ctx context.Context, query string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, query string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, query string, args ...interface{}) pgx.Row
}

type txKey struct{}

// WithTx returns a context carrying tx. Repositories resolving their queryer through
// QueryerFrom run inside tx when handed that context.
func WithTx(ctx context.Context, tx pgx.Tx) context.Context {
	return context.WithValue(ctx, txKey{}, tx)
}

func TxFrom(ctx context.Context) (pgx.Tx, bool) {
	tx, ok := ctx.Value(txKey{}).(pgx.Tx)
	return tx, ok
}

// QueryerFrom returns the transaction carried by ctx, or db when there is none.
func QueryerFrom(ctx context.Context, db Queryer) Queryer {
	if tx, ok := TxFrom(ctx); ok {
		return tx
	}
	return db
}
