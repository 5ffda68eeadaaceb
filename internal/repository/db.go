package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx so every repository can
// run standalone or inside a caller-owned transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

func isPgErrCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, the backstop behind every check-and-insert in this package.
func IsUniqueViolation(err error) bool {
	return isPgErrCode(err, pgUniqueViolation)
}

// IsCheckViolation reports whether err tripped a CHECK constraint, e.g. a
// credit ledger append that would drive the balance negative.
func IsCheckViolation(err error) bool {
	return isPgErrCode(err, pgCheckViolation)
}

// AcquireTxLock takes a transaction-scoped advisory lock derived from key.
// Concurrent workers touching the same entity serialize on it instead of
// racing between a read and a dependent write.
func AcquireTxLock(ctx context.Context, db DBTX, key string) error {
	_, err := db.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtextextended($1, 0))", key)
	return err
}
