package sqlxrepos

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"net"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

const uniqueViolation = "23505"

// isUniqueViolation reports whether err is a postgres unique_violation.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

// isUnreachable reports whether err means the database could not serve the request at all.
func isUnreachable(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Class() {
		case "08", "53", "57": // connection exception, insufficient resources, operator intervention
			return true
		}
		return false
	}
	var netErr net.Error
	return errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) || errors.As(err, &netErr)
}

// wrap classifies err: unreachable database errors become core.StoreError, others are wrapped with msg.
func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	if isUnreachable(err) {
		return core.NewStoreError(msg, err)
	}
	return errors.Wrap(err, msg)
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err error, notFound error, msg string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return notFound
	}
	return wrap(err, msg)
}

// validID reports whether id can be looked up in a uuid column.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

// withTx runs fn in a transaction, committing only when fn succeeds.
func withTx(ctx context.Context, db *sqlx.DB, msg string, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return wrap(err, msg)
	}
	if err = fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err = tx.Commit(); err != nil {
		return wrap(err, msg)
	}
	return nil
}

func rowsAffected(res sql.Result, msg string) (int, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, wrap(err, msg)
	}
	return int(n), nil
}
