package sqlgateway

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var ErrTxDeadlock = errors.New("transaction deadlock occurred")

type TxCallback func(ctx context.Context, tx *sqlx.Tx) error

// transact runs cb in its own transaction on conn. The transaction is
// committed when cb succeeds and rolled back otherwise.
func transact(ctx context.Context, conn *sqlx.Conn, cb TxCallback) error {
	tx, err := conn.BeginTxx(ctx, &sql.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "could not start transaction")
	}

	if err := cb(ctx, tx); err != nil {
		if isDeadlock(err) {
			err = errors.Wrapf(ErrTxDeadlock, "on callback: %s", err.Error())
		}

		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrap(err, " : ROLLBACK : "+rbErr.Error())
		}

		return err
	}

	if err := tx.Commit(); err != nil {
		if isDeadlock(err) {
			return errors.Wrapf(ErrTxDeadlock, "on commit: %s", err.Error())
		}

		return errors.Wrap(err, "could not commit transaction")
	}

	return nil
}

func isDeadlock(err error) bool {
	return strings.Contains(strings.ToLower(err.Error()), "deadlock")
}
