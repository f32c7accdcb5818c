package sqlgateway

import (
	"context"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

func ping(ctx context.Context, conn *sqlx.Conn) error {
	if err := conn.PingContext(ctx); err != nil {
		return errors.Wrap(err, "db ping failed")
	}

	var result int
	if err := conn.QueryRowxContext(ctx, "SELECT 1").Scan(&result); err != nil {
		return errors.Wrap(err, "could not ping DB")
	}

	return nil
}
