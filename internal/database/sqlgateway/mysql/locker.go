package mysql

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
)

type Options struct {
	database.CommonOptions
	LockKey string
	LockFor int
	NoLock  bool
	Charset string
}

type Locker struct {
	lockKey string
	lockFor int
	noLock  bool
}

var _ database.Locker = (*Locker)(nil)

func NewLocker(lockKey string, lockFor int, noLock bool) *Locker {
	if lockKey == "" {
		lockKey = database.DefaultLockKey
	}

	if lockFor <= 0 {
		lockFor = database.DefaultLockSeconds
	}

	return &Locker{lockKey: lockKey, lockFor: lockFor, noLock: noLock}
}

// Lock waits up to lockFor seconds for a named lock. GET_LOCK returns 1 on
// success, 0 on timeout and NULL on error.
func (l *Locker) Lock(ctx context.Context, ex database.CtxExecutor) error {
	if l.noLock {
		return nil
	}

	var result sql.NullInt64
	if err := ex.QueryRowContext(ctx, "SELECT GET_LOCK(?, ?)", l.lockKey, l.lockFor).Scan(&result); err != nil {
		return errors.Wrapf(err, "could not obtain [%s] exclusive MySQL DB lock for [%d] seconds", l.lockKey, l.lockFor)
	}

	if !result.Valid || result.Int64 != 1 {
		return errors.Wrapf(database.ErrLockNotAcquired, "[%s] within [%d] seconds", l.lockKey, l.lockFor)
	}

	return nil
}

func (l *Locker) Unlock(ctx context.Context, ex database.CtxExecutor) error {
	if l.noLock {
		return nil
	}

	if _, err := ex.ExecContext(ctx, "SELECT RELEASE_LOCK(?)", l.lockKey); err != nil {
		return errors.Wrapf(err, "could not release [%s] exclusive MySQL DB lock", l.lockKey)
	}

	return nil
}
