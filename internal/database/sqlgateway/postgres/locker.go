package postgres

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/database"
)

type Options struct {
	database.CommonOptions
	LockKey string
	LockFor int
	NoLock  bool
}

// Locker holds a session level advisory lock for the whole run.
type Locker struct {
	lockKey string
	lockID  int64
	lockFor int
	noLock  bool
	wait    time.Duration
	poll    time.Duration
}

var _ database.Locker = (*Locker)(nil)

func NewLocker(lockKey string, lockFor int, noLock bool) *Locker {
	if lockKey == "" {
		lockKey = database.DefaultLockKey
	}

	if lockFor <= 0 {
		lockFor = database.DefaultLockSeconds
	}

	return &Locker{
		lockKey: lockKey,
		lockID:  LockID(lockKey),
		lockFor: lockFor,
		noLock:  noLock,
		wait:    time.Duration(lockFor) * time.Second,
		poll:    200 * time.Millisecond,
	}
}

func (l *Locker) Lock(ctx context.Context, ex database.CtxExecutor) error {
	if l.noLock {
		return nil
	}

	deadline := time.Now().Add(l.wait)

	for {
		var acquired bool
		if err := ex.QueryRowContext(ctx, "SELECT pg_try_advisory_lock($1)", l.lockID).Scan(&acquired); err != nil {
			return errors.Wrapf(err, "could not obtain [%s] advisory lock", l.lockKey)
		}

		if acquired {
			return nil
		}

		if time.Now().After(deadline) {
			return errors.Wrapf(database.ErrLockNotAcquired, "[%s] is held elsewhere for more than %d seconds", l.lockKey, l.lockFor)
		}

		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "waiting for [%s] advisory lock", l.lockKey)
		case <-time.After(l.poll):
		}
	}
}

func (l *Locker) Unlock(ctx context.Context, ex database.CtxExecutor) error {
	if l.noLock {
		return nil
	}

	if _, err := ex.ExecContext(ctx, "SELECT pg_advisory_unlock($1)", l.lockID); err != nil {
		return errors.Wrapf(err, "could not release [%s] advisory lock", l.lockKey)
	}

	return nil
}

// LockID hashes a lock key into the int64 space of pg_advisory_lock with FNV-1a.
func LockID(key string) int64 {
	var h uint64 = 14695981039346656037
	for i := 0; i < len(key); i++ {
		h ^= uint64(key[i])
		h *= 1099511628211
	}
	return int64(h & 0x7FFFFFFFFFFFFFFF)
}
