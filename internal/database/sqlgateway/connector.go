package sqlgateway

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/retry"
)

const (
	DefaultConnectionAttempts    = 10
	DefaultConnectionTimeout     = 60 * time.Second
	DefaultConnectionAttemptStep = 2 * time.Second
)

type ConnectOptions struct {
	MaxAttempts int
	MaxTimeout  time.Duration
	RetryStep   time.Duration
}

func NewDefaultConnectOptions() *ConnectOptions {
	return &ConnectOptions{
		MaxAttempts: DefaultConnectionAttempts,
		MaxTimeout:  DefaultConnectionTimeout,
		RetryStep:   DefaultConnectionAttemptStep,
	}
}

// SQLConnector hands out the single connection a gateway runs on, so that
// session level locks and settings hold for the whole run.
type SQLConnector interface {
	Connect(ctx context.Context) (*sqlx.Conn, error)
	Timeout() time.Duration
	Close() error
}

type RetryingConnector struct {
	options *ConnectOptions
	db      *sqlx.DB
	conn    *sqlx.Conn
}

var _ SQLConnector = (*RetryingConnector)(nil)

func (c *RetryingConnector) Timeout() time.Duration {
	return c.options.MaxTimeout
}

func MakeRetryingConnector(db *sqlx.DB, options *ConnectOptions) *RetryingConnector {
	if options == nil {
		options = NewDefaultConnectOptions()
	}

	if options.MaxAttempts <= 0 {
		options.MaxAttempts = DefaultConnectionAttempts
	}

	if options.MaxTimeout <= 0 {
		options.MaxTimeout = DefaultConnectionTimeout
	}

	if options.RetryStep <= 0 {
		options.RetryStep = DefaultConnectionAttemptStep
	}

	return &RetryingConnector{db: db, options: options}
}

// Connect retries only while the connection is being established. Once a
// connection is handed out it is reused until Close.
func (c *RetryingConnector) Connect(ctx context.Context) (*sqlx.Conn, error) {
	if c.conn != nil {
		return c.conn, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.options.MaxTimeout)
	defer cancel()

	var conn *sqlx.Conn
	err := retry.Incremental(ctx, c.options.RetryStep, c.options.MaxAttempts, func(attempt int) error {
		established, err := c.db.Connx(ctx)
		if err != nil {
			return retry.Error(errors.Wrap(err, "could not establish DB connection"), attempt)
		}

		if err := ping(ctx, established); err != nil {
			_ = established.Close()
			return retry.Error(err, attempt)
		}

		conn = established
		return nil
	})

	if err != nil {
		return nil, err
	}

	c.conn = conn

	return conn, nil
}

func (c *RetryingConnector) Close() error {
	if c.conn == nil {
		return nil
	}

	conn := c.conn
	c.conn = nil

	if err := conn.Close(); err != nil {
		return errors.Wrap(err, "retrying connector could not close the connection")
	}

	return nil
}
