package schema

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/kouprlabs/voltaserve-migrate/internal/logger"
)

var ErrInspectionUnavailable = errors.New("schema inspection is not available")

// Manager is the handle migration steps use to change the schema.
type Manager interface {
	CreateTable(ctx context.Context, t *Table) error
	DropTable(ctx context.Context, d *Drop) error
	AlterTable(ctx context.Context, a *Alter) error
	CreateIndex(ctx context.Context, i *Index) error
	DropIndex(ctx context.Context, d *IndexDrop) error
	HasTable(ctx context.Context, table string) (bool, error)
	HasColumn(ctx context.Context, table, column string) (bool, error)
	Columns(ctx context.Context, table string) ([]ColumnInfo, error)
}

// Executor is satisfied by *sqlx.Tx and *sqlx.Conn.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	sqlx.QueryerContext
}

// SQLManager executes compiled DDL on an executor, usually the transaction
// of the step being applied.
type SQLManager struct {
	ex       Executor
	dialect  Dialect
	compiler *Compiler
	lg       logger.Logger
}

var _ Manager = (*SQLManager)(nil)

func NewManager(ex Executor, d Dialect, lg logger.Logger) *SQLManager {
	if lg == nil {
		lg = logger.NullLogger{}
	}

	return &SQLManager{ex: ex, dialect: d, compiler: NewCompiler(d), lg: lg}
}

func (m *SQLManager) CreateTable(ctx context.Context, t *Table) error {
	queries, err := m.compiler.CreateTable(t)
	if err != nil {
		return err
	}

	return m.exec(ctx, queries)
}

func (m *SQLManager) DropTable(ctx context.Context, d *Drop) error {
	queries, err := m.compiler.DropTable(d)
	if err != nil {
		return err
	}

	return m.exec(ctx, queries)
}

func (m *SQLManager) AlterTable(ctx context.Context, a *Alter) error {
	for _, op := range a.ops {
		skip, err := skipGuarded(ctx, m.dialect, m, a.table, op)
		if err != nil {
			return err
		}

		if skip {
			m.lg.Debugf("skipping %s of column [%s] on table [%s]", opName(op.kind), op.name, a.table)
			continue
		}

		q, err := m.compiler.alterOp(a.table, op)
		if err != nil {
			return err
		}

		if err := m.exec(ctx, []string{q}); err != nil {
			return err
		}
	}

	return nil
}

func (m *SQLManager) CreateIndex(ctx context.Context, i *Index) error {
	queries, err := m.compiler.CreateIndex(i)
	if err != nil {
		return err
	}

	return m.exec(ctx, queries)
}

func (m *SQLManager) DropIndex(ctx context.Context, d *IndexDrop) error {
	queries, err := m.compiler.DropIndex(d)
	if err != nil {
		return err
	}

	return m.exec(ctx, queries)
}

func (m *SQLManager) HasTable(ctx context.Context, table string) (bool, error) {
	q, args := m.dialect.HasTableQuery(table)
	m.lg.SQL(q, args...)

	var count int
	if err := m.ex.QueryRowxContext(ctx, q, args...).Scan(&count); err != nil {
		return false, errors.Wrapf(err, "could not check existence of table [%s]", table)
	}

	return count > 0, nil
}

func (m *SQLManager) HasColumn(ctx context.Context, table, column string) (bool, error) {
	columns, err := m.Columns(ctx, table)
	if err != nil {
		return false, err
	}

	for _, c := range columns {
		if c.Name == column {
			return true, nil
		}
	}

	return false, nil
}

func (m *SQLManager) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	q, args := m.dialect.ColumnsQuery(table)
	m.lg.SQL(q, args...)

	var result []ColumnInfo
	if err := sqlx.SelectContext(ctx, m.ex, &result, q, args...); err != nil {
		return nil, errors.Wrapf(err, "could not list columns of table [%s]", table)
	}

	return result, nil
}

func (m *SQLManager) exec(ctx context.Context, queries []string) error {
	for _, q := range queries {
		m.lg.SQL(q)
		if _, err := m.ex.ExecContext(ctx, q); err != nil {
			return errors.Wrapf(err, "could not execute [%s]", q)
		}
	}

	return nil
}

type columnChecker interface {
	HasColumn(ctx context.Context, table, column string) (bool, error)
}

// skipGuarded emulates IF [NOT] EXISTS on flavors that lack it for columns.
func skipGuarded(ctx context.Context, f Flavor, cc columnChecker, table string, op alterOp) (bool, error) {
	if !op.guarded {
		return false, nil
	}

	switch op.kind {
	case addColumn:
		if f.Supports(FeatureAddColumnIfNotExists) {
			return false, nil
		}

		return cc.HasColumn(ctx, table, op.name)
	case dropColumn:
		if f.Supports(FeatureDropColumnIfExists) {
			return false, nil
		}

		exists, err := cc.HasColumn(ctx, table, op.name)
		return !exists, err
	default:
		return false, nil
	}
}

func opName(k alterKind) string {
	switch k {
	case addColumn:
		return "add"
	case dropColumn:
		return "drop"
	default:
		return "alter"
	}
}
