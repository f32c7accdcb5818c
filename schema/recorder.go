package schema

import (
	"context"

	"github.com/pkg/errors"
)

// Recorder compiles statements without executing them. Inspection calls are
// delegated to inspector when one is given.
type Recorder struct {
	compiler   *Compiler
	inspector  Manager
	statements []string
}

var _ Manager = (*Recorder)(nil)

func NewRecorder(f Flavor, inspector Manager) *Recorder {
	return &Recorder{compiler: NewCompiler(f), inspector: inspector}
}

func (r *Recorder) Statements() []string {
	return r.statements
}

func (r *Recorder) Reset() {
	r.statements = nil
}

func (r *Recorder) CreateTable(_ context.Context, t *Table) error {
	return r.record(r.compiler.CreateTable(t))
}

func (r *Recorder) DropTable(_ context.Context, d *Drop) error {
	return r.record(r.compiler.DropTable(d))
}

// AlterTable records only the operations the real manager would execute.
// Guarded column operations are checked against the inspector when the
// flavor cannot express the guard itself.
func (r *Recorder) AlterTable(ctx context.Context, a *Alter) error {
	if a.table == "" {
		return r.record(r.compiler.AlterTable(a))
	}

	for _, op := range a.ops {
		skip, err := skipGuarded(ctx, r.compiler.flavor, r, a.table, op)
		if err != nil {
			return err
		}

		if skip {
			continue
		}

		q, err := r.compiler.alterOp(a.table, op)
		if err != nil {
			return err
		}

		r.statements = append(r.statements, q)
	}

	return nil
}

func (r *Recorder) CreateIndex(_ context.Context, i *Index) error {
	return r.record(r.compiler.CreateIndex(i))
}

func (r *Recorder) DropIndex(_ context.Context, d *IndexDrop) error {
	return r.record(r.compiler.DropIndex(d))
}

func (r *Recorder) HasTable(ctx context.Context, table string) (bool, error) {
	if r.inspector == nil {
		return false, errors.Wrapf(ErrInspectionUnavailable, "has table [%s]", table)
	}

	return r.inspector.HasTable(ctx, table)
}

func (r *Recorder) HasColumn(ctx context.Context, table, column string) (bool, error) {
	if r.inspector == nil {
		return false, errors.Wrapf(ErrInspectionUnavailable, "has column [%s.%s]", table, column)
	}

	return r.inspector.HasColumn(ctx, table, column)
}

func (r *Recorder) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	if r.inspector == nil {
		return nil, errors.Wrapf(ErrInspectionUnavailable, "columns of [%s]", table)
	}

	return r.inspector.Columns(ctx, table)
}

func (r *Recorder) record(statements []string, err error) error {
	if err != nil {
		return err
	}

	r.statements = append(r.statements, statements...)
	return nil
}
