package schema

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidStatement = errors.New("invalid schema statement")
var ErrUnsupportedType = errors.New("unsupported column type")

type Feature int

const (
	FeatureIndexIfNotExists Feature = iota + 1
	FeatureDropIndexIfExists
	FeatureDropIndexOnTable
	FeatureDropTableCascade
	FeatureAddColumnIfNotExists
	FeatureDropColumnIfExists
)

// Flavor carries the parts of DDL that differ between databases.
type Flavor interface {
	Name() string
	Quote(ident string) string
	ColumnType(t Type) (string, error)
	TableOptions() string
	Supports(f Feature) bool
}

// Dialect is a Flavor that can also introspect the live schema.
type Dialect interface {
	Flavor
	HasTableQuery(table string) (string, []interface{})
	ColumnsQuery(table string) (string, []interface{})
}

type Compiler struct {
	flavor Flavor
}

func NewCompiler(f Flavor) *Compiler {
	return &Compiler{flavor: f}
}

func (c *Compiler) CreateTable(t *Table) ([]string, error) {
	if t.name == "" {
		return nil, errors.Wrap(ErrInvalidStatement, "table name must be specified")
	}

	if len(t.columns) == 0 {
		return nil, errors.Wrapf(ErrInvalidStatement, "table [%s] has no columns", t.name)
	}

	var defs []string
	for _, col := range t.columns {
		def, err := c.columnDefinition(col)
		if err != nil {
			return nil, errors.Wrapf(err, "table [%s]", t.name)
		}

		defs = append(defs, def)
	}

	if len(t.primaryKey) > 0 {
		defs = append(defs, "PRIMARY KEY ("+c.quoteList(t.primaryKey)+")")
	}

	for _, u := range t.uniques {
		if len(u.columns) == 0 {
			return nil, errors.Wrapf(ErrInvalidStatement, "unique constraint [%s] has no columns", u.name)
		}

		defs = append(defs, "CONSTRAINT "+c.flavor.Quote(u.name)+" UNIQUE ("+c.quoteList(u.columns)+")")
	}

	for _, fk := range t.foreignKeys {
		def, err := c.foreignKey(fk)
		if err != nil {
			return nil, errors.Wrapf(err, "table [%s]", t.name)
		}

		defs = append(defs, def)
	}

	var buf bytes.Buffer
	buf.WriteString("CREATE TABLE ")
	if t.ifNotExists {
		buf.WriteString("IF NOT EXISTS ")
	}
	buf.WriteString(c.flavor.Quote(t.name))
	buf.WriteString(" (\n\t")
	buf.WriteString(strings.Join(defs, ",\n\t"))
	buf.WriteString("\n)")
	buf.WriteString(c.flavor.TableOptions())

	return []string{buf.String()}, nil
}

func (c *Compiler) DropTable(d *Drop) ([]string, error) {
	if len(d.tables) == 0 {
		return nil, errors.Wrap(ErrInvalidStatement, "no tables to drop")
	}

	result := make([]string, 0, len(d.tables))
	for _, table := range d.tables {
		q := "DROP TABLE "
		if d.ifExists {
			q += "IF EXISTS "
		}

		q += c.flavor.Quote(table)
		if d.cascade && c.flavor.Supports(FeatureDropTableCascade) {
			q += " CASCADE"
		}

		result = append(result, q)
	}

	return result, nil
}

func (c *Compiler) AlterTable(a *Alter) ([]string, error) {
	if a.table == "" {
		return nil, errors.Wrap(ErrInvalidStatement, "alter table name must be specified")
	}

	result := make([]string, 0, len(a.ops))
	for _, op := range a.ops {
		q, err := c.alterOp(a.table, op)
		if err != nil {
			return nil, err
		}

		result = append(result, q)
	}

	return result, nil
}

func (c *Compiler) alterOp(table string, op alterOp) (string, error) {
	prefix := "ALTER TABLE " + c.flavor.Quote(table) + " "

	switch op.kind {
	case addColumn:
		def, err := c.columnDefinition(op.column)
		if err != nil {
			return "", errors.Wrapf(err, "table [%s]", table)
		}

		if op.guarded && c.flavor.Supports(FeatureAddColumnIfNotExists) {
			return prefix + "ADD COLUMN IF NOT EXISTS " + def, nil
		}

		return prefix + "ADD COLUMN " + def, nil
	case dropColumn:
		if op.guarded && c.flavor.Supports(FeatureDropColumnIfExists) {
			return prefix + "DROP COLUMN IF EXISTS " + c.flavor.Quote(op.name), nil
		}

		return prefix + "DROP COLUMN " + c.flavor.Quote(op.name), nil
	case renameColumn:
		return prefix + "RENAME COLUMN " + c.flavor.Quote(op.name) + " TO " + c.flavor.Quote(op.newName), nil
	case renameTable:
		return prefix + "RENAME TO " + c.flavor.Quote(op.newName), nil
	default:
		return "", errors.Wrapf(ErrInvalidStatement, "unknown alter operation on table [%s]", table)
	}
}

func (c *Compiler) CreateIndex(i *Index) ([]string, error) {
	if i.name == "" || i.table == "" || len(i.columns) == 0 {
		return nil, errors.Wrap(ErrInvalidStatement, "index requires a name, a table and columns")
	}

	q := "CREATE "
	if i.unique {
		q += "UNIQUE "
	}

	q += "INDEX "
	if i.ifNotExists && c.flavor.Supports(FeatureIndexIfNotExists) {
		q += "IF NOT EXISTS "
	}

	q += c.flavor.Quote(i.name) + " ON " + c.flavor.Quote(i.table) + " (" + c.quoteList(i.columns) + ")"

	return []string{q}, nil
}

func (c *Compiler) DropIndex(d *IndexDrop) ([]string, error) {
	if d.name == "" {
		return nil, errors.Wrap(ErrInvalidStatement, "index name must be specified")
	}

	q := "DROP INDEX "
	if d.ifExists && c.flavor.Supports(FeatureDropIndexIfExists) {
		q += "IF EXISTS "
	}

	q += c.flavor.Quote(d.name)

	if c.flavor.Supports(FeatureDropIndexOnTable) {
		if d.table == "" {
			return nil, errors.Wrapf(ErrInvalidStatement, "%s requires the table of index [%s]", c.flavor.Name(), d.name)
		}

		q += " ON " + c.flavor.Quote(d.table)
	}

	return []string{q}, nil
}

func (c *Compiler) columnDefinition(col *Column) (string, error) {
	if col == nil || col.name == "" {
		return "", errors.Wrap(ErrInvalidStatement, "column name must be specified")
	}

	typ, err := c.flavor.ColumnType(col.typ)
	if err != nil {
		return "", errors.Wrapf(err, "column [%s]", col.name)
	}

	var buf bytes.Buffer
	buf.WriteString(c.flavor.Quote(col.name))
	buf.WriteString(" ")
	buf.WriteString(typ)

	if col.notNull {
		buf.WriteString(" NOT NULL")
	}

	if col.def != "" {
		buf.WriteString(" DEFAULT ")
		buf.WriteString(col.def)
	}

	if col.unique {
		buf.WriteString(" UNIQUE")
	}

	if col.primaryKey {
		buf.WriteString(" PRIMARY KEY")
	}

	return buf.String(), nil
}

func (c *Compiler) foreignKey(fk *ForeignKey) (string, error) {
	if len(fk.columns) == 0 || fk.refTable == "" || len(fk.refCols) != len(fk.columns) {
		return "", errors.Wrapf(ErrInvalidStatement, "foreign key [%s] is incomplete", fk.name)
	}

	var buf bytes.Buffer
	if fk.name != "" {
		buf.WriteString("CONSTRAINT ")
		buf.WriteString(c.flavor.Quote(fk.name))
		buf.WriteString(" ")
	}

	buf.WriteString("FOREIGN KEY (")
	buf.WriteString(c.quoteList(fk.columns))
	buf.WriteString(") REFERENCES ")
	buf.WriteString(c.flavor.Quote(fk.refTable))
	buf.WriteString(" (")
	buf.WriteString(c.quoteList(fk.refCols))
	buf.WriteString(")")

	if fk.onDelete != "" {
		buf.WriteString(" ON DELETE ")
		buf.WriteString(string(fk.onDelete))
	}

	if fk.onUpdate != "" {
		buf.WriteString(" ON UPDATE ")
		buf.WriteString(string(fk.onUpdate))
	}

	return buf.String(), nil
}

func (c *Compiler) quoteList(idents []string) string {
	quoted := make([]string, len(idents))
	for i := range idents {
		quoted[i] = c.flavor.Quote(idents[i])
	}

	return strings.Join(quoted, ", ")
}
