package schema

type Action string

const (
	Cascade  Action = "CASCADE"
	SetNull  Action = "SET NULL"
	Restrict Action = "RESTRICT"
	NoAction Action = "NO ACTION"
)

type ForeignKey struct {
	name     string
	columns  []string
	refTable string
	refCols  []string
	onDelete Action
	onUpdate Action
}

func NewForeignKey(name string) *ForeignKey {
	return &ForeignKey{name: name}
}

func (fk *ForeignKey) From(columns ...string) *ForeignKey {
	fk.columns = columns
	return fk
}

func (fk *ForeignKey) To(table string, columns ...string) *ForeignKey {
	fk.refTable = table
	fk.refCols = columns
	return fk
}

func (fk *ForeignKey) OnDelete(a Action) *ForeignKey {
	fk.onDelete = a
	return fk
}

func (fk *ForeignKey) OnUpdate(a Action) *ForeignKey {
	fk.onUpdate = a
	return fk
}

type uniqueConstraint struct {
	name    string
	columns []string
}

// Table describes a CREATE TABLE statement.
type Table struct {
	name        string
	ifNotExists bool
	columns     []*Column
	primaryKey  []string
	foreignKeys []*ForeignKey
	uniques     []uniqueConstraint
}

func CreateTable(name string) *Table {
	return &Table{name: name}
}

func (t *Table) IfNotExists() *Table {
	t.ifNotExists = true
	return t
}

func (t *Table) Column(c *Column) *Table {
	t.columns = append(t.columns, c)
	return t
}

// PrimaryKey declares a composite primary key at table level.
func (t *Table) PrimaryKey(columns ...string) *Table {
	t.primaryKey = columns
	return t
}

func (t *Table) ForeignKey(fk *ForeignKey) *Table {
	t.foreignKeys = append(t.foreignKeys, fk)
	return t
}

func (t *Table) Unique(name string, columns ...string) *Table {
	t.uniques = append(t.uniques, uniqueConstraint{name: name, columns: columns})
	return t
}

func (t *Table) Name() string {
	return t.name
}

func (t *Table) Columns() []*Column {
	return t.columns
}

// Drop describes a DROP TABLE statement for one or more tables.
type Drop struct {
	tables   []string
	ifExists bool
	cascade  bool
}

func DropTable(tables ...string) *Drop {
	return &Drop{tables: tables}
}

func (d *Drop) IfExists() *Drop {
	d.ifExists = true
	return d
}

// Cascade is ignored by flavors that do not support it.
func (d *Drop) Cascade() *Drop {
	d.cascade = true
	return d
}

func (d *Drop) Tables() []string {
	return d.tables
}

type alterKind int

const (
	addColumn alterKind = iota + 1
	dropColumn
	renameColumn
	renameTable
)

type alterOp struct {
	kind    alterKind
	column  *Column
	name    string
	newName string
	guarded bool
}

// Alter describes a sequence of ALTER TABLE operations on one table. Every
// operation compiles to its own statement.
type Alter struct {
	table string
	ops   []alterOp
}

func AlterTable(table string) *Alter {
	return &Alter{table: table}
}

func (a *Alter) AddColumn(c *Column) *Alter {
	a.ops = append(a.ops, alterOp{kind: addColumn, column: c, name: c.name})
	return a
}

func (a *Alter) AddColumnIfNotExists(c *Column) *Alter {
	a.ops = append(a.ops, alterOp{kind: addColumn, column: c, name: c.name, guarded: true})
	return a
}

func (a *Alter) DropColumn(name string) *Alter {
	a.ops = append(a.ops, alterOp{kind: dropColumn, name: name})
	return a
}

func (a *Alter) DropColumnIfExists(name string) *Alter {
	a.ops = append(a.ops, alterOp{kind: dropColumn, name: name, guarded: true})
	return a
}

func (a *Alter) RenameColumn(from, to string) *Alter {
	a.ops = append(a.ops, alterOp{kind: renameColumn, name: from, newName: to})
	return a
}

func (a *Alter) RenameTo(name string) *Alter {
	a.ops = append(a.ops, alterOp{kind: renameTable, newName: name})
	return a
}

func (a *Alter) Table() string {
	return a.table
}

type Index struct {
	name        string
	table       string
	columns     []string
	unique      bool
	ifNotExists bool
}

func CreateIndex(name string) *Index {
	return &Index{name: name}
}

func (i *Index) On(table string, columns ...string) *Index {
	i.table = table
	i.columns = columns
	return i
}

func (i *Index) Unique() *Index {
	i.unique = true
	return i
}

func (i *Index) IfNotExists() *Index {
	i.ifNotExists = true
	return i
}

type IndexDrop struct {
	name     string
	table    string
	ifExists bool
}

// DropIndex needs On(table) for flavors that scope indexes to tables.
func DropIndex(name string) *IndexDrop {
	return &IndexDrop{name: name}
}

func (d *IndexDrop) On(table string) *IndexDrop {
	d.table = table
	return d
}

func (d *IndexDrop) IfExists() *IndexDrop {
	d.ifExists = true
	return d
}
