package schema

import (
	"fmt"
	"strconv"
	"strings"
)

type Kind int

const (
	KindString Kind = iota + 1
	KindText
	KindInteger
	KindBigInteger
	KindBoolean
	KindTimestamp
	KindJSON
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindText:
		return "text"
	case KindInteger:
		return "integer"
	case KindBigInteger:
		return "big_integer"
	case KindBoolean:
		return "boolean"
	case KindTimestamp:
		return "timestamp"
	case KindJSON:
		return "json"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Type is a portable column type. Length is only meaningful for KindString,
// zero lets the flavor pick its default.
type Type struct {
	Kind   Kind
	Length int
}

var (
	String     = Type{Kind: KindString}
	Text       = Type{Kind: KindText}
	Integer    = Type{Kind: KindInteger}
	BigInteger = Type{Kind: KindBigInteger}
	Boolean    = Type{Kind: KindBoolean}
	Timestamp  = Type{Kind: KindTimestamp}
	JSON       = Type{Kind: KindJSON}
)

func Varchar(length int) Type {
	return Type{Kind: KindString, Length: length}
}

type Column struct {
	name       string
	typ        Type
	notNull    bool
	primaryKey bool
	unique     bool
	def        string
}

// Col starts a nullable column definition.
func Col(name string, t Type) *Column {
	return &Column{name: name, typ: t}
}

func (c *Column) NotNull() *Column {
	c.notNull = true
	return c
}

// PrimaryKey implies NOT NULL.
func (c *Column) PrimaryKey() *Column {
	c.primaryKey = true
	c.notNull = true
	return c
}

func (c *Column) Unique() *Column {
	c.unique = true
	return c
}

// Default sets a literal default value: strings are quoted, booleans and
// integers are rendered as SQL literals.
func (c *Column) Default(v interface{}) *Column {
	switch val := v.(type) {
	case string:
		c.def = "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		if val {
			c.def = "TRUE"
		} else {
			c.def = "FALSE"
		}
	case int, int32, int64, uint, uint32, uint64:
		c.def = fmt.Sprintf("%d", val)
	default:
		panic(fmt.Sprintf("unsupported default value type %T", v))
	}

	return c
}

// DefaultExpr sets a raw SQL default expression.
func (c *Column) DefaultExpr(expr string) *Column {
	c.def = expr
	return c
}

func (c *Column) DefaultNow() *Column {
	return c.DefaultExpr("CURRENT_TIMESTAMP")
}

func (c *Column) Name() string {
	return c.name
}

func (c *Column) Type() Type {
	return c.typ
}

// ColumnInfo is a column as reported by the database.
type ColumnInfo struct {
	Name string `db:"name"`
	Type string `db:"type"`
}
