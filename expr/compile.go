package expr

import (
	"strings"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/field"
)

// Clause is a compiled SQL fragment and its parameters, in placeholder order.
type Clause struct {
	SQL     string
	Params  []sql.Param
	Dialect string
}

// Args returns the driver arguments of the clause.
func (c *Clause) Args() []any { return sql.Args(c.Dialect, c.Params) }

// Compiler renders expressions into SQL for one dialect. A Compiler holds no
// per-call state and may be shared.
type Compiler struct {
	dialect string
	table   string
}

// NewCompiler returns a compiler for the named dialect.
func NewCompiler(dialect string) *Compiler {
	return &Compiler{dialect: dialect}
}

// Dialect returns the dialect of the compiler.
func (c *Compiler) Dialect() string { return c.dialect }

// Qualify returns a compiler that prefixes filter columns with table.
func (c *Compiler) Qualify(table string) *Compiler {
	return &Compiler{dialect: c.dialect, table: table}
}

// Compile renders the filter e over the entity described by d.
func (c *Compiler) Compile(e Expr, d *schema.Descriptor) (*Clause, error) {
	b := sql.Dialect(c.dialect)
	if err := c.CompileTo(b, e, d); err != nil {
		return nil, err
	}
	return &Clause{SQL: b.String(), Params: b.Params(), Dialect: c.dialect}, nil
}

// CompileTo renders the filter e into b, continuing its parameter list.
func (c *Compiler) CompileTo(b *sql.Builder, e Expr, d *schema.Descriptor) error {
	if err := c.expr(b, e, d); err != nil {
		return err
	}
	return b.Err()
}

func (c *Compiler) expr(b *sql.Builder, e Expr, d *schema.Descriptor) error {
	switch e := e.(type) {
	case nil:
		return veloxdb.NewUnsupportedExpressionError("nil", "missing expression")
	case Compare:
		return c.compare(b, e, d)
	case And:
		return c.join(b, "AND", "1 = 1", e, d)
	case Or:
		return c.join(b, "OR", "1 = 0", e, d)
	case Not:
		b.WriteString("NOT (")
		if err := c.expr(b, e.X, d); err != nil {
			return err
		}
		b.WriteString(")")
		return nil
	case IsNull:
		col, err := d.Lookup(e.Column)
		if err != nil {
			return err
		}
		c.column(b, col)
		if e.Negate {
			b.WriteString(" IS NOT NULL")
		} else {
			b.WriteString(" IS NULL")
		}
		return nil
	case In:
		return c.in(b, e, d)
	case Call:
		return c.call(b, e, d)
	default:
		return veloxdb.NewUnsupportedExpressionError("expression", "unknown node %T", e)
	}
}

func (c *Compiler) column(b *sql.Builder, col *schema.Column) {
	b.Column(c.table, col.Name)
}

func (c *Compiler) join(b *sql.Builder, op, empty string, xs []Expr, d *schema.Descriptor) error {
	if len(xs) == 0 {
		b.WriteString(empty)
		return nil
	}
	for i, x := range xs {
		if i > 0 {
			b.WriteString(" " + op + " ")
		}
		b.WriteString("(")
		if err := c.expr(b, x, d); err != nil {
			return err
		}
		b.WriteString(")")
	}
	return nil
}

func (c *Compiler) compare(b *sql.Builder, e Compare, d *schema.Descriptor) error {
	col, err := d.Lookup(e.Column)
	if err != nil {
		return err
	}
	if !e.Op.Valid() {
		return veloxdb.NewUnsupportedExpressionError("Compare", "operator %q", e.Op)
	}
	v, err := storage(col, e.Value, "Compare")
	if err != nil {
		return err
	}
	if v == nil {
		switch e.Op {
		case OpEQ:
			c.column(b, col)
			b.WriteString(" IS NULL")
			return nil
		case OpNEQ:
			c.column(b, col)
			b.WriteString(" IS NOT NULL")
			return nil
		}
		return veloxdb.NewUnsupportedExpressionError("Compare", "operator %q with a nil value on column %q", e.Op, col.Name)
	}
	c.column(b, col)
	b.WriteString(" "+string(e.Op)+" ").Arg(col.Name, v)
	return nil
}

func (c *Compiler) in(b *sql.Builder, e In, d *schema.Descriptor) error {
	col, err := d.Lookup(e.Column)
	if err != nil {
		return err
	}
	if len(e.Values) == 0 {
		if e.Negate {
			b.WriteString("1 = 1")
		} else {
			b.WriteString("1 = 0")
		}
		return nil
	}
	c.column(b, col)
	if e.Negate {
		b.WriteString(" NOT")
	}
	b.WriteString(" IN (")
	for i, x := range e.Values {
		v, err := storage(col, x, "In")
		if err != nil {
			return err
		}
		if v == nil {
			return veloxdb.NewUnsupportedExpressionError("In", "nil value in list of column %q", col.Name)
		}
		if i > 0 {
			b.WriteString(", ")
		}
		b.Arg(col.Name, v)
	}
	b.WriteString(")")
	return nil
}

func (c *Compiler) call(b *sql.Builder, e Call, d *schema.Descriptor) error {
	col, err := d.Lookup(e.Column)
	if err != nil {
		return err
	}
	if col.Type != field.TypeString {
		return veloxdb.NewUnsupportedExpressionError(string(e.Method), "column %q is not a string column", col.Name)
	}
	var (
		fold    bool
		pattern string
	)
	switch e.Method {
	case Contains:
		pattern = "%" + escapeLike(e.Arg) + "%"
	case HasPrefix:
		pattern = escapeLike(e.Arg) + "%"
	case HasSuffix:
		pattern = "%" + escapeLike(e.Arg)
	case ContainsFold:
		fold, pattern = true, "%"+escapeLike(e.Arg)+"%"
	case HasPrefixFold:
		fold, pattern = true, escapeLike(e.Arg)+"%"
	case HasSuffixFold:
		fold, pattern = true, "%"+escapeLike(e.Arg)
	case EqualFold:
		fn := c.foldFunction()
		b.WriteString(fn + "(")
		c.column(b, col)
		b.WriteString(") = "+fn+"(").Arg(col.Name, e.Arg).WriteString(")")
		return nil
	default:
		return veloxdb.NewUnsupportedExpressionError("Call", "method %q", e.Method)
	}
	if fold {
		fn := c.foldFunction()
		b.WriteString(fn + "(")
		c.column(b, col)
		b.WriteString(") LIKE "+fn+"(").Arg(col.Name, pattern).WriteString(")")
	} else {
		c.column(b, col)
		b.WriteString(" LIKE ").Arg(col.Name, pattern)
	}
	b.WriteString(" ESCAPE " + escapeLiteral(c.dialect))
	return nil
}

// foldFunction returns the SQL function both sides of a fold comparison go
// through.
func (c *Compiler) foldFunction() string {
	if c.dialect == dialect.SQLite {
		return sql.FoldFunction
	}
	return "LOWER"
}

func storage(col *schema.Column, v any, node string) (any, error) {
	sv, err := field.ToStorage(v, col.Type)
	if err != nil {
		return nil, veloxdb.NewUnsupportedExpressionError(node, "value for column %q: %v", col.Name, err)
	}
	return sv, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike escapes the LIKE metacharacters of s with a backslash.
func escapeLike(s string) string { return likeEscaper.Replace(s) }

func escapeLiteral(d string) string {
	if d == dialect.MySQL {
		return `'\\'`
	}
	return `'\'`
}
