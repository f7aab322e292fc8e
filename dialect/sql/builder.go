package sql

import (
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/veloxdb/dialect"
)

// MaxIdentLength is the longest identifier Quote accepts.
const MaxIdentLength = 128

// ErrInvalidIdent is wrapped by every identifier rejected by Quote.
var ErrInvalidIdent = errors.New("dialect/sql: invalid identifier")

// Quote sanitizes and quotes a table or column name for the given dialect.
// Names that are empty, too long, or carry a quote character, a statement
// terminator or NUL are rejected. Accepted names are wrapped verbatim, so
// distinct inputs always produce distinct outputs.
func Quote(d, ident string) (string, error) {
	if err := checkIdent(ident); err != nil {
		return "", err
	}
	q := dialect.QuoteChar(d)
	return string(q) + ident + string(q), nil
}

func checkIdent(ident string) error {
	switch {
	case ident == "":
		return fmt.Errorf("%w: empty name", ErrInvalidIdent)
	case len(ident) > MaxIdentLength:
		return fmt.Errorf("%w: %q exceeds %d bytes", ErrInvalidIdent, ident, MaxIdentLength)
	case strings.ContainsAny(ident, "\"`'[];\x00"):
		return fmt.Errorf("%w: %q contains a quote or terminator", ErrInvalidIdent, ident)
	}
	return nil
}

// Param is a named statement parameter. Values are never rendered into the
// statement text.
type Param struct {
	Name  string
	Value any
}

// Args converts params into driver arguments for the dialect: sql.NamedArg
// values for SQLite and positional values otherwise.
func Args(d string, params []Param) []any {
	args := make([]any, len(params))
	for i, p := range params {
		if d == dialect.SQLite {
			args[i] = sql.Named(p.Name, p.Value)
		} else {
			args[i] = p.Value
		}
	}
	return args
}

// Builder accumulates statement text and its parameters. Errors raised while
// writing identifiers are kept and reported by Err and Query, so callers can
// chain writes and check once.
type Builder struct {
	dialect string
	sb      strings.Builder
	params  []Param
	seen    map[string]int
	err     error
}

// Dialect creates a new Builder for the named dialect.
func Dialect(name string) *Builder {
	return &Builder{dialect: name}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() string { return b.dialect }

// WriteString appends raw statement text.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Ident appends a sanitized, quoted identifier.
func (b *Builder) Ident(name string) *Builder {
	q, err := Quote(b.dialect, name)
	if err != nil {
		b.AddError(err)
		return b
	}
	b.sb.WriteString(q)
	return b
}

// Column appends a table-qualified identifier. An empty table writes the
// column alone.
func (b *Builder) Column(table, column string) *Builder {
	if table != "" {
		b.Ident(table).WriteString(".")
	}
	return b.Ident(column)
}

// IdentComma appends the quoted identifiers separated by ", ".
func (b *Builder) IdentComma(names ...string) *Builder {
	for i, n := range names {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(n)
	}
	return b
}

// Arg appends a placeholder for value and records the parameter. name is the
// preferred parameter name; a repeated name gets a numeric suffix by
// occurrence (age, age_2, age_3).
func (b *Builder) Arg(name string, value any) *Builder {
	name = b.uniqueName(paramName(name))
	b.params = append(b.params, Param{Name: name, Value: value})
	b.sb.WriteString(dialect.Placeholder(b.dialect, name, len(b.params)))
	return b
}

func (b *Builder) uniqueName(name string) string {
	if b.seen == nil {
		b.seen = make(map[string]int)
	}
	n := b.seen[name] + 1
	b.seen[name] = n
	if n == 1 {
		return name
	}
	for {
		candidate := name + "_" + strconv.Itoa(n)
		if _, taken := b.seen[candidate]; !taken {
			b.seen[candidate] = 1
			return candidate
		}
		n++
		b.seen[name] = n
	}
}

// paramName maps an arbitrary name onto the characters a named parameter may
// carry.
func paramName(s string) string {
	if s == "" {
		return "p"
	}
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c == '_':
			sb.WriteByte(c)
		case c >= '0' && c <= '9':
			if i == 0 {
				sb.WriteByte('p')
			}
			sb.WriteByte(c)
		default:
			sb.WriteByte('_')
		}
	}
	return sb.String()
}

// AddError records an error on the builder. The first error wins.
func (b *Builder) AddError(err error) *Builder {
	if err != nil && b.err == nil {
		b.err = err
	}
	return b
}

// Err returns the first error recorded on the builder.
func (b *Builder) Err() error { return b.err }

// String returns the accumulated statement text.
func (b *Builder) String() string { return b.sb.String() }

// Len returns the length of the accumulated statement text.
func (b *Builder) Len() int { return b.sb.Len() }

// Params returns the recorded parameters in placeholder order.
func (b *Builder) Params() []Param { return b.params }

// Query returns the statement text and its driver arguments.
func (b *Builder) Query() (string, []any, error) {
	if b.err != nil {
		return "", nil, b.err
	}
	return b.sb.String(), Args(b.dialect, b.params), nil
}
