package dialect

import (
	"context"
	"database/sql/driver"
	"strconv"
)

// Dialect names.
const (
	SQLite   = "sqlite"
	Postgres = "postgres"
	MySQL    = "mysql"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. v is nil or a
	// pointer to a sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows into v, a pointer to sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// components that read and write entities.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

// Capabilities records what a dialect supports in the statements veloxdb
// renders.
type Capabilities struct {
	// Returning is set when INSERT and UPDATE accept a RETURNING clause.
	Returning bool
	// OrderedReturning is set when a multi-row INSERT ... RETURNING yields rows
	// in VALUES order.
	OrderedReturning bool
	// JunctionKey is set when a joined select can project the junction's owner
	// key next to the related row.
	JunctionKey bool
	// FirstInsertID is set when LastInsertId reports the first generated id
	// of a multi-row insert instead of the last one.
	FirstInsertID bool
	// MaxParams is the bound-parameter limit of a single statement.
	MaxParams int
}

// Capabilities of the supported dialects.
var capabilities = map[string]Capabilities{
	SQLite: {
		Returning:   true,
		JunctionKey: true,
		MaxParams:   999,
	},
	Postgres: {
		Returning:        true,
		OrderedReturning: true,
		JunctionKey:      true,
		MaxParams:        65535,
	},
	MySQL: {
		JunctionKey:   true,
		FirstInsertID: true,
		MaxParams:     65535,
	},
}

// Caps returns the capabilities of the named dialect. Unknown names get the
// conservative SQLite set.
func Caps(name string) Capabilities {
	if c, ok := capabilities[name]; ok {
		return c
	}
	return capabilities[SQLite]
}

// Supported reports whether name is a known dialect.
func Supported(name string) bool {
	_, ok := capabilities[name]
	return ok
}

// Placeholder returns the bound-parameter marker for the named parameter at
// 1-based position pos.
func Placeholder(name, param string, pos int) string {
	switch name {
	case Postgres:
		return "$" + strconv.Itoa(pos)
	case MySQL:
		return "?"
	default:
		return "@" + param
	}
}

// QuoteChar returns the identifier quote of the named dialect.
func QuoteChar(name string) byte {
	if name == MySQL {
		return '`'
	}
	return '"'
}
