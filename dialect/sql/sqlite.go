package sql

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"modernc.org/sqlite"

	"github.com/syssam/veloxdb/dialect"
)

// SQLiteDriverName is the database/sql driver name registered by modernc.org/sqlite.
const SQLiteDriverName = "sqlite"

// FoldFunction is the SQL function folding text to lower case with Unicode
// rules on SQLite, whose built-in LOWER folds ASCII only. It is available on
// every connection opened through the "sqlite" driver.
const FoldFunction = "veloxdb_fold"

func init() {
	sqlite.MustRegisterDeterministicScalarFunction(FoldFunction, 1, fold)
}

// Fold lower-cases s the way FoldFunction does. A Caser is not safe for
// concurrent use, so one is created per call.
func Fold(s string) string {
	return cases.Lower(language.Und).String(s)
}

func fold(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case string:
		return Fold(v), nil
	case []byte:
		return Fold(string(v)), nil
	default:
		return v, nil
	}
}

// DefaultPragmas are applied to every database opened by OpenSQLite.
var DefaultPragmas = []string{
	"PRAGMA journal_mode = WAL",
	"PRAGMA synchronous = NORMAL",
	"PRAGMA busy_timeout = 5000",
	"PRAGMA foreign_keys = ON",
}

// OpenSQLite opens the single-file database at path. The pool is limited to
// one connection so pragmas hold for every statement and writers never see
// SQLITE_BUSY from their own pool.
func OpenSQLite(ctx context.Context, path string, pragmas ...string) (*Driver, error) {
	db, err := sql.Open(SQLiteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: open %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	if len(pragmas) == 0 {
		pragmas = DefaultPragmas
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, fmt.Errorf("dialect/sql: %q: %w", p, err)
		}
	}
	return OpenDB(dialect.SQLite, db), nil
}
