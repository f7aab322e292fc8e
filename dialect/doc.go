// Package dialect defines the database dialects veloxdb renders SQL for and
// the narrow driver interfaces every component executes statements through.
//
// # Supported Dialects
//
//	dialect.SQLite   = "sqlite"
//	dialect.Postgres = "postgres"
//	dialect.MySQL    = "mysql"
//
// SQLite is the primary target: a single-file database opened through
// modernc.org/sqlite. Postgres and MySQL share the same renderer and differ
// only in the facts recorded in Capabilities.
//
// # Executor Interface
//
// Statements run through an ExecQuerier, implemented by both Driver and Tx:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// args is always a []any. For Exec, v is nil or a *sql.Result; for Query, v
// is a *sql.Rows from the dialect/sql package.
//
// # Transactions
//
// Transactions are explicit values. A component handed a Tx runs every
// statement on it and never begins one of its own:
//
//	tx, err := drv.Tx(ctx)
//	if err != nil {
//	    return err
//	}
//	if err := repo.WithTx(tx).CreateMany(ctx, users); err != nil {
//	    return errors.Join(err, tx.Rollback())
//	}
//	return tx.Commit()
package dialect
