// Package sql renders and executes the statements of every veloxdb
// component.
//
// # Builder
//
// Builder is a low-level statement writer. It quotes identifiers for the
// dialect and collects bound parameters under stable names, so the same
// statement shape always yields the same text:
//
//	b := sql.Dialect(dialect.SQLite)
//	b.WriteString("SELECT * FROM ").Ident("users").
//	    WriteString(" WHERE ").Ident("age").WriteString(" > ").Arg("age", 18)
//	query, args, err := b.Query()
//	// SELECT * FROM "users" WHERE "age" > @age
//
// SQLite statements use @name placeholders bound with sql.Named, Postgres
// statements use $n and MySQL statements use ?. A name used twice gets a
// numeric suffix: @age, @age_2.
//
// # Drivers
//
// Driver wraps a *sql.DB and implements dialect.Driver. OpenSQLite opens a
// single-file database with the pragmas veloxdb relies on:
//
//	drv, err := sql.OpenSQLite(ctx, "app.db")
//
// Drivers compose. StatsDriver counts statements, logs slow ones and
// exports Prometheus metrics; DebugDriver logs every statement;
// TraceDriver records OpenTelemetry spans:
//
//	var drv dialect.Driver = sql.NewStatsDriver(base,
//	    sql.WithSlowThreshold(100*time.Millisecond),
//	    sql.WithSlowQueryLog(logger),
//	)
//	drv = sql.NewTraceDriver(drv)
//
// # Scanning
//
// Query results are read into a Rows value. ScanMaps reads every row into a
// map keyed by column name and closes the rows.
package sql
