package batch_test

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/batch"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema"
)

type Widget struct {
	ID      int64
	Name    string
	Qty     int
	Version int64
}

var widgets = schema.Define[Widget]("Widget").
	Fields(
		schema.ID("id", func(w *Widget) *int64 { return &w.ID }),
		schema.Field("name", func(w *Widget) *string { return &w.Name }),
		schema.Field("qty", func(w *Widget) *int { return &w.Qty }),
		schema.Version("version", func(w *Widget) *int64 { return &w.Version }),
	).
	MustBuild()

type Ticket struct {
	ID    uuid.UUID
	Title string
}

var tickets = schema.Define[Ticket]("Ticket").
	Fields(
		schema.ID("id", func(t *Ticket) *uuid.UUID { return &t.ID }),
		schema.Field("title", func(t *Ticket) *string { return &t.Title }),
	).
	MustBuild()

func openStore(t *testing.T) *sql.Driver {
	t.Helper()
	ctx := context.Background()
	drv, err := sql.OpenSQLite(ctx, filepath.Join(t.TempDir(), "store.db"))
	require.NoError(t, err)
	t.Cleanup(func() { drv.Close() })
	for _, stmt := range []string{
		`CREATE TABLE "widgets" ("id" INTEGER PRIMARY KEY AUTOINCREMENT, "name" TEXT NOT NULL, "qty" INTEGER NOT NULL, "version" INTEGER NOT NULL)`,
		`CREATE TABLE "tickets" ("id" TEXT PRIMARY KEY, "title" TEXT NOT NULL)`,
	} {
		require.NoError(t, drv.Exec(ctx, stmt, []any{}, nil))
	}
	return drv
}

// recorder counts the statements it passes through.
type recorder struct {
	dialect.ExecQuerier
	mu           sync.Mutex
	execs, reads int
}

func (r *recorder) Exec(ctx context.Context, query string, args, v any) error {
	r.mu.Lock()
	r.execs++
	r.mu.Unlock()
	return r.ExecQuerier.Exec(ctx, query, args, v)
}

func (r *recorder) Query(ctx context.Context, query string, args, v any) error {
	r.mu.Lock()
	r.reads++
	r.mu.Unlock()
	return r.ExecQuerier.Query(ctx, query, args, v)
}

func newWidgets(n int) []any {
	out := make([]any, n)
	for i := range out {
		out[i] = &Widget{Name: fmt.Sprintf("w%02d", i), Qty: i}
	}
	return out
}

func TestInsertSQLite(t *testing.T) {
	ctx := context.Background()
	drv := openStore(t)
	rec := &recorder{ExecQuerier: drv}
	ins := batch.NewInserter(dialect.SQLite, batch.WithMaxRows(10))

	ws := newWidgets(25)
	require.NoError(t, ins.Insert(ctx, rec, widgets, ws))
	assert.Equal(t, 3, rec.execs)
	assert.Equal(t, 3, rec.reads)
	assert.Equal(t, 2, ins.Cached())
	for i, e := range ws {
		w := e.(*Widget)
		assert.Equal(t, int64(i+1), w.ID)
		assert.Equal(t, fmt.Sprintf("w%02d", i), w.Name)
		assert.Equal(t, i, w.Qty)
		assert.Zero(t, w.Version)
	}

	more := newWidgets(10)
	require.NoError(t, ins.Insert(ctx, rec, widgets, more))
	assert.Equal(t, 2, ins.Cached(), "statement for 10 rows is reused")
	assert.Equal(t, int64(26), more[0].(*Widget).ID)
	assert.Equal(t, int64(35), more[9].(*Widget).ID)

	var rows sql.Rows
	require.NoError(t, drv.Query(ctx, `SELECT * FROM "widgets" ORDER BY "id"`, []any{}, &rows))
	stored, _, err := widgets.Scan(&rows)
	require.NoError(t, err)
	require.Len(t, stored, 35)
	assert.Equal(t, "w24", stored[24].(*Widget).Name)
}

func TestInsertParamLimit(t *testing.T) {
	drv := openStore(t)
	rec := &recorder{ExecQuerier: drv}
	ins := batch.NewInserter(dialect.SQLite, batch.WithMaxParams(9))

	ws := newWidgets(7)
	require.NoError(t, ins.Insert(context.Background(), rec, widgets, ws))
	assert.Equal(t, 3, rec.execs)
	assert.Equal(t, int64(7), ws[6].(*Widget).ID)
}

func TestInsertNaturalKey(t *testing.T) {
	ctx := context.Background()
	drv := openStore(t)
	rec := &recorder{ExecQuerier: drv}
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	ts := []any{&Ticket{ID: ids[0], Title: "a"}, &Ticket{ID: ids[1], Title: "b"}}

	require.NoError(t, batch.NewInserter(dialect.SQLite).Insert(ctx, rec, tickets, ts))
	assert.Equal(t, 1, rec.execs)
	assert.Zero(t, rec.reads)
	assert.Equal(t, ids[0], ts[0].(*Ticket).ID)

	var rows sql.Rows
	require.NoError(t, drv.Query(ctx, `SELECT * FROM "tickets" ORDER BY "title"`, []any{}, &rows))
	stored, _, err := tickets.Scan(&rows)
	require.NoError(t, err)
	require.Len(t, stored, 2)
	assert.Equal(t, ids[1], stored[1].(*Ticket).ID)
}

func TestInsertPostgres(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB(dialect.Postgres, db)

	mock.ExpectQuery(`INSERT INTO "widgets" ("name", "qty", "version") VALUES ($1, $2, $3), ($4, $5, $6) RETURNING *`).
		WithArgs("w00", int64(0), int64(0), "w01", int64(1), int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "qty", "version"}).
			AddRow(int64(10), "w00", int64(0), int64(0)).
			AddRow(int64(11), "w01", int64(1), int64(0)))

	ws := newWidgets(2)
	require.NoError(t, batch.NewInserter(dialect.Postgres).Insert(context.Background(), drv, widgets, ws))
	assert.Equal(t, int64(10), ws[0].(*Widget).ID)
	assert.Equal(t, int64(11), ws[1].(*Widget).ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertMySQL(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB(dialect.MySQL, db)

	mock.ExpectExec("INSERT INTO `widgets` (`name`, `qty`, `version`) VALUES (?, ?, ?), (?, ?, ?), (?, ?, ?)").
		WithArgs("w00", int64(0), int64(0), "w01", int64(1), int64(0), "w02", int64(2), int64(0)).
		WillReturnResult(sqlmock.NewResult(7, 3))

	ws := newWidgets(3)
	require.NoError(t, batch.NewInserter(dialect.MySQL).Insert(context.Background(), drv, widgets, ws))
	for i, e := range ws {
		assert.Equal(t, int64(7+i), e.(*Widget).ID)
	}
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertAbort(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	drv := sql.OpenDB(dialect.Postgres, db)

	boom := errors.New("disk full")
	columns := []string{"id", "name", "qty", "version"}
	mock.ExpectQuery("INSERT INTO").
		WillReturnRows(sqlmock.NewRows(columns).AddRow(int64(1), "w00", int64(0), int64(0)).AddRow(int64(2), "w01", int64(1), int64(0)))
	mock.ExpectQuery("INSERT INTO").WillReturnError(boom)

	ws := newWidgets(5)
	err = batch.NewInserter(dialect.Postgres, batch.WithMaxRows(2)).Insert(context.Background(), drv, widgets, ws)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "batch 2 of 3")
	assert.Equal(t, int64(2), ws[1].(*Widget).ID)
	assert.Zero(t, ws[2].(*Widget).ID)
	assert.Zero(t, ws[4].(*Widget).ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertCanceled(t *testing.T) {
	drv := openStore(t)
	rec := &recorder{ExecQuerier: drv}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := batch.NewInserter(dialect.SQLite).Insert(ctx, rec, widgets, newWidgets(3))
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, rec.execs)
}

type Counter struct {
	ID int64
}

func TestInsertNoColumns(t *testing.T) {
	counters := schema.Define[Counter]("Counter").
		Fields(schema.ID("id", func(c *Counter) *int64 { return &c.ID })).
		MustBuild()
	err := batch.NewInserter(dialect.SQLite).Insert(context.Background(), nil, counters, []any{&Counter{}})
	assert.True(t, veloxdb.IsInvalidBatchConfiguration(err))

	assert.NoError(t, batch.NewInserter(dialect.SQLite).Insert(context.Background(), nil, counters, nil))
}
