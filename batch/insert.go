package batch

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/syssam/veloxdb/concurrency"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema"
)

// DefaultMaxRows is the row cap of one INSERT statement when none is
// configured.
const DefaultMaxRows = 500

// Inserter writes entities with multi-row INSERT statements. It is safe for
// concurrent use.
type Inserter struct {
	dialect   string
	caps      dialect.Capabilities
	maxRows   int
	maxParams int
	versions  *concurrency.Controller
	cache     *stmtCache
	log       *slog.Logger
}

// Option configures an Inserter.
type Option func(*Inserter)

// WithMaxRows caps the rows of one statement.
func WithMaxRows(n int) Option {
	return func(i *Inserter) { i.maxRows = n }
}

// WithMaxParams overrides the parameter limit of the dialect.
func WithMaxParams(n int) Option {
	return func(i *Inserter) { i.maxParams = n }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(i *Inserter) { i.log = l }
}

// WithController sets the controller assigning initial versions.
func WithController(c *concurrency.Controller) Option {
	return func(i *Inserter) { i.versions = c }
}

// WithCapabilities overrides the capabilities of the dialect.
func WithCapabilities(c dialect.Capabilities) Option {
	return func(i *Inserter) { i.caps = c }
}

// NewInserter returns an inserter for the named dialect.
func NewInserter(dialectName string, opts ...Option) *Inserter {
	caps := dialect.Caps(dialectName)
	i := &Inserter{
		dialect:   dialectName,
		caps:      caps,
		maxRows:   DefaultMaxRows,
		maxParams: caps.MaxParams,
		cache:     newStmtCache(),
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(i)
	}
	if i.versions == nil {
		i.versions = concurrency.NewController(dialectName, concurrency.WithLogger(i.log))
	}
	return i
}

// Cached returns the number of statement texts held by the inserter.
func (i *Inserter) Cached() int { return i.cache.len() }

// Insert writes entities, pointers of the type described by d, in order.
// Generated primary keys are written back into the entities. An error aborts
// the remaining batches; batches already executed are not undone unless exec
// is a transaction the caller rolls back.
func (i *Inserter) Insert(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, entities []any) error {
	if len(entities) == 0 {
		return nil
	}
	for _, e := range entities {
		if err := i.versions.PrepareInsert(d, e); err != nil {
			return err
		}
	}
	cols := d.Insertable()
	plan, err := Partition(entities, len(cols), i.maxRows, i.maxParams)
	if err != nil {
		return err
	}
	for n, rows := range plan.Batches {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := i.batch(ctx, exec, d, cols, rows); err != nil {
			return fmt.Errorf("batch: insert %s (batch %d of %d): %w", d.Name, n+1, len(plan.Batches), err)
		}
	}
	i.log.DebugContext(ctx, "batch insert",
		"entity", d.Name,
		"rows", len(entities),
		"batches", len(plan.Batches),
		"size", plan.Size,
	)
	return nil
}

// returning reports whether generated rows come back from the INSERT itself.
func (i *Inserter) returning(d *schema.Descriptor) bool {
	return d.PrimaryKey().AutoIncrement && i.caps.Returning && i.caps.OrderedReturning
}

func (i *Inserter) batch(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, cols []*schema.Column, rows []any) error {
	s, err := i.statement(d, cols, len(rows))
	if err != nil {
		return err
	}
	args := make([]any, 0, len(s.names))
	for _, e := range rows {
		for _, c := range cols {
			v, err := c.StorageValue(e)
			if err != nil {
				return err
			}
			if i.dialect == dialect.SQLite {
				v = sql.Named(s.names[len(args)], v)
			}
			args = append(args, v)
		}
	}
	if i.returning(d) {
		var r sql.Rows
		if err := exec.Query(ctx, s.query, args, &r); err != nil {
			return err
		}
		stored, _, err := d.Scan(&r)
		if err != nil {
			return err
		}
		return associate(d, rows, stored)
	}
	var res sql.Result
	if err := exec.Exec(ctx, s.query, args, &res); err != nil {
		return err
	}
	if !d.PrimaryKey().AutoIncrement {
		return nil
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	if i.caps.FirstInsertID {
		pk := d.PrimaryKey()
		for n, e := range rows {
			if err := pk.Set(e, id+int64(n)); err != nil {
				return err
			}
		}
		return nil
	}
	return i.reread(ctx, exec, d, rows, id)
}

// reread loads the rows of a batch whose last generated key is last. Keys
// of a single INSERT are consecutive while the writer holds the database.
func (i *Inserter) reread(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, rows []any, last int64) error {
	first := last - int64(len(rows)) + 1
	b := sql.Dialect(i.dialect)
	b.WriteString("SELECT * FROM ").Ident(d.Table).
		WriteString(" WHERE rowid BETWEEN ").Arg("first", first).
		WriteString(" AND ").Arg("last", last).
		WriteString(" ORDER BY rowid")
	query, args, err := b.Query()
	if err != nil {
		return err
	}
	var r sql.Rows
	if err := exec.Query(ctx, query, args, &r); err != nil {
		return err
	}
	stored, _, err := d.Scan(&r)
	if err != nil {
		return err
	}
	return associate(d, rows, stored)
}

// associate copies stored rows into the entities they were inserted from,
// by position.
func associate(d *schema.Descriptor, rows, stored []any) error {
	if len(stored) != len(rows) {
		return fmt.Errorf("%d rows inserted, %d returned", len(rows), len(stored))
	}
	for n, e := range rows {
		if err := d.CopyColumns(e, stored[n]); err != nil {
			return err
		}
	}
	return nil
}

// statement returns the INSERT text for n rows of cols, rendering it on
// first use.
func (i *Inserter) statement(d *schema.Descriptor, cols []*schema.Column, n int) (*stmt, error) {
	names := make([]string, len(cols))
	for j, c := range cols {
		names[j] = c.Name
	}
	return i.cache.get(newStmtKey(d.Table, names, n), func() (*stmt, error) {
		b := sql.Dialect(i.dialect)
		b.WriteString("INSERT INTO ").Ident(d.Table).
			WriteString(" (").IdentComma(names...).
			WriteString(") VALUES ")
		for row := range n {
			if row > 0 {
				b.WriteString(", ")
			}
			b.WriteString("(")
			for j, name := range names {
				if j > 0 {
					b.WriteString(", ")
				}
				b.Arg(name+"_"+strconv.Itoa(row), nil)
			}
			b.WriteString(")")
		}
		if i.returning(d) {
			b.WriteString(" RETURNING *")
		}
		if err := b.Err(); err != nil {
			return nil, err
		}
		params := b.Params()
		s := &stmt{query: b.String(), names: make([]string, len(params))}
		for j, p := range params {
			s.names[j] = p.Name
		}
		return s, nil
	})
}
