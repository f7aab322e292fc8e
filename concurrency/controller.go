package concurrency

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/field"
)

// DefaultMaxRetries is the number of conflict retries allowed when none is
// configured.
const DefaultMaxRetries = 3

// Controller runs compare-and-swap updates for one dialect. It holds no
// per-call state and may be shared.
type Controller struct {
	dialect    string
	caps       dialect.Capabilities
	compiler   *expr.Compiler
	log        *slog.Logger
	maxRetries int
	now        func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger receiving conflict warnings.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// WithMaxRetries caps the retries of one update. n <= 0 removes the cap.
func WithMaxRetries(n int) Option {
	return func(c *Controller) { c.maxRetries = n }
}

// WithClock sets the clock used for timestamp versions.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController returns a controller rendering statements for the named
// dialect.
func NewController(dialectName string, opts ...Option) *Controller {
	c := &Controller{
		dialect:    dialectName,
		caps:       dialect.Caps(dialectName),
		compiler:   expr.NewCompiler(dialectName),
		log:        slog.Default(),
		maxRetries: DefaultMaxRetries,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// setFunc writes the SET list of one attempt, without the version column.
type setFunc func(b *sql.Builder, entity any) error

// Update writes every updatable column of entity. It returns the entity as
// stored: the caller's entity, or the result of a Merge resolution.
func (c *Controller) Update(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, entity any, r Resolution) (any, error) {
	return c.update(ctx, exec, d, entity, r, c.setColumns(d))
}

// UpdateFields applies updates to the row of entity and refreshes entity
// from the stored row.
func (c *Controller) UpdateFields(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, entity any, updates []expr.Update, r Resolution) (any, error) {
	set := func(b *sql.Builder, _ any) error {
		return c.compiler.CompileUpdateTo(b, updates, d)
	}
	return c.update(ctx, exec, d, entity, r, set)
}

func (c *Controller) setColumns(d *schema.Descriptor) setFunc {
	return func(b *sql.Builder, entity any) error {
		cols := d.Updatable()
		if len(cols) == 0 {
			return nil
		}
		updates := make([]expr.Update, len(cols))
		for i, col := range cols {
			updates[i] = expr.Set{Column: col.Name, Value: col.Value(entity)}
		}
		return c.compiler.CompileUpdateTo(b, updates, d)
	}
}

func (c *Controller) update(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, entity any, r Resolution, set setFunc) (any, error) {
	ver := d.Version()
	id := d.ID(entity)
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var state VersionState
		if ver != nil {
			var err error
			if state, err = c.bump(ver, entity); err != nil {
				return nil, err
			}
		}
		stored, ok, err := c.attempt(ctx, exec, d, entity, id, state, set)
		if err != nil {
			c.restore(ver, entity, state)
			return nil, err
		}
		if ok {
			if stored != nil {
				if err := d.CopyColumns(entity, stored); err != nil {
					return nil, err
				}
			}
			return entity, nil
		}
		c.restore(ver, entity, state)
		if ver == nil {
			return nil, veloxdb.NewNotFoundErrorWithID(d.Name, id)
		}
		current, err := c.Read(ctx, exec, d, id)
		if err != nil {
			return nil, err
		}
		actual, err := canonical(ver, current)
		if err != nil {
			return nil, err
		}
		conflict := &veloxdb.OptimisticConcurrencyError{
			Entity:   d.Name,
			ID:       id,
			Expected: state.Loaded,
			Actual:   actual,
		}
		c.log.WarnContext(ctx, "optimistic concurrency conflict",
			"entity", d.Name,
			"id", id,
			"expected", state.Loaded,
			"actual", actual,
			"resolution", r.String(),
			"attempt", attempt,
		)
		switch r.strategy {
		case preferStored:
			if err := d.CopyColumns(entity, current); err != nil {
				return nil, err
			}
			return entity, nil
		case preferIncoming:
		case merge:
			if r.merge == nil {
				return nil, conflict
			}
			attempted := d.Clone(entity)
			if err := ver.Set(attempted, state.Pending); err != nil {
				return nil, err
			}
			next, err := r.merge(current, attempted, d.Clone(entity))
			if err != nil {
				return nil, err
			}
			if next == nil {
				return nil, conflict
			}
			entity, set = next, c.setColumns(d)
		default:
			return nil, conflict
		}
		if c.maxRetries > 0 && attempt > c.maxRetries {
			return nil, conflict
		}
		if err := ver.Set(entity, actual); err != nil {
			return nil, err
		}
	}
}

// attempt runs one UPDATE. It reports false when no row matched and returns
// the stored row when the dialect can produce it.
func (c *Controller) attempt(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, entity, id any, state VersionState, set setFunc) (any, bool, error) {
	pk, ver := d.PrimaryKey(), d.Version()
	b := sql.Dialect(c.dialect)
	b.WriteString("UPDATE ").Ident(d.Table).WriteString(" SET ")
	n := b.Len()
	if err := set(b, entity); err != nil {
		return nil, false, err
	}
	var where expr.Expr = expr.Compare{Column: pk.Name, Op: expr.OpEQ, Value: id}
	if ver != nil {
		pending, err := field.ToStorage(state.Pending, ver.Type)
		if err != nil {
			return nil, false, err
		}
		if b.Len() > n {
			b.WriteString(", ")
		}
		b.Ident(ver.Name).WriteString(" = ").Arg(ver.Name, pending)
		where = expr.And{where, expr.Compare{Column: ver.Name, Op: expr.OpEQ, Value: state.Loaded}}
	} else if b.Len() == n {
		return nil, false, veloxdb.NewUnsupportedExpressionError("Update", "%s has no updatable columns", d.Name)
	}
	b.WriteString(" WHERE ")
	if err := c.compiler.CompileTo(b, where, d); err != nil {
		return nil, false, err
	}
	if c.caps.Returning {
		b.WriteString(" RETURNING *")
	}
	query, args, err := b.Query()
	if err != nil {
		return nil, false, err
	}
	if c.caps.Returning {
		rows := &sql.Rows{}
		if err := exec.Query(ctx, query, args, rows); err != nil {
			return nil, false, fmt.Errorf("concurrency: update %s: %w", d.Name, err)
		}
		stored, _, err := d.Scan(rows)
		if err != nil {
			return nil, false, err
		}
		if len(stored) == 0 {
			return nil, false, nil
		}
		return stored[0], true, nil
	}
	var res sql.Result
	if err := exec.Exec(ctx, query, args, &res); err != nil {
		return nil, false, fmt.Errorf("concurrency: update %s: %w", d.Name, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("concurrency: update %s: %w", d.Name, err)
	}
	if affected == 0 {
		return nil, false, nil
	}
	stored, err := c.Read(ctx, exec, d, id)
	if err != nil {
		return nil, false, err
	}
	return stored, true, nil
}

// bump writes the next version into entity and returns both versions.
func (c *Controller) bump(ver *schema.Column, entity any) (VersionState, error) {
	loaded, err := canonical(ver, entity)
	if err != nil {
		return VersionState{}, err
	}
	pending, err := Next(ver.Type, loaded, c.now())
	if err != nil {
		return VersionState{}, err
	}
	if err := ver.Set(entity, pending); err != nil {
		return VersionState{}, err
	}
	return VersionState{Loaded: loaded, Pending: pending}, nil
}

// restore puts the loaded version back into entity after a failed attempt.
func (c *Controller) restore(ver *schema.Column, entity any, state VersionState) {
	if ver == nil || state.Pending == nil {
		return
	}
	if err := ver.Set(entity, state.Loaded); err != nil {
		c.log.Error("restore version", "column", ver.Name, "error", err)
	}
}

// VersionOf returns the version of entity as int64, time.Time or uuid.UUID,
// or nil when d is unversioned.
func VersionOf(d *schema.Descriptor, entity any) (any, error) {
	ver := d.Version()
	if ver == nil {
		return nil, nil
	}
	return canonical(ver, entity)
}

func canonical(ver *schema.Column, entity any) (any, error) {
	v, err := ver.StorageValue(entity)
	if err != nil {
		return nil, err
	}
	return field.FromStorage(v, ver.Type)
}

// Read returns the stored row with primary key id.
func (c *Controller) Read(ctx context.Context, exec dialect.ExecQuerier, d *schema.Descriptor, id any) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := sql.Dialect(c.dialect)
	b.WriteString("SELECT * FROM ").Ident(d.Table).WriteString(" WHERE ")
	if err := c.compiler.CompileTo(b, expr.Compare{Column: d.PrimaryKey().Name, Op: expr.OpEQ, Value: id}, d); err != nil {
		return nil, err
	}
	query, args, err := b.Query()
	if err != nil {
		return nil, err
	}
	rows := &sql.Rows{}
	if err := exec.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("concurrency: read %s: %w", d.Name, err)
	}
	stored, _, err := d.Scan(rows)
	if err != nil {
		return nil, err
	}
	if len(stored) == 0 {
		return nil, veloxdb.NewNotFoundErrorWithID(d.Name, id)
	}
	return stored[0], nil
}

// PrepareInsert assigns the initial version to an entity whose version is
// unset, before it is inserted.
func (c *Controller) PrepareInsert(d *schema.Descriptor, entity any) error {
	ver := d.Version()
	if ver == nil {
		return nil
	}
	v, err := canonical(ver, entity)
	if err != nil {
		return err
	}
	if !IsUnset(v) {
		return nil
	}
	initial, err := Initial(ver.Type)
	if err != nil {
		return err
	}
	return ver.Set(entity, initial)
}
