package orm

import (
	"context"
	"fmt"
	"time"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/concurrency"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/privacy"
	"github.com/syssam/veloxdb/schema"
)

// toucher is implemented by entities keeping their own timestamps, such as
// those embedding mixin.Timestamps.
type toucher interface {
	Touch(time.Time)
}

// Repository reads and writes entities of type T.
type Repository[T any] struct {
	client     *Client
	desc       *schema.Descriptor
	tx         dialect.Tx
	resolution concurrency.Resolution
}

// For returns the repository of the entity registered under name. The
// descriptor must describe *T.
func For[T any](c *Client, name string) (*Repository[T], error) {
	d, err := c.registry.Resolve(name)
	if err != nil {
		return nil, err
	}
	if _, ok := d.New().(*T); !ok {
		return nil, fmt.Errorf("orm: entity %s is %T, not %T", name, d.New(), new(T))
	}
	return &Repository[T]{client: c, desc: d}, nil
}

// MustFor is like For but panics on error.
func MustFor[T any](c *Client, name string) *Repository[T] {
	r, err := For[T](c, name)
	if err != nil {
		panic(err)
	}
	return r
}

// WithTx returns a copy of the repository running its statements in tx.
func (r *Repository[T]) WithTx(tx dialect.Tx) *Repository[T] {
	cp := *r
	cp.tx = tx
	return &cp
}

// WithResolution returns a copy of the repository resolving update conflicts
// with res. The default is concurrency.Throw.
func (r *Repository[T]) WithResolution(res concurrency.Resolution) *Repository[T] {
	cp := *r
	cp.resolution = res
	return &cp
}

// Descriptor returns the descriptor of T.
func (r *Repository[T]) Descriptor() *schema.Descriptor { return r.desc }

func (r *Repository[T]) exec() dialect.ExecQuerier {
	if r.tx != nil {
		return r.tx
	}
	return r.client.driver
}

func (r *Repository[T]) touch(e *T) {
	if t, ok := any(e).(toucher); ok {
		t.Touch(r.client.now())
	}
}

// Get returns the entity with primary key id. Rows hidden by the query
// policy of T read as missing.
func (r *Repository[T]) Get(ctx context.Context, id any) (*T, error) {
	filters, err := r.client.authorizeQuery(ctx, r.desc)
	if err != nil {
		return nil, err
	}
	if len(filters) > 0 {
		q := &Query[T]{repo: r, where: append(filters, r.byID(id)), authorized: true}
		e, err := q.First(ctx)
		if veloxdb.IsNotFound(err) {
			return nil, veloxdb.NewNotFoundErrorWithID(r.desc.Name, id)
		}
		return e, err
	}
	e, err := r.client.controller.Read(ctx, r.exec(), r.desc, id)
	if err != nil {
		return nil, queryError(r.desc, "get", err)
	}
	return e.(*T), nil
}

// Create inserts e. Generated keys and the initial version are written into
// e.
func (r *Repository[T]) Create(ctx context.Context, e *T) error {
	if err := r.authorize(ctx, privacy.OpCreate, e, nil); err != nil {
		return err
	}
	r.touch(e)
	if err := r.client.inserter.Insert(ctx, r.exec(), r.desc, []any{e}); err != nil {
		return mutationError(r.desc, "create", err)
	}
	return nil
}

// CreateMany inserts es in order with as few statements as the parameter
// limit allows. Without a transaction set by WithTx, all batches run in one
// transaction of their own.
func (r *Repository[T]) CreateMany(ctx context.Context, es []*T) error {
	if len(es) == 0 {
		return nil
	}
	rows := make([]any, len(es))
	for i, e := range es {
		if err := r.authorize(ctx, privacy.OpCreate, e, nil); err != nil {
			return err
		}
		r.touch(e)
		rows[i] = e
	}
	if r.tx != nil {
		if err := r.client.inserter.Insert(ctx, r.tx, r.desc, rows); err != nil {
			return mutationError(r.desc, "create", err)
		}
		return nil
	}
	tx, err := r.client.driver.Tx(ctx)
	if err != nil {
		return mutationError(r.desc, "create", err)
	}
	if err := r.client.inserter.Insert(ctx, tx, r.desc, rows); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			err = fmt.Errorf("%w: %w", err, &veloxdb.RollbackError{Err: rerr})
		}
		return mutationError(r.desc, "create", err)
	}
	if err := tx.Commit(); err != nil {
		return mutationError(r.desc, "create", fmt.Errorf("committing transaction: %w", err))
	}
	return nil
}

// Update writes every column of e, guarded by its version. It returns the
// stored entity: e itself, or the entity built by a Merge resolution.
func (r *Repository[T]) Update(ctx context.Context, e *T) (*T, error) {
	if err := r.authorize(ctx, privacy.OpUpdate, e, r.desc.ID(e)); err != nil {
		return nil, err
	}
	r.touch(e)
	res, err := r.client.controller.Update(ctx, r.exec(), r.desc, e, r.resolution)
	if err != nil {
		return nil, mutationError(r.desc, "update", err)
	}
	return res.(*T), nil
}

// UpdateFields applies updates to the row of e, guarded by its version, and
// refreshes e from the stored row.
func (r *Repository[T]) UpdateFields(ctx context.Context, e *T, updates ...expr.Update) (*T, error) {
	if err := r.authorize(ctx, privacy.OpUpdate, e, r.desc.ID(e)); err != nil {
		return nil, err
	}
	res, err := r.client.controller.UpdateFields(ctx, r.exec(), r.desc, e, updates, r.resolution)
	if err != nil {
		return nil, mutationError(r.desc, "update", err)
	}
	return res.(*T), nil
}

// Delete removes the row of e. On versioned entities a row changed since e
// was read is not deleted and an OptimisticConcurrencyError is returned.
func (r *Repository[T]) Delete(ctx context.Context, e *T) error {
	id := r.desc.ID(e)
	if err := r.authorize(ctx, privacy.OpDelete, e, id); err != nil {
		return err
	}
	where := r.byID(id)
	loaded, err := concurrency.VersionOf(r.desc, e)
	if err != nil {
		return mutationError(r.desc, "delete", err)
	}
	ver := r.desc.Version()
	if ver != nil {
		where = expr.And{where, expr.Compare{Column: ver.Name, Op: expr.OpEQ, Value: loaded}}
	}
	n, err := r.delete(ctx, where)
	if err != nil {
		return mutationError(r.desc, "delete", err)
	}
	switch {
	case n > 0:
		return nil
	case ver == nil:
		return veloxdb.NewNotFoundErrorWithID(r.desc.Name, id)
	}
	current, err := r.client.controller.Read(ctx, r.exec(), r.desc, id)
	if err != nil {
		return mutationError(r.desc, "delete", err)
	}
	actual, err := concurrency.VersionOf(r.desc, current)
	if err != nil {
		return mutationError(r.desc, "delete", err)
	}
	return &veloxdb.OptimisticConcurrencyError{
		Entity:   r.desc.Name,
		ID:       id,
		Expected: loaded,
		Actual:   actual,
	}
}

// DeleteByID removes the row with primary key id regardless of its version.
func (r *Repository[T]) DeleteByID(ctx context.Context, id any) error {
	if err := r.authorize(ctx, privacy.OpDelete, nil, id); err != nil {
		return err
	}
	n, err := r.delete(ctx, r.byID(id))
	if err != nil {
		return mutationError(r.desc, "delete", err)
	}
	if n == 0 {
		return veloxdb.NewNotFoundErrorWithID(r.desc.Name, id)
	}
	return nil
}

func (r *Repository[T]) delete(ctx context.Context, where expr.Expr) (int64, error) {
	b := sql.Dialect(r.client.cfg.Dialect)
	b.WriteString("DELETE FROM ").Ident(r.desc.Table).WriteString(" WHERE ")
	if err := expr.NewCompiler(r.client.cfg.Dialect).CompileTo(b, where, r.desc); err != nil {
		return 0, err
	}
	query, args, err := b.Query()
	if err != nil {
		return 0, err
	}
	var res sql.Result
	if err := r.exec().Exec(ctx, query, args, &res); err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *Repository[T]) byID(id any) expr.Expr {
	return expr.Compare{Column: r.desc.PrimaryKey().Name, Op: expr.OpEQ, Value: id}
}

func (r *Repository[T]) authorize(ctx context.Context, op privacy.Op, e *T, id any) error {
	m := &privacy.Mutation{Op: op, Entity: r.desc, ID: id}
	if e != nil {
		m.Value = e
	}
	return r.client.authorizeMutation(ctx, m)
}

// Query starts a query over T.
func (r *Repository[T]) Query() *Query[T] {
	return &Query[T]{repo: r}
}
