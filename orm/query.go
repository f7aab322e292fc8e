package orm

import (
	"context"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/include"
	"github.com/syssam/veloxdb/schema/field"
)

// OrderTerm orders query results by one column.
type OrderTerm struct {
	Column string
	Desc   bool
}

// Asc orders by column in ascending order.
func Asc(column string) OrderTerm { return OrderTerm{Column: column} }

// Desc orders by column in descending order.
func Desc(column string) OrderTerm { return OrderTerm{Column: column, Desc: true} }

// Query is the builder for reading entities of type T. A Query is not safe
// for concurrent use.
type Query[T any] struct {
	repo     *Repository[T]
	where    []expr.Expr
	includes []string
	order    []OrderTerm
	limit    *int
	offset   *int
	// authorized is set when where already holds the policy filters.
	authorized bool
}

// Where adds filters to the query. Filters are combined with AND.
func (q *Query[T]) Where(filters ...expr.Expr) *Query[T] {
	q.where = append(q.where, filters...)
	return q
}

// Include eager-loads the navigations named by the dotted paths.
func (q *Query[T]) Include(paths ...string) *Query[T] {
	q.includes = append(q.includes, paths...)
	return q
}

// Order adds ordering terms.
func (q *Query[T]) Order(terms ...OrderTerm) *Query[T] {
	q.order = append(q.order, terms...)
	return q
}

// Limit limits the number of entities returned.
func (q *Query[T]) Limit(n int) *Query[T] {
	q.limit = &n
	return q
}

// Offset skips the first n entities.
func (q *Query[T]) Offset(n int) *Query[T] {
	q.offset = &n
	return q
}

// All executes the query and returns the entities with their includes loaded.
func (q *Query[T]) All(ctx context.Context) ([]*T, error) {
	d := q.repo.desc
	tree, err := include.Build(q.repo.client.registry, d, q.repo.client.cfg.MaxIncludeDepth, q.includes...)
	if err != nil {
		return nil, err
	}
	where, err := q.filters(ctx)
	if err != nil {
		return nil, err
	}
	b := sql.Dialect(q.repo.client.cfg.Dialect)
	b.WriteString("SELECT * FROM ").Ident(d.Table)
	if err := q.filter(b, where); err != nil {
		return nil, queryError(d, "select", err)
	}
	if err := q.orderBy(b); err != nil {
		return nil, queryError(d, "select", err)
	}
	q.paginate(b)
	query, args, err := b.Query()
	if err != nil {
		return nil, queryError(d, "select", err)
	}
	exec := q.repo.exec()
	var rows sql.Rows
	if err := exec.Query(ctx, query, args, &rows); err != nil {
		return nil, queryError(d, "select", err)
	}
	entities, _, err := d.Scan(&rows)
	if err != nil {
		return nil, queryError(d, "select", err)
	}
	if err := q.repo.client.loader.Load(ctx, exec, entities, tree); err != nil {
		return nil, queryError(d, "include", err)
	}
	out := make([]*T, len(entities))
	for i, e := range entities {
		out[i] = e.(*T)
	}
	return out, nil
}

// First returns the first entity of the query, or a NotFoundError.
func (q *Query[T]) First(ctx context.Context) (*T, error) {
	es, err := q.Limit(1).All(ctx)
	if err != nil {
		return nil, err
	}
	if len(es) == 0 {
		return nil, veloxdb.NewNotFoundError(q.repo.desc.Name)
	}
	return es[0], nil
}

// Only returns the single entity of the query. It returns a NotFoundError
// when there is none and a NotSingularError when there are several.
func (q *Query[T]) Only(ctx context.Context) (*T, error) {
	es, err := q.Limit(2).All(ctx)
	if err != nil {
		return nil, err
	}
	switch len(es) {
	case 1:
		return es[0], nil
	case 0:
		return nil, veloxdb.NewNotFoundError(q.repo.desc.Name)
	default:
		return nil, veloxdb.NewNotSingularErrorWithCount(q.repo.desc.Name, len(es))
	}
}

// Count returns the number of rows matching the filters. Ordering,
// pagination and includes are ignored.
func (q *Query[T]) Count(ctx context.Context) (int, error) {
	d := q.repo.desc
	where, err := q.filters(ctx)
	if err != nil {
		return 0, err
	}
	b := sql.Dialect(q.repo.client.cfg.Dialect)
	b.WriteString("SELECT COUNT(*) AS ").Ident("count").WriteString(" FROM ").Ident(d.Table)
	if err := q.filter(b, where); err != nil {
		return 0, queryError(d, "count", err)
	}
	query, args, err := b.Query()
	if err != nil {
		return 0, queryError(d, "count", err)
	}
	var rows sql.Rows
	if err := q.repo.exec().Query(ctx, query, args, &rows); err != nil {
		return 0, queryError(d, "count", err)
	}
	maps, err := sql.ScanMaps(&rows)
	if err != nil {
		return 0, queryError(d, "count", err)
	}
	if len(maps) != 1 {
		return 0, queryError(d, "count", veloxdb.NewNotSingularErrorWithCount(d.Name, len(maps)))
	}
	n, err := field.FromStorage(maps[0]["count"], field.TypeInt64)
	if err != nil {
		return 0, queryError(d, "count", err)
	}
	return int(n.(int64)), nil
}

// Exist reports whether any row matches the filters.
func (q *Query[T]) Exist(ctx context.Context) (bool, error) {
	n, err := q.Count(ctx)
	return n > 0, err
}

// filters returns the query filters followed by those of the query policy.
func (q *Query[T]) filters(ctx context.Context) ([]expr.Expr, error) {
	if q.authorized {
		return q.where, nil
	}
	extra, err := q.repo.client.authorizeQuery(ctx, q.repo.desc)
	if err != nil {
		return nil, err
	}
	return append(q.where[:len(q.where):len(q.where)], extra...), nil
}

func (q *Query[T]) filter(b *sql.Builder, filters []expr.Expr) error {
	if len(filters) == 0 {
		return nil
	}
	var where expr.Expr = expr.And(filters)
	if len(filters) == 1 {
		where = filters[0]
	}
	b.WriteString(" WHERE ")
	return expr.NewCompiler(b.Dialect()).CompileTo(b, where, q.repo.desc)
}

func (q *Query[T]) orderBy(b *sql.Builder) error {
	for i, o := range q.order {
		col, err := q.repo.desc.Lookup(o.Column)
		if err != nil {
			return err
		}
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.Ident(col.Name)
		if o.Desc {
			b.WriteString(" DESC")
		}
	}
	return nil
}

// paginate writes LIMIT and OFFSET. SQLite and MySQL accept OFFSET only
// after a LIMIT, so an unlimited one is written for them.
func (q *Query[T]) paginate(b *sql.Builder) {
	switch {
	case q.limit != nil:
		b.WriteString(" LIMIT ").Arg("limit", *q.limit)
	case q.offset != nil && b.Dialect() == dialect.SQLite:
		b.WriteString(" LIMIT -1")
	case q.offset != nil && b.Dialect() == dialect.MySQL:
		b.WriteString(" LIMIT 18446744073709551615")
	}
	if q.offset != nil {
		b.WriteString(" OFFSET ").Arg("offset", *q.offset)
	}
}
