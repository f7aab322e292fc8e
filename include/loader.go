package include

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/expr"
	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/edge"
	"github.com/syssam/veloxdb/schema/field"
)

// ownerColumn is the alias projecting the junction owner key next to each
// many-to-many row.
const ownerColumn = "__owner"

// Loader populates the navigations of fetched entities.
type Loader struct {
	dialect   string
	caps      dialect.Capabilities
	maxParams int
	filter    Filter
	log       *slog.Logger
}

// Filter returns the filters every loaded row of d must satisfy. An error
// aborts the load.
type Filter func(ctx context.Context, d *schema.Descriptor) ([]expr.Expr, error)

// Option configures a Loader.
type Option func(*Loader)

// WithLogger sets the logger receiving one debug line per loaded level.
func WithLogger(l *slog.Logger) Option {
	return func(ld *Loader) { ld.log = l }
}

// WithMaxParams caps the keys bound by one statement.
func WithMaxParams(n int) Option {
	return func(ld *Loader) {
		if n > 0 {
			ld.maxParams = n
		}
	}
}

// WithFilter narrows every include statement with the filters f returns for
// its target entity.
func WithFilter(f Filter) Option {
	return func(ld *Loader) { ld.filter = f }
}

// WithCapabilities overrides the capabilities of the dialect.
func WithCapabilities(c dialect.Capabilities) Option {
	return func(ld *Loader) { ld.caps = c }
}

// NewLoader returns a loader rendering statements for the named dialect.
func NewLoader(dialectName string, opts ...Option) *Loader {
	ld := &Loader{
		dialect: dialectName,
		caps:    dialect.Caps(dialectName),
		log:     slog.Default(),
	}
	for _, opt := range opts {
		opt(ld)
	}
	if ld.maxParams <= 0 {
		ld.maxParams = ld.caps.MaxParams
	}
	return ld
}

// Load resolves tree against roots, entities of tree.Root fetched earlier,
// assigning every included navigation in place. Statements run through exec,
// so a transaction passed by the caller covers the whole load.
func (l *Loader) Load(ctx context.Context, exec dialect.ExecQuerier, roots []any, tree *Tree) error {
	if tree.Empty() || len(roots) == 0 {
		return nil
	}
	return l.level(ctx, exec, roots, tree.Nodes, 1)
}

func (l *Loader) level(ctx context.Context, exec dialect.ExecQuerier, owners []any, nodes []*Node, depth int) error {
	for _, n := range nodes {
		extra, err := l.filters(ctx, n.Step.Target)
		if err != nil {
			return err
		}
		var related []any
		switch n.Step.Kind() {
		case edge.OneToMany:
			related, err = l.oneToMany(ctx, exec, owners, n.Step, extra)
		case edge.ManyToMany:
			if l.caps.JunctionKey {
				related, err = l.manyToMany(ctx, exec, owners, n.Step, extra)
			} else {
				related, err = l.manyToManyEach(ctx, exec, owners, n.Step, extra)
			}
		case edge.ManyToOne:
			related, err = l.manyToOne(ctx, exec, owners, n.Step, extra)
		default:
			err = fmt.Errorf("include: navigation %s.%s has kind %s", n.Step.Source.Name, n.Step.Name(), n.Step.Kind())
		}
		if err != nil {
			return err
		}
		l.log.DebugContext(ctx, "include level loaded",
			"entity", n.Step.Source.Name,
			"navigation", n.Step.Name(),
			"kind", n.Step.Kind().String(),
			"depth", depth,
			"owners", len(owners),
			"related", len(related),
		)
		if len(n.Children) > 0 && len(related) > 0 {
			if err := l.level(ctx, exec, related, n.Children, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

func (l *Loader) filters(ctx context.Context, d *schema.Descriptor) ([]expr.Expr, error) {
	if l.filter == nil {
		return nil, nil
	}
	return l.filter(ctx, d)
}

// narrow ANDs the extra filters onto the key filter of a target statement.
func narrow(key expr.Expr, extra []expr.Expr) expr.Expr {
	if len(extra) == 0 {
		return key
	}
	return append(expr.And{key}, extra...)
}

// narrowJoined writes the extra filters of a many-to-many statement, whose
// key filter is on the junction, against the qualified target columns.
func (l *Loader) narrowJoined(b *sql.Builder, target *schema.Descriptor, extra []expr.Expr) error {
	if len(extra) == 0 {
		return nil
	}
	b.WriteString(" AND (")
	if err := expr.NewCompiler(l.dialect).Qualify(target.Table).CompileTo(b, expr.And(extra), target); err != nil {
		return err
	}
	b.WriteString(")")
	return nil
}

// keysOf collects the distinct values of col across entities, skipping NULLs.
func keysOf(entities []any, col *schema.Column) (*keySet, error) {
	set := newKeySet()
	for _, e := range entities {
		v, err := col.StorageValue(e)
		if err != nil {
			return nil, err
		}
		if v == nil {
			continue
		}
		k, err := field.Key(v, col.Type)
		if err != nil {
			return nil, err
		}
		set.add(k, v)
	}
	return set, nil
}

// query runs the statement in b and scans rows of target.
func (l *Loader) query(ctx context.Context, exec dialect.ExecQuerier, b *sql.Builder, target *schema.Descriptor) ([]any, []map[string]any, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}
	query, args, err := b.Query()
	if err != nil {
		return nil, nil, err
	}
	rows := &sql.Rows{}
	if err := exec.Query(ctx, query, args, rows); err != nil {
		return nil, nil, fmt.Errorf("include: load %s: %w", target.Name, err)
	}
	return target.Scan(rows)
}

// oneToMany loads the target rows whose foreign key references an owner.
func (l *Loader) oneToMany(ctx context.Context, exec dialect.ExecQuerier, owners []any, s Step, extra []expr.Expr) ([]any, error) {
	pk := s.Source.PrimaryKey()
	fk, err := s.Target.Lookup(s.Navigation.ForeignKey)
	if err != nil {
		return nil, err
	}
	keys, err := keysOf(owners, pk)
	if err != nil {
		return nil, err
	}
	c := expr.NewCompiler(l.dialect)
	var related []any
	for _, chunk := range chunks(keys.values, l.maxParams) {
		b := sql.Dialect(l.dialect)
		b.WriteString("SELECT * FROM ").Ident(s.Target.Table).WriteString(" WHERE ")
		if err := c.CompileTo(b, narrow(expr.In{Column: fk.Name, Values: chunk}, extra), s.Target); err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY ").IdentComma(fk.Name, s.Target.PrimaryKey().Name)
		rows, _, err := l.query(ctx, exec, b, s.Target)
		if err != nil {
			return nil, err
		}
		related = append(related, rows...)
	}
	groups, err := groupByKey(related, func(e any) (any, error) { return fk.Key(e) })
	if err != nil {
		return nil, err
	}
	for _, o := range owners {
		k, err := pk.Key(o)
		if err != nil {
			return nil, err
		}
		s.Navigation.Assign(o, groups[k])
	}
	return related, nil
}

// manyToOne loads the targets referenced by the owners' foreign keys.
func (l *Loader) manyToOne(ctx context.Context, exec dialect.ExecQuerier, owners []any, s Step, extra []expr.Expr) ([]any, error) {
	fk, err := s.Source.Lookup(s.Navigation.ForeignKey)
	if err != nil {
		return nil, err
	}
	pk := s.Target.PrimaryKey()
	keys, err := keysOf(owners, fk)
	if err != nil {
		return nil, err
	}
	c := expr.NewCompiler(l.dialect)
	var related []any
	for _, chunk := range chunks(keys.values, l.maxParams) {
		b := sql.Dialect(l.dialect)
		b.WriteString("SELECT * FROM ").Ident(s.Target.Table).WriteString(" WHERE ")
		if err := c.CompileTo(b, narrow(expr.In{Column: pk.Name, Values: chunk}, extra), s.Target); err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY ").Ident(pk.Name)
		rows, _, err := l.query(ctx, exec, b, s.Target)
		if err != nil {
			return nil, err
		}
		related = append(related, rows...)
	}
	byKey := make(map[any]any, len(related))
	for _, r := range related {
		k, err := pk.Key(r)
		if err != nil {
			return nil, err
		}
		byKey[k] = r
	}
	for _, o := range owners {
		v, err := fk.StorageValue(o)
		if err != nil {
			return nil, err
		}
		if v == nil {
			s.Navigation.Assign(o, nil)
			continue
		}
		k, err := field.Key(v, fk.Type)
		if err != nil {
			return nil, err
		}
		if r, ok := byKey[k]; ok {
			s.Navigation.Assign(o, []any{r})
		} else {
			s.Navigation.Assign(o, nil)
		}
	}
	return related, nil
}

// junctionJoin writes the select list, the join and the target ordering
// shared by the many-to-many statements, leaving the WHERE clause open.
func junctionJoin(b *sql.Builder, s Step, owner *schema.Column, project bool) {
	target, junction := s.Target.Table, s.Junction.Table
	b.WriteString("SELECT ").Ident(target).WriteString(".*")
	if project {
		b.WriteString(", ").Column(junction, owner.Name).WriteString(" AS ").Ident(ownerColumn)
	}
	b.WriteString(" FROM ").Ident(target).
		WriteString(" INNER JOIN ").Ident(junction).
		WriteString(" ON ").Column(target, s.Target.PrimaryKey().Name).
		WriteString(" = ").Column(junction, s.Navigation.JunctionTarget).
		WriteString(" WHERE ")
}

// manyToMany loads the targets linked to the owners through the junction in
// one statement per chunk of owner keys, grouping rows by the projected
// owner key. A target linked to several owners is shared between them.
func (l *Loader) manyToMany(ctx context.Context, exec dialect.ExecQuerier, owners []any, s Step, extra []expr.Expr) ([]any, error) {
	owner, err := s.Junction.Lookup(s.Navigation.JunctionOwner)
	if err != nil {
		return nil, err
	}
	pk := s.Source.PrimaryKey()
	keys, err := keysOf(owners, pk)
	if err != nil {
		return nil, err
	}
	var (
		c      = expr.NewCompiler(l.dialect).Qualify(s.Junction.Table)
		tpk    = s.Target.PrimaryKey()
		shared = make(map[any]any)
		groups = make(map[any][]any)
		unique []any
	)
	for _, chunk := range chunks(keys.values, l.maxParams) {
		b := sql.Dialect(l.dialect)
		junctionJoin(b, s, owner, true)
		if err := c.CompileTo(b, expr.In{Column: owner.Name, Values: chunk}, s.Junction); err != nil {
			return nil, err
		}
		if err := l.narrowJoined(b, s.Target, extra); err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY ").Column(s.Junction.Table, owner.Name).
			WriteString(", ").Column(s.Target.Table, tpk.Name)
		rows, extras, err := l.query(ctx, exec, b, s.Target)
		if err != nil {
			return nil, err
		}
		for i, r := range rows {
			if extras == nil || extras[i] == nil {
				return nil, fmt.Errorf("include: load %s: missing %s column", s.Target.Name, ownerColumn)
			}
			ov, err := field.FromStorage(extras[i][ownerColumn], owner.Type)
			if err != nil {
				return nil, fmt.Errorf("include: load %s: owner key: %w", s.Target.Name, err)
			}
			ownerKey, err := field.Key(ov, owner.Type)
			if err != nil {
				return nil, err
			}
			tk, err := tpk.Key(r)
			if err != nil {
				return nil, err
			}
			if prev, seen := shared[tk]; seen {
				r = prev
			} else {
				shared[tk] = r
				unique = append(unique, r)
			}
			groups[ownerKey] = append(groups[ownerKey], r)
		}
	}
	for _, o := range owners {
		k, err := pk.Key(o)
		if err != nil {
			return nil, err
		}
		s.Navigation.Assign(o, groups[k])
	}
	return unique, nil
}

// manyToManyEach loads the targets of every distinct owner key with its own
// statement, for dialects that cannot project the junction key.
func (l *Loader) manyToManyEach(ctx context.Context, exec dialect.ExecQuerier, owners []any, s Step, extra []expr.Expr) ([]any, error) {
	owner, err := s.Junction.Lookup(s.Navigation.JunctionOwner)
	if err != nil {
		return nil, err
	}
	pk := s.Source.PrimaryKey()
	keys, err := keysOf(owners, pk)
	if err != nil {
		return nil, err
	}
	var (
		c      = expr.NewCompiler(l.dialect).Qualify(s.Junction.Table)
		tpk    = s.Target.PrimaryKey()
		shared = make(map[any]any)
		groups = make(map[any][]any, keys.len())
		unique []any
	)
	for i, v := range keys.values {
		b := sql.Dialect(l.dialect)
		junctionJoin(b, s, owner, false)
		if err := c.CompileTo(b, expr.Compare{Column: owner.Name, Op: expr.OpEQ, Value: v}, s.Junction); err != nil {
			return nil, err
		}
		if err := l.narrowJoined(b, s.Target, extra); err != nil {
			return nil, err
		}
		b.WriteString(" ORDER BY ").Column(s.Target.Table, tpk.Name)
		rows, _, err := l.query(ctx, exec, b, s.Target)
		if err != nil {
			return nil, err
		}
		group := make([]any, 0, len(rows))
		for _, r := range rows {
			tk, err := tpk.Key(r)
			if err != nil {
				return nil, err
			}
			if prev, seen := shared[tk]; seen {
				r = prev
			} else {
				shared[tk] = r
				unique = append(unique, r)
			}
			group = append(group, r)
		}
		groups[keys.keys[i]] = group
	}
	for _, o := range owners {
		k, err := pk.Key(o)
		if err != nil {
			return nil, err
		}
		s.Navigation.Assign(o, groups[k])
	}
	return unique, nil
}
