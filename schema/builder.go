package schema

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-openapi/inflect"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema/edge"
	"github.com/syssam/veloxdb/schema/field"
)

// Builder declares the descriptor of entity type T.
type Builder[T any] struct {
	name   string
	table  string
	fields []*FieldDef[T]
	edges  []*EdgeDef[T]
}

// Define starts the descriptor of entity type T under the given entity name.
func Define[T any](name string) *Builder[T] {
	return &Builder[T]{name: name}
}

// Name returns the entity name.
func (b *Builder[T]) Name() string { return b.name }

// Table sets the table name.
func (b *Builder[T]) Table(name string) *Builder[T] {
	b.table = name
	return b
}

// Fields appends column definitions.
func (b *Builder[T]) Fields(defs ...*FieldDef[T]) *Builder[T] {
	b.fields = append(b.fields, defs...)
	return b
}

// Mixin prepends reusable sets of column definitions, keeping the order of
// the sets.
func (b *Builder[T]) Mixin(sets ...[]*FieldDef[T]) *Builder[T] {
	var defs []*FieldDef[T]
	for _, s := range sets {
		defs = append(defs, s...)
	}
	b.fields = append(defs, b.fields...)
	return b
}

// Edges appends navigation definitions.
func (b *Builder[T]) Edges(defs ...*EdgeDef[T]) *Builder[T] {
	b.edges = append(b.edges, defs...)
	return b
}

// MustBuild is like Build but panics on error.
func (b *Builder[T]) MustBuild() *Descriptor {
	d, err := b.Build()
	if err != nil {
		panic(err)
	}
	return d
}

// Build validates the declaration and returns the descriptor.
func (b *Builder[T]) Build() (*Descriptor, error) {
	if b.name == "" {
		return nil, veloxdb.NewValidationError(b.name, errors.New("missing entity name"))
	}
	d := &Descriptor{
		Name:     b.name,
		Table:    b.table,
		byColumn: make(map[string]*Column, len(b.fields)),
		byField:  make(map[string]*Column, len(b.fields)),
		byNav:    make(map[string]*Navigation, len(b.edges)),
		newFn:    func() any { return new(T) },
		cloneFn: func(e any) any {
			c := *e.(*T)
			return &c
		},
	}
	if d.Table == "" {
		d.Table = TableName(b.name)
	}
	invalid := func(format string, args ...any) (*Descriptor, error) {
		return nil, veloxdb.NewValidationError(b.name, fmt.Errorf(format, args...))
	}
	if _, err := sql.Quote(dialect.SQLite, d.Table); err != nil {
		return invalid("table: %w", err)
	}
	for _, f := range b.fields {
		c := f.col
		if _, err := sql.Quote(dialect.SQLite, c.Name); err != nil {
			return invalid("column: %w", err)
		}
		if c.Field == "" {
			c.Field = GoName(c.Name)
		}
		if _, ok := d.byColumn[c.Name]; ok {
			return invalid("duplicate column %q", c.Name)
		}
		if _, ok := d.byField[c.Field]; ok {
			return invalid("duplicate field %q", c.Field)
		}
		if !c.Type.Valid() {
			return invalid("column %q has no storage type", c.Name)
		}
		switch {
		case c.PrimaryKey:
			if d.pk != nil {
				return invalid("second primary key %q", c.Name)
			}
			if c.Nullable {
				return invalid("primary key %q is nullable", c.Name)
			}
			d.pk = c
		case c.Version:
			if d.version != nil {
				return invalid("second version column %q", c.Name)
			}
			if c.Nullable || (c.Type != field.TypeInt64 && c.Type != field.TypeTime && c.Type != field.TypeUUID) {
				return invalid("version column %q must be a non-null integer, timestamp or UUID", c.Name)
			}
			d.version = c
		}
		d.columns = append(d.columns, c)
		d.byColumn[c.Name] = c
		d.byField[c.Field] = c
	}
	if d.pk == nil {
		return invalid("missing primary key")
	}
	for _, e := range b.edges {
		n := e.nav
		if n.Name == "" || n.Target == "" {
			return invalid("navigation without name or target")
		}
		if _, ok := d.byNav[n.Name]; ok {
			return invalid("duplicate navigation %q", n.Name)
		}
		if n.Kind == edge.ManyToOne {
			if _, err := d.Lookup(n.ForeignKey); err != nil {
				return nil, veloxdb.NewValidationError(b.name, fmt.Errorf("navigation %q: %w", n.Name, err))
			}
		}
		d.navs = append(d.navs, n)
		d.byNav[n.Name] = n
	}
	return d, nil
}

// TableName returns the default table name of an entity: "Category" becomes
// "categories" and "PostTag" becomes "post_tags".
func TableName(entity string) string {
	return inflect.Pluralize(inflect.Underscore(entity))
}

// GoName returns the default Go field name of a column: "parent_id" becomes
// "ParentID".
func GoName(column string) string {
	name := inflect.Camelize(column)
	if strings.HasSuffix(name, "Id") {
		name = strings.TrimSuffix(name, "Id") + "ID"
	}
	return name
}

// FieldDef declares one column of entity type T.
type FieldDef[T any] struct {
	col *Column
}

func newField[T, V any](column string, ref func(*T) *V) *FieldDef[T] {
	typ, nullable := field.TypeOf[V]()
	return &FieldDef[T]{col: &Column{
		Name:     column,
		Type:     typ,
		Nullable: nullable,
		get:      func(e any) any { return *ref(e.(*T)) },
		ptr:      func(e any) any { return ref(e.(*T)) },
	}}
}

// Field declares a column backed by the field ref points to.
func Field[T, V any](column string, ref func(*T) *V) *FieldDef[T] {
	return newField(column, ref)
}

// ID declares the primary-key column. Integer keys are auto-incremented.
func ID[T, V any](column string, ref func(*T) *V) *FieldDef[T] {
	f := newField(column, ref)
	f.col.PrimaryKey = true
	f.col.AutoIncrement = f.col.Type == field.TypeInt64
	return f
}

// Version declares the optimistic-concurrency version column. The field must
// be an integer, a time.Time or a uuid.UUID.
func Version[T, V any](column string, ref func(*T) *V) *FieldDef[T] {
	f := newField(column, ref)
	f.col.Version = true
	return f
}

// GoName overrides the Go field name the column is looked up by.
func (f *FieldDef[T]) GoName(name string) *FieldDef[T] {
	f.col.Field = name
	return f
}

// References marks the column as a foreign key to the named entity.
func (f *FieldDef[T]) References(entity string) *FieldDef[T] {
	f.col.References = entity
	return f
}

// AutoIncrement sets whether the database generates the column value.
func (f *FieldDef[T]) AutoIncrement(on bool) *FieldDef[T] {
	f.col.AutoIncrement = on
	return f
}

// EdgeDef declares one navigation of entity type T.
type EdgeDef[T any] struct {
	nav *Navigation
}

func collection[T, R any](ref func(*T) *[]*R) (func(any, []any), func(any) []any) {
	assign := func(owner any, related []any) {
		s := make([]*R, 0, len(related))
		for _, r := range related {
			s = append(s, r.(*R))
		}
		*ref(owner.(*T)) = s
	}
	get := func(owner any) []any {
		s := *ref(owner.(*T))
		out := make([]any, 0, len(s))
		for _, r := range s {
			if r != nil {
				out = append(out, r)
			}
		}
		return out
	}
	return assign, get
}

// HasMany declares a one-to-many navigation: target rows carry foreignKey
// referencing the owner's primary key.
func HasMany[T, R any](name, target, foreignKey string, ref func(*T) *[]*R) *EdgeDef[T] {
	assign, get := collection(ref)
	return &EdgeDef[T]{nav: &Navigation{
		Name:       name,
		Kind:       edge.OneToMany,
		Target:     target,
		ForeignKey: foreignKey,
		assign:     assign,
		related:    get,
	}}
}

// ManyToMany declares a many-to-many navigation through the junction entity,
// whose ownerKey column references the owner and targetKey column references
// the target.
func ManyToMany[T, R any](name, target, junction, ownerKey, targetKey string, ref func(*T) *[]*R) *EdgeDef[T] {
	assign, get := collection(ref)
	return &EdgeDef[T]{nav: &Navigation{
		Name:           name,
		Kind:           edge.ManyToMany,
		Target:         target,
		Junction:       junction,
		JunctionOwner:  ownerKey,
		JunctionTarget: targetKey,
		assign:         assign,
		related:        get,
	}}
}

// BelongsTo declares a many-to-one navigation: the owner's foreignKey column
// references the target's primary key.
func BelongsTo[T, R any](name, target, foreignKey string, ref func(*T) **R) *EdgeDef[T] {
	return &EdgeDef[T]{nav: &Navigation{
		Name:       name,
		Kind:       edge.ManyToOne,
		Target:     target,
		ForeignKey: foreignKey,
		assign: func(owner any, related []any) {
			var r *R
			if len(related) > 0 {
				r = related[0].(*R)
			}
			*ref(owner.(*T)) = r
		},
		related: func(owner any) []any {
			if r := *ref(owner.(*T)); r != nil {
				return []any{r}
			}
			return nil
		},
	}}
}
