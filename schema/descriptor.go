package schema

import (
	"fmt"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema/edge"
	"github.com/syssam/veloxdb/schema/field"
)

// Column maps one entity field onto a table column.
type Column struct {
	Name          string // column name
	Field         string // Go field name
	Type          field.Type
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Version       bool
	References    string // entity referenced by a foreign key column

	get func(entity any) any
	ptr func(entity any) any
}

// Value returns the Go value of the column in entity.
func (c *Column) Value(entity any) any { return c.get(entity) }

// StorageValue returns the value of the column in entity as bound to a
// statement parameter.
func (c *Column) StorageValue(entity any) (any, error) {
	v, err := field.ToStorage(c.get(entity), c.Type)
	if err != nil {
		return nil, fmt.Errorf("schema: column %q: %w", c.Name, err)
	}
	return v, nil
}

// Set writes a value as read from the database into the entity field.
func (c *Column) Set(entity, v any) error {
	cv, err := field.FromStorage(v, c.Type)
	if err != nil {
		return fmt.Errorf("schema: column %q: %w", c.Name, err)
	}
	if err := field.Assign(c.ptr(entity), cv); err != nil {
		return fmt.Errorf("schema: column %q: %w", c.Name, err)
	}
	return nil
}

// Key returns the comparable key of the column value in entity.
func (c *Column) Key(entity any) (any, error) {
	return field.Key(c.get(entity), c.Type)
}

// Navigation is a relationship from an entity to one or many others.
type Navigation struct {
	Name       string
	Kind       edge.Kind
	Target     string // target entity name
	ForeignKey string // OneToMany: column on the target. ManyToOne: column on the owner.

	// ManyToMany only.
	Junction       string // junction entity name
	JunctionOwner  string // junction column referencing the owner
	JunctionTarget string // junction column referencing the target

	assign  func(owner any, related []any)
	related func(owner any) []any
}

// Collection reports whether the navigation holds many entities.
func (n *Navigation) Collection() bool { return n.Kind.Collection() }

// Assign sets the navigation of owner. Collections always receive a non-nil
// slice; references receive the first entity or nil.
func (n *Navigation) Assign(owner any, related []any) { n.assign(owner, related) }

// Related returns the entities currently loaded in the navigation of owner.
func (n *Navigation) Related(owner any) []any { return n.related(owner) }

// Descriptor is the immutable table mapping of an entity type.
type Descriptor struct {
	Name  string
	Table string

	columns  []*Column
	byColumn map[string]*Column
	byField  map[string]*Column
	navs     []*Navigation
	byNav    map[string]*Navigation
	pk       *Column
	version  *Column

	newFn   func() any
	cloneFn func(any) any
}

// Columns returns the columns in declaration order.
func (d *Descriptor) Columns() []*Column { return d.columns }

// Lookup resolves a column by column name or Go field name.
func (d *Descriptor) Lookup(name string) (*Column, error) {
	if c, ok := d.byColumn[name]; ok {
		return c, nil
	}
	if c, ok := d.byField[name]; ok {
		return c, nil
	}
	return nil, veloxdb.NewUnknownColumnError(d.Name, name)
}

// PrimaryKey returns the primary-key column.
func (d *Descriptor) PrimaryKey() *Column { return d.pk }

// Version returns the version column, or nil for unversioned entities.
func (d *Descriptor) Version() *Column { return d.version }

// ForeignKeys returns the columns referencing other entities.
func (d *Descriptor) ForeignKeys() []*Column {
	var fks []*Column
	for _, c := range d.columns {
		if c.References != "" {
			fks = append(fks, c)
		}
	}
	return fks
}

// Insertable returns the columns written by an INSERT.
func (d *Descriptor) Insertable() []*Column {
	cols := make([]*Column, 0, len(d.columns))
	for _, c := range d.columns {
		if !c.AutoIncrement {
			cols = append(cols, c)
		}
	}
	return cols
}

// Updatable returns the columns written by a full-row UPDATE. The primary
// key and the version column are excluded.
func (d *Descriptor) Updatable() []*Column {
	cols := make([]*Column, 0, len(d.columns))
	for _, c := range d.columns {
		if !c.PrimaryKey && !c.Version {
			cols = append(cols, c)
		}
	}
	return cols
}

// Navigation returns the navigation with the given name.
func (d *Descriptor) Navigation(name string) (*Navigation, bool) {
	n, ok := d.byNav[name]
	return n, ok
}

// Navigations returns the navigations in declaration order.
func (d *Descriptor) Navigations() []*Navigation { return d.navs }

// New returns a new zero entity as a pointer.
func (d *Descriptor) New() any { return d.newFn() }

// Clone returns a shallow copy of entity.
func (d *Descriptor) Clone(entity any) any { return d.cloneFn(entity) }

// ID returns the primary-key value of entity.
func (d *Descriptor) ID(entity any) any { return d.pk.Value(entity) }

// CopyColumns copies every column value from src into dst, leaving
// navigations untouched.
func (d *Descriptor) CopyColumns(dst, src any) error {
	for _, c := range d.columns {
		v, err := c.StorageValue(src)
		if err != nil {
			return err
		}
		if err := c.Set(dst, v); err != nil {
			return err
		}
	}
	return nil
}

// Scan maps every row onto a new entity and closes rows. Result columns the
// descriptor does not map are returned per row in extras, which is nil when
// every column is mapped.
func (d *Descriptor) Scan(rows sql.ColumnScanner) ([]any, []map[string]any, error) {
	maps, err := sql.ScanMaps(rows)
	if err != nil {
		return nil, nil, err
	}
	entities := make([]any, 0, len(maps))
	var extras []map[string]any
	for i, row := range maps {
		e := d.newFn()
		for name, v := range row {
			c, ok := d.byColumn[name]
			if !ok {
				if extras == nil {
					extras = make([]map[string]any, len(maps))
				}
				if extras[i] == nil {
					extras[i] = make(map[string]any)
				}
				extras[i][name] = v
				continue
			}
			if err := c.Set(e, v); err != nil {
				return nil, nil, fmt.Errorf("schema: scan %s: %w", d.Name, err)
			}
		}
		entities = append(entities, e)
	}
	return entities, extras, nil
}
