package expr

import (
	"fmt"

	"github.com/syssam/veloxdb"
	"github.com/syssam/veloxdb/dialect/sql"
	"github.com/syssam/veloxdb/schema"
	"github.com/syssam/veloxdb/schema/field"
)

// CompileUpdate renders the SET list of updates over the entity described
// by d. The primary key and the version column cannot be assigned.
func (c *Compiler) CompileUpdate(updates []Update, d *schema.Descriptor) (*Clause, error) {
	b := sql.Dialect(c.dialect)
	if err := c.CompileUpdateTo(b, updates, d); err != nil {
		return nil, err
	}
	return &Clause{SQL: b.String(), Params: b.Params(), Dialect: c.dialect}, nil
}

// CompileUpdateTo renders the SET list of updates into b, continuing its
// parameter list.
func (c *Compiler) CompileUpdateTo(b *sql.Builder, updates []Update, d *schema.Descriptor) error {
	if len(updates) == 0 {
		return veloxdb.NewUnsupportedExpressionError("Update", "no assignments")
	}
	seen := make(map[string]bool, len(updates))
	for i, u := range updates {
		col, err := target(u, d)
		if err != nil {
			return err
		}
		if seen[col.Name] {
			return veloxdb.NewUnsupportedExpressionError("Update", "column %q assigned twice", col.Name)
		}
		seen[col.Name] = true
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(col.Name).WriteString(" = ")
		switch u := u.(type) {
		case Set:
			v, err := storage(col, u.Value, "Set")
			if err != nil {
				return err
			}
			if v == nil {
				if !col.Nullable {
					return veloxdb.NewUnsupportedExpressionError("Set", "nil value for non-nullable column %q", col.Name)
				}
				b.WriteString("NULL")
				continue
			}
			b.Arg(col.Name, v)
		case Increment:
			v, err := storage(col, u.By, "Increment")
			if err != nil {
				return err
			}
			if v == nil {
				return veloxdb.NewUnsupportedExpressionError("Increment", "nil increment of column %q", col.Name)
			}
			b.Ident(col.Name).WriteString(" + ").Arg(col.Name, v)
		case SetNull:
			b.WriteString("NULL")
		}
	}
	return b.Err()
}

// target resolves and checks the column an update assigns.
func target(u Update, d *schema.Descriptor) (*schema.Column, error) {
	var (
		node, name string
	)
	switch u := u.(type) {
	case Set:
		node, name = "Set", u.Column
	case Increment:
		node, name = "Increment", u.Column
	case SetNull:
		node, name = "SetNull", u.Column
	case nil:
		return nil, veloxdb.NewUnsupportedExpressionError("nil", "missing update")
	default:
		return nil, veloxdb.NewUnsupportedExpressionError("update", "unknown node %T", u)
	}
	col, err := d.Lookup(name)
	if err != nil {
		return nil, err
	}
	switch {
	case col.PrimaryKey:
		return nil, veloxdb.NewUnsupportedExpressionError(node, "primary key %q cannot be updated", col.Name)
	case col.Version:
		return nil, veloxdb.NewUnsupportedExpressionError(node, "version column %q is managed by the concurrency controller", col.Name)
	case node == "Increment" && !col.Type.Numeric():
		return nil, veloxdb.NewUnsupportedExpressionError(node, "column %q is not numeric", col.Name)
	case node == "SetNull" && !col.Nullable:
		return nil, veloxdb.NewUnsupportedExpressionError(node, "column %q is not nullable", col.Name)
	}
	return col, nil
}

// Apply writes updates into entity as CompileUpdate would persist them.
func Apply(updates []Update, d *schema.Descriptor, entity any) error {
	for _, u := range updates {
		col, err := target(u, d)
		if err != nil {
			return err
		}
		switch u := u.(type) {
		case Set:
			v, err := storage(col, u.Value, "Set")
			if err != nil {
				return err
			}
			if err := col.Set(entity, v); err != nil {
				return err
			}
		case Increment:
			sum, err := add(col, entity, u.By)
			if err != nil {
				return err
			}
			if err := col.Set(entity, sum); err != nil {
				return err
			}
		case SetNull:
			if err := col.Set(entity, nil); err != nil {
				return err
			}
		}
	}
	return nil
}

func add(col *schema.Column, entity, by any) (any, error) {
	cur, err := col.StorageValue(entity)
	if err != nil {
		return nil, err
	}
	inc, err := storage(col, by, "Increment")
	if err != nil {
		return nil, err
	}
	if cur == nil || inc == nil {
		return nil, fmt.Errorf("expr: increment of NULL column %q", col.Name)
	}
	switch col.Type {
	case field.TypeInt64:
		return cur.(int64) + inc.(int64), nil
	default:
		return cur.(float64) + inc.(float64), nil
	}
}
